// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/sealdrop/internal/errors"
)

// ProblemContentType is the media type of RFC 7807 problem documents.
const ProblemContentType = "application/problem+json"

// Problem is an RFC 7807 problem document. RemainingAttempts and Locked are extension members
// set for failed and locked second-factor checks.
type Problem struct {
	Type              string `json:"type"`
	Title             string `json:"title"`
	Status            int    `json:"status"`
	Detail            string `json:"detail,omitempty"`
	Instance          string `json:"instance,omitempty"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
	Locked            *bool  `json:"locked,omitempty"`
}

// MakeJSONResponse writes body as JSON with statusCode.
func MakeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func problemType(slug string) string {
	return "https://sealdrop.dev/problems/" + slug
}

// WriteProblem renders p with its status code.
func WriteProblem(c *gin.Context, p *Problem) {
	if p.Instance == "" && c.Request != nil {
		p.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ProblemContentType)
	c.Status(p.Status)
	_ = json.NewEncoder(c.Writer).Encode(p)
}

// ProblemFor maps a domain error to its problem document. Internal errors carry no detail.
func ProblemFor(err error) *Problem {
	var authErr *apperrors.AuthFailedError

	switch {
	case apperrors.As(err, &authErr):
		remaining := authErr.RemainingAttempts
		return &Problem{
			Type:              problemType("auth-failed"),
			Title:             "Authentication failed",
			Status:            http.StatusUnauthorized,
			Detail:            "The one-time code is not valid",
			RemainingAttempts: &remaining,
		}

	case apperrors.Is(err, apperrors.ErrUnauthorized), apperrors.Is(err, apperrors.ErrAuthFailed):
		return &Problem{
			Type:   problemType("unauthorized"),
			Title:  "Unauthorized",
			Status: http.StatusUnauthorized,
			Detail: "Authentication is required",
		}

	case apperrors.Is(err, apperrors.ErrLocked):
		locked := true
		return &Problem{
			Type:   problemType("locked"),
			Title:  "Locked",
			Status: http.StatusLocked,
			Detail: "Too many failed attempts; an administrator must unlock this link",
			Locked: &locked,
		}

	case apperrors.Is(err, apperrors.ErrForbidden):
		return &Problem{
			Type:   problemType("forbidden"),
			Title:  "Forbidden",
			Status: http.StatusForbidden,
			Detail: "You don't have permission to access this resource",
		}

	case apperrors.Is(err, apperrors.ErrNotFound):
		return &Problem{
			Type:   problemType("not-found"),
			Title:  "Not found",
			Status: http.StatusNotFound,
			Detail: err.Error(),
		}

	case apperrors.Is(err, apperrors.ErrGone):
		return &Problem{
			Type:   problemType("gone"),
			Title:  "Gone",
			Status: http.StatusGone,
			Detail: err.Error(),
		}

	case apperrors.Is(err, apperrors.ErrConflict):
		return &Problem{
			Type:   problemType("conflict"),
			Title:  "Conflict",
			Status: http.StatusConflict,
			Detail: err.Error(),
		}

	case apperrors.Is(err, apperrors.ErrInvalidInput):
		return &Problem{
			Type:   problemType("bad-request"),
			Title:  "Bad request",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
		}

	case apperrors.Is(err, apperrors.ErrRateLimited):
		return &Problem{
			Type:   problemType("rate-limited"),
			Title:  "Too many requests",
			Status: http.StatusTooManyRequests,
			Detail: "Request budget exceeded, retry later",
		}

	default:
		return &Problem{
			Type:   problemType("internal"),
			Title:  "Internal server error",
			Status: http.StatusInternalServerError,
		}
	}
}

// HandleErrorGin maps domain errors to problem documents. It is the only place domain errors
// become HTTP status codes.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	problem := ProblemFor(err)

	if logger != nil {
		level := slog.LevelWarn
		if problem.Status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed",
			slog.Int("status_code", problem.Status),
			slog.String("problem", problem.Type),
			slog.Any("error", err),
		)
	}

	WriteProblem(c, problem)
}

// HandleBadRequestGin writes a 400 problem for malformed JSON or parameters.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	WriteProblem(c, &Problem{
		Type:   problemType("bad-request"),
		Title:  "Bad request",
		Status: http.StatusBadRequest,
		Detail: err.Error(),
	})
}

// HandleValidationErrorGin writes a 400 problem for request validation errors.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	WriteProblem(c, &Problem{
		Type:   problemType("validation"),
		Title:  "Validation failed",
		Status: http.StatusBadRequest,
		Detail: err.Error(),
	})
}
