package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	authUseCase "github.com/allisson/sealdrop/internal/auth/usecase"
	apperrors "github.com/allisson/sealdrop/internal/errors"
	"github.com/allisson/sealdrop/internal/httputil"
)

const bearerPrefix = "bearer "

// extractBearer returns the token of a "Bearer <token>" Authorization header. The scheme is
// matched case-insensitively.
func extractBearer(authHeader string) (string, bool) {
	if len(authHeader) < len(bearerPrefix) ||
		!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// AuthenticationMiddleware authenticates senders and administrators via a JWT in the
// Authorization header.
//
// The middleware:
// 1. Extracts the Bearer token from the Authorization header (case-insensitive)
// 2. Validates the JWT using authUseCase.Authenticate()
// 3. Stores the principal in the request context for GetPrincipal()
//
// Error handling:
//   - Missing or malformed Authorization header → 401 Unauthorized
//   - Invalid or expired token → 401 Unauthorized
//
// Usage:
//
//	router.Use(AuthenticationMiddleware(authUseCase, logger))
//	router.POST("/v1/transfers", func(c *gin.Context) {
//	    principal, _ := GetPrincipal(c.Request.Context())
//	    // principal.UserID is the sender
//	})
func AuthenticationMiddleware(
	authUseCase authUseCase.AuthUseCase,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractBearer(c.GetHeader("Authorization"))
		if !ok {
			logger.Debug("authentication failed: missing or malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		principal, err := authUseCase.Authenticate(c.Request.Context(), token)
		if err != nil {
			logger.Debug("authentication failed", slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		ctx := WithPrincipal(c.Request.Context(), principal)
		c.Request = c.Request.WithContext(ctx)

		logger.Debug("authentication successful",
			slog.String("user_id", principal.UserID.String()),
			slog.Bool("is_admin", principal.IsAdmin))

		c.Next()
	}
}

// AdminMiddleware requires the authenticated principal to be an administrator. It MUST be used
// after AuthenticationMiddleware.
func AdminMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c.Request.Context())
		if !ok || principal == nil {
			logger.Debug("authorization failed: no authenticated principal in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if !principal.IsAdmin {
			logger.Debug("authorization failed: admin privileges required",
				slog.String("user_id", principal.UserID.String()))
			httputil.HandleErrorGin(c, authDomain.ErrAdminRequired, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RecipientTokenMiddleware requires a recipient auth token in the Authorization header and stores
// it for GetBearerToken. Binding the token to the URL is left to the download broker, so a
// well-formed but foreign token still reaches the handler and fails there with 401.
func RecipientTokenMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractBearer(c.GetHeader("Authorization"))
		if !ok {
			logger.Debug("recipient token missing or malformed")
			httputil.HandleErrorGin(c, authDomain.ErrAuthSessionInvalid, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithBearerToken(c.Request.Context(), token))
		c.Next()
	}
}
