package dto

import (
	"time"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
)

// LoginResponse contains the signed sender JWT.
type LoginResponse struct {
	Token     string    `json:"token"` //nolint:gosec // returned once on login
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MapLoginToResponse converts a login output to an API response.
func MapLoginToResponse(output *authDomain.LoginOutput) LoginResponse {
	return LoginResponse{
		Token:     output.Token,
		TokenType: "Bearer",
		ExpiresAt: output.ExpiresAt,
	}
}

// VerifyResponse contains the recipient auth token bound to one transfer URL.
// SECURITY: The token is only returned once.
type VerifyResponse struct {
	AuthToken string    `json:"auth_token"` //nolint:gosec // returned once on verification
	ExpiresAt time.Time `json:"expires_at"`
}

// MapVerifyToResponse converts a verification output to an API response.
func MapVerifyToResponse(output *authDomain.VerifyTOTPOutput) VerifyResponse {
	return VerifyResponse{
		AuthToken: output.AuthToken,
		ExpiresAt: output.ExpiresAt,
	}
}

// LockStatusResponse reports the lockout counter of a transfer URL.
type LockStatusResponse struct {
	Failures  int64 `json:"failures"`
	Threshold int64 `json:"threshold"`
	Locked    bool  `json:"locked"`
}

// MapLockStatusToResponse converts a lock status to an API response.
func MapLockStatusToResponse(status *authDomain.LockStatus) LockStatusResponse {
	return LockStatusResponse{
		Failures:  status.Failures,
		Threshold: status.Threshold,
		Locked:    status.Locked,
	}
}

// AuditLogResponse represents an audit log entry in API responses.
type AuditLogResponse struct {
	ID        string         `json:"id"`
	SessionID *string        `json:"session_id,omitempty"`
	ActorID   *string        `json:"actor_id,omitempty"`
	EventType string         `json:"event_type"`
	Result    string         `json:"result"`
	IPAddress string         `json:"ip_address,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// MapAuditLogToResponse converts a domain audit log to an API response.
func MapAuditLogToResponse(auditLog *authDomain.AuditLog) AuditLogResponse {
	response := AuditLogResponse{
		ID:        auditLog.ID.String(),
		EventType: string(auditLog.EventType),
		Result:    string(auditLog.Result),
		IPAddress: auditLog.IPAddress,
		Metadata:  auditLog.Metadata,
		CreatedAt: auditLog.CreatedAt,
	}
	if auditLog.SessionID != nil {
		id := auditLog.SessionID.String()
		response.SessionID = &id
	}
	if auditLog.ActorID != nil {
		id := auditLog.ActorID.String()
		response.ActorID = &id
	}
	return response
}

// ListAuditLogsResponse represents a paginated list of audit logs in API responses.
type ListAuditLogsResponse struct {
	Data []AuditLogResponse `json:"data"`
}

// MapAuditLogsToListResponse converts a slice of domain audit logs to a list API response.
func MapAuditLogsToListResponse(auditLogs []*authDomain.AuditLog) ListAuditLogsResponse {
	auditLogResponses := make([]AuditLogResponse, 0, len(auditLogs))
	for _, auditLog := range auditLogs {
		auditLogResponses = append(auditLogResponses, MapAuditLogToResponse(auditLog))
	}
	return ListAuditLogsResponse{
		Data: auditLogResponses,
	}
}
