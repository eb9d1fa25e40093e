// Package domain defines authentication domain models: recipient auth sessions, sender
// principals, lockout state and the append-only audit trail.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent is the closed set of events the audit trail accepts.
type AuditEvent string

const (
	EventLogin         AuditEvent = "login"
	EventKeyRegistered AuditEvent = "key_registered"
	EventKeyRevoked    AuditEvent = "key_revoked"
	EventURLIssued     AuditEvent = "url_issued"
	EventKeyStored     AuditEvent = "key_stored"
	EventURLFinalized  AuditEvent = "url_finalized"
	EventInfoViewed    AuditEvent = "info_viewed"
	EventAuthSuccess   AuditEvent = "auth_success"
	EventAuthFail      AuditEvent = "auth_fail"
	EventLock          AuditEvent = "lock"
	EventUnlock        AuditEvent = "unlock"
	EventKeyReleased   AuditEvent = "key_released"
	EventComplete      AuditEvent = "complete"
	EventForceDelete   AuditEvent = "force_delete"
	EventExpire        AuditEvent = "expire"
)

var knownEvents = map[AuditEvent]struct{}{
	EventLogin:         {},
	EventKeyRegistered: {},
	EventKeyRevoked:    {},
	EventURLIssued:     {},
	EventKeyStored:     {},
	EventURLFinalized:  {},
	EventInfoViewed:    {},
	EventAuthSuccess:   {},
	EventAuthFail:      {},
	EventLock:          {},
	EventUnlock:        {},
	EventKeyReleased:   {},
	EventComplete:      {},
	EventForceDelete:   {},
	EventExpire:        {},
}

// Valid reports whether e belongs to the closed event set.
func (e AuditEvent) Valid() bool {
	_, ok := knownEvents[e]
	return ok
}

// AuditResult is the outcome recorded with an audit event.
type AuditResult string

const (
	ResultSuccess AuditResult = "success"
	ResultFailure AuditResult = "failure"
)

// AuditLog is one append-only audit trail entry. SessionID references a transfer and ActorID a
// user; either may be nil for events that have no such subject.
type AuditLog struct {
	ID        uuid.UUID
	SessionID *uuid.UUID
	ActorID   *uuid.UUID
	EventType AuditEvent
	Result    AuditResult
	IPAddress string
	Metadata  map[string]any
	CreatedAt time.Time
}

// NewAuditLog builds an entry stamped with a fresh UUIDv7 and the current UTC time.
func NewAuditLog(event AuditEvent, result AuditResult, ip string) *AuditLog {
	return &AuditLog{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: event,
		Result:    result,
		IPAddress: ip,
		CreatedAt: time.Now().UTC(),
	}
}

// WithSession sets the transfer the entry is about.
func (a *AuditLog) WithSession(id uuid.UUID) *AuditLog {
	a.SessionID = &id
	return a
}

// WithActor sets the user who caused the entry.
func (a *AuditLog) WithActor(id uuid.UUID) *AuditLog {
	a.ActorID = &id
	return a
}

// WithMetadata merges key/value pairs into the entry metadata.
func (a *AuditLog) WithMetadata(kv map[string]any) *AuditLog {
	if a.Metadata == nil {
		a.Metadata = make(map[string]any, len(kv))
	}
	for k, v := range kv {
		a.Metadata[k] = v
	}
	return a
}

// AuditLogFilter narrows an audit log listing. Nil fields are not applied; time bounds are
// inclusive.
type AuditLogFilter struct {
	SessionID     *uuid.UUID
	ActorID       *uuid.UUID
	EventType     *AuditEvent
	CreatedAtFrom *time.Time
	CreatedAtTo   *time.Time
	Offset        int
	Limit         int
}
