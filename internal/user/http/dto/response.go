package dto

import (
	"encoding/base64"
	"time"

	userDomain "github.com/allisson/sealdrop/internal/user/domain"
)

// PublicKeyResponse represents a public key in API responses.
type PublicKeyResponse struct {
	ID        string     `json:"id"`
	Algorithm string     `json:"algorithm"`
	KeyData   string     `json:"key_data"`
	IsPrimary bool       `json:"is_primary"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// MapPublicKeyToResponse converts a domain key to an API response. Active is evaluated at now.
func MapPublicKeyToResponse(key *userDomain.PublicKey, now time.Time) PublicKeyResponse {
	return PublicKeyResponse{
		ID:        key.ID.String(),
		Algorithm: key.Algorithm,
		KeyData:   base64.StdEncoding.EncodeToString(key.KeyData),
		IsPrimary: key.IsPrimary,
		Active:    key.IsActive(now),
		ExpiresAt: key.ExpiresAt,
		RevokedAt: key.RevokedAt,
		CreatedAt: key.CreatedAt,
	}
}

// ListPublicKeysResponse represents a list of public keys in API responses.
type ListPublicKeysResponse struct {
	Data []PublicKeyResponse `json:"data"`
}

// MapPublicKeysToListResponse converts a slice of domain keys to a list API response.
func MapPublicKeysToListResponse(keys []*userDomain.PublicKey, now time.Time) ListPublicKeysResponse {
	responses := make([]PublicKeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, MapPublicKeyToResponse(key, now))
	}
	return ListPublicKeysResponse{Data: responses}
}
