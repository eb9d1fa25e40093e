// Package dto provides data transfer objects for the public key registry endpoints.
package dto

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	userDomain "github.com/allisson/sealdrop/internal/user/domain"
	customValidation "github.com/allisson/sealdrop/internal/validation"
)

const maxKeyDataSize = 4096

// RegisterKeyRequest registers a public key. KeyData is base64 encoded.
type RegisterKeyRequest struct {
	Algorithm   string     `json:"algorithm"`
	KeyData     string     `json:"key_data"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	MakePrimary bool       `json:"make_primary"`
}

// Validate checks if the register key request is valid.
func (r *RegisterKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Algorithm,
			validation.Required,
			customValidation.NotBlank,
		),
		validation.Field(&r.KeyData,
			validation.Required,
			customValidation.Base64Bytes{Max: maxKeyDataSize},
		),
	)
}

// ToDomain decodes the key and builds the use case input. Validate must have passed.
func (r *RegisterKeyRequest) ToDomain(userID uuid.UUID, ipAddress string) (*userDomain.RegisterKeyInput, error) {
	keyData, err := base64.StdEncoding.DecodeString(r.KeyData)
	if err != nil {
		return nil, err
	}

	return &userDomain.RegisterKeyInput{
		UserID:      userID,
		Algorithm:   r.Algorithm,
		KeyData:     keyData,
		ExpiresAt:   r.ExpiresAt,
		MakePrimary: r.MakePrimary,
		IPAddress:   ipAddress,
	}, nil
}
