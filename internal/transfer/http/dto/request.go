// Package dto provides data transfer objects for the transfer and download endpoints.
package dto

import (
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	transferDomain "github.com/allisson/sealdrop/internal/transfer/domain"
	customValidation "github.com/allisson/sealdrop/internal/validation"
)

// InitiateRequest starts a transfer. Zero values of the optional fields take the server defaults.
type InitiateRequest struct {
	RecipientEmail string `json:"recipient_email"`
	FileHashSHA3   string `json:"file_hash_sha3"`
	FileSizeBytes  int64  `json:"file_size_bytes"`
	CloudType      string `json:"cloud_type,omitempty"`
	MaxDownloads   int    `json:"max_downloads,omitempty"`
	TTLHours       int    `json:"ttl_hours,omitempty"`
	KeyAlgorithm   string `json:"key_algorithm,omitempty"`
}

// Validate checks if the initiate request is well formed. Range checks that depend on server
// settings happen in the use case.
func (r *InitiateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RecipientEmail,
			validation.Required,
			customValidation.Email,
		),
		validation.Field(&r.FileHashSHA3,
			validation.Required,
			customValidation.HexDigest256,
		),
		validation.Field(&r.FileSizeBytes,
			validation.Required,
			validation.Min(int64(1)),
		),
		validation.Field(&r.CloudType, customValidation.NoWhitespace),
		validation.Field(&r.KeyAlgorithm, customValidation.NoWhitespace),
	)
}

// ToDomain converts the request to an initiate input.
func (r *InitiateRequest) ToDomain(senderID uuid.UUID, ipAddress string) *transferDomain.InitiateInput {
	return &transferDomain.InitiateInput{
		SenderID:       senderID,
		RecipientEmail: strings.TrimSpace(r.RecipientEmail),
		FileHashSHA3:   strings.ToLower(r.FileHashSHA3),
		FileSizeBytes:  r.FileSizeBytes,
		CloudType:      r.CloudType,
		MaxDownloads:   r.MaxDownloads,
		TTLHours:       r.TTLHours,
		KeyAlgorithm:   r.KeyAlgorithm,
		IPAddress:      ipAddress,
	}
}

const maxWrappedKeySize = 8 << 10

// StoreKeyRequest hands over the wrapped key. WrappedKey is base64 encoded and opaque to the
// server.
type StoreKeyRequest struct {
	WrappedKey  string `json:"wrapped_key"`
	CloudFileID string `json:"cloud_file_id"`
}

// Validate checks if the store key request is valid.
func (r *StoreKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.WrappedKey,
			validation.Required,
			customValidation.Base64Bytes{Max: maxWrappedKeySize},
		),
		validation.Field(&r.CloudFileID,
			validation.Required,
			customValidation.NotBlank,
		),
	)
}

// ToDomain decodes the wrapped key and builds the use case input. Validate must have passed.
func (r *StoreKeyRequest) ToDomain(sessionID, senderID uuid.UUID, ipAddress string) (*transferDomain.StoreKeyInput, error) {
	wrappedKey, err := base64.StdEncoding.DecodeString(r.WrappedKey)
	if err != nil {
		return nil, err
	}

	return &transferDomain.StoreKeyInput{
		SessionID:   sessionID,
		SenderID:    senderID,
		WrappedKey:  wrappedKey,
		CloudFileID: r.CloudFileID,
		IPAddress:   ipAddress,
	}, nil
}

// FinalizeRequest makes a transfer downloadable. RecipientEmail, when set, must be the address
// given at initiation and triggers the notification email.
type FinalizeRequest struct {
	RecipientEmail string `json:"recipient_email,omitempty"`
}

// Validate checks if the finalize request is valid.
func (r *FinalizeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RecipientEmail, customValidation.Email),
	)
}

// ToDomain converts the request to a finalize input.
func (r *FinalizeRequest) ToDomain(sessionID, senderID uuid.UUID, ipAddress string) *transferDomain.FinalizeInput {
	return &transferDomain.FinalizeInput{
		SessionID:      sessionID,
		SenderID:       senderID,
		RecipientEmail: strings.TrimSpace(r.RecipientEmail),
		IPAddress:      ipAddress,
	}
}
