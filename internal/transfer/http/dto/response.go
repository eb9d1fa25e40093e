package dto

import (
	"encoding/base64"
	"time"

	transferDomain "github.com/allisson/sealdrop/internal/transfer/domain"
)

// InitiateResponse is everything the sender client needs to encrypt and upload.
type InitiateResponse struct {
	SessionID          string    `json:"session_id"`
	UploadURL          string    `json:"upload_url"`
	ObjectID           string    `json:"object_id"`
	RecipientPublicKey string    `json:"recipient_public_key"`
	RecipientKeyID     string    `json:"recipient_key_id"`
	KeyAlgorithm       string    `json:"key_algorithm"`
	URLToken           string    `json:"url_token"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// MapInitiateToResponse converts an initiate output to an API response.
func MapInitiateToResponse(output *transferDomain.InitiateOutput) InitiateResponse {
	return InitiateResponse{
		SessionID:          output.SessionID.String(),
		UploadURL:          output.UploadURL,
		ObjectID:           output.ObjectID,
		RecipientPublicKey: base64.StdEncoding.EncodeToString(output.RecipientPublicKey),
		RecipientKeyID:     output.RecipientKeyID.String(),
		KeyAlgorithm:       output.KeyAlgorithm,
		URLToken:           output.URLToken,
		ExpiresAt:          output.ExpiresAt,
	}
}

// FinalizeResponse carries the share URL.
type FinalizeResponse struct {
	ShareURL  string    `json:"share_url"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	EmailSent bool      `json:"email_sent"`
}

// MapFinalizeToResponse converts a finalize output to an API response.
func MapFinalizeToResponse(output *transferDomain.FinalizeOutput) FinalizeResponse {
	return FinalizeResponse{
		ShareURL:  output.ShareURL,
		Status:    string(output.Status),
		ExpiresAt: output.ExpiresAt,
		EmailSent: output.EmailSent,
	}
}

// TransferResponse is the sender's view of a transfer. The recipient email hash is never exposed.
type TransferResponse struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	FileHashSHA3   string     `json:"file_hash_sha3"`
	FileSizeBytes  int64      `json:"file_size_bytes"`
	CloudType      string     `json:"cloud_type"`
	CloudFileID    *string    `json:"cloud_file_id,omitempty"`
	RecipientKeyID string     `json:"recipient_key_id"`
	MaxDownloads   int        `json:"max_downloads"`
	DownloadCount  int        `json:"download_count"`
	ExpiresAt      time.Time  `json:"expires_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// MapTransferToResponse converts a domain transfer to an API response.
func MapTransferToResponse(transfer *transferDomain.Transfer) TransferResponse {
	return TransferResponse{
		ID:             transfer.ID.String(),
		Status:         string(transfer.Status),
		FileHashSHA3:   transfer.FileHashSHA3,
		FileSizeBytes:  transfer.FileSizeBytes,
		CloudType:      transfer.CloudType,
		CloudFileID:    transfer.CloudFileID,
		RecipientKeyID: transfer.RecipientKeyID.String(),
		MaxDownloads:   transfer.MaxDownloads,
		DownloadCount:  transfer.DownloadCount,
		ExpiresAt:      transfer.ExpiresAt,
		DeletedAt:      transfer.DeletedAt,
		CreatedAt:      transfer.CreatedAt,
		UpdatedAt:      transfer.UpdatedAt,
	}
}

// InfoResponse is the public landing-page view of a download link.
type InfoResponse struct {
	SenderDisplayName  string    `json:"sender_display_name"`
	FileSizeBytes      int64     `json:"file_size_bytes"`
	ExpiresAt          time.Time `json:"expires_at"`
	RemainingDownloads int       `json:"remaining_downloads"`
	TwoFactorType      string    `json:"two_factor_type"`
}

// MapInfoToResponse converts transfer info to an API response.
func MapInfoToResponse(info *transferDomain.Info) InfoResponse {
	return InfoResponse{
		SenderDisplayName:  info.SenderDisplayName,
		FileSizeBytes:      info.FileSizeBytes,
		ExpiresAt:          info.ExpiresAt,
		RemainingDownloads: info.RemainingDownloads,
		TwoFactorType:      info.TwoFactorType,
	}
}

// KeyReleaseResponse carries the wrapped key and a short-lived download URL.
type KeyReleaseResponse struct {
	WrappedKey           string    `json:"wrapped_key"`
	DownloadURL          string    `json:"download_url"`
	DownloadURLExpiresAt time.Time `json:"download_url_expires_at"`
	FileHashSHA3         string    `json:"file_hash_sha3"`
	DownloadCount        int       `json:"download_count"`
	Status               string    `json:"status"`
}

// MapKeyReleaseToResponse converts a key release to an API response.
func MapKeyReleaseToResponse(release *transferDomain.KeyRelease) KeyReleaseResponse {
	return KeyReleaseResponse{
		WrappedKey:           base64.StdEncoding.EncodeToString(release.WrappedKey),
		DownloadURL:          release.DownloadURL,
		DownloadURLExpiresAt: release.DownloadURLExpiresAt,
		FileHashSHA3:         release.FileHashSHA3,
		DownloadCount:        release.DownloadCount,
		Status:               string(release.Status),
	}
}
