// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"strings"

	validation "github.com/jellydator/validation"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	customValidation "github.com/allisson/sealdrop/internal/validation"
)

// LoginRequest contains sender credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field
}

// Validate checks if the login request is valid.
func (r *LoginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email,
			validation.Required,
			customValidation.Email,
		),
		validation.Field(&r.Password,
			validation.Required,
			validation.Length(1, 1024),
		),
	)
}

// ToDomain converts the request to a login input.
func (r *LoginRequest) ToDomain(ipAddress string) *authDomain.LoginInput {
	return &authDomain.LoginInput{
		Email:     strings.TrimSpace(r.Email),
		Password:  r.Password,
		IPAddress: ipAddress,
	}
}

// VerifyRequest carries a recipient's one-time code.
type VerifyRequest struct {
	Code string `json:"code"`
}

// Validate checks if the verify request is valid.
func (r *VerifyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Code,
			validation.Required,
			customValidation.TOTPCode,
		),
	)
}

// ToDomain converts the request to a verification input for urlToken.
func (r *VerifyRequest) ToDomain(urlToken, ipAddress string) *authDomain.VerifyTOTPInput {
	return &authDomain.VerifyTOTPInput{
		URLToken:  urlToken,
		Code:      r.Code,
		IPAddress: ipAddress,
	}
}
