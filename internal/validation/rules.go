// Package validation holds the jellydator/validation rules shared by the request DTOs and use cases.
package validation

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/sealdrop/internal/errors"
)

var (
	// emailRegex is a basic email validation pattern
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	hexDigestRegex = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
	totpCodeRegex  = regexp.MustCompile(`^[0-9]{6}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Passphrase bounds a password by rune count and rejects whitespace-only input.
// Composition rules are not enforced; length carries the strength.
type Passphrase struct {
	MinLength int
	MaxLength int
}

// Validate implements validation.Rule.
func (p Passphrase) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_passphrase_type", "password must be a string")
	}
	if strings.TrimSpace(s) == "" {
		return validation.NewError("validation_passphrase_blank", "password must not be blank")
	}

	n := utf8.RuneCountInString(s)
	if n < p.MinLength {
		return validation.NewError(
			"validation_passphrase_min_length",
			"password must be at least "+strconv.Itoa(p.MinLength)+" characters",
		)
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return validation.NewError(
			"validation_passphrase_max_length",
			"password must be at most "+strconv.Itoa(p.MaxLength)+" characters",
		)
	}
	return nil
}

// Email validates email format using regex
var Email = validation.NewStringRuleWithError(
	func(s string) bool {
		return emailRegex.MatchString(s)
	},
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// HexDigest256 validates a 256-bit digest written as 64 hex characters.
var HexDigest256 = validation.NewStringRuleWithError(
	func(s string) bool {
		return hexDigestRegex.MatchString(s)
	},
	validation.NewError("validation_hex_digest", "must be 64 hexadecimal characters"),
)

// TOTPCode validates a six digit one-time code.
var TOTPCode = validation.NewStringRuleWithError(
	func(s string) bool {
		return totpCodeRegex.MatchString(s)
	},
	validation.NewError("validation_totp_code", "must be a 6 digit code"),
)
