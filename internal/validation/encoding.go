package validation

import (
	"encoding/base64"
	"strconv"

	validation "github.com/jellydator/validation"
)

// Base64Bytes accepts standard base64 whose decoded form is at most Max bytes.
// Empty strings pass so Required decides whether the field is mandatory.
type Base64Bytes struct {
	Max int
}

// Validate implements validation.Rule.
func (b Base64Bytes) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_base64_type", "must be a string")
	}
	if s == "" {
		return nil
	}
	if base64.StdEncoding.DecodedLen(len(s)) > b.Max+2 {
		return b.tooLarge()
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return validation.NewError("validation_base64", "must be valid base64-encoded data")
	}
	if len(decoded) > b.Max {
		return b.tooLarge()
	}
	return nil
}

func (b Base64Bytes) tooLarge() error {
	return validation.NewError("validation_base64_size", "must decode to at most "+strconv.Itoa(b.Max)+" bytes")
}
