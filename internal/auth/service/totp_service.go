package service

import (
	"context"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"gocloud.dev/secrets"

	apperrors "github.com/allisson/sealdrop/internal/errors"

	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// TOTP parameters shared by enrolment and validation: 30 s steps, 6 digits, SHA-1, and one
// step of clock skew either way.
const (
	TOTPPeriod = 30
	TOTPSkew   = 1
	TOTPDigits = otp.DigitsSix
)

// Keeper seals and opens TOTP secrets at rest. *secrets.Keeper implements it.
type Keeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// OpenKeeper opens a gocloud.dev keeper. Supported schemes: base64key://, awskms://,
// gcpkms://, azurekeyvault://, hashivault://.
func OpenKeeper(ctx context.Context, keyURI string) (Keeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open totp keeper")
	}
	return keeper, nil
}

type totpService struct {
	keeper Keeper
	issuer string
}

func validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    TOTPPeriod,
		Skew:      TOTPSkew,
		Digits:    TOTPDigits,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Enroll generates a new TOTP secret for accountName and seals it with the keeper.
func (s *totpService) Enroll(ctx context.Context, accountName string) (*TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountName,
		Period:      TOTPPeriod,
		Digits:      TOTPDigits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate totp secret")
	}

	sealed, err := s.keeper.Encrypt(ctx, []byte(key.Secret()))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to seal totp secret")
	}

	return &TOTPEnrollment{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		Sealed:          sealed,
	}, nil
}

// Validate opens sealedSecret and checks code at the given instant. A wrong code is (false, nil);
// an error means the secret could not be opened.
func (s *totpService) Validate(ctx context.Context, sealedSecret []byte, code string, at time.Time) (bool, error) {
	secret, err := s.keeper.Decrypt(ctx, sealedSecret)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to open totp secret")
	}
	defer clear(secret)

	ok, err := totp.ValidateCustom(code, string(secret), at, validateOpts())
	if err != nil {
		// malformed codes surface as errors from the library
		return false, nil
	}
	return ok, nil
}

// NewTOTPService creates a TOTPService sealing secrets with keeper.
func NewTOTPService(keeper Keeper, issuer string) TOTPService {
	return &totpService{keeper: keeper, issuer: issuer}
}
