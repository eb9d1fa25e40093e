package service

import (
	"errors"
	"time"

	"github.com/awnumar/memguard"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	apperrors "github.com/allisson/sealdrop/internal/errors"
)

// MinJWTSigningKeyLength is the shortest accepted HS256 signing key in bytes.
const MinJWTSigningKeyLength = 32

// ErrJWTSigningKeyTooShort is returned when the configured signing key is shorter than
// MinJWTSigningKeyLength.
var ErrJWTSigningKeyTooShort = errors.New("jwt signing key must be at least 32 bytes")

// Claims are the sender JWT claims. The subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
	IsAdmin bool `json:"adm,omitempty"`
}

// jwtService signs HS256 tokens with a key held in a memguard enclave. The key is only
// decrypted into locked memory for the duration of a sign or verify call.
type jwtService struct {
	key    *memguard.Enclave
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// Sign issues a token for principal valid for the configured TTL.
func (j *jwtService) Sign(principal *authDomain.Principal) (string, time.Time, error) {
	now := j.now().UTC()
	expiresAt := now.Add(j.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.Must(uuid.NewV7()).String(),
			Subject:   principal.UserID.String(),
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		IsAdmin: principal.IsAdmin,
	})

	buf, err := j.key.Open()
	if err != nil {
		return "", time.Time{}, apperrors.Wrap(err, "failed to open jwt signing key")
	}
	defer buf.Destroy()

	signed, err := token.SignedString(buf.Bytes())
	if err != nil {
		return "", time.Time{}, apperrors.Wrap(err, "failed to sign jwt")
	}
	return signed, expiresAt, nil
}

// Parse validates signature, algorithm, issuer and expiry and returns the principal.
func (j *jwtService) Parse(tokenString string) (*authDomain.Principal, error) {
	buf, err := j.key.Open()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open jwt signing key")
	}
	defer buf.Destroy()

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) {
			return buf.Bytes(), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil || !token.Valid {
		return nil, authDomain.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, authDomain.ErrInvalidToken
	}
	return &authDomain.Principal{UserID: userID, IsAdmin: claims.IsAdmin}, nil
}

// NewJWTService moves signingKey into a memguard enclave and wipes the source slice.
func NewJWTService(signingKey []byte, issuer string, ttl time.Duration) (JWTService, error) {
	return newJWTService(signingKey, issuer, ttl, time.Now)
}

func newJWTService(signingKey []byte, issuer string, ttl time.Duration, now func() time.Time) (*jwtService, error) {
	if len(signingKey) < MinJWTSigningKeyLength {
		return nil, ErrJWTSigningKeyTooShort
	}

	return &jwtService{
		key:    memguard.NewEnclave(signingKey),
		issuer: issuer,
		ttl:    ttl,
		now:    now,
	}, nil
}
