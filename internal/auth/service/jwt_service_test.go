package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
)

func testSigningKey() []byte {
	return bytes.Repeat([]byte("k"), MinJWTSigningKeyLength)
}

func TestNewJWTService_ShortKey(t *testing.T) {
	_, err := NewJWTService([]byte("short"), "sealdrop", time.Hour)
	assert.ErrorIs(t, err, ErrJWTSigningKeyTooShort)
}

func TestJWTService_SignAndParse(t *testing.T) {
	service, err := NewJWTService(testSigningKey(), "sealdrop", time.Hour)
	require.NoError(t, err)

	principal := &authDomain.Principal{UserID: uuid.Must(uuid.NewV7()), IsAdmin: true}

	token, expiresAt, err := service.Sign(principal)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	parsed, err := service.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, principal, parsed)
}

func TestJWTService_Parse_Rejects(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	service, err := newJWTService(testSigningKey(), "sealdrop", time.Minute, clock)
	require.NoError(t, err)

	valid, _, err := service.Sign(&authDomain.Principal{UserID: uuid.Must(uuid.NewV7())})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later, err := newJWTService(testSigningKey(), "sealdrop", time.Minute, func() time.Time {
			return now.Add(2 * time.Minute)
		})
		require.NoError(t, err)

		_, err = later.Parse(valid)
		assert.ErrorIs(t, err, authDomain.ErrInvalidToken)
	})

	t.Run("other issuer", func(t *testing.T) {
		other, err := newJWTService(testSigningKey(), "someone-else", time.Minute, clock)
		require.NoError(t, err)

		_, err = other.Parse(valid)
		assert.ErrorIs(t, err, authDomain.ErrInvalidToken)
	})

	t.Run("other key", func(t *testing.T) {
		other, err := newJWTService(bytes.Repeat([]byte("x"), 40), "sealdrop", time.Minute, clock)
		require.NoError(t, err)

		_, err = other.Parse(valid)
		assert.ErrorIs(t, err, authDomain.ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   uuid.NewString(),
				Issuer:    "sealdrop",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
		})
		tokenString, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = service.Parse(tokenString)
		assert.ErrorIs(t, err, authDomain.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := service.Parse("not.a.jwt")
		assert.ErrorIs(t, err, authDomain.ErrInvalidToken)
	})
}
