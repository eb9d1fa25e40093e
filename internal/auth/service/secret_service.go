package service

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/sealdrop/internal/errors"
)

const generatedPasswordBytes = 18

type secretService struct {
	hasher *pwdhash.PasswordHasher
}

// GeneratePassword creates a 144-bit random password encoded as 24 base64url characters.
func (s *secretService) GeneratePassword() (string, string, error) {
	randomBytes := make([]byte, generatedPasswordBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate random password")
	}

	plainPassword := base64.RawURLEncoding.EncodeToString(randomBytes)

	passwordHash, err := s.HashPassword(plainPassword)
	if err != nil {
		return "", "", err
	}
	return plainPassword, passwordHash, nil
}

// HashPassword hashes a plain text password using Argon2id.
func (s *secretService) HashPassword(plainPassword string) (string, error) {
	passwordHash, err := s.hasher.Hash([]byte(plainPassword))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash password")
	}
	return passwordHash, nil
}

// ComparePassword verifies a password against its PHC-encoded hash in constant time.
func (s *secretService) ComparePassword(plainPassword string, passwordHash string) bool {
	ok, err := s.hasher.Verify([]byte(plainPassword), passwordHash)
	if err != nil {
		return false
	}
	return ok
}

// NewSecretService creates a SecretService using the pwdhash Moderate policy.
func NewSecretService() SecretService {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyModerate),
	)
	if err != nil {
		panic(err)
	}

	return &secretService{
		hasher: hasher,
	}
}
