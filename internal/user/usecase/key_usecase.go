package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	"github.com/allisson/sealdrop/internal/database"
	apperrors "github.com/allisson/sealdrop/internal/errors"
	userDomain "github.com/allisson/sealdrop/internal/user/domain"
	customValidation "github.com/allisson/sealdrop/internal/validation"
)

func validateRegisterKey(input *userDomain.RegisterKeyInput) error {
	err := validation.ValidateStruct(input,
		validation.Field(&input.Algorithm, validation.Required, customValidation.NoWhitespace, validation.Length(1, 64)),
		validation.Field(&input.KeyData, validation.Required, validation.Length(16, 4096)),
	)
	return customValidation.WrapValidationError(err)
}

type keyUseCase struct {
	txManager database.TxManager
	keyRepo   PublicKeyRepository
	audit     AuditRecorder
	now       func() time.Time
}

// Register stores the key and resolves primacy inside one transaction so a user never ends up
// with two primary keys for the same algorithm.
func (k *keyUseCase) Register(
	ctx context.Context,
	input *userDomain.RegisterKeyInput,
) (*userDomain.PublicKey, error) {
	if err := validateRegisterKey(input); err != nil {
		return nil, err
	}

	now := k.now().UTC()
	if input.ExpiresAt != nil && !input.ExpiresAt.After(now) {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "expires_at: must be in the future")
	}

	key := &userDomain.PublicKey{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    input.UserID,
		Algorithm: input.Algorithm,
		KeyData:   input.KeyData,
		ExpiresAt: input.ExpiresAt,
		CreatedAt: now,
	}

	err := k.txManager.WithTx(ctx, func(ctx context.Context) error {
		makePrimary := input.MakePrimary
		if !makePrimary {
			_, err := k.keyRepo.FindPrimaryActive(ctx, input.UserID, input.Algorithm, now)
			switch {
			case errors.Is(err, userDomain.ErrPublicKeyNotFound):
				makePrimary = true
			case err != nil:
				return err
			}
		}

		if makePrimary {
			if err := k.keyRepo.ClearPrimary(ctx, input.UserID, input.Algorithm); err != nil {
				return err
			}
			key.IsPrimary = true
		}

		return k.keyRepo.Create(ctx, key)
	})
	if err != nil {
		return nil, err
	}

	k.audit.Record(ctx, authDomain.NewAuditLog(authDomain.EventKeyRegistered, authDomain.ResultSuccess, input.IPAddress).
		WithActor(input.UserID).
		WithMetadata(map[string]any{
			"key_id":     key.ID.String(),
			"algorithm":  key.Algorithm,
			"is_primary": key.IsPrimary,
		}))

	return key, nil
}

func (k *keyUseCase) List(ctx context.Context, userID uuid.UUID) ([]*userDomain.PublicKey, error) {
	return k.keyRepo.ListByUser(ctx, userID)
}

// Revoke revokes a key the user owns.
func (k *keyUseCase) Revoke(ctx context.Context, userID, keyID uuid.UUID, ipAddress string) error {
	key, err := k.keyRepo.Get(ctx, keyID)
	if err != nil {
		return err
	}
	if key.UserID != userID {
		return userDomain.ErrPublicKeyNotFound
	}

	if err := k.keyRepo.Revoke(ctx, keyID, k.now().UTC()); err != nil {
		return err
	}

	k.audit.Record(ctx, authDomain.NewAuditLog(authDomain.EventKeyRevoked, authDomain.ResultSuccess, ipAddress).
		WithActor(userID).
		WithMetadata(map[string]any{"key_id": keyID.String()}))
	return nil
}

// NewKeyUseCase creates a KeyUseCase.
func NewKeyUseCase(txManager database.TxManager, keyRepo PublicKeyRepository, audit AuditRecorder) KeyUseCase {
	return &keyUseCase{
		txManager: txManager,
		keyRepo:   keyRepo,
		audit:     audit,
		now:       time.Now,
	}
}
