package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	apperrors "github.com/allisson/sealdrop/internal/errors"
	userDomain "github.com/allisson/sealdrop/internal/user/domain"
)

func newTestKeyUseCase(repo *mockPublicKeyRepository, now time.Time) (*keyUseCase, *passthroughTxManager, *recordingAudit) {
	tx := &passthroughTxManager{}
	audit := &recordingAudit{}
	uc := NewKeyUseCase(tx, repo, audit).(*keyUseCase)
	uc.now = func() time.Time { return now }
	return uc, tx, audit
}

func TestKeyUseCase_Register(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	userID := uuid.Must(uuid.NewV7())
	keyData := []byte("0123456789abcdef0123456789abcdef")

	t.Run("FirstKeyBecomesPrimary", func(t *testing.T) {
		repo := &mockPublicKeyRepository{}
		uc, tx, audit := newTestKeyUseCase(repo, now)

		repo.On("FindPrimaryActive", ctx, userID, "x25519", now).Return(nil, userDomain.ErrPublicKeyNotFound).Once()
		repo.On("ClearPrimary", ctx, userID, "x25519").Return(nil).Once()
		repo.On("Create", ctx, mock.MatchedBy(func(k *userDomain.PublicKey) bool {
			return k.IsPrimary && k.UserID == userID
		})).Return(nil).Once()

		key, err := uc.Register(ctx, &userDomain.RegisterKeyInput{
			UserID: userID, Algorithm: "x25519", KeyData: keyData, IPAddress: "10.0.0.1",
		})
		require.NoError(t, err)
		assert.True(t, key.IsPrimary)
		assert.Equal(t, 1, tx.calls)
		require.Len(t, audit.entries, 1)
		assert.Equal(t, authDomain.EventKeyRegistered, audit.entries[0].EventType)
		assert.Equal(t, userID, *audit.entries[0].ActorID)
		repo.AssertExpectations(t)
	})

	t.Run("SecondKeyStaysSecondary", func(t *testing.T) {
		repo := &mockPublicKeyRepository{}
		uc, _, _ := newTestKeyUseCase(repo, now)

		repo.On("FindPrimaryActive", ctx, userID, "x25519", now).Return(&userDomain.PublicKey{IsPrimary: true}, nil).Once()
		repo.On("Create", ctx, mock.MatchedBy(func(k *userDomain.PublicKey) bool {
			return !k.IsPrimary
		})).Return(nil).Once()

		key, err := uc.Register(ctx, &userDomain.RegisterKeyInput{UserID: userID, Algorithm: "x25519", KeyData: keyData})
		require.NoError(t, err)
		assert.False(t, key.IsPrimary)
		repo.AssertNotCalled(t, "ClearPrimary", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MakePrimaryClearsPrevious", func(t *testing.T) {
		repo := &mockPublicKeyRepository{}
		uc, _, _ := newTestKeyUseCase(repo, now)

		repo.On("ClearPrimary", ctx, userID, "x25519").Return(nil).Once()
		repo.On("Create", ctx, mock.Anything).Return(nil).Once()

		key, err := uc.Register(ctx, &userDomain.RegisterKeyInput{
			UserID: userID, Algorithm: "x25519", KeyData: keyData, MakePrimary: true,
		})
		require.NoError(t, err)
		assert.True(t, key.IsPrimary)
		repo.AssertNotCalled(t, "FindPrimaryActive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_Validation", func(t *testing.T) {
		repo := &mockPublicKeyRepository{}
		uc, tx, audit := newTestKeyUseCase(repo, now)
		past := now.Add(-time.Hour)

		inputs := []*userDomain.RegisterKeyInput{
			{UserID: userID, Algorithm: "", KeyData: keyData},
			{UserID: userID, Algorithm: "x25519", KeyData: []byte("short")},
			{UserID: userID, Algorithm: "x25519", KeyData: keyData, ExpiresAt: &past},
		}
		for _, input := range inputs {
			_, err := uc.Register(ctx, input)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		}
		assert.Zero(t, tx.calls)
		assert.Empty(t, audit.entries)
	})
}

func TestKeyUseCase_Revoke(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	userID := uuid.Must(uuid.NewV7())
	keyID := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		repo := &mockPublicKeyRepository{}
		uc, _, audit := newTestKeyUseCase(repo, now)

		repo.On("Get", ctx, keyID).Return(&userDomain.PublicKey{ID: keyID, UserID: userID}, nil).Once()
		repo.On("Revoke", ctx, keyID, now).Return(nil).Once()

		require.NoError(t, uc.Revoke(ctx, userID, keyID, "10.0.0.1"))
		require.Len(t, audit.entries, 1)
		assert.Equal(t, authDomain.EventKeyRevoked, audit.entries[0].EventType)
		repo.AssertExpectations(t)
	})

	t.Run("OtherUsersKeyIsNotFound", func(t *testing.T) {
		repo := &mockPublicKeyRepository{}
		uc, _, audit := newTestKeyUseCase(repo, now)

		repo.On("Get", ctx, keyID).Return(&userDomain.PublicKey{ID: keyID, UserID: uuid.Must(uuid.NewV7())}, nil).Once()

		err := uc.Revoke(ctx, userID, keyID, "10.0.0.1")
		assert.ErrorIs(t, err, userDomain.ErrPublicKeyNotFound)
		assert.Empty(t, audit.entries)
		repo.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("AlreadyRevoked", func(t *testing.T) {
		repo := &mockPublicKeyRepository{}
		uc, _, _ := newTestKeyUseCase(repo, now)

		repo.On("Get", ctx, keyID).Return(&userDomain.PublicKey{ID: keyID, UserID: userID}, nil).Once()
		repo.On("Revoke", ctx, keyID, now).Return(userDomain.ErrPublicKeyRevoked).Once()

		assert.ErrorIs(t, uc.Revoke(ctx, userID, keyID, ""), apperrors.ErrConflict)
	})
}

func TestKeyUseCase_List(t *testing.T) {
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())
	repo := &mockPublicKeyRepository{}
	uc, _, _ := newTestKeyUseCase(repo, time.Now())

	keys := []*userDomain.PublicKey{{ID: uuid.Must(uuid.NewV7()), UserID: userID}}
	repo.On("ListByUser", ctx, userID).Return(keys, nil).Once()

	got, err := uc.List(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, keys, got)
}
