package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	"github.com/allisson/sealdrop/internal/cache"
	apperrors "github.com/allisson/sealdrop/internal/errors"
	transferDomain "github.com/allisson/sealdrop/internal/transfer/domain"
)

func TestScenario_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out := f.initiate(t, 1)
	assert.Equal(t, f.recipientKey.KeyData, out.RecipientPublicKey)
	assert.Equal(t, f.recipientKey.ID, out.RecipientKeyID)
	assert.Equal(t, "x25519", out.KeyAlgorithm)

	f.storeKey(t, out)

	final, err := f.orchestrator.FinalizeURL(ctx, &transferDomain.FinalizeInput{
		SessionID:      out.SessionID,
		SenderID:       f.sender.ID,
		RecipientEmail: " Recipient@Example.com ",
		IPAddress:      testIP,
	})
	require.NoError(t, err)
	assert.Equal(t, transferDomain.StatusReady, final.Status)
	assert.Equal(t, "https://drop.example.com/d/"+out.URLToken, final.ShareURL)
	assert.True(t, final.EmailSent)
	assert.Equal(t, []string{recipientEmail}, f.notifier.sent)

	info, err := f.broker.GetInfo(ctx, out.URLToken, testIP)
	require.NoError(t, err)
	assert.Equal(t, 1, info.RemainingDownloads)
	assert.Equal(t, "Sender", info.SenderDisplayName)
	assert.Equal(t, "totp", info.TwoFactorType)

	for _, remaining := range []int{4, 3, 2} {
		_, err := f.verify(out.URLToken, "000000")
		var authErr *apperrors.AuthFailedError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, remaining, authErr.RemainingAttempts)
	}

	token := f.authToken(t, out.URLToken)

	release, err := f.broker.GetKey(ctx, out.URLToken, token, testIP)
	require.NoError(t, err)
	assert.Equal(t, []byte("wrapped-key"), release.WrappedKey)
	assert.Equal(t, fileHash, release.FileHashSHA3)
	assert.Equal(t, 1, release.DownloadCount)
	assert.Equal(t, transferDomain.StatusDownloaded, release.Status)
	assert.Contains(t, release.DownloadURL, out.ObjectID)

	_, err = f.broker.GetKey(ctx, out.URLToken, token, testIP)
	assert.ErrorIs(t, err, transferDomain.ErrTransferExhausted)
	assert.ErrorIs(t, err, apperrors.ErrGone)

	require.NoError(t, f.broker.Complete(ctx, out.URLToken, token, testIP))

	// Zero retention: no key, no object, tombstoned row.
	_, err = f.cache.Get(ctx, cache.WrappedKeyKey(out.URLToken))
	assert.ErrorIs(t, err, cache.ErrMiss)
	assert.Equal(t, []string{out.ObjectID}, f.storage.deletedObjects())
	stored, err := f.transfers.GetByID(ctx, out.SessionID)
	require.NoError(t, err)
	assert.Equal(t, transferDomain.StatusDeleted, stored.Status)
	assert.NotNil(t, stored.DeletedAt)

	// Completing twice succeeds, and the bearer now reaches the durable check.
	require.NoError(t, f.broker.Complete(ctx, out.URLToken, token, testIP))
	_, err = f.broker.GetKey(ctx, out.URLToken, token, testIP)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.broker.GetInfo(ctx, out.URLToken, testIP)
	assert.ErrorIs(t, err, transferDomain.ErrTransferNotFound)

	assert.Equal(t, 2, f.audit.count(authDomain.EventComplete))
	assert.Equal(t, 1, f.audit.count(authDomain.EventKeyReleased))
	assert.Equal(t, 3, f.audit.count(authDomain.EventAuthFail))
}

func TestScenario_Lockout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	out := f.ready(t, 1)

	var last *apperrors.AuthFailedError
	for range 5 {
		_, err := f.verify(out.URLToken, "000000")
		require.ErrorAs(t, err, &last)
	}
	assert.Equal(t, 0, last.RemainingAttempts)
	assert.Equal(t, 1, f.audit.count(authDomain.EventLock))

	// The correct code no longer helps.
	_, err := f.verify(out.URLToken, validCode)
	assert.ErrorIs(t, err, apperrors.ErrLocked)

	_, err = f.broker.GetInfo(ctx, out.URLToken, testIP)
	assert.ErrorIs(t, err, apperrors.ErrLocked)

	require.NoError(t, f.auth.Unlock(ctx, out.URLToken, f.sender.ID, testIP))

	status, err := f.auth.LockStatus(ctx, out.URLToken)
	require.NoError(t, err)
	assert.False(t, status.Locked)
	assert.Zero(t, status.Failures)

	token := f.authToken(t, out.URLToken)
	_, err = f.broker.GetKey(ctx, out.URLToken, token, testIP)
	require.NoError(t, err)
}

func TestScenario_ExpiredBeforeKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	out := f.ready(t, 1)

	token := f.authToken(t, out.URLToken)
	f.transfers.age(out.SessionID)

	_, err := f.broker.GetKey(ctx, out.URLToken, token, testIP)
	assert.ErrorIs(t, err, transferDomain.ErrTransferExpired)

	stored, err := f.transfers.GetByID(ctx, out.SessionID)
	require.NoError(t, err)
	assert.Equal(t, transferDomain.StatusExpired, stored.Status)
	assert.Zero(t, stored.DownloadCount)

	_, err = f.broker.GetInfo(ctx, out.URLToken, testIP)
	assert.ErrorIs(t, err, apperrors.ErrGone)

	_, err = f.verify(out.URLToken, validCode)
	assert.ErrorIs(t, err, apperrors.ErrGone)
}

func TestGetKey_DownloadBudgetUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	out := f.ready(t, 3)
	token := f.authToken(t, out.URLToken)

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, gone := 0, 0

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.broker.GetKey(context.Background(), out.URLToken, token, testIP)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperrors.ErrGone):
				gone++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, workers-3, gone)

	stored, err := f.transfers.GetByID(context.Background(), out.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.DownloadCount)
	assert.Equal(t, transferDomain.StatusDownloaded, stored.Status)
}

func TestGetKey_TokenBinding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.ready(t, 1)
	b := f.ready(t, 1)

	tokenA := f.authToken(t, a.URLToken)

	_, err := f.broker.GetKey(ctx, b.URLToken, tokenA, testIP)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.broker.GetKey(ctx, a.URLToken, "", testIP)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	assert.ErrorIs(t, f.broker.Complete(ctx, b.URLToken, tokenA, testIP), apperrors.ErrUnauthorized)

	stored, err := f.transfers.GetByID(ctx, b.SessionID)
	require.NoError(t, err)
	assert.Zero(t, stored.DownloadCount)
	assert.Nil(t, stored.DeletedAt)
}

func TestGetKey_WrappedKeyGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	out := f.ready(t, 1)
	token := f.authToken(t, out.URLToken)

	require.NoError(t, f.cache.Delete(ctx, cache.WrappedKeyKey(out.URLToken)))

	_, err := f.broker.GetKey(ctx, out.URLToken, token, testIP)
	assert.ErrorIs(t, err, transferDomain.ErrWrappedKeyNotFound)

	stored, err := f.transfers.GetByID(ctx, out.SessionID)
	require.NoError(t, err)
	assert.Zero(t, stored.DownloadCount)
}
