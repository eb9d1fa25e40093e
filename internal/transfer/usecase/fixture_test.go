package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	authService "github.com/allisson/sealdrop/internal/auth/service"
	authUseCase "github.com/allisson/sealdrop/internal/auth/usecase"
	"github.com/allisson/sealdrop/internal/cache"
	"github.com/allisson/sealdrop/internal/metrics"
	"github.com/allisson/sealdrop/internal/storage"
	transferDomain "github.com/allisson/sealdrop/internal/transfer/domain"
	userDomain "github.com/allisson/sealdrop/internal/user/domain"
)

const (
	recipientEmail = "recipient@example.com"
	testIP         = "203.0.113.7"
)

var fileHash = strings.Repeat("ab", 32)

type fixture struct {
	orchestrator Orchestrator
	broker       DownloadBroker
	auth         authUseCase.AuthUseCase
	transfers    *memTransferRepo
	cache        *cache.MemoryCache
	storage      *fakeStorage
	notifier     *fakeNotifier
	audit        *recordingAudit
	sender       *userDomain.User
	recipient    *userDomain.User
	recipientKey *userDomain.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sender := &userDomain.User{
		ID:            uuid.Must(uuid.NewV7()),
		EmailHash:     userDomain.HashEmail("sender@example.com"),
		DisplayName:   "Sender",
		TwoFactorType: userDomain.TwoFactorTOTP,
	}
	recipient := &userDomain.User{
		ID:               uuid.Must(uuid.NewV7()),
		EmailHash:        userDomain.HashEmail(recipientEmail),
		DisplayName:      "Recipient",
		TOTPSecretSealed: []byte("sealed"),
		TwoFactorType:    userDomain.TwoFactorTOTP,
	}
	recipientKey := &userDomain.PublicKey{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    recipient.ID,
		Algorithm: "x25519",
		KeyData:   []byte("recipient-public-key-bytes-32xxx"),
		IsPrimary: true,
	}

	memCache := cache.NewMemoryCache()
	transfers := newMemTransferRepo()
	users := &memUserRepo{users: []*userDomain.User{sender, recipient}}
	objects := &fakeStorage{}
	registry := storage.NewRegistry()
	registry.Register(storage.CloudTypeMinIO, objects)
	notifier := &fakeNotifier{ok: true}
	audit := &recordingAudit{}
	noop := metrics.NewNoOpBusinessMetrics()
	tokenService := authService.NewTokenService()
	lockout := authUseCase.NewLockoutGuard(memCache, 5, 24*time.Hour)

	auth := authUseCase.NewAuthUseCase(authUseCase.AuthUseCaseConfig{
		TransferRepo:   transfers,
		UserRepo:       users,
		Cache:          memCache,
		Lockout:        lockout,
		TokenService:   tokenService,
		TOTPService:    stubTOTP{},
		AuditLog:       audit,
		Metrics:        noop,
		AuthSessionTTL: 10 * time.Minute,
		Logger:         discardLogger(),
	})

	orchestrator := NewOrchestrator(OrchestratorConfig{
		TransferRepo: transfers,
		UserRepo:     users,
		KeyRepo:      &memKeyRepo{keys: []*userDomain.PublicKey{recipientKey}},
		Storage:      registry,
		Cache:        memCache,
		TokenService: tokenService,
		Notifier:     notifier,
		AuditLog:     audit,
		Metrics:      noop,
		Settings: Settings{
			PublicBaseURL:       "https://drop.example.com/",
			WrappedKeyTTL:       time.Hour,
			MaxFileSizeBytes:    1 << 30,
			DefaultTTLHours:     24,
			MaxTTLHours:         168,
			DefaultMaxDownloads: 1,
			DefaultKeyAlgorithm: "x25519",
			DefaultCloudType:    storage.CloudTypeMinIO,
			NotifyTimeout:       200 * time.Millisecond,
		},
		Logger: discardLogger(),
	})

	broker := NewDownloadBroker(DownloadBrokerConfig{
		TransferRepo: transfers,
		UserRepo:     users,
		Storage:      registry,
		Cache:        memCache,
		Sessions:     auth,
		Locks:        lockout,
		AuditLog:     audit,
		Metrics:      noop,
		Logger:       discardLogger(),
	})

	return &fixture{
		orchestrator: orchestrator,
		broker:       broker,
		auth:         auth,
		transfers:    transfers,
		cache:        memCache,
		storage:      objects,
		notifier:     notifier,
		audit:        audit,
		sender:       sender,
		recipient:    recipient,
		recipientKey: recipientKey,
	}
}

func (f *fixture) initiate(t *testing.T, maxDownloads int) *transferDomain.InitiateOutput {
	t.Helper()
	out, err := f.orchestrator.Initiate(context.Background(), &transferDomain.InitiateInput{
		SenderID:       f.sender.ID,
		RecipientEmail: recipientEmail,
		FileHashSHA3:   fileHash,
		FileSizeBytes:  4096,
		MaxDownloads:   maxDownloads,
		TTLHours:       72,
		IPAddress:      testIP,
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) storeKey(t *testing.T, out *transferDomain.InitiateOutput) {
	t.Helper()
	require.NoError(t, f.orchestrator.StoreKey(context.Background(), &transferDomain.StoreKeyInput{
		SessionID:   out.SessionID,
		SenderID:    f.sender.ID,
		WrappedKey:  []byte("wrapped-key"),
		CloudFileID: out.ObjectID,
		IPAddress:   testIP,
	}))
}

// ready drives a transfer through initiate, store key and finalize.
func (f *fixture) ready(t *testing.T, maxDownloads int) *transferDomain.InitiateOutput {
	t.Helper()
	out := f.initiate(t, maxDownloads)
	f.storeKey(t, out)
	_, err := f.orchestrator.FinalizeURL(context.Background(), &transferDomain.FinalizeInput{
		SessionID: out.SessionID,
		SenderID:  f.sender.ID,
		IPAddress: testIP,
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) verify(urlToken, code string) (*authDomain.VerifyTOTPOutput, error) {
	return f.auth.VerifyTOTP(context.Background(), &authDomain.VerifyTOTPInput{
		URLToken:  urlToken,
		Code:      code,
		IPAddress: testIP,
	})
}

func (f *fixture) authToken(t *testing.T, urlToken string) string {
	t.Helper()
	out, err := f.verify(urlToken, validCode)
	require.NoError(t, err)
	return out.AuthToken
}
