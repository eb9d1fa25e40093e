package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	authUseCase "github.com/allisson/sealdrop/internal/auth/usecase"
	transferUseCase "github.com/allisson/sealdrop/internal/transfer/usecase"
	userDomain "github.com/allisson/sealdrop/internal/user/domain"
	userUseCase "github.com/allisson/sealdrop/internal/user/usecase"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type mockAuditLogUseCase struct {
	mock.Mock
}

var _ authUseCase.AuditLogUseCase = (*mockAuditLogUseCase)(nil)

func (m *mockAuditLogUseCase) Record(ctx context.Context, entry *authDomain.AuditLog) {
	m.Called(ctx, entry)
}

func (m *mockAuditLogUseCase) List(
	ctx context.Context,
	filter authDomain.AuditLogFilter,
) ([]*authDomain.AuditLog, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*authDomain.AuditLog), args.Error(1)
}

func (m *mockAuditLogUseCase) DeleteOlderThan(ctx context.Context, days int, dryRun bool) (int64, error) {
	args := m.Called(ctx, days, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

// stubAuthUseCase implements the lock operations used by unlock-transfer.
type stubAuthUseCase struct {
	authUseCase.AuthUseCase
	mock.Mock
}

func (m *stubAuthUseCase) Unlock(ctx context.Context, urlToken string, actorID uuid.UUID, ipAddress string) error {
	return m.Called(ctx, urlToken, actorID, ipAddress).Error(0)
}

func (m *stubAuthUseCase) LockStatus(ctx context.Context, urlToken string) (*authDomain.LockStatus, error) {
	args := m.Called(ctx, urlToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.LockStatus), args.Error(1)
}

// stubDownloadBroker implements the cleanup operations used by the admin commands.
type stubDownloadBroker struct {
	transferUseCase.DownloadBroker
	mock.Mock
}

func (m *stubDownloadBroker) ForceDelete(ctx context.Context, sessionID, actorID uuid.UUID, ipAddress string) error {
	return m.Called(ctx, sessionID, actorID, ipAddress).Error(0)
}

func (m *stubDownloadBroker) ExpireStale(ctx context.Context, limit int, dryRun bool) (int, error) {
	args := m.Called(ctx, limit, dryRun)
	return args.Int(0), args.Error(1)
}

type mockUserUseCase struct {
	mock.Mock
}

var _ userUseCase.UserUseCase = (*mockUserUseCase)(nil)

func (m *mockUserUseCase) Create(
	ctx context.Context,
	input *userDomain.CreateUserInput,
) (*userDomain.CreateUserOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.CreateUserOutput), args.Error(1)
}

func (m *mockUserUseCase) Get(ctx context.Context, userID uuid.UUID) (*userDomain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}
