package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	authService "github.com/allisson/sealdrop/internal/auth/service"
	userDomain "github.com/allisson/sealdrop/internal/user/domain"
)

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *userDomain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepository) Get(ctx context.Context, userID uuid.UUID) (*userDomain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmailHash(ctx context.Context, emailHash string) (*userDomain.User, error) {
	args := m.Called(ctx, emailHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

type mockPublicKeyRepository struct {
	mock.Mock
}

func (m *mockPublicKeyRepository) Create(ctx context.Context, key *userDomain.PublicKey) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockPublicKeyRepository) Get(ctx context.Context, keyID uuid.UUID) (*userDomain.PublicKey, error) {
	args := m.Called(ctx, keyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.PublicKey), args.Error(1)
}

func (m *mockPublicKeyRepository) FindPrimaryActive(
	ctx context.Context,
	userID uuid.UUID,
	algorithm string,
	now time.Time,
) (*userDomain.PublicKey, error) {
	args := m.Called(ctx, userID, algorithm, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.PublicKey), args.Error(1)
}

func (m *mockPublicKeyRepository) ClearPrimary(ctx context.Context, userID uuid.UUID, algorithm string) error {
	return m.Called(ctx, userID, algorithm).Error(0)
}

func (m *mockPublicKeyRepository) Revoke(ctx context.Context, keyID uuid.UUID, revokedAt time.Time) error {
	return m.Called(ctx, keyID, revokedAt).Error(0)
}

func (m *mockPublicKeyRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*userDomain.PublicKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*userDomain.PublicKey), args.Error(1)
}

// passthroughTxManager runs fn without a real transaction.
type passthroughTxManager struct {
	calls int
}

func (p *passthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

type recordingAudit struct {
	entries []*authDomain.AuditLog
}

func (r *recordingAudit) Record(_ context.Context, entry *authDomain.AuditLog) {
	r.entries = append(r.entries, entry)
}

type stubSecretService struct{}

func (stubSecretService) GeneratePassword() (string, string, error) {
	return "generated-password", "hash:generated-password", nil
}

func (stubSecretService) HashPassword(password string) (string, error) {
	return "hash:" + password, nil
}

func (stubSecretService) ComparePassword(password, hash string) bool {
	return hash == "hash:"+password
}

type stubTOTPService struct {
	accounts []string
	err      error
}

func (s *stubTOTPService) Enroll(_ context.Context, accountName string) (*authService.TOTPEnrollment, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.accounts = append(s.accounts, accountName)
	return &authService.TOTPEnrollment{
		Secret:          "JBSWY3DPEHPK3PXP",
		ProvisioningURI: "otpauth://totp/sealdrop:" + accountName,
		Sealed:          []byte("sealed"),
	}, nil
}

func (s *stubTOTPService) Validate(context.Context, []byte, string, time.Time) (bool, error) {
	return false, nil
}
