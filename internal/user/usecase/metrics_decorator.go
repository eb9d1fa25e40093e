package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/sealdrop/internal/metrics"
	userDomain "github.com/allisson/sealdrop/internal/user/domain"
)

func recordOperation(ctx context.Context, m metrics.BusinessMetrics, operation string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}

	m.RecordOperation(ctx, "user", operation, status)
	m.RecordDuration(ctx, "user", operation, time.Since(start), status)
}

// userUseCaseWithMetrics decorates UserUseCase with metrics instrumentation.
type userUseCaseWithMetrics struct {
	next    UserUseCase
	metrics metrics.BusinessMetrics
}

// NewUserUseCaseWithMetrics wraps a UserUseCase with metrics recording.
func NewUserUseCaseWithMetrics(useCase UserUseCase, m metrics.BusinessMetrics) UserUseCase {
	return &userUseCaseWithMetrics{next: useCase, metrics: m}
}

func (u *userUseCaseWithMetrics) Create(
	ctx context.Context,
	input *userDomain.CreateUserInput,
) (*userDomain.CreateUserOutput, error) {
	start := time.Now()
	output, err := u.next.Create(ctx, input)
	recordOperation(ctx, u.metrics, "user_create", start, err)
	return output, err
}

func (u *userUseCaseWithMetrics) Get(ctx context.Context, userID uuid.UUID) (*userDomain.User, error) {
	start := time.Now()
	user, err := u.next.Get(ctx, userID)
	recordOperation(ctx, u.metrics, "user_get", start, err)
	return user, err
}

// keyUseCaseWithMetrics decorates KeyUseCase with metrics instrumentation.
type keyUseCaseWithMetrics struct {
	next    KeyUseCase
	metrics metrics.BusinessMetrics
}

// NewKeyUseCaseWithMetrics wraps a KeyUseCase with metrics recording.
func NewKeyUseCaseWithMetrics(useCase KeyUseCase, m metrics.BusinessMetrics) KeyUseCase {
	return &keyUseCaseWithMetrics{next: useCase, metrics: m}
}

func (k *keyUseCaseWithMetrics) Register(
	ctx context.Context,
	input *userDomain.RegisterKeyInput,
) (*userDomain.PublicKey, error) {
	start := time.Now()
	key, err := k.next.Register(ctx, input)
	recordOperation(ctx, k.metrics, "key_register", start, err)
	return key, err
}

func (k *keyUseCaseWithMetrics) List(ctx context.Context, userID uuid.UUID) ([]*userDomain.PublicKey, error) {
	start := time.Now()
	keys, err := k.next.List(ctx, userID)
	recordOperation(ctx, k.metrics, "key_list", start, err)
	return keys, err
}

func (k *keyUseCaseWithMetrics) Revoke(ctx context.Context, userID, keyID uuid.UUID, ipAddress string) error {
	start := time.Now()
	err := k.next.Revoke(ctx, userID, keyID, ipAddress)
	recordOperation(ctx, k.metrics, "key_revoke", start, err)
	return err
}
