package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	"github.com/allisson/sealdrop/internal/metrics"
)

// authUseCaseWithMetrics decorates AuthUseCase with metrics instrumentation.
type authUseCaseWithMetrics struct {
	next    AuthUseCase
	metrics metrics.BusinessMetrics
}

// NewAuthUseCaseWithMetrics wraps an AuthUseCase with metrics recording.
func NewAuthUseCaseWithMetrics(useCase AuthUseCase, m metrics.BusinessMetrics) AuthUseCase {
	return &authUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (a *authUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}

	a.metrics.RecordOperation(ctx, "auth", operation, status)
	a.metrics.RecordDuration(ctx, "auth", operation, time.Since(start), status)
}

func (a *authUseCaseWithMetrics) VerifyTOTP(
	ctx context.Context,
	input *authDomain.VerifyTOTPInput,
) (*authDomain.VerifyTOTPOutput, error) {
	start := time.Now()
	output, err := a.next.VerifyTOTP(ctx, input)
	a.record(ctx, "verify_totp", start, err)
	return output, err
}

func (a *authUseCaseWithMetrics) ResolveSession(
	ctx context.Context,
	authToken, urlToken string,
) (*authDomain.AuthSession, error) {
	start := time.Now()
	session, err := a.next.ResolveSession(ctx, authToken, urlToken)
	a.record(ctx, "resolve_session", start, err)
	return session, err
}

func (a *authUseCaseWithMetrics) Login(ctx context.Context, input *authDomain.LoginInput) (*authDomain.LoginOutput, error) {
	start := time.Now()
	output, err := a.next.Login(ctx, input)
	a.record(ctx, "login", start, err)
	return output, err
}

func (a *authUseCaseWithMetrics) Authenticate(ctx context.Context, token string) (*authDomain.Principal, error) {
	start := time.Now()
	principal, err := a.next.Authenticate(ctx, token)
	a.record(ctx, "authenticate", start, err)
	return principal, err
}

func (a *authUseCaseWithMetrics) Unlock(ctx context.Context, urlToken string, actorID uuid.UUID, ipAddress string) error {
	start := time.Now()
	err := a.next.Unlock(ctx, urlToken, actorID, ipAddress)
	a.record(ctx, "unlock", start, err)
	return err
}

func (a *authUseCaseWithMetrics) LockStatus(ctx context.Context, urlToken string) (*authDomain.LockStatus, error) {
	start := time.Now()
	status, err := a.next.LockStatus(ctx, urlToken)
	a.record(ctx, "lock_status", start, err)
	return status, err
}
