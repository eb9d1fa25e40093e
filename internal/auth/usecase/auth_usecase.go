package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	authService "github.com/allisson/sealdrop/internal/auth/service"
	"github.com/allisson/sealdrop/internal/cache"
	apperrors "github.com/allisson/sealdrop/internal/errors"
	"github.com/allisson/sealdrop/internal/metrics"
	transferDomain "github.com/allisson/sealdrop/internal/transfer/domain"
	userDomain "github.com/allisson/sealdrop/internal/user/domain"
)

type authUseCase struct {
	transferRepo  TransferRepository
	userRepo      UserRepository
	cache         cache.Cache
	lockout       LockoutGuard
	secretService authService.SecretService
	tokenService  authService.TokenService
	jwtService    authService.JWTService
	totpService   authService.TOTPService
	auditLog      AuditLogUseCase
	metrics       metrics.BusinessMetrics
	sessionTTL    time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// AuthUseCaseConfig groups the collaborators of NewAuthUseCase.
type AuthUseCaseConfig struct {
	TransferRepo   TransferRepository
	UserRepo       UserRepository
	Cache          cache.Cache
	Lockout        LockoutGuard
	SecretService  authService.SecretService
	TokenService   authService.TokenService
	JWTService     authService.JWTService
	TOTPService    authService.TOTPService
	AuditLog       AuditLogUseCase
	Metrics        metrics.BusinessMetrics
	AuthSessionTTL time.Duration
	Logger         *slog.Logger
}

// loadAvailableTransfer fetches a transfer and applies the recipient-side checks. An expired
// transfer is marked expired on a best-effort basis.
func (a *authUseCase) loadAvailableTransfer(ctx context.Context, urlToken string) (*transferDomain.Transfer, error) {
	transfer, err := a.transferRepo.GetByURLToken(ctx, urlToken)
	if err != nil {
		return nil, err
	}

	now := a.now()
	if err := transfer.CheckAvailable(now); err != nil {
		if errors.Is(err, transferDomain.ErrTransferExpired) && transfer.Status != transferDomain.StatusExpired {
			if _, markErr := a.transferRepo.MarkExpired(ctx, transfer.ID, now); markErr != nil {
				a.logger.WarnContext(ctx, "failed to mark transfer expired",
					slog.String("transfer_id", transfer.ID.String()),
					slog.Any("error", markErr),
				)
			}
		}
		return nil, err
	}
	return transfer, nil
}

// VerifyTOTP checks transfer availability, then the lock, then the code. A locked URL is
// rejected before the code is evaluated.
func (a *authUseCase) VerifyTOTP(
	ctx context.Context,
	input *authDomain.VerifyTOTPInput,
) (*authDomain.VerifyTOTPOutput, error) {
	ctx = context.WithoutCancel(ctx)

	transfer, err := a.loadAvailableTransfer(ctx, input.URLToken)
	if err != nil {
		return nil, err
	}

	locked, err := a.lockout.IsLocked(ctx, input.URLToken)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, authDomain.ErrTransferLocked
	}

	recipient, err := a.userRepo.GetByEmailHash(ctx, transfer.RecipientEmailHash)
	if err != nil {
		return nil, err
	}
	if recipient.TwoFactorType != userDomain.TwoFactorTOTP || len(recipient.TOTPSecretSealed) == 0 {
		return nil, authDomain.ErrTwoFactorNotEnrolled
	}

	ok, err := a.totpService.Validate(ctx, recipient.TOTPSecretSealed, input.Code, a.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, a.recordFailure(ctx, transfer, recipient.ID, input.IPAddress)
	}

	authToken, tokenHash, err := a.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}

	session, err := json.Marshal(&authDomain.AuthSession{UserID: recipient.ID, URLToken: input.URLToken})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode auth session")
	}
	if err := a.cache.Set(ctx, cache.AuthSessionKey(tokenHash), session, a.sessionTTL); err != nil {
		return nil, apperrors.Wrap(err, "failed to store auth session")
	}

	a.auditLog.Record(ctx, authDomain.NewAuditLog(authDomain.EventAuthSuccess, authDomain.ResultSuccess, input.IPAddress).
		WithSession(transfer.ID).
		WithActor(recipient.ID))

	return &authDomain.VerifyTOTPOutput{
		AuthToken: authToken,
		ExpiresAt: a.now().UTC().Add(a.sessionTTL),
	}, nil
}

func (a *authUseCase) recordFailure(
	ctx context.Context,
	transfer *transferDomain.Transfer,
	recipientID uuid.UUID,
	ip string,
) error {
	n, err := a.lockout.RecordFailure(ctx, transfer.URLToken)
	if err != nil {
		return err
	}

	threshold := a.lockout.Threshold()
	remaining := max(threshold-n, 0)

	a.metrics.RecordSecurityEvent(ctx, metrics.EventAuthFailed)
	a.auditLog.Record(ctx, authDomain.NewAuditLog(authDomain.EventAuthFail, authDomain.ResultFailure, ip).
		WithSession(transfer.ID).
		WithActor(recipientID).
		WithMetadata(map[string]any{"failures": n, "remaining_attempts": remaining}))

	if n == threshold {
		a.metrics.RecordSecurityEvent(ctx, metrics.EventLocked)
		a.auditLog.Record(ctx, authDomain.NewAuditLog(authDomain.EventLock, authDomain.ResultFailure, ip).
			WithSession(transfer.ID).
			WithMetadata(map[string]any{"failures": n}))
	}

	return &apperrors.AuthFailedError{RemainingAttempts: int(remaining)}
}

// ResolveSession looks up the auth session by the hash of authToken and requires it to be bound
// to urlToken exactly.
func (a *authUseCase) ResolveSession(ctx context.Context, authToken, urlToken string) (*authDomain.AuthSession, error) {
	if authToken == "" {
		return nil, authDomain.ErrAuthSessionInvalid
	}

	raw, err := a.cache.Get(ctx, cache.AuthSessionKey(a.tokenService.HashToken(authToken)))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, authDomain.ErrAuthSessionInvalid
		}
		return nil, apperrors.Wrap(err, "failed to read auth session")
	}

	var session authDomain.AuthSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, authDomain.ErrAuthSessionInvalid
	}
	if session.URLToken != urlToken {
		return nil, authDomain.ErrAuthSessionInvalid
	}
	return &session, nil
}

// Login verifies email and password. Unknown users and wrong passwords are indistinguishable.
func (a *authUseCase) Login(ctx context.Context, input *authDomain.LoginInput) (*authDomain.LoginOutput, error) {
	user, err := a.userRepo.GetByEmailHash(ctx, userDomain.HashEmail(input.Email))
	if err != nil && !errors.Is(err, userDomain.ErrUserNotFound) {
		return nil, err
	}

	if user == nil || !a.secretService.ComparePassword(input.Password, user.PasswordHash) {
		a.auditLog.Record(ctx, authDomain.NewAuditLog(authDomain.EventLogin, authDomain.ResultFailure, input.IPAddress))
		return nil, authDomain.ErrInvalidCredentials
	}

	token, expiresAt, err := a.jwtService.Sign(&authDomain.Principal{UserID: user.ID, IsAdmin: user.IsAdmin})
	if err != nil {
		return nil, err
	}

	a.auditLog.Record(ctx, authDomain.NewAuditLog(authDomain.EventLogin, authDomain.ResultSuccess, input.IPAddress).
		WithActor(user.ID))

	return &authDomain.LoginOutput{Token: token, ExpiresAt: expiresAt}, nil
}

func (a *authUseCase) Authenticate(_ context.Context, token string) (*authDomain.Principal, error) {
	if token == "" {
		return nil, authDomain.ErrInvalidToken
	}
	return a.jwtService.Parse(token)
}

// Unlock deletes the lockout counter of an existing transfer.
func (a *authUseCase) Unlock(ctx context.Context, urlToken string, actorID uuid.UUID, ipAddress string) error {
	transfer, err := a.transferRepo.GetByURLToken(ctx, urlToken)
	if err != nil {
		return err
	}

	failures, err := a.lockout.Failures(ctx, urlToken)
	if err != nil {
		return err
	}
	if err := a.lockout.Unlock(context.WithoutCancel(ctx), urlToken); err != nil {
		return err
	}

	a.auditLog.Record(ctx, authDomain.NewAuditLog(authDomain.EventUnlock, authDomain.ResultSuccess, ipAddress).
		WithSession(transfer.ID).
		WithActor(actorID).
		WithMetadata(map[string]any{"previous_failures": failures}))
	return nil
}

func (a *authUseCase) LockStatus(ctx context.Context, urlToken string) (*authDomain.LockStatus, error) {
	if _, err := a.transferRepo.GetByURLToken(ctx, urlToken); err != nil {
		return nil, err
	}

	failures, err := a.lockout.Failures(ctx, urlToken)
	if err != nil {
		return nil, err
	}

	threshold := a.lockout.Threshold()
	return &authDomain.LockStatus{
		Failures:  failures,
		Locked:    failures >= threshold,
		Threshold: threshold,
	}, nil
}

// NewAuthUseCase creates an AuthUseCase.
func NewAuthUseCase(cfg AuthUseCaseConfig) AuthUseCase {
	return &authUseCase{
		transferRepo:  cfg.TransferRepo,
		userRepo:      cfg.UserRepo,
		cache:         cfg.Cache,
		lockout:       cfg.Lockout,
		secretService: cfg.SecretService,
		tokenService:  cfg.TokenService,
		jwtService:    cfg.JWTService,
		totpService:   cfg.TOTPService,
		auditLog:      cfg.AuditLog,
		metrics:       cfg.Metrics,
		sessionTTL:    cfg.AuthSessionTTL,
		logger:        cfg.Logger,
		now:           time.Now,
	}
}
