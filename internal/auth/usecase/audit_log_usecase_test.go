package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	apperrors "github.com/allisson/sealdrop/internal/errors"
	"github.com/allisson/sealdrop/internal/metrics"
)

// mockAuditLogRepository is a mock implementation of AuditLogRepository for testing.
type mockAuditLogRepository struct {
	mock.Mock
}

func (m *mockAuditLogRepository) Create(ctx context.Context, auditLog *authDomain.AuditLog) error {
	args := m.Called(ctx, auditLog)
	return args.Error(0)
}

func (m *mockAuditLogRepository) List(
	ctx context.Context,
	filter authDomain.AuditLogFilter,
) ([]*authDomain.AuditLog, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*authDomain.AuditLog), args.Error(1)
}

func (m *mockAuditLogRepository) DeleteOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	args := m.Called(ctx, olderThan, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

// countingMetrics records security events for assertions.
type countingMetrics struct {
	metrics.NoOpBusinessMetrics
	events []string
}

func (c *countingMetrics) RecordSecurityEvent(_ context.Context, event string) {
	c.events = append(c.events, event)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuditLogUseCase_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := &mockAuditLogRepository{}
		m := &countingMetrics{}
		uc := NewAuditLogUseCase(repo, discardLogger(), m)

		entry := authDomain.NewAuditLog(authDomain.EventKeyReleased, authDomain.ResultSuccess, "1.2.3.4")
		repo.On("Create", mock.Anything, entry).Return(nil).Once()

		uc.Record(ctx, entry)

		repo.AssertExpectations(t)
		assert.Empty(t, m.events)
	})

	t.Run("RepositoryErrorIsSwallowed", func(t *testing.T) {
		repo := &mockAuditLogRepository{}
		m := &countingMetrics{}
		uc := NewAuditLogUseCase(repo, discardLogger(), m)

		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

		uc.Record(ctx, authDomain.NewAuditLog(authDomain.EventComplete, authDomain.ResultSuccess, ""))

		repo.AssertExpectations(t)
		assert.Equal(t, []string{metrics.EventAuditFailed}, m.events)
	})

	t.Run("CancelledRequestStillWrites", func(t *testing.T) {
		repo := &mockAuditLogRepository{}
		uc := NewAuditLogUseCase(repo, discardLogger(), &countingMetrics{})

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		repo.On("Create", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), mock.Anything).
			Return(nil).Once()

		uc.Record(cancelled, authDomain.NewAuditLog(authDomain.EventComplete, authDomain.ResultSuccess, ""))
		repo.AssertExpectations(t)
	})

	t.Run("UnknownEventIsRejected", func(t *testing.T) {
		repo := &mockAuditLogRepository{}
		m := &countingMetrics{}
		uc := NewAuditLogUseCase(repo, discardLogger(), m)

		uc.Record(ctx, authDomain.NewAuditLog(authDomain.AuditEvent("bogus"), authDomain.ResultSuccess, ""))

		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assert.Equal(t, []string{metrics.EventAuditFailed}, m.events)
	})

	t.Run("NilEntry", func(t *testing.T) {
		repo := &mockAuditLogRepository{}
		uc := NewAuditLogUseCase(repo, discardLogger(), &countingMetrics{})

		uc.Record(ctx, nil)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestAuditLogUseCase_List(t *testing.T) {
	ctx := context.Background()
	repo := &mockAuditLogRepository{}
	uc := NewAuditLogUseCase(repo, discardLogger(), &countingMetrics{})

	from := time.Now().Add(-time.Hour)
	logs := []*authDomain.AuditLog{authDomain.NewAuditLog(authDomain.EventLogin, authDomain.ResultSuccess, "")}
	filter := authDomain.AuditLogFilter{CreatedAtFrom: &from, Limit: 50}
	repo.On("List", ctx, filter).Return(logs, nil).Once()

	got, err := uc.List(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, logs, got)

	failing := authDomain.AuditLogFilter{Offset: 50, Limit: 50}
	repo.On("List", ctx, failing).Return(nil, errors.New("boom")).Once()
	_, err = uc.List(ctx, failing)
	assert.ErrorContains(t, err, "failed to list audit logs")

	t.Run("UnknownEventType", func(t *testing.T) {
		event := authDomain.AuditEvent("download")
		_, err := uc.List(ctx, authDomain.AuditLogFilter{EventType: &event, Limit: 50})
		assert.ErrorIs(t, err, authDomain.ErrInvalidAuditEvent)
	})

	t.Run("InvertedTimeRange", func(t *testing.T) {
		to := from.Add(-time.Minute)
		_, err := uc.List(ctx, authDomain.AuditLogFilter{CreatedAtFrom: &from, CreatedAtTo: &to, Limit: 50})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	repo.AssertExpectations(t)
}

func TestAuditLogUseCase_DeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)

	repo := &mockAuditLogRepository{}
	uc := NewAuditLogUseCase(repo, discardLogger(), &countingMetrics{}).(*auditLogUseCase)
	uc.now = func() time.Time { return now }

	repo.On("DeleteOlderThan", ctx, now.AddDate(0, 0, -30), true).Return(int64(7), nil).Once()

	count, err := uc.DeleteOlderThan(ctx, 30, true)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	_, err = uc.DeleteOlderThan(ctx, -1, false)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	repo.AssertExpectations(t)
}
