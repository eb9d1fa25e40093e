package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
	authService "github.com/allisson/sealdrop/internal/auth/service"
	"github.com/allisson/sealdrop/internal/cache"
	"github.com/allisson/sealdrop/internal/storage"
	transferDomain "github.com/allisson/sealdrop/internal/transfer/domain"
	userDomain "github.com/allisson/sealdrop/internal/user/domain"
)

// memTransferRepo mirrors the conditional updates of the SQL repositories.
type memTransferRepo struct {
	mu        sync.Mutex
	transfers map[uuid.UUID]*transferDomain.Transfer
	// beforeAttach runs ahead of AttachCloudFile to interleave another operation.
	beforeAttach func(id uuid.UUID)
}

func newMemTransferRepo() *memTransferRepo {
	return &memTransferRepo{transfers: make(map[uuid.UUID]*transferDomain.Transfer)}
}

func (m *memTransferRepo) Create(_ context.Context, t *transferDomain.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *t
	m.transfers[t.ID] = &clone
	return nil
}

func (m *memTransferRepo) GetByID(_ context.Context, id uuid.UUID) (*transferDomain.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transfers[id]
	if !ok {
		return nil, transferDomain.ErrTransferNotFound
	}
	clone := *t
	return &clone, nil
}

func (m *memTransferRepo) GetByURLToken(_ context.Context, urlToken string) (*transferDomain.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.transfers {
		if t.URLToken == urlToken {
			clone := *t
			return &clone, nil
		}
	}
	return nil, transferDomain.ErrTransferNotFound
}

func (m *memTransferRepo) AttachCloudFile(_ context.Context, id uuid.UUID, cloudFileID string, now time.Time) error {
	if m.beforeAttach != nil {
		m.beforeAttach(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transfers[id]
	if !ok || t.Status != transferDomain.StatusInitiated || t.DeletedAt != nil || !now.Before(t.ExpiresAt) {
		return transferDomain.ErrInvalidState
	}
	t.CloudFileID = &cloudFileID
	return nil
}

func (m *memTransferRepo) MarkReady(_ context.Context, id uuid.UUID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transfers[id]
	if !ok || t.Status != transferDomain.StatusInitiated || t.CloudFileID == nil || t.DeletedAt != nil ||
		!now.Before(t.ExpiresAt) {
		return transferDomain.ErrInvalidState
	}
	t.Status = transferDomain.StatusReady
	return nil
}

func (m *memTransferRepo) IncrementDownload(
	_ context.Context,
	id uuid.UUID,
	now time.Time,
) (int, transferDomain.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transfers[id]
	if !ok || t.Status != transferDomain.StatusReady || t.DeletedAt != nil ||
		t.DownloadCount >= t.MaxDownloads || !now.Before(t.ExpiresAt) {
		return 0, "", transferDomain.ErrTransferExhausted
	}
	t.DownloadCount++
	if t.DownloadCount >= t.MaxDownloads {
		t.Status = transferDomain.StatusDownloaded
	}
	return t.DownloadCount, t.Status, nil
}

func (m *memTransferRepo) MarkDeleted(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transfers[id]
	if !ok || t.DeletedAt != nil {
		return false, nil
	}
	t.Status = transferDomain.StatusDeleted
	t.DeletedAt = &now
	return true, nil
}

func (m *memTransferRepo) MarkExpired(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transfers[id]
	if !ok || t.DeletedAt != nil || now.Before(t.ExpiresAt) {
		return false, nil
	}
	switch t.Status {
	case transferDomain.StatusInitiated, transferDomain.StatusReady, transferDomain.StatusDownloaded:
		t.Status = transferDomain.StatusExpired
		return true, nil
	}
	return false, nil
}

func (m *memTransferRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]*transferDomain.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*transferDomain.Transfer, 0)
	for _, t := range m.transfers {
		if len(out) == limit {
			break
		}
		if t.DeletedAt != nil || now.Before(t.ExpiresAt) {
			continue
		}
		switch t.Status {
		case transferDomain.StatusInitiated, transferDomain.StatusReady, transferDomain.StatusDownloaded:
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

// age moves a transfer's expiry into the past.
func (m *memTransferRepo) age(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers[id].ExpiresAt = time.Now().Add(-time.Minute)
}

// failingCache rejects GetDel so cleanup failures can be observed.
type failingCache struct {
	cache.Cache
}

func (failingCache) GetDel(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache unavailable")
}

type memUserRepo struct {
	users []*userDomain.User
}

func (m *memUserRepo) Get(_ context.Context, id uuid.UUID) (*userDomain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, userDomain.ErrUserNotFound
}

func (m *memUserRepo) GetByEmailHash(_ context.Context, emailHash string) (*userDomain.User, error) {
	for _, u := range m.users {
		if u.EmailHash == emailHash {
			return u, nil
		}
	}
	return nil, userDomain.ErrUserNotFound
}

type memKeyRepo struct {
	keys []*userDomain.PublicKey
}

func (m *memKeyRepo) FindPrimaryActive(
	_ context.Context,
	userID uuid.UUID,
	algorithm string,
	now time.Time,
) (*userDomain.PublicKey, error) {
	for _, k := range m.keys {
		if k.UserID == userID && k.Algorithm == algorithm && k.IsPrimary && k.IsActive(now) {
			return k, nil
		}
	}
	return nil, userDomain.ErrPublicKeyNotFound
}

// fakeStorage issues predictable URLs and remembers deletions.
type fakeStorage struct {
	mu        sync.Mutex
	deleted   []string
	deleteErr error
}

func (f *fakeStorage) CreateSignedUploadHandle(
	_ context.Context,
	sessionID string,
	_ int64,
) (*storage.UploadHandle, error) {
	objectID := storage.ObjectKey(sessionID)
	return &storage.UploadHandle{
		UploadURL: "https://storage.test/upload/" + objectID,
		ObjectID:  objectID,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func (f *fakeStorage) CreateSignedDownloadURL(_ context.Context, objectID string) (*storage.DownloadURL, error) {
	return &storage.DownloadURL{
		URL:       "https://storage.test/download/" + objectID,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}, nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, objectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, objectID)
	return nil
}

func (f *fakeStorage) deletedObjects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fakeNotifier struct {
	ok bool
	// block makes sends wait for ctx to end, like a stalled relay.
	block     bool
	sent      []string
	deadlines []time.Time
}

func (f *fakeNotifier) SendDownloadLink(ctx context.Context, address, _ string, _ time.Time) bool {
	deadline, _ := ctx.Deadline()
	f.deadlines = append(f.deadlines, deadline)
	if f.block {
		<-ctx.Done()
		return false
	}
	f.sent = append(f.sent, address)
	return f.ok
}

// stubTOTP accepts one fixed code.
type stubTOTP struct{}

const validCode = "123456"

func (stubTOTP) Enroll(context.Context, string) (*authService.TOTPEnrollment, error) {
	return &authService.TOTPEnrollment{Sealed: []byte("sealed")}, nil
}

func (stubTOTP) Validate(_ context.Context, _ []byte, code string, _ time.Time) (bool, error) {
	return code == validCode, nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []*authDomain.AuditLog
}

func (r *recordingAudit) Record(_ context.Context, entry *authDomain.AuditLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) List(context.Context, authDomain.AuditLogFilter) ([]*authDomain.AuditLog, error) {
	return nil, nil
}

func (r *recordingAudit) DeleteOlderThan(context.Context, int, bool) (int64, error) {
	return 0, nil
}

func (r *recordingAudit) count(event authDomain.AuditEvent) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.EventType == event {
			n++
		}
	}
	return n
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
