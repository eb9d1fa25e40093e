// Package storage issues signed upload and download URLs for ciphertext objects and removes
// them once a transfer is finished. The server never reads or writes object bodies itself.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/allisson/sealdrop/internal/storage")

// ErrUnknownCloudType is returned by Registry.Get for an unregistered backend name.
var ErrUnknownCloudType = errors.New("storage: unknown cloud type")

// Backend names.
const (
	CloudTypeMinIO = "minio"
	CloudTypeS3    = "s3"
)

// UploadHandle is a signed, time-limited upload target for a single object.
type UploadHandle struct {
	UploadURL string
	ObjectID  string
	ExpiresAt time.Time
}

// DownloadURL is a signed, time-limited download URL.
type DownloadURL struct {
	URL       string
	ExpiresAt time.Time
}

// ObjectStorage is implemented by every backend.
type ObjectStorage interface {
	CreateSignedUploadHandle(ctx context.Context, sessionID string, sizeBytes int64) (*UploadHandle, error)
	CreateSignedDownloadURL(ctx context.Context, objectID string) (*DownloadURL, error)
	DeleteObject(ctx context.Context, objectID string) error
}

// ObjectKey returns the object id a transfer's ciphertext is stored under.
func ObjectKey(sessionID string) string {
	return fmt.Sprintf("transfers/%s.bin", sessionID)
}

// Registry maps cloudType names to backends.
type Registry struct {
	backends map[string]ObjectStorage
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]ObjectStorage)}
}

// Register adds backend under name, replacing any previous registration.
func (r *Registry) Register(name string, backend ObjectStorage) {
	r.backends[strings.ToLower(name)] = backend
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (ObjectStorage, error) {
	backend, ok := r.backends[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCloudType, name)
	}
	return backend, nil
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
