// Package notify delivers share links to recipients. Delivery is best-effort: callers get a
// boolean and never an error, and a failed send never affects transfer state.
package notify

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Supported driver names.
const (
	DriverSMTP = "smtp"
	DriverLog  = "log"
)

// Notifier sends the share link of a finalized transfer.
type Notifier interface {
	SendDownloadLink(ctx context.Context, address, shareURL string, expiresAt time.Time) bool
}

// LogNotifier writes the notification to the logger instead of sending it. The share URL is
// a bearer credential and is not logged.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SendDownloadLink implements Notifier.
func (n *LogNotifier) SendDownloadLink(ctx context.Context, _ string, _ string, expiresAt time.Time) bool {
	n.logger.InfoContext(ctx, "download link notification suppressed",
		slog.Time("expires_at", expiresAt),
	)
	return true
}

// ThrottledNotifier bounds the outbound notification rate. Sends over the rate are dropped
// immediately and reported as failed; they never wait for a token.
type ThrottledNotifier struct {
	next    Notifier
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewThrottledNotifier wraps next with a token bucket of ratePerSec and burst.
func NewThrottledNotifier(next Notifier, ratePerSec float64, burst int, logger *slog.Logger) *ThrottledNotifier {
	return &ThrottledNotifier{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		logger:  logger,
	}
}

// SendDownloadLink implements Notifier.
func (n *ThrottledNotifier) SendDownloadLink(ctx context.Context, address, shareURL string, expiresAt time.Time) bool {
	if !n.limiter.Allow() {
		n.logger.WarnContext(ctx, "notification throttled")
		return false
	}
	return n.next.SendDownloadLink(ctx, address, shareURL, expiresAt)
}
