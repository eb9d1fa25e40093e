package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"text/template"
	"time"
)

const defaultSMTPTimeout = 10 * time.Second

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds the whole SMTP dialogue when ctx carries no earlier deadline.
	Timeout time.Duration
}

var downloadLinkTemplate = template.Must(template.New("download-link").Parse(
	"From: {{.From}}\r\n" +
		"To: {{.To}}\r\n" +
		"Subject: A file has been shared with you\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		"An end-to-end encrypted file is waiting for you.\r\n" +
		"\r\n" +
		"Open this link to download it: {{.URL}}\r\n" +
		"\r\n" +
		"The link expires at {{.ExpiresAt}}. You will need your authenticator app to unlock it.\r\n",
))

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// SMTPNotifier sends share links through an SMTP relay.
type SMTPNotifier struct {
	cfg    SMTPConfig
	logger *slog.Logger
	dial   dialFunc
}

// NewSMTPNotifier creates an SMTPNotifier.
func NewSMTPNotifier(cfg SMTPConfig, logger *slog.Logger) *SMTPNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	return &SMTPNotifier{cfg: cfg, logger: logger, dial: dialer.DialContext}
}

func (n *SMTPNotifier) render(address, shareURL string, expiresAt time.Time) ([]byte, error) {
	var buf bytes.Buffer
	err := downloadLinkTemplate.Execute(&buf, map[string]string{
		"From":      n.cfg.From,
		"To":        address,
		"URL":       shareURL,
		"ExpiresAt": expiresAt.UTC().Format(time.RFC1123),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render message: %w", err)
	}
	return buf.Bytes(), nil
}

// deadline is the earlier of the ctx deadline and now plus the configured timeout.
func (n *SMTPNotifier) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(n.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}

// send runs one SMTP dialogue on a connection whose deadline covers every read and write, so a
// stalled relay cannot hold the caller past it.
func (n *SMTPNotifier) send(ctx context.Context, to string, msg []byte) error {
	ctx, cancel := context.WithDeadline(ctx, n.deadline(ctx))
	defer cancel()

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	conn, err := n.dial(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to set deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer func() { _ = client.Close() }()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: n.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if n.cfg.Username != "" {
		auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := client.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("end data: %w", err)
	}
	return client.Quit()
}

// SendDownloadLink implements Notifier.
func (n *SMTPNotifier) SendDownloadLink(ctx context.Context, address, shareURL string, expiresAt time.Time) bool {
	msg, err := n.render(address, shareURL, expiresAt)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to build notification", slog.Any("error", err))
		return false
	}

	if err := n.send(ctx, address, msg); err != nil {
		n.logger.WarnContext(ctx, "failed to send notification", slog.Any("error", err))
		return false
	}
	return true
}
