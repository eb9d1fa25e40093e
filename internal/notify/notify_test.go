package notify

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNotifier struct {
	calls int
}

func (s *stubNotifier) SendDownloadLink(context.Context, string, string, time.Time) bool {
	s.calls++
	return true
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRelay speaks just enough SMTP over conn to accept one message and returns what it saw.
type fakeRelay struct {
	commands []string
	data     string
	done     chan struct{}
}

func serveFakeRelay(conn net.Conn) *fakeRelay {
	relay := &fakeRelay{done: make(chan struct{})}
	go func() {
		defer close(relay.done)
		defer func() { _ = conn.Close() }()

		r := bufio.NewReader(conn)
		write := func(s string) { _, _ = io.WriteString(conn, s) }
		write("220 mail ESMTP\r\n")

		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			relay.commands = append(relay.commands, line)

			switch verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0]); verb {
			case "EHLO", "HELO":
				write("250 mail\r\n")
			case "MAIL", "RCPT":
				write("250 OK\r\n")
			case "DATA":
				write("354 go ahead\r\n")
				var body strings.Builder
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					body.WriteString(l)
				}
				relay.data = body.String()
				write("250 queued\r\n")
			case "QUIT":
				write("221 bye\r\n")
				return
			default:
				write("502 unsupported\r\n")
			}
		}
	}()
	return relay
}

func pipeDialer(serve func(net.Conn)) dialFunc {
	return func(context.Context, string, string) (net.Conn, error) {
		client, server := net.Pipe()
		serve(server)
		return client, nil
	}
}

func TestSMTPNotifier_SendDownloadLink(t *testing.T) {
	expiresAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		n := NewSMTPNotifier(SMTPConfig{Host: "mail", Port: 25, From: "drop@example.com"}, discardLogger())

		var relay *fakeRelay
		var gotAddr string
		dial := pipeDialer(func(conn net.Conn) { relay = serveFakeRelay(conn) })
		n.dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
			gotAddr = addr
			return dial(ctx, network, addr)
		}

		ok := n.SendDownloadLink(context.Background(), "bob@example.com", "https://x/d/tok", expiresAt)
		require.True(t, ok)
		<-relay.done

		assert.Equal(t, "mail:25", gotAddr)
		assert.Contains(t, relay.commands, "RCPT TO:<bob@example.com>")
		assert.Contains(t, relay.data, "https://x/d/tok")
		assert.Contains(t, relay.data, "To: bob@example.com")
	})

	t.Run("dial failure is reported as false", func(t *testing.T) {
		n := NewSMTPNotifier(SMTPConfig{Host: "mail", Port: 587, From: "drop@example.com"}, discardLogger())
		n.dial = func(context.Context, string, string) (net.Conn, error) {
			return nil, errors.New("connection refused")
		}

		assert.False(t, n.SendDownloadLink(context.Background(), "bob@example.com", "u", expiresAt))
	})

	t.Run("plain auth over an unencrypted remote connection is refused", func(t *testing.T) {
		n := NewSMTPNotifier(
			SMTPConfig{Host: "mail", Port: 587, Username: "u", Password: "p", From: "drop@example.com"},
			discardLogger(),
		)
		var relay *fakeRelay
		n.dial = pipeDialer(func(conn net.Conn) { relay = serveFakeRelay(conn) })

		assert.False(t, n.SendDownloadLink(context.Background(), "bob@example.com", "u", expiresAt))
		<-relay.done
		assert.Empty(t, relay.data)
	})

	t.Run("stalled relay is abandoned at the context deadline", func(t *testing.T) {
		n := NewSMTPNotifier(SMTPConfig{Host: "mail", Port: 25, From: "drop@example.com"}, discardLogger())

		stalled := make(chan net.Conn, 1)
		n.dial = pipeDialer(func(conn net.Conn) { stalled <- conn })
		t.Cleanup(func() { _ = (<-stalled).Close() })

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		ok := n.SendDownloadLink(ctx, "bob@example.com", "u", expiresAt)

		assert.False(t, ok)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("stalled relay is abandoned at the configured timeout", func(t *testing.T) {
		n := NewSMTPNotifier(
			SMTPConfig{Host: "mail", Port: 25, From: "drop@example.com", Timeout: 50 * time.Millisecond},
			discardLogger(),
		)

		stalled := make(chan net.Conn, 1)
		n.dial = pipeDialer(func(conn net.Conn) { stalled <- conn })
		t.Cleanup(func() { _ = (<-stalled).Close() })

		start := time.Now()
		ok := n.SendDownloadLink(context.WithoutCancel(context.Background()), "bob@example.com", "u", expiresAt)

		assert.False(t, ok)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestNewSMTPNotifier_DefaultTimeout(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "mail"}, discardLogger())
	assert.Equal(t, defaultSMTPTimeout, n.cfg.Timeout)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(discardLogger())
	assert.True(t, n.SendDownloadLink(context.Background(), "bob@example.com", "u", time.Now()))
}

func TestThrottledNotifier(t *testing.T) {
	t.Run("drops sends over the rate", func(t *testing.T) {
		next := &stubNotifier{}
		n := NewThrottledNotifier(next, 0.001, 1, discardLogger())

		assert.True(t, n.SendDownloadLink(context.Background(), "a", "u", time.Now()))
		assert.False(t, n.SendDownloadLink(context.Background(), "a", "u", time.Now()))
		assert.Equal(t, 1, next.calls)
	})

	t.Run("never waits for a token on a context without deadline", func(t *testing.T) {
		next := &stubNotifier{}
		n := NewThrottledNotifier(next, 0.25, 1, discardLogger())
		ctx := context.WithoutCancel(context.Background())

		require.True(t, n.SendDownloadLink(ctx, "a", "u", time.Now()))

		start := time.Now()
		sent := n.SendDownloadLink(ctx, "a", "u", time.Now())

		assert.False(t, sent)
		assert.Less(t, time.Since(start), 100*time.Millisecond)
		assert.Equal(t, 1, next.calls)
	})
}
