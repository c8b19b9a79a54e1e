package api

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"
)

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want TransportErrorKind
	}{
		{"connection reset", socketError(), TransportSocket},
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, TransportSocket},
		{"broken pipe", fmt.Errorf("write: %w", syscall.EPIPE), TransportSocket},
		{"tls handshake", errors.New("tls: handshake failure"), TransportTLS},
		{"unknown authority", fmt.Errorf("get: %w", x509.UnknownAuthorityError{}), TransportTLS},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), TransportTimeout},
		{"canceled", context.Canceled, TransportCanceled},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.vk.com"}, TransportDNS},
		{"other", errors.New("unsupported protocol scheme"), TransportOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyTransportError(context.Background(), tt.err); got != tt.want {
				t.Errorf("classifyTransportError(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyTransportErrorCanceledContextWins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := classifyTransportError(ctx, socketError()); got != TransportCanceled {
		t.Errorf("classifyTransportError() = %q, want %q", got, TransportCanceled)
	}
}

func TestTransportErrorKindRetryable(t *testing.T) {
	for kind, want := range map[TransportErrorKind]bool{
		TransportTLS:      true,
		TransportSocket:   true,
		TransportTimeout:  false,
		TransportDNS:      false,
		TransportCanceled: false,
		TransportOther:    false,
	} {
		if kind.Retryable() != want {
			t.Errorf("%s.Retryable() = %v, want %v", kind, kind.Retryable(), want)
		}
	}
}

func TestSleepWithContext(t *testing.T) {
	if err := sleepWithContext(context.Background(), 0); err != nil {
		t.Errorf("sleepWithContext(0) error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepWithContext(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepWithContext(canceled) error = %v, want context.Canceled", err)
	}
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("VK_API_BASE_URL", "https://api.example.com/method/")
	t.Setenv("VK_GZIP", "true")
	t.Setenv("VK_RETRY_LIMIT", "7")
	t.Setenv("VK_TIMEOUT_MS", "1500")
	t.Setenv("VK_RETRY_DELAY", "250ms")
	t.Setenv("VK_RPS", "2.5")
	t.Setenv("VK_API_VERSION", "5.131")

	cfg := DefaultConfig()
	if cfg.BaseURL != "https://api.example.com/method/" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if !cfg.Gzip || cfg.RetryLimit != 7 || cfg.ConnectionTimeout != 1500 {
		t.Errorf("Gzip=%v RetryLimit=%d ConnectionTimeout=%d", cfg.Gzip, cfg.RetryLimit, cfg.ConnectionTimeout)
	}
	if cfg.RetryDelay != 250*time.Millisecond {
		t.Errorf("RetryDelay = %s", cfg.RetryDelay)
	}
	if cfg.RequestsPerSecond != 2.5 || cfg.APIVersion != "5.131" {
		t.Errorf("RequestsPerSecond=%g APIVersion=%q", cfg.RequestsPerSecond, cfg.APIVersion)
	}
}

func TestDefaultConfigIgnoresInvalidEnv(t *testing.T) {
	t.Setenv("VK_RETRY_LIMIT", "lots")
	t.Setenv("VK_GZIP", "maybe")
	t.Setenv("VK_RETRY_DELAY", "soon")

	cfg := DefaultConfig()
	if cfg.RetryLimit != DefaultRetryLimit {
		t.Errorf("RetryLimit = %d, want %d", cfg.RetryLimit, DefaultRetryLimit)
	}
	if cfg.Gzip != DefaultGzip {
		t.Errorf("Gzip = %v, want %v", cfg.Gzip, DefaultGzip)
	}
	if cfg.RetryDelay != DefaultRetryDelay {
		t.Errorf("RetryDelay = %s, want 0", cfg.RetryDelay)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}
