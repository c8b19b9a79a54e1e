package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vkcli/vk-cli/internal/api"
	"github.com/vkcli/vk-cli/internal/config"
)

type clientFactory struct {
	userAgent string
}

func newClientFactory() *clientFactory {
	return &clientFactory{
		userAgent: fmt.Sprintf("vk-cli/%s", version),
	}
}

// config is api.DefaultConfig with the global flags applied on top.
func (f *clientFactory) config() api.Config {
	cfg := api.DefaultConfig()
	cfg.UserAgent = f.userAgent
	if flags.TimeoutSet {
		cfg.ConnectionTimeout = int(flags.Timeout / time.Millisecond)
	}
	if flags.RetriesSet {
		cfg.RetryLimit = flags.Retries
	}
	if flags.GzipSet {
		cfg.Gzip = flags.Gzip
	}
	if flags.RPSSet {
		cfg.RequestsPerSecond = flags.RPS
	}
	return cfg
}

func (f *clientFactory) client() (*api.Client, error) {
	creds, err := config.ResolveCredentials(flags.Token, flags.Profile)
	if err != nil {
		return nil, err
	}
	slog.Debug("resolved credentials", "source", string(creds.Source), "profile", creds.Profile)
	return api.New(creds.Token, f.config())
}

// preview builds a client whose requests are recorded, not sent. No token is
// needed; URLs are redacted anyway.
func (f *clientFactory) preview(t api.Transport) (*api.Client, error) {
	return api.New("", f.config(), api.WithTransport(t))
}
