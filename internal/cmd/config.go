package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vkcli/vk-cli/internal/cache"
	"github.com/vkcli/vk-cli/internal/config"
	"github.com/vkcli/vk-cli/internal/outfmt"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigClearCacheCmd())
	return cmd
}

func newConfigClearCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Forget cached screen name lookups",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			dir, err := cache.DefaultDir()
			if err != nil {
				return fmt.Errorf("failed to locate cache directory: %w", err)
			}
			removed := cache.ClearAll(dir)
			return render(cmd, map[string]any{"dir": dir, "removed": removed}, func(*outfmt.Formatter) error {
				printText(cmd, "Removed %d cache file(s) from %s\n", removed, dir)
				return nil
			})
		}),
	}
}

type configView struct {
	BaseURL           string  `json:"base_url"`
	APIVersion        string  `json:"api_version,omitempty"`
	Lang              string  `json:"lang,omitempty"`
	Gzip              bool    `json:"gzip"`
	RetryLimit        int     `json:"retry_limit"`
	TimeoutMS         int     `json:"timeout_ms"`
	RetryDelay        string  `json:"retry_delay"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	UserAgent         string  `json:"user_agent"`
	KeyringBackend    string  `json:"keyring_backend"`
	CacheDir          string  `json:"cache_dir,omitempty"`
	TokenSource       string  `json:"token_source,omitempty"`
	Profile           string  `json:"profile,omitempty"`
	Token             string  `json:"token,omitempty"`
	TokenError        string  `json:"token_error,omitempty"`
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the settings commands run with",
		Long:  "Print the client settings after environment variables and flags are applied, and where the access token comes from.",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			cfg := newClientFactory().config()
			view := configView{
				BaseURL:           cfg.BaseURL,
				APIVersion:        cfg.APIVersion,
				Lang:              cfg.Lang,
				Gzip:              cfg.Gzip,
				RetryLimit:        cfg.RetryLimit,
				TimeoutMS:         cfg.ConnectionTimeout,
				RetryDelay:        cfg.RetryDelay.String(),
				RequestsPerSecond: cfg.RequestsPerSecond,
				UserAgent:         cfg.UserAgent,
				KeyringBackend:    config.KeyringBackend(),
			}
			if dir, err := cache.DefaultDir(); err == nil && os.Getenv("VK_NO_CACHE") == "" {
				view.CacheDir = dir
			}

			creds, err := config.ResolveCredentials(flags.Token, flags.Profile)
			switch {
			case err == nil:
				view.TokenSource = string(creds.Source)
				view.Profile = creds.Profile
				view.Token = maskToken(creds.Token)
			case errors.Is(err, config.ErrNotConfigured), errors.Is(err, config.ErrTokenExpired):
				view.TokenError = err.Error()
			default:
				return err
			}

			return render(cmd, view, func(f *outfmt.Formatter) error {
				f.StartTable([]string{"SETTING", "VALUE"})
				f.Row("base_url", view.BaseURL)
				f.Row("api_version", orDash(view.APIVersion))
				f.Row("lang", orDash(view.Lang))
				f.Row("gzip", yesNo(view.Gzip))
				f.Row("retry_limit", strconv.Itoa(view.RetryLimit))
				f.Row("timeout", fmt.Sprintf("%dms", view.TimeoutMS))
				f.Row("retry_delay", view.RetryDelay)
				f.Row("rps", strconv.FormatFloat(view.RequestsPerSecond, 'g', -1, 64))
				f.Row("user_agent", view.UserAgent)
				f.Row("keyring", view.KeyringBackend)
				f.Row("cache", orDash(view.CacheDir))
				if view.TokenError != "" {
					f.Row("token", view.TokenError)
				} else {
					f.Row("token", fmt.Sprintf("%s (%s)", view.Token, view.TokenSource))
					if view.Profile != "" {
						f.Row("profile", view.Profile)
					}
				}
				return f.EndTable()
			})
		}),
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
