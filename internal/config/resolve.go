package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	envAccessToken = "VK_ACCESS_TOKEN"
	envProfile     = "VK_PROFILE"
)

// Source names where a token came from.
type Source string

const (
	SourceFlag    Source = "flag"
	SourceEnv     Source = "env"
	SourceProfile Source = "profile"
)

// Credentials is the token a command will use and where it was found.
type Credentials struct {
	Token     string `json:"-"`
	Source    Source `json:"source"`
	Profile   string `json:"profile,omitempty"`
	UserID    int64  `json:"user_id,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// now is replaceable in tests.
var now = time.Now

// ResolveCredentials picks the token for a command: the --token value, then
// VK_ACCESS_TOKEN, then the keyring profile named by --profile, VK_PROFILE
// or the current profile.
func ResolveCredentials(tokenOverride, profileOverride string) (Credentials, error) {
	if token := strings.TrimSpace(tokenOverride); token != "" {
		return Credentials{Token: token, Source: SourceFlag}, nil
	}
	if token := envValue(envAccessToken); token != "" {
		return Credentials{Token: token, Source: SourceEnv}, nil
	}

	profile, err := ResolveProfileName(profileOverride)
	if err != nil {
		return Credentials{}, err
	}
	account, err := LoadProfile(profile)
	if err != nil {
		return Credentials{}, err
	}
	if account.Expired(now()) {
		return Credentials{}, fmt.Errorf("profile %q: %w", profile, ErrTokenExpired)
	}
	return Credentials{
		Token:     account.AccessToken,
		Source:    SourceProfile,
		Profile:   profile,
		UserID:    account.UserID,
		ExpiresAt: account.ExpiresAt,
	}, nil
}

// ResolveProfileName returns the explicit profile, VK_PROFILE, or the
// current profile from the keyring.
func ResolveProfileName(profileOverride string) (string, error) {
	if p := strings.TrimSpace(profileOverride); p != "" {
		return p, ValidateProfileName(p)
	}
	if p := strings.TrimSpace(os.Getenv(envProfile)); p != "" {
		return p, ValidateProfileName(p)
	}
	return CurrentProfile()
}
