// Package config stores vk access tokens in the OS keyring under named
// profiles and resolves which token a command should use.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/99designs/keyring"
)

const (
	serviceName       = "vk-cli"
	defaultProfile    = "default"
	profilePrefix     = "profile:"
	profileIndexKey   = "profiles_index"
	currentProfileKey = "current_profile"

	envKeyringBackend  = "VK_KEYRING_BACKEND"
	envKeyringPassword = "VK_KEYRING_PASSWORD"
	envCredentialsDir  = "VK_CREDENTIALS_DIR"

	keyringBackendAuto   = "auto"
	keyringBackendFile   = "file"
	keyringBackendSystem = "system"
)

// DefaultProfile is the profile used when none is named.
const DefaultProfile = defaultProfile

// openKeyring is a package-level function for opening keyrings.
// It can be replaced in tests to use a mock keyring.
var openKeyring = func(cfg keyring.Config) (keyring.Keyring, error) {
	return keyring.Open(cfg)
}

var userConfigDir = os.UserConfigDir

var stdinHasTTY = func() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// SetOpenKeyring allows replacing the keyring opener for testing.
// Returns a cleanup function that restores the original.
func SetOpenKeyring(fn func(keyring.Config) (keyring.Keyring, error)) func() {
	original := openKeyring
	openKeyring = fn
	return func() { openKeyring = original }
}

// Account is what a profile stores.
type Account struct {
	AccessToken string   `json:"access_token"`
	UserID      int64    `json:"user_id,omitempty"`
	AppID       int64    `json:"app_id,omitempty"`
	Scope       []string `json:"scope,omitempty"`
	// ExpiresAt is unix seconds; zero means the token does not expire.
	ExpiresAt int64 `json:"expires_at,omitempty"`
	SavedAt   int64 `json:"saved_at,omitempty"`
}

// Expired reports whether the token has a known expiry at or before now.
func (a Account) Expired(now time.Time) bool {
	return a.ExpiresAt > 0 && now.Unix() >= a.ExpiresAt
}

var (
	// ErrNotConfigured is returned when no token is stored for a profile
	ErrNotConfigured = errors.New("vk not configured - run 'vk auth login' first")
	// ErrTokenExpired is returned when a stored token is past its expiry
	ErrTokenExpired = errors.New("stored access token has expired - run 'vk auth login' again")
)

var profileNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ValidateProfileName rejects names that cannot be used as keyring keys.
func ValidateProfileName(name string) error {
	if !profileNamePattern.MatchString(name) {
		return fmt.Errorf("invalid profile name %q: use up to 64 letters, digits, '.', '_' or '-'", name)
	}
	return nil
}

// keyringConfig returns the keyring configuration
func keyringConfig() keyring.Config {
	cfg := keyring.Config{
		ServiceName: serviceName,
	}

	backend := keyringBackendMode()
	if backend == keyringBackendSystem {
		return cfg
	}

	// Auto mode still configures the file backend so keyring.Open can fall
	// through to encrypted file storage when native backends are missing.
	cfg.FileDir = keyringFileDir()
	cfg.FilePasswordFunc = keyringFilePassword

	// Headless Linux has no secret service; go straight to the file backend.
	if shouldForceFileBackend(runtime.GOOS, backend, os.Getenv("DBUS_SESSION_BUS_ADDRESS")) {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
	}

	return cfg
}

// KeyringBackend reports the configured keyring backend: auto, file or system.
func KeyringBackend() string {
	return keyringBackendMode()
}

func keyringBackendMode() string {
	switch strings.ToLower(envValue(envKeyringBackend)) {
	case keyringBackendFile:
		return keyringBackendFile
	case keyringBackendSystem, "os", "native":
		return keyringBackendSystem
	default:
		return keyringBackendAuto
	}
}

func shouldForceFileBackend(goos, backend, dbusAddr string) bool {
	switch backend {
	case keyringBackendFile:
		return true
	case keyringBackendAuto:
		return goos == "linux" && strings.TrimSpace(dbusAddr) == ""
	}
	return false
}

func keyringFileDir() string {
	base := envValue(envCredentialsDir)
	if base == "" {
		if dir, err := userConfigDir(); err == nil && strings.TrimSpace(dir) != "" {
			base = filepath.Join(dir, serviceName)
		}
	}
	if base == "" {
		base = filepath.Join(os.TempDir(), serviceName)
	}
	return filepath.Join(base, "keyring")
}

func keyringFilePassword(prompt string) (string, error) {
	if password, ok := os.LookupEnv(envKeyringPassword); ok && strings.TrimSpace(password) != "" {
		return password, nil
	}
	if !stdinHasTTY() {
		return "", fmt.Errorf("set %s when using file keyring in non-interactive environments", envKeyringPassword)
	}
	return keyring.TerminalPrompt(prompt)
}

func envValue(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func profileKey(name string) string {
	if name == "" {
		name = defaultProfile
	}
	return profilePrefix + name
}

func withRing(fn func(keyring.Keyring) error) error {
	ring, err := openKeyring(keyringConfig())
	if err != nil {
		return fmt.Errorf("failed to open keyring: %w", err)
	}
	return fn(ring)
}

func loadProfileIndex(ring keyring.Keyring) ([]string, error) {
	item, err := ring.Get(profileIndexKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to get profile index: %w", err)
	}
	var profiles []string
	if err := json.Unmarshal(item.Data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile index: %w", err)
	}
	return normalizeProfiles(profiles), nil
}

func saveProfileIndex(ring keyring.Keyring, profiles []string) error {
	data, err := json.Marshal(normalizeProfiles(profiles))
	if err != nil {
		return fmt.Errorf("failed to marshal profile index: %w", err)
	}
	return ring.Set(keyring.Item{Key: profileIndexKey, Data: data})
}

func normalizeProfiles(profiles []string) []string {
	seen := make(map[string]struct{}, len(profiles))
	out := []string{}
	for _, p := range profiles {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// SaveProfile stores the account under a named profile and makes it current.
func SaveProfile(profile string, account Account) error {
	if profile == "" {
		profile = defaultProfile
	}
	if err := ValidateProfileName(profile); err != nil {
		return err
	}
	if strings.TrimSpace(account.AccessToken) == "" {
		return fmt.Errorf("access token cannot be empty")
	}
	if account.SavedAt == 0 {
		account.SavedAt = time.Now().Unix()
	}

	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	return withRing(func(ring keyring.Keyring) error {
		if err := ring.Set(keyring.Item{
			Key:         profileKey(profile),
			Data:        data,
			Label:       serviceName + " (" + profile + ")",
			Description: "vk.com access token",
		}); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}

		profiles, err := loadProfileIndex(ring)
		if err != nil {
			return err
		}
		if err := saveProfileIndex(ring, append(profiles, profile)); err != nil {
			return err
		}
		return setCurrent(ring, profile)
	})
}

// LoadProfile retrieves the account stored under a named profile
func LoadProfile(profile string) (Account, error) {
	if profile == "" {
		profile = defaultProfile
	}

	var account Account
	err := withRing(func(ring keyring.Keyring) error {
		item, err := ring.Get(profileKey(profile))
		if err != nil {
			if errors.Is(err, keyring.ErrKeyNotFound) {
				return ErrNotConfigured
			}
			return fmt.Errorf("failed to get profile: %w", err)
		}
		if err := json.Unmarshal(item.Data, &account); err != nil {
			return fmt.Errorf("failed to unmarshal profile: %w", err)
		}
		return nil
	})
	return account, err
}

// DeleteProfile removes a stored profile. When it was current, the first
// remaining profile becomes current.
func DeleteProfile(profile string) error {
	if profile == "" {
		profile = defaultProfile
	}

	return withRing(func(ring keyring.Keyring) error {
		if err := ring.Remove(profileKey(profile)); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("failed to remove profile: %w", err)
		}

		profiles, err := loadProfileIndex(ring)
		if err != nil {
			return err
		}
		remaining := make([]string, 0, len(profiles))
		for _, p := range profiles {
			if p != profile {
				remaining = append(remaining, p)
			}
		}
		if err := saveProfileIndex(ring, remaining); err != nil {
			return err
		}

		current, err := currentProfile(ring)
		if err == nil && current == profile {
			next := defaultProfile
			if len(remaining) > 0 {
				next = remaining[0]
			}
			return setCurrent(ring, next)
		}
		return nil
	})
}

// ListProfiles returns the known profile names
func ListProfiles() ([]string, error) {
	var profiles []string
	err := withRing(func(ring keyring.Keyring) error {
		var err error
		profiles, err = loadProfileIndex(ring)
		return err
	})
	return profiles, err
}

// CurrentProfile returns the active profile name
func CurrentProfile() (string, error) {
	var current string
	err := withRing(func(ring keyring.Keyring) error {
		var err error
		current, err = currentProfile(ring)
		return err
	})
	return current, err
}

func currentProfile(ring keyring.Keyring) (string, error) {
	item, err := ring.Get(currentProfileKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return defaultProfile, nil
		}
		return "", fmt.Errorf("failed to get current profile: %w", err)
	}
	if name := strings.TrimSpace(string(item.Data)); name != "" {
		return name, nil
	}
	return defaultProfile, nil
}

// SetCurrentProfile makes an existing profile the active one.
func SetCurrentProfile(profile string) error {
	if profile == "" {
		profile = defaultProfile
	}
	return withRing(func(ring keyring.Keyring) error {
		if _, err := ring.Get(profileKey(profile)); err != nil {
			if errors.Is(err, keyring.ErrKeyNotFound) {
				return fmt.Errorf("profile %q does not exist", profile)
			}
			return fmt.Errorf("failed to get profile: %w", err)
		}
		return setCurrent(ring, profile)
	})
}

func setCurrent(ring keyring.Keyring, profile string) error {
	if err := ring.Set(keyring.Item{Key: currentProfileKey, Data: []byte(profile)}); err != nil {
		return fmt.Errorf("failed to set current profile: %w", err)
	}
	return nil
}
