// Package cache keeps small API lookups on disk between runs.
//
// Cache files are JSON, scoped per resource and API base URL. Default TTL
// is 24 hours. Disable with VK_NO_CACHE=1.
package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const DefaultTTL = 24 * time.Hour

type entry struct {
	CachedAt time.Time       `json:"cached_at"`
	Items    json.RawMessage `json:"items"`
}

// Store reads and writes a single cache key (resource+base URL).
type Store struct {
	path string
	ttl  time.Duration
}

// NewStore creates a Store with the default TTL.
// dir is the cache directory (typically from DefaultDir).
// key is the resource type (e.g. "screen_names").
// baseURL is the API method endpoint the entries came from.
func NewStore(dir, key, baseURL string) *Store {
	return NewStoreWithTTL(dir, key, baseURL, DefaultTTL)
}

// NewStoreWithTTL creates a Store with a custom TTL.
func NewStoreWithTTL(dir, key, baseURL string, ttl time.Duration) *Store {
	key = sanitizeKey(key)
	hash := sha1.Sum([]byte(baseURL))
	filename := fmt.Sprintf("%s_%s.json", key, hex.EncodeToString(hash[:6]))
	return &Store{
		path: filepath.Join(dir, filename),
		ttl:  ttl,
	}
}

// Get loads cached items into dst. Returns false on miss (no file, expired, disabled).
func (s *Store) Get(dst any) bool {
	if disabled() {
		return false
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return false
	}
	if time.Since(e.CachedAt) > s.ttl {
		return false
	}
	return json.Unmarshal(e.Items, dst) == nil
}

// Put writes items to the cache. Silently no-ops on error or when disabled.
func (s *Store) Put(items any) {
	if disabled() {
		return
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	data, err := json.Marshal(entry{
		CachedAt: time.Now(),
		Items:    raw,
	})
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return
	}

	// Atomic-ish write: write temp then rename.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return
	}
	_ = os.Rename(tmp, s.path)
}

// Clear removes this cache file.
func (s *Store) Clear() {
	_ = os.Remove(s.path)
}

// ClearAll removes all cache files from the directory and reports how many
// were removed. Only files matching the cache filename scheme are touched.
func ClearAll(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !isCacheFilename(e.Name()) {
			continue
		}
		if os.Remove(filepath.Join(dir, e.Name())) == nil {
			removed++
		}
	}
	return removed
}

// DefaultDir returns the platform-appropriate cache directory.
// Returns "$XDG_CACHE_HOME/vk-cli" or equivalent.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "vk-cli"), nil
}

// ScreenNames maps screen names to user ids. Lookups are case-insensitive.
// A nil *ScreenNames is a cache that never hits.
type ScreenNames struct {
	store *Store

	mu     sync.Mutex
	loaded bool
	ids    map[string]int64
}

// NewScreenNames returns the screen name cache for one API endpoint.
func NewScreenNames(dir, baseURL string) *ScreenNames {
	return &ScreenNames{store: NewStore(dir, "screen_names", baseURL)}
}

func (c *ScreenNames) load() {
	if c.loaded {
		return
	}
	c.loaded = true
	c.ids = make(map[string]int64)
	var stored map[string]int64
	if c.store.Get(&stored) {
		for k, v := range stored {
			c.ids[k] = v
		}
	}
}

// Lookup returns the cached id of a screen name.
func (c *ScreenNames) Lookup(name string) (int64, bool) {
	if c == nil {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()
	id, ok := c.ids[strings.ToLower(name)]
	return id, ok
}

// Remember stores the id of a screen name and writes the cache file.
func (c *ScreenNames) Remember(name string, id int64) {
	if c == nil || id <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()
	c.ids[strings.ToLower(name)] = id
	c.store.Put(c.ids)
}

func disabled() bool {
	return os.Getenv("VK_NO_CACHE") != ""
}

func sanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "cache"
	}
	key = strings.ReplaceAll(key, "/", "-")
	key = strings.ReplaceAll(key, "\\", "-")
	key = strings.ReplaceAll(key, "_", "-")
	return key
}

func isCacheFilename(name string) bool {
	// Expected: "<key>_<12hex>.json"
	if filepath.Ext(name) != ".json" {
		return false
	}
	key, hash, ok := strings.Cut(strings.TrimSuffix(name, ".json"), "_")
	if !ok || key == "" || strings.Contains(hash, "_") {
		return false
	}
	return len(hash) == 12 && isHex(hash)
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}
