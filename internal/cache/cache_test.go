package cache_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vkcli/vk-cli/internal/cache"
)

func TestStore_PutAndGet(t *testing.T) {
	dir := t.TempDir()
	s := cache.NewStore(dir, "screen_names", "https://api.vk.com/method/")

	s.Put(map[string]int64{"durov": 1, "apiclub": 2})

	var got map[string]int64
	if !s.Get(&got) {
		t.Fatal("expected cache hit")
	}
	if got["durov"] != 1 || got["apiclub"] != 2 {
		t.Fatalf("unexpected items: %+v", got)
	}
}

func TestStore_ExpiredTTL(t *testing.T) {
	dir := t.TempDir()
	s := cache.NewStoreWithTTL(dir, "screen_names", "https://api.vk.com/method/", time.Millisecond)

	s.Put([]string{"a"})
	time.Sleep(5 * time.Millisecond)

	var got []string
	if s.Get(&got) {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestStore_MissOnEmpty(t *testing.T) {
	s := cache.NewStore(t.TempDir(), "screen_names", "https://api.vk.com/method/")

	var got []string
	if s.Get(&got) {
		t.Fatal("expected cache miss on empty store")
	}
}

func TestStore_Clear(t *testing.T) {
	s := cache.NewStore(t.TempDir(), "screen_names", "https://api.vk.com/method/")

	s.Put([]string{"a"})
	s.Clear()

	var got []string
	if s.Get(&got) {
		t.Fatal("expected cache miss after clear")
	}
}

func TestStore_DifferentEndpoints(t *testing.T) {
	dir := t.TempDir()
	s1 := cache.NewStore(dir, "screen_names", "https://api.vk.com/method/")
	s2 := cache.NewStore(dir, "screen_names", "http://127.0.0.1:8080/method/")

	s1.Put([]string{"public"})
	s2.Put([]string{"local"})

	var got1, got2 []string
	s1.Get(&got1)
	s2.Get(&got2)

	if got1[0] != "public" || got2[0] != "local" {
		t.Fatal("endpoints should have separate caches")
	}
}

func TestClearAll(t *testing.T) {
	dir := t.TempDir()
	cache.NewStore(dir, "screen_names", "https://api.vk.com/method/").Put([]string{"a"})
	cache.NewStore(dir, "groups", "https://api.vk.com/method/").Put([]string{"b"})

	if n := cache.ClearAll(dir); n != 2 {
		t.Fatalf("ClearAll removed %d files, want 2", n)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if len(files) != 0 {
		t.Fatalf("expected no cache files after ClearAll, got %d", len(files))
	}
}

func TestStore_DisabledByEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VK_NO_CACHE", "1")

	s := cache.NewStore(dir, "screen_names", "https://api.vk.com/method/")
	s.Put([]string{"a"})

	var got []string
	if s.Get(&got) {
		t.Fatal("expected cache miss when disabled via env")
	}

	files, _ := os.ReadDir(dir)
	if len(files) != 0 {
		t.Fatal("expected no files written when cache disabled")
	}
}

func TestScreenNames(t *testing.T) {
	dir := t.TempDir()
	names := cache.NewScreenNames(dir, "https://api.vk.com/method/")

	if _, ok := names.Lookup("durov"); ok {
		t.Fatal("expected miss before Remember")
	}
	names.Remember("Durov", 1)
	names.Remember("ignored", 0)

	if id, ok := names.Lookup("DUROV"); !ok || id != 1 {
		t.Fatalf("Lookup = %d, %v; want 1, true", id, ok)
	}

	// A fresh instance reads what the first one wrote.
	again := cache.NewScreenNames(dir, "https://api.vk.com/method/")
	if id, ok := again.Lookup("durov"); !ok || id != 1 {
		t.Fatalf("reloaded Lookup = %d, %v; want 1, true", id, ok)
	}
	if _, ok := again.Lookup("ignored"); ok {
		t.Fatal("non-positive ids are not cached")
	}
}

func TestScreenNamesNil(t *testing.T) {
	var names *cache.ScreenNames
	names.Remember("durov", 1)
	if _, ok := names.Lookup("durov"); ok {
		t.Fatal("nil cache should never hit")
	}
}
