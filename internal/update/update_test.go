package update

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func releaseServer(t *testing.T, status int, release any) *Checker {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/vnd.github.v3+json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.WriteHeader(status)
		if s, ok := release.(string); ok {
			_, _ = w.Write([]byte(s))
			return
		}
		_ = json.NewEncoder(w).Encode(release)
	}))
	t.Cleanup(srv.Close)
	return &Checker{URL: srv.URL, HTTPClient: srv.Client()}
}

func TestNewer(t *testing.T) {
	tests := []struct {
		latest, current string
		want            bool
	}{
		{"v2.0.0", "1.0.0", true},
		{"1.0.1", "v1.0.0", true},
		{"v1.0.0", "1.0.0", false},
		{"v1.0.0", "2.0.0", false},
		{"v2.0.0-beta.1", "1.9.9", true},
		{"not-a-version", "1.0.0", false},
		{"v2.0.0", "dev-build", false},
		{"", "1.0.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.latest+"_vs_"+tt.current, func(t *testing.T) {
			if got := Newer(tt.latest, tt.current); got != tt.want {
				t.Errorf("Newer(%q, %q) = %v, want %v", tt.latest, tt.current, got, tt.want)
			}
		})
	}
}

func TestCheckDevVersionMakesNoRequest(t *testing.T) {
	c := &Checker{URL: "http://127.0.0.1:1"}
	for _, v := range []string{"dev", ""} {
		res, err := c.Check(context.Background(), v)
		require.NoError(t, err)
		assert.False(t, res.Available)
	}
}

func TestCheckUpdateAvailable(t *testing.T) {
	c := releaseServer(t, http.StatusOK, Release{TagName: "v1.2.0", HTMLURL: "https://github.com/vkcli/vk-cli/releases/tag/v1.2.0"})

	res, err := c.Check(context.Background(), "1.1.0")
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Equal(t, "1.2.0", res.Latest)
	assert.Equal(t, "1.1.0", res.Current)
	assert.Contains(t, res.URL, "v1.2.0")
}

func TestCheckUpToDate(t *testing.T) {
	c := releaseServer(t, http.StatusOK, Release{TagName: "v1.1.0"})

	res, err := c.Check(context.Background(), "v1.1.0")
	require.NoError(t, err)
	assert.False(t, res.Available)
}

func TestCheckErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		c := releaseServer(t, http.StatusNotFound, "")
		_, err := c.Check(context.Background(), "1.0.0")
		assert.ErrorContains(t, err, "HTTP 404")
	})
	t.Run("bad json", func(t *testing.T) {
		c := releaseServer(t, http.StatusOK, "not json")
		_, err := c.Check(context.Background(), "1.0.0")
		assert.ErrorContains(t, err, "decode")
	})
	t.Run("canceled", func(t *testing.T) {
		c := releaseServer(t, http.StatusOK, Release{TagName: "v2.0.0"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.Check(ctx, "1.0.0")
		assert.Error(t, err)
	})
}
