package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewCallbackServer(t *testing.T) {
	s1, err := NewCallbackServer()
	if err != nil {
		t.Fatalf("NewCallbackServer() error = %v", err)
	}
	s2, _ := NewCallbackServer()

	if len(s1.State()) != 32 {
		t.Errorf("state length = %d, want 32", len(s1.State()))
	}
	if s1.State() == s2.State() {
		t.Error("NewCallbackServer() created duplicate states")
	}
}

func TestHandleCallback(t *testing.T) {
	s, _ := NewCallbackServer()

	rec := httptest.NewRecorder()
	s.handleCallback(rec, httptest.NewRequest(http.MethodGet, "/callback", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), s.State()) {
		t.Error("callback page does not embed the state")
	}

	rec = httptest.NewRecorder()
	s.handleCallback(rec, httptest.NewRequest(http.MethodPost, "/callback", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}

func postToken(s *CallbackServer, csrf, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rec := httptest.NewRecorder()
	s.handleToken(rec, req)
	return rec
}

func TestHandleToken(t *testing.T) {
	t.Run("rejects non-POST methods", func(t *testing.T) {
		s, _ := NewCallbackServer()
		rec := httptest.NewRecorder()
		s.handleToken(rec, httptest.NewRequest(http.MethodGet, "/token", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})

	t.Run("rejects missing or wrong CSRF token", func(t *testing.T) {
		s, _ := NewCallbackServer()
		for _, csrf := range []string{"", "wrong"} {
			if rec := postToken(s, csrf, `{"fragment":"access_token=t"}`); rec.Code != http.StatusForbidden {
				t.Errorf("csrf %q status = %d, want 403", csrf, rec.Code)
			}
		}
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		s, _ := NewCallbackServer()
		if rec := postToken(s, s.State(), "not json"); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("rejects fragment without token", func(t *testing.T) {
		s, _ := NewCallbackServer()
		rec := postToken(s, s.State(), `{"fragment":""}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		select {
		case <-s.result:
			t.Error("invalid fragment should not deliver a result")
		default:
		}
	})

	t.Run("delivers token", func(t *testing.T) {
		s, _ := NewCallbackServer()
		body := `{"fragment":"access_token=tok&user_id=3&expires_in=60&state=` + s.State() + `"}`
		rec := postToken(s, s.State(), body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		var resp map[string]any
		_ = json.NewDecoder(rec.Body).Decode(&resp)
		if resp["success"] != true || resp["user_id"] != float64(3) {
			t.Errorf("response = %v", resp)
		}

		r := <-s.result
		if r.err != nil || r.token.AccessToken != "tok" || r.token.ExpiresIn != 60 {
			t.Errorf("delivered = %+v", r)
		}

		// A second post is ignored.
		postToken(s, s.State(), body)
		select {
		case <-s.result:
			t.Error("only the first result should be delivered")
		default:
		}
	})

	t.Run("delivers oauth error", func(t *testing.T) {
		s, _ := NewCallbackServer()
		rec := postToken(s, s.State(), `{"fragment":"error=access_denied"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		r := <-s.result
		var oauthErr *OAuthError
		if !errors.As(r.err, &oauthErr) {
			t.Errorf("delivered error = %v, want OAuthError", r.err)
		}
	})
}

func TestCallbackServerLifecycle(t *testing.T) {
	s, _ := NewCallbackServer()
	redirect, err := s.Listen()
	if err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	if !strings.HasPrefix(redirect, "http://127.0.0.1:") || !strings.HasSuffix(redirect, "/callback") {
		t.Fatalf("redirect = %q", redirect)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	var tok Token
	var waitErr error
	go func() {
		tok, waitErr = s.Wait(ctx)
		close(done)
	}()

	tokenURL := strings.TrimSuffix(redirect, "/callback") + "/token"
	body := `{"fragment":"access_token=live&state=` + s.State() + `"}`
	var resp *http.Response
	for i := 0; i < 50; i++ {
		req, _ := http.NewRequest(http.MethodPost, tokenURL, strings.NewReader(body))
		req.Header.Set("X-CSRF-Token", s.State())
		resp, err = http.DefaultClient.Do(req)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("POST /token: %v", err)
	}
	_ = resp.Body.Close()

	<-done
	if waitErr != nil || tok.AccessToken != "live" {
		t.Errorf("Wait() = %+v, %v", tok, waitErr)
	}
}

func TestWaitContextCancellation(t *testing.T) {
	s, _ := NewCallbackServer()
	if _, err := s.Listen(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestWaitWithoutListen(t *testing.T) {
	s, _ := NewCallbackServer()
	if _, err := s.Wait(context.Background()); err == nil {
		t.Error("Wait() before Listen() should fail")
	}
}

func TestOpenBrowserSkippedInTests(t *testing.T) {
	if err := OpenBrowser("https://oauth.vk.com/authorize"); err != nil {
		t.Errorf("OpenBrowser() error = %v", err)
	}
}
