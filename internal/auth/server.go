package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// CallbackServer receives the implicit-flow redirect on a loopback port.
// The token travels in the URL fragment, which browsers never send, so the
// callback page posts it back to /token.
type CallbackServer struct {
	state    string
	listener net.Listener
	result   chan callbackResult
	once     sync.Once
}

type callbackResult struct {
	token Token
	err   error
}

// NewCallbackServer creates a server with a fresh random state value.
func NewCallbackServer() (*CallbackServer, error) {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	return &CallbackServer{
		state:  hex.EncodeToString(stateBytes),
		result: make(chan callbackResult, 1),
	}, nil
}

// State is the value to pass as the authorize URL's state.
func (s *CallbackServer) State() string { return s.state }

// Listen binds a random loopback port and returns the redirect URI.
func (s *CallbackServer) Listen() (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to start callback server: %w", err)
	}
	s.listener = listener
	return fmt.Sprintf("http://%s/callback", listener.Addr().String()), nil
}

func (s *CallbackServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)
	mux.HandleFunc("/token", s.handleToken)
	return mux
}

// Wait serves until a token (or an OAuth error) arrives or ctx ends.
func (s *CallbackServer) Wait(ctx context.Context) (Token, error) {
	if s.listener == nil {
		return Token{}, errors.New("callback server is not listening")
	}
	server := &http.Server{
		Handler:      s.handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		_ = server.Serve(s.listener)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			_ = server.Close()
		}
	}()

	select {
	case r := <-s.result:
		return r.token, r.err
	case <-ctx.Done():
		return Token{}, ctx.Err()
	}
}

func (s *CallbackServer) deliver(r callbackResult) {
	s.once.Do(func() { s.result <- r })
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>vk-cli login</title></head>
<body>
<p id="status">Completing login...</p>
<script>
fetch("/token", {
  method: "POST",
  headers: {"Content-Type": "application/json", "X-CSRF-Token": {{.State}}},
  body: JSON.stringify({fragment: window.location.hash.slice(1) || window.location.search.slice(1)})
}).then(r => r.json()).then(r => {
  document.getElementById("status").textContent = r.success
    ? "Login complete. You can close this tab."
    : "Login failed: " + r.error;
});
</script>
</body></html>
`))

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = callbackPage.Execute(w, map[string]string{"State": s.state})
}

func (s *CallbackServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("X-CSRF-Token") != s.state {
		http.Error(w, "Invalid CSRF token", http.StatusForbidden)
		return
	}

	var req struct {
		Fragment string `json:"fragment"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Invalid request body"})
		return
	}

	tok, err := ParseRedirect("#"+req.Fragment, s.state)
	var oauthErr *OAuthError
	switch {
	case err == nil:
		s.deliver(callbackResult{token: tok})
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "user_id": tok.UserID})
	case errors.As(err, &oauthErr):
		s.deliver(callbackResult{err: err})
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
	}
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OpenBrowser opens the URL in the default browser
func OpenBrowser(url string) error {
	if shouldSkipAutoBrowserOpen() {
		return nil
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}
	return cmd.Start()
}

func shouldSkipAutoBrowserOpen() bool {
	// Always skip browser launch when running under `go test`.
	if flag.Lookup("test.v") != nil {
		return true
	}
	switch strings.TrimSpace(strings.ToLower(os.Getenv("VK_NO_BROWSER"))) {
	case "1", "true", "yes":
		return true
	}
	return false
}
