package cmd

// Test utilities for vk commands.
//
// Commands run against an httptest server that stands in for
// https://api.vk.com/method/. Handlers are keyed by API method name:
//
//	env := setupTestEnv(t, newMethodHandler().
//	    On("users.get", vkResponse(`[{"uid":1,"first_name":"Pavel"}]`)))
//	out, _, err := env.run("users", "get", "1")
//
// The keyring is replaced by an in-memory one and VK_ACCESS_TOKEN is set,
// so no test touches the real credential store.

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/99designs/keyring"

	"github.com/vkcli/vk-cli/internal/config"
	"github.com/vkcli/vk-cli/internal/iocontext"
	"github.com/vkcli/vk-cli/internal/validation"
)

const testToken = "test-token-0123456789"

// methodHandler routes requests by the last path segment (the API method)
// and records every query it sees.
type methodHandler struct {
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []recordedRequest
}

type recordedRequest struct {
	Method string
	Query  url.Values
}

func newMethodHandler() *methodHandler {
	return &methodHandler{routes: make(map[string]http.HandlerFunc)}
}

// On registers a handler for an API method such as "users.get".
func (h *methodHandler) On(method string, handler http.HandlerFunc) *methodHandler {
	h.routes[method] = handler
	return h
}

func (h *methodHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := path.Base(r.URL.Path)
	h.mu.Lock()
	h.requests = append(h.requests, recordedRequest{Method: method, Query: r.URL.Query()})
	handler, ok := h.routes[method]
	h.mu.Unlock()
	if !ok {
		vkError(5, "User authorization failed: no route for "+method)(w, r)
		return
	}
	handler(w, r)
}

// calls returns the recorded requests for one API method.
func (h *methodHandler) calls(method string) []recordedRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []recordedRequest
	for _, r := range h.requests {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

func (h *methodHandler) total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.requests)
}

// rawBody answers with a fixed body.
func rawBody(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

// vkResponse wraps a JSON value in the {"response": ...} envelope.
func vkResponse(response string) http.HandlerFunc {
	return rawBody(`{"response":` + response + `}`)
}

// vkError answers with an API error envelope.
func vkError(code int, msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := `{"error":{"error_code":` + strconv.Itoa(code) + `,"error_msg":` + quote(msg) + `,"request_params":[{"key":"method","value":` + quote(path.Base(r.URL.Path)) + `}]}}`
		rawBody(body)(w, r)
	}
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

type testEnv struct {
	t       *testing.T
	server  *httptest.Server
	handler *methodHandler
	ring    keyring.Keyring
	stdin   string
}

// setupTestEnv starts a fake API server and isolates environment, keyring and
// config directories for the test.
func setupTestEnv(t *testing.T, handler *methodHandler) *testEnv {
	t.Helper()
	if handler == nil {
		handler = newMethodHandler()
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
	t.Setenv("VK_NO_CACHE", "")
	t.Setenv("VK_API_BASE_URL", srv.URL+"/method/")
	t.Setenv("VK_ACCESS_TOKEN", testToken)
	t.Setenv("VK_PROFILE", "")
	t.Setenv("VK_OUTPUT", "")
	t.Setenv("VK_RETRY_LIMIT", "")
	t.Setenv("VK_RETRY_DELAY", "")
	t.Setenv("VK_API_VERSION", "")
	t.Setenv("VK_LANG", "")
	t.Setenv("VK_GZIP", "")
	t.Setenv("VK_TIMEOUT_MS", "")
	t.Setenv("VK_RPS", "")
	t.Setenv("VK_KEYRING_BACKEND", "")
	t.Setenv("VK_NO_BROWSER", "1")

	validation.SetAllowPrivate(true)
	t.Cleanup(func() { validation.SetAllowPrivate(false) })

	ring := keyring.NewArrayKeyring(nil)
	t.Cleanup(config.SetOpenKeyring(func(keyring.Config) (keyring.Keyring, error) {
		return ring, nil
	}))

	return &testEnv{t: t, server: srv, handler: handler, ring: ring}
}

// withoutEnvToken makes commands fall back to stored profiles.
func (e *testEnv) withoutEnvToken() *testEnv {
	e.t.Setenv("VK_ACCESS_TOKEN", "")
	return e
}

// run executes the CLI with captured streams.
func (e *testEnv) run(args ...string) (stdout, stderr string, err error) {
	e.t.Helper()
	var out, errOut bytes.Buffer
	ctx := iocontext.WithIO(context.Background(), &iocontext.IO{
		Out:    &out,
		ErrOut: &errOut,
		In:     strings.NewReader(e.stdin),
	})
	err = Execute(ctx, args)
	return out.String(), errOut.String(), err
}

// interactive pretends stdin is a terminal and feeds it input.
func (e *testEnv) interactive(input string) *testEnv {
	e.t.Helper()
	e.stdin = input
	orig := stdinIsTerminal
	stdinIsTerminal = func(*iocontext.IO) bool { return true }
	e.t.Cleanup(func() { stdinIsTerminal = orig })
	return e
}
