package cmd

import (
	"context"
	"errors"
	"net/url"
	"path"
	"sync"

	"github.com/vkcli/vk-cli/internal/api"
	"github.com/vkcli/vk-cli/internal/dryrun"
)

// errDryRun is what the preview transport answers every request with.
var errDryRun = errors.New("dry-run: request not sent")

// previewTransport records requests for --dry-run instead of sending them.
type previewTransport struct {
	mu       sync.Mutex
	requests []dryrun.Request
}

var _ api.Transport = (*previewTransport)(nil)

func (t *previewTransport) Get(_ context.Context, rawURL string, _ api.TransportOptions) ([]byte, error) {
	redacted := api.RedactURL(rawURL)
	req := dryrun.Request{URL: redacted}
	if u, err := url.Parse(redacted); err == nil {
		req.Method = path.Base(u.Path)
		params := map[string]string{}
		for k, v := range u.Query() {
			if k == "access_token" || len(v) == 0 {
				continue
			}
			params[k] = v[0]
		}
		req.Params = params
	}

	t.mu.Lock()
	t.requests = append(t.requests, req)
	t.mu.Unlock()
	return nil, errDryRun
}

func (t *previewTransport) preview(command string) *dryrun.Preview {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := &dryrun.Preview{Command: command}
	for _, r := range t.requests {
		p.Add(r)
	}
	return p
}
