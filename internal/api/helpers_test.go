package api

import (
	"context"
	"sync"

	"github.com/tidwall/gjson"
)

// fakeRequester answers every call with a canned reply body.
type fakeRequester struct {
	body  string
	err   error
	calls int
	got   *Params
}

func (f *fakeRequester) Execute(_ context.Context, p *Params) (*Envelope, error) {
	f.calls++
	f.got = p
	if f.err != nil {
		return nil, f.err
	}
	return parseEnvelope([]byte(f.body))
}

func (f *fakeRequester) param(name string) string {
	if f.got == nil {
		return ""
	}
	v, _ := f.got.Get(name)
	return v
}

type stubResult struct {
	body string
	err  error
}

// stubTransport replays results in order and repeats the last one.
type stubTransport struct {
	mu      sync.Mutex
	results []stubResult
	calls   int
	urls    []string
	opts    []TransportOptions
}

func (s *stubTransport) Get(_ context.Context, url string, opts TransportOptions) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, url)
	s.opts = append(s.opts, opts)
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	r := s.results[i]
	if r.err != nil {
		return nil, r.err
	}
	return []byte(r.body), nil
}

func (s *stubTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func okTransport(body string) *stubTransport {
	return &stubTransport{results: []stubResult{{body: body}}}
}

func parse(raw string) gjson.Result {
	return gjson.Parse(raw)
}
