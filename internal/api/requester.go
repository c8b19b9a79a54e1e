package api

import "context"

// Requester is the request surface endpoint helpers depend on. *Client
// implements it; tests substitute a canned implementation to exercise the
// mappers without a transport.
type Requester interface {
	// Execute sends one API call and returns the unwrapped envelope.
	Execute(ctx context.Context, p *Params) (*Envelope, error)
}
