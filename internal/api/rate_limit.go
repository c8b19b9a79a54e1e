package api

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// vk.com allows about three calls per second per user token; the limiter
// keeps a client under a configured budget instead of tripping error 6.

// newLimiter returns nil when rps is not positive.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(math.Max(1, math.Floor(rps)))
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// wait blocks until the limiter grants a call slot.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Kind: TransportCanceled, Err: err}
	}
	return nil
}
