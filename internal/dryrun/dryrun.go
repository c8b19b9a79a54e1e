// Package dryrun previews API calls without sending them.
package dryrun

import (
	"context"
	"fmt"
	"io"
	"sort"
)

type contextKey string

const dryRunKey contextKey = "dry_run_enabled"

// WithDryRun returns a context with dry-run mode enabled/disabled.
func WithDryRun(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, dryRunKey, enabled)
}

// IsEnabled returns true if dry-run mode is enabled.
func IsEnabled(ctx context.Context) bool {
	if v, ok := ctx.Value(dryRunKey).(bool); ok {
		return v
	}
	return false
}

// Request is one API call that would have been sent. URL must already have
// the access token redacted.
type Request struct {
	Method string            `json:"method"`
	URL    string            `json:"url"`
	Params map[string]string `json:"params,omitempty"`
}

// Preview collects the calls a command would make.
type Preview struct {
	Command  string    `json:"command"`
	Requests []Request `json:"requests"`
	Warnings []string  `json:"warnings,omitempty"`
}

// Add records a call.
func (p *Preview) Add(r Request) {
	p.Requests = append(p.Requests, r)
}

// Write outputs the preview to the writer
func (p *Preview) Write(w io.Writer) {
	_, _ = fmt.Fprintf(w, "\n[DRY-RUN] %s would send %d request(s)\n", p.Command, len(p.Requests))
	_, _ = fmt.Fprintf(w, "───────────────────────────────────────\n")

	for i, r := range p.Requests {
		_, _ = fmt.Fprintf(w, "%d. %s\n   GET %s\n", i+1, r.Method, r.URL)
		names := make([]string, 0, len(r.Params))
		for k := range r.Params {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			_, _ = fmt.Fprintf(w, "   %s: %s\n", k, r.Params[k])
		}
	}

	if len(p.Warnings) > 0 {
		_, _ = fmt.Fprintln(w, "\nWarnings:")
		for _, warning := range p.Warnings {
			_, _ = fmt.Fprintf(w, "  ! %s\n", warning)
		}
	}

	_, _ = fmt.Fprintf(w, "───────────────────────────────────────\n")
	_, _ = fmt.Fprintln(w, "Nothing sent (dry-run mode)")
}
