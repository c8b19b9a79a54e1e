// Package update compares the running version with the latest published
// release.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	// DefaultReleasesURL is the GitHub endpoint for the latest release.
	DefaultReleasesURL = "https://api.github.com/repos/vkcli/vk-cli/releases/latest"
	// CheckTimeout bounds the whole check.
	CheckTimeout = 5 * time.Second
)

// Release is the subset of the GitHub release object the check reads.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Result describes the outcome of a successful check.
type Result struct {
	Current   string `json:"current"`
	Latest    string `json:"latest"`
	URL       string `json:"url,omitempty"`
	Available bool   `json:"update_available"`
}

// Checker fetches release metadata.
type Checker struct {
	URL        string
	HTTPClient *http.Client
}

// NewChecker returns a Checker for DefaultReleasesURL.
func NewChecker() *Checker {
	return &Checker{URL: DefaultReleasesURL, HTTPClient: &http.Client{Timeout: CheckTimeout}}
}

// Check fetches the latest release and compares it with current. Development
// builds ("dev" or empty) are never reported as outdated and make no request.
func (c *Checker) Check(ctx context.Context, current string) (*Result, error) {
	if current == "" || current == "dev" {
		return &Result{Current: current}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, CheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build release request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release lookup returned HTTP %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode release: %w", err)
	}

	return &Result{
		Current:   current,
		Latest:    strings.TrimPrefix(release.TagName, "v"),
		URL:       release.HTMLURL,
		Available: Newer(release.TagName, current),
	}, nil
}

// Newer reports whether latest is a higher semantic version than current.
// Either side may omit the "v" prefix; invalid versions never compare newer.
func Newer(latest, current string) bool {
	l, c := canonical(latest), canonical(current)
	if !semver.IsValid(l) || !semver.IsValid(c) {
		return false
	}
	return semver.Compare(l, c) > 0
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
