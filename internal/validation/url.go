// Package validation checks user-supplied URLs and identifiers before they
// reach the API client.
//
// Two URL checks are provided:
//   - ValidateBaseURL: strict validation for the API method endpoint, which
//     receives the access token on every call
//   - ValidateRedirectURL: relaxed validation for OAuth redirect targets that
//     allows localhost
//
// Private IP ranges can be allowed for the base URL via the VK_ALLOW_PRIVATE
// environment variable (accepts any value recognized by strconv.ParseBool) or
// by calling SetAllowPrivate(true), for example to point the client at a local
// mock server. Cloud metadata endpoints remain blocked either way.
package validation

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// allowPrivate controls whether private/localhost base URLs are permitted.
var allowPrivate atomic.Bool

// privateNetworks holds the reserved ranges parsed once at init.
var privateNetworks []*net.IPNet

// resolveTimeout bounds the DNS lookup done for host names.
const resolveTimeout = 5 * time.Second

func init() {
	v, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv("VK_ALLOW_PRIVATE")))
	allowPrivate.Store(v)

	privateCIDRs := []string{
		"10.0.0.0/8",      // RFC1918
		"172.16.0.0/12",   // RFC1918
		"192.168.0.0/16",  // RFC1918
		"100.64.0.0/10",   // RFC6598 shared address space
		"169.254.0.0/16",  // RFC3927 link local
		"192.0.0.0/24",    // RFC6890
		"192.0.2.0/24",    // RFC5737 documentation
		"198.18.0.0/15",   // RFC2544 benchmarking
		"198.51.100.0/24", // RFC5737 documentation
		"203.0.113.0/24",  // RFC5737 documentation
		"240.0.0.0/4",     // RFC1112 reserved
		"fc00::/7",        // RFC4193 unique local
		"fe80::/10",       // RFC4291 link local
		"ff00::/8",        // RFC4291 multicast
		"::1/128",         // loopback
		"::/128",          // unspecified
		"100::/64",        // RFC6666 discard
		"2001::/32",       // RFC4380 Teredo
		"2001:10::/28",    // RFC4843 ORCHID
		"2001:db8::/32",   // RFC3849 documentation
	}
	privateNetworks = make([]*net.IPNet, 0, len(privateCIDRs))
	for _, cidr := range privateCIDRs {
		if _, network, err := net.ParseCIDR(cidr); err == nil {
			privateNetworks = append(privateNetworks, network)
		}
	}
}

// SetAllowPrivate permits private and localhost base URLs. Cloud metadata
// endpoints stay blocked.
func SetAllowPrivate(enabled bool) {
	allowPrivate.Store(enabled)
}

// AllowPrivateEnabled reports whether private and localhost base URLs are
// currently allowed.
func AllowPrivateEnabled() bool {
	return allowPrivate.Load()
}

// hostPolicy decides which resolved addresses a URL may point at.
type hostPolicy struct {
	allowLoopback bool
	allowPrivate  bool
}

func (p hostPolicy) checkIP(ip net.IP) error {
	if ip.String() == "169.254.169.254" {
		return fmt.Errorf("cloud metadata IP address is not allowed")
	}
	if ip.IsLoopback() || ip.IsUnspecified() {
		if p.allowLoopback || p.allowPrivate {
			return nil
		}
		if ip.IsUnspecified() {
			return fmt.Errorf("unspecified IP addresses are not allowed")
		}
		return fmt.Errorf("loopback IP addresses are not allowed")
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return fmt.Errorf("link-local IP addresses are not allowed")
	}
	if !p.allowPrivate && isPrivateIP(ip) {
		return fmt.Errorf("private IP addresses are not allowed")
	}
	return nil
}

// checkHost validates a literal IP directly and resolves names. Names that do
// not resolve are accepted; the transport reports them as DNS failures.
func (p hostPolicy) checkHost(hostname string) error {
	if isCloudMetadata(hostname) {
		return fmt.Errorf("cloud metadata endpoints are not allowed")
	}
	if ip := net.ParseIP(hostname); ip != nil {
		return p.checkIP(ip)
	}
	if isLocalhost(hostname) {
		if p.allowLoopback || p.allowPrivate {
			return nil
		}
		return fmt.Errorf("localhost URLs are not allowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	ips, err := (&net.Resolver{}).LookupIP(ctx, "ip", hostname)
	if err != nil {
		return nil
	}
	for _, ip := range ips {
		if err := p.checkIP(ip); err != nil {
			return fmt.Errorf("domain %q resolves to forbidden IP %s: %w", hostname, ip.String(), err)
		}
	}
	return nil
}

func parseHTTPURL(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme: only http and https are allowed, got %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("URL must contain a hostname")
	}
	return u, nil
}

// ValidateBaseURL validates the API method endpoint prefix. The client sends
// the access token to this host, so the URL must:
//   - use http or https
//   - end its path with '/' and carry no query or fragment, since the method
//     name is appended verbatim
//   - not point at localhost or private ranges unless AllowPrivate is enabled
//   - never target cloud metadata endpoints
func ValidateBaseURL(rawURL string) error {
	u, err := parseHTTPURL(rawURL)
	if err != nil {
		return err
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("base URL must not carry a query or fragment")
	}
	if !strings.HasSuffix(u.Path, "/") {
		return fmt.Errorf("base URL path must end with '/', got %q", u.Path)
	}
	return hostPolicy{allowPrivate: allowPrivate.Load()}.checkHost(u.Hostname())
}

// ValidateRedirectURL validates an OAuth redirect_uri. Loopback and localhost
// are allowed for local listeners; other private ranges and cloud metadata
// endpoints are not.
func ValidateRedirectURL(rawURL string) error {
	u, err := parseHTTPURL(rawURL)
	if err != nil {
		return err
	}
	return hostPolicy{allowLoopback: true}.checkHost(u.Hostname())
}

func isLocalhost(hostname string) bool {
	h := strings.ToLower(hostname)
	switch h {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0", "::":
		return true
	}
	return strings.HasSuffix(h, ".localhost")
}

func isCloudMetadata(hostname string) bool {
	h := strings.ToLower(hostname)
	switch h {
	case "169.254.169.254", "metadata.google.internal", "metadata", "instance-data", "fd00:ec2::254":
		return true
	}
	return strings.HasSuffix(h, ".metadata.google.internal")
}

func isPrivateIP(ip net.IP) bool {
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
