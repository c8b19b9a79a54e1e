// Package urlparse turns vk.com profile and community references into ids or
// screen names.
package urlparse

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/vkcli/vk-cli/internal/validation"
)

// Kind says what a reference points at.
type Kind int

const (
	// KindID is a bare positive number; the command decides whether it is a
	// user or a community.
	KindID Kind = iota
	// KindUser is an explicit profile reference (id123).
	KindUser
	// KindGroup is an explicit community reference (club1, public1, event1, -1).
	KindGroup
	// KindScreenName is a short address such as "durov".
	KindScreenName
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindGroup:
		return "group"
	case KindScreenName:
		return "screen_name"
	default:
		return "id"
	}
}

// Ref is a parsed reference.
type Ref struct {
	Kind       Kind
	ID         int64  // 0 for screen names
	ScreenName string // set only for KindScreenName
}

// String returns the value vk accepts in uids/gids lists.
func (r Ref) String() string {
	if r.Kind == KindScreenName {
		return r.ScreenName
	}
	return strconv.FormatInt(r.ID, 10)
}

var (
	numericPattern = regexp.MustCompile(`^-?\d+$`)
	userPattern    = regexp.MustCompile(`^id(\d+)$`)
	groupPattern   = regexp.MustCompile(`^(?:club|public|event)(\d+)$`)
)

// Parse accepts any of:
//
//	123  -123  id123  club42  public42  event42  durov  @durov
//	vk.com/id123  https://m.vk.com/club42  https://vk.com/durov?w=wall
func Parse(raw string) (Ref, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Ref{}, fmt.Errorf("reference cannot be empty")
	}

	token, err := pathToken(s)
	if err != nil {
		return Ref{}, err
	}
	token = strings.TrimPrefix(token, "@")

	switch {
	case numericPattern.MatchString(token):
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil || id == 0 {
			return Ref{}, fmt.Errorf("invalid id %q", token)
		}
		if id < 0 {
			return Ref{Kind: KindGroup, ID: -id}, nil
		}
		return Ref{Kind: KindID, ID: id}, nil
	case userPattern.MatchString(token):
		return explicitRef(KindUser, userPattern.FindStringSubmatch(token)[1])
	case groupPattern.MatchString(token):
		return explicitRef(KindGroup, groupPattern.FindStringSubmatch(token)[1])
	}

	if err := validation.ValidateScreenName(token); err != nil {
		return Ref{}, fmt.Errorf("invalid reference %q: %w", raw, err)
	}
	return Ref{Kind: KindScreenName, ScreenName: token}, nil
}

func explicitRef(kind Kind, digits string) (Ref, error) {
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id == 0 {
		return Ref{}, fmt.Errorf("invalid %s id %q", kind, digits)
	}
	return Ref{Kind: kind, ID: id}, nil
}

// pathToken returns the first path segment of a vk.com URL, or s itself when
// it is not a URL.
func pathToken(s string) (string, error) {
	lower := strings.ToLower(s)
	if !strings.Contains(lower, "://") {
		if !isVKHost(strings.SplitN(lower, "/", 2)[0]) {
			if strings.Contains(s, "/") {
				return "", fmt.Errorf("invalid reference %q: expected a vk.com address", s)
			}
			return s, nil
		}
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid URL scheme %q: expected http or https", u.Scheme)
	}
	if !isVKHost(strings.ToLower(u.Hostname())) {
		return "", fmt.Errorf("unsupported host %q: expected vk.com", u.Hostname())
	}

	segment := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)[0]
	if segment == "" {
		return "", fmt.Errorf("URL %q has no profile or community path", s)
	}
	return segment, nil
}

func isVKHost(host string) bool {
	for _, base := range []string{"vk.com", "vk.ru"} {
		if host == base || strings.HasSuffix(host, "."+base) {
			return true
		}
	}
	return false
}

// ParseList parses every argument, splitting comma-separated values.
func ParseList(args []string) ([]Ref, error) {
	var refs []Ref
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			ref, err := Parse(part)
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("at least one reference is required")
	}
	return refs, nil
}
