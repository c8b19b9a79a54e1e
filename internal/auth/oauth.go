// Package auth obtains vk.com access tokens through the OAuth implicit flow.
package auth

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vkcli/vk-cli/internal/config"
	"github.com/vkcli/vk-cli/internal/resolve"
)

const (
	// AuthorizeEndpoint is the vk OAuth dialog.
	AuthorizeEndpoint = "https://oauth.vk.com/authorize"
	// BlankRedirect is the redirect target for standalone apps; the token is
	// read back from the browser's address bar.
	BlankRedirect = "https://oauth.vk.com/blank.html"
)

// Scopes is the permission vocabulary of the authorize dialog.
var Scopes = []string{
	"notify", "friends", "photos", "audio", "video", "docs", "notes", "pages",
	"status", "offers", "questions", "wall", "groups", "messages", "email",
	"notifications", "stats", "ads", "offline", "nohttps",
}

// Displays lists the accepted dialog layouts.
var Displays = []string{"page", "popup", "mobile"}

// AuthorizeOptions configures the authorize URL.
type AuthorizeOptions struct {
	AppID       int64
	Scope       []string
	RedirectURI string // defaults to BlankRedirect
	Display     string // defaults to "page"
	State       string
	Revoke      bool
	APIVersion  string
}

// AuthorizeURL builds the implicit-flow dialog URL.
func AuthorizeURL(o AuthorizeOptions) (string, error) {
	if o.AppID <= 0 {
		return "", fmt.Errorf("app id must be a positive integer")
	}
	if err := resolve.CheckNames("scope", o.Scope, Scopes); err != nil {
		return "", err
	}
	display := o.Display
	if display == "" {
		display = "page"
	}
	if err := resolve.CheckNames("display", []string{display}, Displays); err != nil {
		return "", err
	}
	redirect := o.RedirectURI
	if redirect == "" {
		redirect = BlankRedirect
	}

	q := url.Values{}
	q.Set("client_id", strconv.FormatInt(o.AppID, 10))
	q.Set("redirect_uri", redirect)
	q.Set("display", display)
	q.Set("response_type", "token")
	if len(o.Scope) > 0 {
		q.Set("scope", strings.Join(o.Scope, ","))
	}
	if o.State != "" {
		q.Set("state", o.State)
	}
	if o.Revoke {
		q.Set("revoke", "1")
	}
	if o.APIVersion != "" {
		q.Set("v", o.APIVersion)
	}
	return AuthorizeEndpoint + "?" + q.Encode(), nil
}

// Token is the result of a successful authorization.
type Token struct {
	AccessToken string `json:"-"`
	UserID      int64  `json:"user_id,omitempty"`
	// ExpiresIn is seconds from issue; zero for offline tokens.
	ExpiresIn int64  `json:"expires_in"`
	Email     string `json:"email,omitempty"`
	State     string `json:"-"`
}

// Account converts the token into a storable profile.
func (t Token) Account(appID int64, scope []string, issued time.Time) config.Account {
	a := config.Account{
		AccessToken: t.AccessToken,
		UserID:      t.UserID,
		AppID:       appID,
		Scope:       scope,
		SavedAt:     issued.Unix(),
	}
	if t.ExpiresIn > 0 {
		a.ExpiresAt = issued.Unix() + t.ExpiresIn
	}
	return a
}

// OAuthError is an error reported by the authorize dialog.
type OAuthError struct {
	Code        string
	Description string
}

func (e *OAuthError) Error() string {
	if e.Description == "" {
		return "authorization failed: " + e.Code
	}
	return fmt.Sprintf("authorization failed: %s: %s", e.Code, e.Description)
}

// ParseRedirect reads the token from the URL the dialog redirected to. raw
// may be the full URL or just its fragment. When wantState is set the
// fragment's state must match it.
func ParseRedirect(raw, wantState string) (Token, error) {
	raw = strings.TrimSpace(raw)
	fragment := raw
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		fragment = raw[i+1:]
	} else if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return Token{}, fmt.Errorf("invalid redirect URL: %w", err)
		}
		// Errors come back in the query when the dialog is refused.
		fragment = u.RawQuery
	}

	values, err := url.ParseQuery(fragment)
	if err != nil {
		return Token{}, fmt.Errorf("invalid redirect fragment: %w", err)
	}
	if code := values.Get("error"); code != "" {
		return Token{}, &OAuthError{Code: code, Description: values.Get("error_description")}
	}

	tok := Token{
		AccessToken: values.Get("access_token"),
		Email:       values.Get("email"),
		State:       values.Get("state"),
	}
	if tok.AccessToken == "" {
		return Token{}, fmt.Errorf("redirect carries no access_token")
	}
	if wantState != "" && tok.State != wantState {
		return Token{}, fmt.Errorf("state mismatch in redirect")
	}
	if v := values.Get("user_id"); v != "" {
		if tok.UserID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return Token{}, fmt.Errorf("invalid user_id %q", v)
		}
	}
	if v := values.Get("expires_in"); v != "" {
		if tok.ExpiresIn, err = strconv.ParseInt(v, 10, 64); err != nil || tok.ExpiresIn < 0 {
			return Token{}, fmt.Errorf("invalid expires_in %q", v)
		}
	}
	return tok, nil
}
