package api

import (
	"regexp"
	"strings"
)

// DefaultBaseURL is the vk.com method endpoint prefix.
const DefaultBaseURL = "https://api.vk.com/method/"

var tokenPattern = regexp.MustCompile(`access_token=[^&]*`)

// BuildRequestURL composes the full request URL:
// baseURL + method + "?" + params + "&access_token=" + token.
// The token is appended verbatim and is not validated.
func BuildRequestURL(baseURL string, p *Params, token string) string {
	var b strings.Builder
	b.WriteString(baseURL)
	b.WriteString(p.Method())
	b.WriteByte('?')
	if query := p.Encode(); query != "" {
		b.WriteString(query)
		b.WriteByte('&')
	}
	b.WriteString("access_token=")
	b.WriteString(token)
	return b.String()
}

// RedactURL masks the access token in a request URL for logs and previews.
func RedactURL(rawURL string) string {
	return tokenPattern.ReplaceAllString(rawURL, "access_token=REDACTED")
}
