package api

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Params is the named parameter set of a single API method call.
// The method name is fixed at construction; parameters are added with Put
// and its typed helpers.
type Params struct {
	method string
	values map[string]string
}

// NewParams creates an empty parameter set for the given API method
// (for example "users.get").
func NewParams(method string) *Params {
	return &Params{method: method, values: make(map[string]string)}
}

// Method returns the API method name.
func (p *Params) Method() string {
	return p.method
}

// Put stores value under name. Empty names and empty values are ignored and
// Put reports false. Putting an existing name overwrites the previous value.
func (p *Params) Put(name, value string) bool {
	if name == "" || value == "" {
		return false
	}
	p.values[name] = value
	return true
}

// PutInt stores an integer parameter.
func (p *Params) PutInt(name string, value int) bool {
	return p.Put(name, strconv.Itoa(value))
}

// PutInt64 stores a 64-bit integer parameter.
func (p *Params) PutInt64(name string, value int64) bool {
	return p.Put(name, strconv.FormatInt(value, 10))
}

// PutBool stores a flag as "1" or "0".
func (p *Params) PutBool(name string, value bool) bool {
	if value {
		return p.Put(name, "1")
	}
	return p.Put(name, "0")
}

// PutIDs stores a comma-separated id list. An empty list stores nothing.
func (p *Params) PutIDs(name string, ids []int64) bool {
	if len(ids) == 0 {
		return false
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return p.Put(name, strings.Join(parts, ","))
}

// PutStrings stores a comma-separated list, skipping blank entries.
func (p *Params) PutStrings(name string, values []string) bool {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			parts = append(parts, v)
		}
	}
	return p.Put(name, strings.Join(parts, ","))
}

// Get returns the stored value for name.
func (p *Params) Get(name string) (string, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Len returns the number of stored parameters.
func (p *Params) Len() int {
	return len(p.values)
}

// Names returns the stored parameter names in sorted order.
func (p *Params) Names() []string {
	names := make([]string, 0, len(p.values))
	for name := range p.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the parameter set.
func (p *Params) Clone() *Params {
	c := NewParams(p.method)
	for k, v := range p.values {
		c.values[k] = v
	}
	return c
}

// WithCaptcha returns a copy of p carrying a captcha answer, ready to be
// re-submitted after a captcha-needed API error.
func (p *Params) WithCaptcha(sid, key string) *Params {
	c := p.Clone()
	c.Put("captcha_sid", sid)
	c.Put("captcha_key", key)
	return c
}

// Encode renders the set as name=value pairs joined by '&'. Values are
// form-encoded as UTF-8; names are emitted as given. Names are sorted so the
// output is stable, but callers must not depend on the order.
func (p *Params) Encode() string {
	var b strings.Builder
	for i, name := range p.Names() {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.values[name]))
	}
	return b.String()
}
