package api

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Opt is an optional entity field. The zero value is absent.
type Opt[T any] struct {
	value T
	ok    bool
}

// Some returns a present Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{value: v, ok: true}
}

// Get returns the value and whether it is present.
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Present reports whether the field was present in the payload.
func (o Opt[T]) Present() bool {
	return o.ok
}

// Or returns the value, or def when absent.
func (o Opt[T]) Or(def T) T {
	if !o.ok {
		return def
	}
	return o.value
}

// IsZero reports absence; it lets `omitzero` drop absent fields.
func (o Opt[T]) IsZero() bool {
	return !o.ok
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// member returns the value at key unless it is missing or null.
func member(obj gjson.Result, key string) (gjson.Result, bool) {
	r := obj.Get(key)
	if !r.Exists() || r.Type == gjson.Null {
		return r, false
	}
	return r, true
}

// hasKey reports whether key is present with any value, null included.
func hasKey(obj gjson.Result, key string) bool {
	return obj.Get(key).Exists()
}

func optString(obj gjson.Result, key string) Opt[string] {
	r, ok := member(obj, key)
	if !ok {
		return Opt[string]{}
	}
	switch r.Type {
	case gjson.String:
		return Some(r.Str)
	case gjson.Number, gjson.True, gjson.False:
		return Some(r.Raw)
	}
	return Opt[string]{}
}

func optInt64(obj gjson.Result, key string) Opt[int64] {
	r, ok := member(obj, key)
	if !ok {
		return Opt[int64]{}
	}
	switch r.Type {
	case gjson.Number:
		return Some(r.Int())
	case gjson.String:
		if n, err := strconv.ParseInt(strings.TrimSpace(r.Str), 10, 64); err == nil {
			return Some(n)
		}
	}
	return Opt[int64]{}
}

func optInt(obj gjson.Result, key string) Opt[int] {
	n, ok := optInt64(obj, key).Get()
	if !ok {
		return Opt[int]{}
	}
	return Some(int(n))
}

// optFlag decodes vk's integer booleans: present and true only when 1.
func optFlag(obj gjson.Result, key string) Opt[bool] {
	r, ok := member(obj, key)
	if ok && (r.Type == gjson.True || r.Type == gjson.False) {
		return Some(r.Bool())
	}
	n, ok := optInt64(obj, key).Get()
	if !ok {
		return Opt[bool]{}
	}
	return Some(n == 1)
}

// optObject returns the member at key when it is a JSON object.
func optObject(obj gjson.Result, key string) (gjson.Result, bool) {
	r, ok := member(obj, key)
	if !ok || !r.IsObject() {
		return gjson.Result{}, false
	}
	return r, true
}

// mapObjects maps the object elements of arr. When skipCount is set the
// first element is the total count and is not mapped. Non-object elements
// are skipped so one malformed entry never fails the collection.
func mapObjects[T any](arr gjson.Result, skipCount bool, fn func(gjson.Result) T) []T {
	items := arr.Array()
	if skipCount && len(items) > 0 {
		items = items[1:]
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		out = append(out, fn(item))
	}
	return out
}

// mapIDs maps the numeric elements of arr, skipping anything else.
func mapIDs(arr gjson.Result, skipCount bool) []int64 {
	items := arr.Array()
	if skipCount && len(items) > 0 {
		items = items[1:]
	}
	out := make([]int64, 0, len(items))
	for _, item := range items {
		if item.Type == gjson.Number {
			out = append(out, item.Int())
		}
	}
	return out
}

// leadingCount returns the count stored in the first slot of arr.
func leadingCount(arr gjson.Result) int {
	first := arr.Get("0")
	if first.Type != gjson.Number {
		return 0
	}
	return int(first.Int())
}

// htmlEntities is applied in order, one pair at a time.
var htmlEntities = [][2]string{
	{"&amp;", "&"},
	{"&quot;", `"`},
	{"<br>", "\n"},
	{"&gt;", ">"},
	{"&lt;", "<"},
	{"&#39;", "'"},
	{"<br/>", "\n"},
	{"&ndash;", "-"},
	{"&#33;", "!"},
}

// unescapeText reverses the HTML escaping vk applies to message text.
func unescapeText(s string) string {
	for _, e := range htmlEntities {
		s = strings.ReplaceAll(s, e[0], e[1])
	}
	return strings.TrimSpace(s)
}

func optText(obj gjson.Result, key string) Opt[string] {
	s, ok := optString(obj, key).Get()
	if !ok {
		return Opt[string]{}
	}
	return Some(unescapeText(s))
}
