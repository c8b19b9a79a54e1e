package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// maxDistance is the largest edit distance still worth suggesting.
const maxDistance = 3

// Suggest returns up to limit candidates that look like input. Close
// spellings (by edit distance) come first, then fuzzy subsequence matches.
func Suggest(input string, candidates []string, limit int) []string {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" || limit <= 0 {
		return nil
	}

	type scored struct {
		name string
		dist int
	}
	var near []scored
	seen := make(map[string]bool)
	for _, c := range candidates {
		if d := Levenshtein(input, strings.ToLower(c)); d <= maxDistance && d < len(c) {
			near = append(near, scored{c, d})
			seen[c] = true
		}
	}
	sort.SliceStable(near, func(i, j int) bool { return near[i].dist < near[j].dist })

	out := make([]string, 0, limit)
	for _, s := range near {
		if len(out) == limit {
			return out
		}
		out = append(out, s.name)
	}
	for _, m := range fuzzy.Find(input, candidates) {
		if len(out) == limit {
			break
		}
		if !seen[m.Str] {
			seen[m.Str] = true
			out = append(out, m.Str)
		}
	}
	return out
}

// UnknownNameError reports a value outside a fixed vocabulary.
type UnknownNameError struct {
	Field       string
	Value       string
	Suggestions []string
}

func (e *UnknownNameError) Error() string {
	msg := fmt.Sprintf("unknown %s %q", e.Field, e.Value)
	switch len(e.Suggestions) {
	case 0:
		return msg
	case 1:
		return fmt.Sprintf("%s; did you mean %q?", msg, e.Suggestions[0])
	default:
		return fmt.Sprintf("%s; did you mean one of: %s?", msg, strings.Join(e.Suggestions, ", "))
	}
}

// CheckNames returns an *UnknownNameError for the first value not in allowed.
func CheckNames(field string, values, allowed []string) error {
	known := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		known[a] = true
	}
	for _, v := range values {
		if !known[v] {
			return &UnknownNameError{Field: field, Value: v, Suggestions: Suggest(v, allowed, 3)}
		}
	}
	return nil
}

// Levenshtein computes the edit distance between two strings.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		prev := i - 1
		row[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			val := min(row[j]+1, row[j-1]+1, prev+cost)
			prev = row[j]
			row[j] = val
		}
	}
	return row[len(rb)]
}
