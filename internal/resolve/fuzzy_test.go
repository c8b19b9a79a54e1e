package resolve_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/vkcli/vk-cli/internal/resolve"
)

var friends = []resolve.Named{
	{ID: 1, Name: "Pavel Durov"},
	{ID: 2, Name: "Lidia Durov"},
	{ID: 3, Name: "Ilya Perekopsky"},
}

func TestFuzzyMatch_ExactHit(t *testing.T) {
	id, err := resolve.FuzzyMatch("pavel durov", friends)
	if err != nil {
		t.Fatal(err)
	}
	if id != 1 {
		t.Fatalf("expected ID 1, got %d", id)
	}
}

func TestFuzzyMatch_PartialHit(t *testing.T) {
	id, err := resolve.FuzzyMatch("ilya", friends)
	if err != nil {
		t.Fatal(err)
	}
	if id != 3 {
		t.Fatalf("expected ID 3, got %d", id)
	}
}

func TestFuzzyMatch_Ambiguous(t *testing.T) {
	_, err := resolve.FuzzyMatch("durov", friends)
	var amb *resolve.AmbiguousError
	if !errors.As(err, &amb) {
		t.Fatalf("expected AmbiguousError, got %v", err)
	}
	if len(amb.Matches) != 2 {
		t.Errorf("expected 2 candidates, got %+v", amb.Matches)
	}
}

func TestFuzzyMatch_DuplicateExactNames(t *testing.T) {
	items := []resolve.Named{{ID: 1, Name: "Anna"}, {ID: 2, Name: "anna"}}
	_, err := resolve.FuzzyMatch("ANNA", items)
	var amb *resolve.AmbiguousError
	if !errors.As(err, &amb) || len(amb.Matches) != 2 {
		t.Fatalf("expected two-way AmbiguousError, got %v", err)
	}
}

func TestFuzzyMatch_Errors(t *testing.T) {
	if _, err := resolve.FuzzyMatch("  ", friends); !errors.Is(err, resolve.ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
	if _, err := resolve.FuzzyMatch("x", nil); !errors.Is(err, resolve.ErrEmptyItems) {
		t.Errorf("expected ErrEmptyItems, got %v", err)
	}
	if _, err := resolve.FuzzyMatch("zzz", friends); err == nil || !strings.Contains(err.Error(), "no match") {
		t.Errorf("expected no match error, got %v", err)
	}
}

func TestFuzzyMatchAll(t *testing.T) {
	matches := resolve.FuzzyMatchAll("durov", friends, 1)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if resolve.FuzzyMatchAll("", friends, 5) != nil {
		t.Error("empty query should return nil")
	}
	if resolve.FuzzyMatchAll("durov", friends, 0) != nil {
		t.Error("zero limit should return nil")
	}
}

func TestAmbiguousErrorString(t *testing.T) {
	err := &resolve.AmbiguousError{
		Query:   "durov",
		Matches: []resolve.Match{{ID: 1, Name: "Pavel Durov"}, {ID: 2, Name: "Nikolai Durov"}},
	}
	msg := err.Error()
	if !strings.Contains(msg, `ambiguous match for "durov"`) {
		t.Fatalf("missing query in error message: %q", msg)
	}
	if !strings.Contains(msg, "1: Pavel Durov") || !strings.Contains(msg, "2: Nikolai Durov") {
		t.Fatalf("missing candidates in error message: %q", msg)
	}
}
