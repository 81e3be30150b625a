package replace

import (
	"strings"
	"testing"

	"github.com/hyperjump/okikae/internal/models"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		req       models.ReplacementRequest
		wantText  string
		wantCount int
	}{
		{
			name:      "single occurrence",
			text:      "hello world",
			req:       models.ReplacementRequest{Find: "hello", Replace: "hi", CaseSensitive: true},
			wantText:  "hi world",
			wantCount: 1,
		},
		{
			name:      "multiple occurrences leftmost first",
			text:      "aaa bbb aaa",
			req:       models.ReplacementRequest{Find: "aaa", Replace: "x", CaseSensitive: true},
			wantText:  "x bbb x",
			wantCount: 2,
		},
		{
			name:      "non-overlapping",
			text:      "aaaa",
			req:       models.ReplacementRequest{Find: "aa", Replace: "b", CaseSensitive: true},
			wantText:  "bb",
			wantCount: 2,
		},
		{
			name:      "case sensitive misses other casing",
			text:      "Apple apple",
			req:       models.ReplacementRequest{Find: "apple", Replace: "REPL", CaseSensitive: true},
			wantText:  "Apple REPL",
			wantCount: 1,
		},
		{
			name:      "case insensitive matches all casings",
			text:      "Apple apple APPLE",
			req:       models.ReplacementRequest{Find: "apple", Replace: "REPL"},
			wantText:  "REPL REPL REPL",
			wantCount: 3,
		},
		{
			name:      "case insensitive unicode folding",
			text:      "Straße STRASSE über Über",
			req:       models.ReplacementRequest{Find: "über", Replace: "ueber"},
			wantText:  "Straße STRASSE ueber ueber",
			wantCount: 2,
		},
		{
			name:      "no match leaves text untouched",
			text:      "nothing here",
			req:       models.ReplacementRequest{Find: "absent", Replace: "x"},
			wantText:  "nothing here",
			wantCount: 0,
		},
		{
			name:      "empty find matches nothing",
			text:      "anything",
			req:       models.ReplacementRequest{Find: "", Replace: "x"},
			wantText:  "anything",
			wantCount: 0,
		},
		{
			name:      "replacement longer than find",
			text:      "a b a",
			req:       models.ReplacementRequest{Find: "a", Replace: "longer", CaseSensitive: true},
			wantText:  "longer b longer",
			wantCount: 2,
		},
		{
			name:      "replacement empty deletes matches",
			text:      "one two one",
			req:       models.ReplacementRequest{Find: "one", Replace: "", CaseSensitive: true},
			wantText:  " two ",
			wantCount: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, count := Match(tt.text, tt.req)
			if got != tt.wantText {
				t.Errorf("Match() text = %q, want %q", got, tt.wantText)
			}
			if count != tt.wantCount {
				t.Errorf("Match() count = %d, want %d", count, tt.wantCount)
			}
		})
	}
}

func TestMatch_identityReplacementStillCounts(t *testing.T) {
	text := "same same same"
	got, count := Match(text, models.ReplacementRequest{Find: "same", Replace: "same", CaseSensitive: true})
	if got != text {
		t.Errorf("identity replacement changed text: %q", got)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestMatch_countEqualsNonOverlappingOccurrences(t *testing.T) {
	text := strings.Repeat("needle hay ", 17)
	_, count := Match(text, models.ReplacementRequest{Find: "needle", Replace: "thread", CaseSensitive: true})
	if want := strings.Count(text, "needle"); count != want {
		t.Errorf("count = %d, want %d", count, want)
	}
}

func TestMatch_replacementNotRescanned(t *testing.T) {
	// The replacement text containing the find term must not be matched again.
	got, count := Match("ab", models.ReplacementRequest{Find: "ab", Replace: "abab", CaseSensitive: true})
	if got != "abab" || count != 1 {
		t.Errorf("got %q count %d, want %q count 1", got, count, "abab")
	}
}
