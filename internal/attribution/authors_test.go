package attribution

import (
	"strings"
	"testing"

	"quote-games/internal/quotes"
)

func TestSanitizeAuthorsSplitsAndDedupes(t *testing.T) {
	got := sanitizeAuthors([]string{"Mark Twain, Oscar Wilde and Plato"})
	want := []string{"Mark Twain", "Oscar Wilde", "Plato"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("author %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	got = sanitizeAuthors([]string{"Plato", "plato", "PLATO  "})
	if len(got) != 1 || got[0] != "Plato" {
		t.Fatalf("expected collapsed duplicates, got %v", got)
	}

	long := strings.Repeat("x", 60)
	got = sanitizeAuthors([]string{long})
	if len(got) != 1 || len(got[0]) != maxAuthorLength {
		t.Fatalf("expected %d-char cap, got %v", maxAuthorLength, got)
	}
}

func TestNormalizeAuthor(t *testing.T) {
	if got := normalizeAuthor("Dr. Seuss!"); got != "drseuss" {
		t.Fatalf("expected drseuss, got %q", got)
	}
	if got := normalizeAuthor("  "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestMatchOption(t *testing.T) {
	options := []string{"Mark Twain", "Oscar Wilde", "Plato", "Dr. Seuss"}
	if got := matchOption("mark twain", options); got != "Mark Twain" {
		t.Fatalf("expected canonical Mark Twain, got %q", got)
	}
	if got := matchOption("DR SEUSS", options); got != "Dr. Seuss" {
		t.Fatalf("expected canonical Dr. Seuss, got %q", got)
	}
	if got := matchOption("Socrates", options); got != "" {
		t.Fatalf("expected no match, got %q", got)
	}
}

func TestCollectAuthorPoolSkipsMultiAuthorQuotes(t *testing.T) {
	pool := []quotes.Card{
		{ID: 1, Text: "Quote one", Authors: []string{"Mark Twain"}},
		{ID: 2, Text: "Quote two", Authors: []string{"Oscar Wilde"}},
		{ID: 3, Text: "Quote three", Authors: []string{"Plato and Socrates"}},
		{ID: 4, Text: "Quote four", Authors: []string{"mark twain"}},
	}
	authors := collectAuthorPool(pool)
	if len(authors) != 2 {
		t.Fatalf("expected 2 distinct single authors, got %v", authors)
	}
}

func TestBuildEligibleQuotesRequiresDecoys(t *testing.T) {
	pool := []quotes.Card{
		{ID: 1, Text: "Quote one", Authors: []string{"Mark Twain"}},
		{ID: 2, Text: "Quote two", Authors: []string{"Oscar Wilde"}},
		{ID: 3, Text: "Quote three", Authors: []string{"Plato"}},
	}
	authorPool := collectAuthorPool(pool)
	eligible := buildEligibleQuotes(pool, authorPool)
	if len(eligible) != 0 {
		t.Fatalf("expected no eligible quotes with only 2 decoys, got %d", len(eligible))
	}

	pool = append(pool, quotes.Card{ID: 4, Text: "Quote four", Authors: []string{"Dr. Seuss"}})
	authorPool = collectAuthorPool(pool)
	eligible = buildEligibleQuotes(pool, authorPool)
	if len(eligible) != 4 {
		t.Fatalf("expected all quotes eligible with 4 authors, got %d", len(eligible))
	}

	pool = append(pool, quotes.Card{ID: 5, Text: "   ", Authors: []string{"Mark Twain"}})
	eligible = buildEligibleQuotes(pool, collectAuthorPool(pool))
	if len(eligible) != 4 {
		t.Fatalf("expected blank quote skipped, got %d", len(eligible))
	}
}
