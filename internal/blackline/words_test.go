package blackline

import (
	"strings"
	"testing"
)

func TestExtractWords(t *testing.T) {
	words := extractWords("Don't stop believing, folks!")
	got := make([]string, 0, len(words))
	for _, word := range words {
		got = append(got, word.Text)
	}
	want := []string{"Don't", "stop", "believing", "folks"}
	if len(got) != len(want) {
		t.Fatalf("expected %d words, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("word %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if words[0].Normalized != "dont" {
		t.Fatalf("expected normalized contraction, got %q", words[0].Normalized)
	}

	source := "Don't stop believing, folks!"
	for _, word := range words {
		if source[word.Start:word.End] != word.Text {
			t.Fatalf("span mismatch for %q: got %q", word.Text, source[word.Start:word.End])
		}
	}
}

func TestWordCount(t *testing.T) {
	if got := wordCount("one two three"); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := wordCount("...!!!"); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestNormalizeWord(t *testing.T) {
	if got := normalizeWord("It's"); got != "its" {
		t.Fatalf("expected its, got %q", got)
	}
	if got := normalizeWord("WELL-known"); got != "wellknown" {
		t.Fatalf("expected wellknown, got %q", got)
	}
}

func TestSanitizeFillerDisplay(t *testing.T) {
	if got := sanitizeFillerDisplay("hello"); got != "hello" {
		t.Fatalf("expected passthrough, got %q", got)
	}
	if got := sanitizeFillerDisplay("he llo <script>"); got != "helloscript" {
		t.Fatalf("expected stripped filler, got %q", got)
	}
	long := strings.Repeat("a", 40)
	if got := sanitizeFillerDisplay(long); len([]rune(got)) != maxFillerLength {
		t.Fatalf("expected %d-rune cap, got %d", maxFillerLength, len([]rune(got)))
	}
	if got := sanitizeFillerDisplay("!! !!"); got != "REDACTED" {
		t.Fatalf("expected REDACTED fallback, got %q", got)
	}
}

func TestRenderPuzzleText(t *testing.T) {
	source := "The quick brown fox jumps, obviously."
	got := renderPuzzleText(source, []int{1, 3}, []string{"slow", "cat"})
	want := "The [[SLOW]] brown [[CAT]] jumps, obviously."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderPuzzleTextPadsMissingFillers(t *testing.T) {
	source := "alpha beta gamma"
	got := renderPuzzleText(source, []int{0, 2}, []string{"delta"})
	want := "[[DELTA]] beta [[REDACTED]]"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderPuzzleTextNoRedactions(t *testing.T) {
	source := "leave me alone"
	if got := renderPuzzleText(source, nil, nil); got != source {
		t.Fatalf("expected unchanged text, got %q", got)
	}
}

func TestWeightedPickReturnsMember(t *testing.T) {
	weighted := map[string]int{"a": 1, "b": 5, "c": 0}
	for i := 0; i < 50; i++ {
		picked := weightedPick(weighted)
		if _, ok := weighted[picked]; !ok {
			t.Fatalf("picked %q outside the pool", picked)
		}
	}
	if got := weightedPick(nil); got != "" {
		t.Fatalf("expected empty pick for empty pool, got %q", got)
	}
}
