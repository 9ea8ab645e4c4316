package blackline

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

// wordRe matches a run of letters/digits plus internal apostrophes and
// hyphens, so contractions stay one word.
var (
	wordRe          = regexp.MustCompile(`[A-Za-z0-9][A-Za-z0-9'’-]*`)
	normStripRe     = regexp.MustCompile(`[^a-z0-9]`)
	fillerKeepRe    = regexp.MustCompile(`[^A-Za-z0-9'’-]`)
	maxFillerLength = 24
)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "if": true,
	"in": true, "into": true, "is": true, "it": true, "its": true, "of": true,
	"on": true, "or": true, "that": true, "the": true, "their": true,
	"there": true, "they": true, "this": true, "to": true, "was": true,
	"we": true, "were": true, "with": true, "you": true, "your": true,
}

// Word is one token of a quote with its byte span in the source text.
type Word struct {
	Text       string
	Normalized string
	Start      int
	End        int
}

func extractWords(text string) []Word {
	spans := wordRe.FindAllStringIndex(text, -1)
	words := make([]Word, 0, len(spans))
	for _, span := range spans {
		token := text[span[0]:span[1]]
		words = append(words, Word{
			Text:       token,
			Normalized: normalizeWord(token),
			Start:      span[0],
			End:        span[1],
		})
	}
	return words
}

func wordCount(text string) int {
	return len(wordRe.FindAllStringIndex(text, -1))
}

func normalizeWord(word string) string {
	return normStripRe.ReplaceAllString(strings.ToLower(word), "")
}

// sanitizeFillerDisplay strips anything a word token would not contain and
// caps the length; an empty result renders as a plain redaction bar.
func sanitizeFillerDisplay(raw string) string {
	cleaned := strings.TrimSpace(fillerKeepRe.ReplaceAllString(raw, ""))
	runes := []rune(cleaned)
	if len(runes) > maxFillerLength {
		cleaned = string(runes[:maxFillerLength])
	}
	if cleaned == "" {
		return "REDACTED"
	}
	return cleaned
}

// renderPuzzleText rebuilds the quote with each redacted word replaced by an
// uppercased [[FILLER]] marker, preserving the original punctuation and
// spacing between words.
func renderPuzzleText(sourceText string, redactionIndices []int, fillerWords []string) string {
	words := extractWords(sourceText)
	if len(words) == 0 || len(redactionIndices) == 0 {
		return sourceText
	}

	replacementByIndex := make(map[int]string, len(redactionIndices))
	for i, wordIndex := range redactionIndices {
		filler := "redacted"
		if i < len(fillerWords) {
			filler = fillerWords[i]
		}
		replacementByIndex[wordIndex] = sanitizeFillerDisplay(filler)
	}

	var out strings.Builder
	cursor := 0
	for i, word := range words {
		out.WriteString(sourceText[cursor:word.Start])
		if filler, ok := replacementByIndex[i]; ok {
			out.WriteString(fmt.Sprintf("[[%s]]", strings.ToUpper(filler)))
		} else {
			out.WriteString(sourceText[word.Start:word.End])
		}
		cursor = word.End
	}
	out.WriteString(sourceText[cursor:])
	return out.String()
}

// weightedPick draws one key with probability proportional to its weight.
func weightedPick(weighted map[string]int) string {
	if len(weighted) == 0 {
		return ""
	}
	keys := make([]string, 0, len(weighted))
	total := 0
	for key, weight := range weighted {
		keys = append(keys, key)
		if weight < 1 {
			weight = 1
		}
		total += weight
	}
	if total <= 0 {
		return keys[rand.Intn(len(keys))]
	}
	marker := rand.Intn(total) + 1
	running := 0
	for _, key := range keys {
		weight := weighted[key]
		if weight < 1 {
			weight = 1
		}
		running += weight
		if marker <= running {
			return key
		}
	}
	return keys[0]
}
