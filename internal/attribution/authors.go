package attribution

import (
	"regexp"
	"strings"

	"quote-games/internal/quotes"
)

const maxAuthorLength = 48

var (
	authorSplitRe = regexp.MustCompile(`,| and `)
	spaceRe       = regexp.MustCompile(`\s+`)
	authorNormRe  = regexp.MustCompile(`[^a-z0-9]`)
)

func normalizeAuthor(name string) string {
	return authorNormRe.ReplaceAllString(strings.ToLower(name), "")
}

// sanitizeAuthors splits a raw attribution into distinct author names. A
// single string may carry several names ("X, Y and Z"); duplicates collapse
// on the normalized form.
func sanitizeAuthors(raw []string) []string {
	var candidates []string
	for _, entry := range raw {
		candidates = append(candidates, authorSplitRe.Split(entry, -1)...)
	}

	var out []string
	seen := map[string]bool{}
	for _, candidate := range candidates {
		collapsed := strings.TrimSpace(spaceRe.ReplaceAllString(candidate, " "))
		if collapsed == "" {
			continue
		}
		normalized := normalizeAuthor(collapsed)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		if len(collapsed) > maxAuthorLength {
			collapsed = collapsed[:maxAuthorLength]
		}
		out = append(out, collapsed)
	}
	return out
}

// matchOption maps a submitted author back to the canonical option text, or
// "" when it matches none of them.
func matchOption(selected string, options []string) string {
	normalized := normalizeAuthor(selected)
	if normalized == "" {
		return ""
	}
	for _, option := range options {
		if normalizeAuthor(option) == normalized {
			return option
		}
	}
	return ""
}

// collectAuthorPool returns every distinct single author in the quote pool.
// Multi-author quotes are skipped: they have no unambiguous answer.
func collectAuthorPool(pool []quotes.Card) []string {
	var authors []string
	seen := map[string]bool{}
	for _, quote := range pool {
		quoteAuthors := sanitizeAuthors(quote.Authors)
		if len(quoteAuthors) != 1 {
			continue
		}
		author := quoteAuthors[0]
		normalized := normalizeAuthor(author)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		authors = append(authors, author)
	}
	return authors
}

type eligibleQuote struct {
	ID      uint
	Text    string
	Authors []string
}

// buildEligibleQuotes keeps single-author quotes that still leave enough
// distinct decoys in the pool.
func buildEligibleQuotes(pool []quotes.Card, authorPool []string) []eligibleQuote {
	var eligible []eligibleQuote
	for _, quote := range pool {
		text := strings.TrimSpace(quote.Text)
		if text == "" {
			continue
		}
		quoteAuthors := sanitizeAuthors(quote.Authors)
		if len(quoteAuthors) != 1 {
			continue
		}
		correctNorm := normalizeAuthor(quoteAuthors[0])
		decoys := 0
		for _, author := range authorPool {
			if normalizeAuthor(author) != correctNorm {
				decoys++
			}
		}
		if decoys < OptionsPerQuestion-1 {
			continue
		}
		eligible = append(eligible, eligibleQuote{ID: quote.ID, Text: text, Authors: quoteAuthors})
	}
	return eligible
}
