// Package search canonicalizes bike model search terms and generates the
// alternate phrasings tried against sources with inconsistent search
// behavior.
package search

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// ErrEmptySearchTerm is returned for terms that are empty or whitespace-only
// after trimming. Callers skip the term and continue.
var ErrEmptySearchTerm = errors.New("search term is empty")

var nonTermChars = regexp.MustCompile(`[^a-z0-9\s-]+`)

// Qualifier tokens dropped when widening a search, e.g. "DL 650 SE" is
// retried as "DL 650".
var qualifierTokens = map[string]bool{
	"SX":  true,
	"GS":  true,
	"X":   true,
	"SE":  true,
	"ABS": true,
}

// Normalize lowercases a term, strips punctuation, collapses whitespace and
// trims. Hyphens inside model codes ("V-Strom") are kept; leading and
// trailing hyphens on a token are not.
func Normalize(term string) string {
	t := strings.ToLower(term)
	t = nonTermChars.ReplaceAllString(t, "")

	fields := strings.Fields(t)
	cleaned := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if f != "" {
			cleaned = append(cleaned, f)
		}
	}
	return strings.Join(cleaned, " ")
}

// Variations generates the search phrasings to try for a term, most specific
// first: the original term, then the model with hyphens removed, brand plus
// first model word, brand plus the first numeric token, the model with
// qualifier suffixes dropped, and the model collapsed to one alphanumeric
// token ("CB 500 X" -> "CB500X"). The sequence is deterministic and
// de-duplicated case-insensitively, preserving first occurrence.
func Variations(term string) ([]string, error) {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return nil, ErrEmptySearchTerm
	}

	variations := []string{trimmed}

	parts := strings.Fields(trimmed)
	if len(parts) < 2 {
		return dedupe(variations), nil
	}

	brand := parts[0]
	modelParts := parts[1:]
	modelStr := strings.Join(modelParts, " ")

	if noHyphens := strings.ReplaceAll(modelStr, "-", ""); noHyphens != modelStr {
		variations = append(variations, brand+" "+noHyphens)
	}

	if len(modelParts) > 1 {
		variations = append(variations, brand+" "+modelParts[0])
	}

	for _, part := range modelParts {
		if containsDigit(part) {
			variations = append(variations, brand+" "+part)
			break
		}
	}

	kept := make([]string, 0, len(modelParts))
	for _, part := range modelParts {
		if !qualifierTokens[strings.ToUpper(part)] {
			kept = append(kept, part)
		}
	}
	if trimmedModel := strings.Join(kept, " "); trimmedModel != "" && trimmedModel != modelStr {
		variations = append(variations, brand+" "+trimmedModel)
	}

	if len(modelParts) >= 2 && anyAllDigits(modelParts) {
		if combined := strings.Join(modelParts, ""); combined != modelStr {
			variations = append(variations, brand+" "+combined)
		}
	}

	return dedupe(variations), nil
}

func dedupe(variations []string) []string {
	seen := make(map[string]bool, len(variations))
	unique := make([]string, 0, len(variations))
	for _, v := range variations {
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, v)
	}
	return unique
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func anyAllDigits(parts []string) bool {
	for _, p := range parts {
		if p != "" && strings.IndexFunc(p, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
			return true
		}
	}
	return false
}
