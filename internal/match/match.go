// Package match scores how well a candidate listing title corresponds to a
// target search term. Scoring is pure and side-effect free so thresholds can
// be swept offline against labeled samples.
package match

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Default signal weights. Empirically tuned, not structural; deployments
// override them through configuration.
const (
	DefaultJaccardWeight  = 0.6
	DefaultSequenceWeight = 0.4
)

// Guard scores returned when a structural signal rules a title out before
// similarity is considered.
const (
	brandMissScore  = 0.1
	numberMissScore = 0.15
)

var (
	punctuation  = regexp.MustCompile(`[^\w\s]`)
	modelNumbers = regexp.MustCompile(`\b\d{2,4}\b`)
	digitRuns    = regexp.MustCompile(`\d+`)
)

// Scorer computes relevance scores between listing titles and search terms.
type Scorer struct {
	jaccardWeight  float64
	sequenceWeight float64
}

// NewScorer creates a scorer with the given signal weights. Non-positive
// weights fall back to the defaults so a zero-value config cannot produce a
// scorer that ignores both signals.
func NewScorer(jaccardWeight, sequenceWeight float64) *Scorer {
	if jaccardWeight <= 0 || sequenceWeight <= 0 {
		jaccardWeight = DefaultJaccardWeight
		sequenceWeight = DefaultSequenceWeight
	}
	return &Scorer{
		jaccardWeight:  jaccardWeight,
		sequenceWeight: sequenceWeight,
	}
}

// Score returns a relevance ratio in [0, 1] for a candidate title against a
// search term. Total over any pair of strings: an empty title (or term)
// scores 0, containment after normalization scores 1, a missing brand or
// disjoint model numbers score a fixed low guard value, and everything else
// blends token-set overlap with a character-level similarity ratio.
func (s *Scorer) Score(title, term string) float64 {
	termNorm := normalizeText(term)
	titleNorm := normalizeText(title)

	if termNorm == "" || titleNorm == "" {
		return 0.0
	}

	if strings.Contains(titleNorm, termNorm) || strings.Contains(termNorm, titleNorm) {
		return 1.0
	}

	termTokens := wordTokens(termNorm)
	titleTokens := wordTokens(titleNorm)
	if len(termTokens) == 0 {
		return 0.0
	}

	// The brand is the leading token of the search term. A title that never
	// mentions it is almost certainly a different manufacturer.
	brand := termTokens[0]
	titleSet := tokenSet(titleTokens)
	if !titleSet[brand] {
		return brandMissScore
	}

	// Model numbers are decisive: "Ninja 400" must not match "Ninja 250".
	termNums := tokenSet(modelNumbers.FindAllString(termNorm, -1))
	if len(termNums) > 0 {
		titleNums := tokenSet(modelNumbers.FindAllString(titleNorm, -1))
		if !intersects(termNums, titleNums) {
			return numberMissScore
		}
	}

	termSet := tokenSet(termTokens)
	jaccard := jaccardIndex(termSet, titleSet)
	sequence := difflib.NewMatcher(splitChars(termNorm), splitChars(titleNorm)).Ratio()

	return jaccard*s.jaccardWeight + sequence*s.sequenceWeight
}

// IsMatch reports whether the title scores at or above the threshold.
func (s *Scorer) IsMatch(title, term string, threshold float64) bool {
	return s.Score(title, term) >= threshold
}

// ModelRelevant checks a title against the model portion of a search term,
// for sources that are already queried by brand. Titles lacking the model
// number are rejected outright ("Street 750" never matches "Street Glide");
// otherwise the fraction of model words present in the title must reach the
// threshold. Terms without a model portion cannot be validated and pass.
func ModelRelevant(title, term string, threshold float64) bool {
	parts := strings.Fields(strings.TrimSpace(term))
	if len(parts) < 2 {
		return true
	}

	model := strings.ToLower(strings.Join(parts[1:], " "))
	titleLower := strings.ToLower(title)
	modelWords := strings.Fields(model)

	hasNumber := false
	for _, word := range modelWords {
		stripped := strings.NewReplacer(",", "", ".", "").Replace(word)
		if allDigits(stripped) {
			hasNumber = true
			break
		}
	}

	if hasNumber {
		modelNums := tokenSet(digitRuns.FindAllString(model, -1))
		titleNums := tokenSet(digitRuns.FindAllString(title, -1))
		if len(modelNums) > 0 && !intersects(modelNums, titleNums) {
			return false
		}
	}

	matching := 0
	for _, word := range modelWords {
		if strings.Contains(titleLower, word) {
			matching++
		}
	}
	if len(modelWords) == 0 {
		return true
	}

	return float64(matching)/float64(len(modelWords)) >= threshold
}

// normalizeText lowercases, strips punctuation and collapses whitespace for
// comparison. Hyphens are removed entirely here so "V-Strom" and "Vstrom"
// compare equal.
func normalizeText(text string) string {
	text = strings.ToLower(text)
	text = punctuation.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// wordTokens returns the meaningful words of normalized text in order,
// dropping single-character tokens.
func wordTokens(normalized string) []string {
	fields := strings.Fields(normalized)
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

func intersects(a, b map[string]bool) bool {
	for t := range a {
		if b[t] {
			return true
		}
	}
	return false
}

func jaccardIndex(a, b map[string]bool) float64 {
	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func splitChars(s string) []string {
	chars := make([]string, 0, len(s))
	for _, r := range s {
		chars = append(chars, string(r))
	}
	return chars
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

