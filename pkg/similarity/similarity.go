// Package similarity estimates lexical overlap between two plain-text
// documents. The score is a plagiarism signal, not proof.
package similarity

import (
	"errors"
	"math"
	"regexp"
	"strings"
)

// ErrNotComputable indicates both token sets are empty, so no ratio exists.
var ErrNotComputable = errors.New("similarity not computable for empty token sets")

// Band labels returned by Classify. Advisory only, nothing acts on them
// automatically.
const (
	BandHigh   = "high"
	BandMedium = "medium"
	BandLow    = "low"
)

// minTokenLength filters out short filler words before set comparison.
const minTokenLength = 4

var markupPattern = regexp.MustCompile(`<[^>]*>`)

// Report holds the outcome of a pairwise comparison.
type Report struct {
	Percent int    `json:"percent"`
	Band    string `json:"band"`
}

// Compare computes the Jaccard similarity of two text bodies as a percentage
// rounded to the nearest integer. Inputs are stripped of markup, lowercased
// and tokenized on whitespace; tokens shorter than four characters are
// discarded. Pure and idempotent.
func Compare(left, right string) (Report, error) {
	leftSet := tokenSet(left)
	rightSet := tokenSet(right)

	union := len(rightSet)
	intersection := 0
	for token := range leftSet {
		if _, ok := rightSet[token]; ok {
			intersection++
		} else {
			union++
		}
	}

	if union == 0 {
		return Report{}, ErrNotComputable
	}

	percent := int(math.Round(float64(intersection) / float64(union) * 100))
	return Report{Percent: percent, Band: Classify(percent)}, nil
}

// Classify maps a percentage onto the advisory duplication bands.
func Classify(percent int) string {
	switch {
	case percent > 50:
		return BandHigh
	case percent >= 30:
		return BandMedium
	default:
		return BandLow
	}
}

func tokenSet(text string) map[string]struct{} {
	stripped := markupPattern.ReplaceAllString(text, " ")
	tokens := strings.Fields(strings.ToLower(stripped))

	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if len(token) < minTokenLength {
			continue
		}
		set[token] = struct{}{}
	}
	return set
}
