// Package phonetic finds the closest spelling of a name among a set of
// candidates. It combines Double Metaphone phonetic encoding with
// Jaro-Winkler string similarity.
//
// A candidate is accepted when either
//
//  1. its Double Metaphone code overlaps the input's and its Jaro-Winkler
//     similarity reaches the phonetic threshold (default 0.80), or
//  2. its Jaro-Winkler similarity alone reaches the fuzzy threshold
//     (default 0.90).
//
// Names are compared as whole strings, case-insensitively. Token-wise scoring
// is deliberately avoided: preset names share style words such as "ノーマル"
// across many speakers, and a shared token says nothing about identity.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.80
	defaultFuzzyThreshold    = 0.90
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a candidate
// whose phonetic code overlaps the input. Default: 0.80.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for a candidate
// without phonetic overlap. Default: 0.90.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a [Matcher] configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Closest returns the candidate most similar to name. ok is false when no
// candidate passes either threshold; match is then "" and score 0.
// Phonetically overlapping candidates beat purely fuzzy ones.
func (m *Matcher) Closest(name string, candidates []string) (match string, score float64, ok bool) {
	input := normalise(name)
	if input == "" || len(candidates) == 0 {
		return "", 0, false
	}
	inputCodes := codes(input)

	var (
		best         string
		bestScore    float64
		bestPhonetic bool
	)
	for _, c := range candidates {
		cand := normalise(c)
		if cand == "" {
			continue
		}
		s := matchr.JaroWinkler(input, cand, false)
		phon := overlap(inputCodes, codes(cand))

		switch {
		case phon && s >= m.phoneticThreshold:
			if !bestPhonetic || s > bestScore {
				best, bestScore, bestPhonetic = c, s, true
			}
		case !bestPhonetic && s >= m.fuzzyThreshold && s > bestScore:
			best, bestScore = c, s
		}
	}
	if best == "" {
		return "", 0, false
	}
	return best, bestScore, true
}

// Similarity returns the case-insensitive Jaro-Winkler similarity of a and b.
func Similarity(a, b string) float64 {
	return matchr.JaroWinkler(normalise(a), normalise(b), false)
}

func normalise(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// codes returns the non-empty Double Metaphone codes of s with spaces
// removed. Inputs without Latin consonants produce no codes.
func codes(s string) []string {
	p, a := matchr.DoubleMetaphone(strings.ReplaceAll(s, " ", ""))
	out := make([]string, 0, 2)
	if p != "" {
		out = append(out, p)
	}
	if a != "" && a != p {
		out = append(out, a)
	}
	return out
}

func overlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
