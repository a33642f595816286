package features

import (
	"regexp"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	tokenPattern  = regexp.MustCompile(`[\p{L}\p{N}]+`)
	entityPattern = regexp.MustCompile(`\b[A-Z][A-Za-z0-9]+\b`)
)

// contradictionKeywords mark evidence that disputes a claim.
var contradictionKeywords = []string{
	"debunk", "debunked", "denies", "deny", "fake", "false", "hoax",
	"misleading", "no", "not", "refute", "refuted",
}

// normalizeText applies NFKC normalization and Unicode case folding.
func normalizeText(s string) string {
	// Casers carry state, so one is built per call.
	return cases.Fold().String(norm.NFKC.String(s))
}

// tokenSet returns the set of folded word tokens in s.
func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenPattern.FindAllString(normalizeText(s), -1) {
		set[tok] = true
	}
	return set
}

// entitySet returns the folded set of capitalised tokens in s.
func entitySet(s string) map[string]bool {
	set := make(map[string]bool)
	fold := cases.Fold()
	for _, m := range entityPattern.FindAllString(norm.NFKC.String(s), -1) {
		set[fold.String(m)] = true
	}
	return set
}

// jaccard computes |a ∩ b| / |a ∪ b|. Two empty sets have similarity 0.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := intersectionSize(a, b)
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// coverage computes |claim ∩ other| / |claim|.
func coverage(claim, other map[string]bool) float64 {
	if len(claim) == 0 {
		return 0
	}
	return float64(intersectionSize(claim, other)) / float64(len(claim))
}

func intersectionSize(a, b map[string]bool) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if b[k] {
			n++
		}
	}
	return n
}

func hasContradictionSignal(tokens map[string]bool) bool {
	return slices.ContainsFunc(contradictionKeywords, func(k string) bool { return tokens[k] })
}
