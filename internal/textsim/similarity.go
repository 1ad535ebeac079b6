package textsim

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Scorer rates how alike two free-text descriptions are, in [0,1].
type Scorer interface {
	Score(a, b string) float64
}

// BlendScorer is the default keyword-driven scorer.
type BlendScorer struct{}

func (BlendScorer) Score(a, b string) float64 { return Similarity(a, b) }

// EditScorer scores by normalized Damerau-Levenshtein distance, keeping the
// better of the raw and token-sorted forms.
type EditScorer struct{}

func (EditScorer) Score(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	x := editSimilarity(na, nb)
	if y := editSimilarity(tokenSort(na), tokenSort(nb)); y > x {
		return y
	}
	return x
}

const (
	weightJaccard = 0.6
	weightLength  = 0.2
	weightInitial = 0.2
)

// Similarity blends keyword Jaccard, length ratio and leading-token initials.
// The initials term is taken relative to a, so the score is not exactly
// symmetric.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}
	ka, kb := Keywords(na), Keywords(nb)
	s := weightJaccard*jaccard(ka, kb) +
		weightLength*lengthRatio(na, nb) +
		weightInitial*initials(ka, kb)
	if s > 1 {
		return 1
	}
	return s
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, k := range a {
		set[k] = struct{}{}
	}
	inter := 0
	union := len(set)
	for _, k := range b {
		if _, ok := set[k]; ok {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

func lengthRatio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	if la > lb {
		la, lb = lb, la
	}
	return float64(la) / float64(lb)
}

// fraction of a's tokens whose first letter matches b's token at the same
// position
func initials(a, b []string) float64 {
	if len(a) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	hits := 0
	for i := 0; i < n; i++ {
		ra, _ := utf8.DecodeRuneInString(a[i])
		rb, _ := utf8.DecodeRuneInString(b[i])
		if ra == rb {
			hits++
		}
	}
	return float64(hits) / float64(len(a))
}

func editSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	d := damerauLevenshtein(a, b)
	m := utf8.RuneCountInString(a)
	if mb := utf8.RuneCountInString(b); mb > m {
		m = mb
	}
	return 1 - float64(d)/float64(m)
}

func tokenSort(s string) string {
	f := strings.Fields(s)
	sort.Strings(f)
	return strings.Join(f, " ")
}
