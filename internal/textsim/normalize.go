package textsim

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// words that never carry product identity
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "for": {}, "and": {}, "or": {},
	"with": {}, "without": {}, "in": {}, "on": {}, "to": {}, "by": {}, "x": {},
	"de": {}, "del": {}, "la": {}, "el": {}, "los": {}, "las": {}, "con": {},
	"para": {}, "y": {}, "en": {}, "unit": {}, "units": {}, "pcs": {}, "pc": {},
}

var (
	nonAlnum = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	numeric  = regexp.MustCompile(`^\p{N}+$`)
)

// Normalize lowercases, strips accents, turns everything that is not a
// letter or digit into a space and collapses the result.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	out := stripAccents(strings.ToLower(s))
	out = nonAlnum.ReplaceAllString(out, " ")
	return collapseSpaces(out)
}

// Keywords returns the distinct meaningful tokens of s in order of first
// appearance. Stop words and pure numbers are dropped.
func Keywords(s string) []string {
	fields := strings.Fields(Normalize(s))
	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		if numeric.MatchString(f) {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// KeywordSet is Keywords as a set.
func KeywordSet(s string) map[string]struct{} {
	kw := Keywords(s)
	set := make(map[string]struct{}, len(kw))
	for _, k := range kw {
		set[k] = struct{}{}
	}
	return set
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
