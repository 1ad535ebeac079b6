package textsim

import (
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Candidate is one rankable entry: its id and every text it is known by
// (description first, then recorded variants).
type Candidate struct {
	ID    string
	Texts []string
}

// Match is a ranked candidate with the text that scored best.
type Match struct {
	ID    string
	Text  string
	Score float64
}

// catalogs below this size are scored inline
const rankChunk = 256

// Rank scores text against every candidate (max over its texts) and returns
// those at or above threshold, best first. Ties are broken by id so the
// output does not depend on chunk scheduling.
func Rank(text string, cands []Candidate, threshold float64, scorer Scorer) []Match {
	if scorer == nil {
		scorer = BlendScorer{}
	}
	scores := make([]Match, len(cands))
	score := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			scores[i] = best(text, cands[i], scorer)
		}
	}

	if len(cands) <= rankChunk {
		score(0, len(cands))
	} else {
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		for lo := 0; lo < len(cands); lo += rankChunk {
			lo, hi := lo, min(lo+rankChunk, len(cands))
			g.Go(func() error {
				score(lo, hi)
				return nil
			})
		}
		_ = g.Wait()
	}

	out := make([]Match, 0, 8)
	for _, m := range scores {
		if m.ID != "" && m.Score >= threshold {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func best(text string, c Candidate, scorer Scorer) Match {
	m := Match{ID: c.ID, Score: -1}
	for _, t := range c.Texts {
		if t == "" {
			continue
		}
		if s := scorer.Score(text, t); s > m.Score {
			m.Score = s
			m.Text = t
		}
	}
	if m.Score < 0 {
		m.Score = 0
	}
	return m
}
