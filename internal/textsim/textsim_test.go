package textsim

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	require.Equal(t, "caneria pvc 1 2", Normalize("  Cañería  PVC-1/2\"  "))
	require.Equal(t, "electrical box 6in", Normalize("ELECTRICAL   BOX 6in"))
	require.Equal(t, "", Normalize(""))
}

func TestKeywordsDropsStopWordsAndNumbers(t *testing.T) {
	require.Equal(t, []string{"box", "screws", "nails"}, Keywords("The box of 12 screws and 12 nails screws"))
	require.Empty(t, Keywords("of the 10"))
}

func TestSimilarityBoundaries(t *testing.T) {
	require.Equal(t, 1.0, Similarity("ELECTRICAL BOX 6in", "electrical box 6in"))
	require.Less(t, Similarity("hammer", "portland cement gray bag fifty kilograms"), 0.1)
	require.Equal(t, 0.0, Similarity("", "hammer"))
}

func TestSimilarityBlend(t *testing.T) {
	// jaccard 2/4, equal length, 2 of 3 initials
	want := 0.6*0.5 + 0.2*1 + 0.2*(2.0/3.0)
	require.InDelta(t, want, Similarity("electrical box 6in", "electrical box 4in"), 1e-9)
}

func TestGuessCategory(t *testing.T) {
	require.Equal(t, "Electrical", GuessCategory("ELECTRICAL BOX 6in"))
	require.Equal(t, "Construction", GuessCategory("Portland cement bag"))
	// table order: cable is Electrical before hdmi is Electronics
	require.Equal(t, "Electrical", GuessCategory("Cable HDMI 2m"))
	require.Equal(t, "Tools", GuessCategory("hammers"))
	require.Equal(t, DefaultCategory, GuessCategory("unknown gizmo"))
}

func TestRankUsesVariants(t *testing.T) {
	cands := []Candidate{
		{ID: "p2", Texts: []string{"Electrical box 4in"}},
		{ID: "p3", Texts: []string{"Hammer", "Electrical box 6in"}},
		{ID: "p1", Texts: []string{"Electrical box 6in"}},
		{ID: "p4", Texts: []string{"Claw hammer"}},
	}
	got := Rank("ELECTRICAL BOX 6in", cands, 0.6, nil)
	require.Len(t, got, 3)
	require.Equal(t, "p1", got[0].ID)
	require.Equal(t, "p3", got[1].ID)
	require.Equal(t, "Electrical box 6in", got[1].Text)
	require.Equal(t, "p2", got[2].ID)
	require.InDelta(t, 1.0, got[0].Score, 1e-9)
}

func TestRankChunkedIsDeterministic(t *testing.T) {
	cands := make([]Candidate, 0, 900)
	for i := 0; i < 900; i++ {
		cands = append(cands, Candidate{ID: fmt.Sprintf("c%04d", i), Texts: []string{fmt.Sprintf("widget item %d model v%d", i, i%7)}})
	}
	first := Rank("widget item model v3", cands, 0.3, BlendScorer{})
	second := Rank("widget item model v3", cands, 0.3, BlendScorer{})
	require.NotEmpty(t, first)
	require.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		require.GreaterOrEqual(t, first[i-1].Score, first[i].Score)
	}
}

func TestEditScorerTokenOrder(t *testing.T) {
	require.InDelta(t, 1.0, EditScorer{}.Score("box electrical", "Electrical Box"), 1e-9)
	require.Equal(t, 1, damerauLevenshtein("ab", "ba"))
	require.Equal(t, 3, damerauLevenshtein("kitten", "sitting"))
}
