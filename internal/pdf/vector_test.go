package pdf

import (
	"testing"

	"github.com/dslipak/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/doctran/internal/extract"
	"github.com/MeKo-Tech/doctran/internal/layout"
)

// letter is a convenient page size for run fixtures.
var letter = PageSize{Width: 612, Height: 792}

func run(s string, x, y, w, fontSize float64) pdf.Text {
	return pdf.Text{S: s, X: x, Y: y, W: w, FontSize: fontSize}
}

func TestWordsFromRuns_MergesAdjacentRuns(t *testing.T) {
	// "He" + "llo" drawn back to back form one word; "world" starts
	// after a gap wider than the break threshold.
	runs := []pdf.Text{
		run("He", 50, 700, 12, 10),
		run("llo", 62, 700, 18, 10),
		run("world", 100, 700, 30, 10),
	}
	words := wordsFromRuns(runs, letter)
	require.Len(t, words, 2)
	assert.Equal(t, "Hello", words[0].Text)
	assert.Equal(t, "world", words[1].Text)
	assert.Equal(t, 0, words[0].Line)
	assert.Equal(t, 0, words[1].Line)
}

func TestWordsFromRuns_FlipsYAxis(t *testing.T) {
	// PDF baseline y=700 on a 792pt page lands near the top in
	// top-down coordinates.
	words := wordsFromRuns([]pdf.Text{run("top", 50, 700, 20, 10)}, letter)
	require.Len(t, words, 1)
	assert.InDelta(t, 792-700-10, words[0].Box.Y, 1e-9)
	assert.InDelta(t, 10.0, words[0].Box.H, 1e-9)
	assert.InDelta(t, 50.0, words[0].Box.X, 1e-9)
	assert.InDelta(t, 20.0, words[0].Box.W, 1e-9)
}

func TestWordsFromRuns_SeparatesRowsAndCountsLines(t *testing.T) {
	runs := []pdf.Text{
		run("first", 50, 700, 25, 10),
		run("second", 50, 684, 30, 10),
	}
	words := wordsFromRuns(runs, letter)
	require.Len(t, words, 2)
	assert.Equal(t, 0, words[0].Line)
	assert.Equal(t, 1, words[1].Line)
}

func TestWordsFromRuns_SortsDrawOrderIntoReadingOrder(t *testing.T) {
	// Content streams draw in arbitrary order; rows come back top to
	// bottom, left to right.
	runs := []pdf.Text{
		run("below", 50, 600, 25, 10),
		run("right", 200, 700, 25, 10),
		run("left", 50, 700, 20, 10),
	}
	words := wordsFromRuns(runs, letter)
	require.Len(t, words, 3)
	assert.Equal(t, "left", words[0].Text)
	assert.Equal(t, "right", words[1].Text)
	assert.Equal(t, "below", words[2].Text)
}

func TestWordsFromRuns_DropsWhitespaceRuns(t *testing.T) {
	runs := []pdf.Text{
		run("a", 50, 700, 5, 10),
		run("  ", 55, 700, 1, 10),
		run("b", 56, 700, 5, 10),
	}
	words := wordsFromRuns(runs, letter)
	require.Len(t, words, 1)
	assert.Equal(t, "ab", words[0].Text)
}

func TestWordsFromRuns_Empty(t *testing.T) {
	assert.Nil(t, wordsFromRuns(nil, letter))
}

func TestWordsFromRuns_FullConfidence(t *testing.T) {
	words := wordsFromRuns([]pdf.Text{run("x", 50, 700, 5, 10)}, letter)
	require.Len(t, words, 1)
	assert.InDelta(t, 1.0, words[0].Confidence, 1e-9)
}

func TestCoverage(t *testing.T) {
	words := []extract.Word{
		{Box: layout.BBox{W: 100, H: 10}},
		{Box: layout.BBox{W: 50, H: 10}},
	}
	got := coverage(words, PageSize{Width: 100, Height: 100})
	assert.InDelta(t, 0.15, got, 1e-9)

	assert.Zero(t, coverage(words, PageSize{}))
}

func TestVectorExtractor_Usable(t *testing.T) {
	e := NewVectorExtractor()

	sparse := VectorPage{Size: letter, Words: make([]extract.Word, 2), Coverage: 0.2}
	assert.False(t, e.Usable(sparse))

	thin := VectorPage{Size: letter, Words: make([]extract.Word, 50), Coverage: 0.0001}
	assert.False(t, e.Usable(thin))

	good := VectorPage{Size: letter, Words: make([]extract.Word, 50), Coverage: 0.1}
	assert.True(t, e.Usable(good))
}
