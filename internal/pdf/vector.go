package pdf

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dslipak/pdf"

	"github.com/MeKo-Tech/doctran/internal/extract"
	"github.com/MeKo-Tech/doctran/internal/layout"
)

// VectorPage is the positioned text of one born-digital PDF page,
// expressed in the top-left-origin coordinate system the layout model
// uses.
type VectorPage struct {
	Size     PageSize       `json:"size"`
	Words    []extract.Word `json:"words"`
	Coverage float64        `json:"coverage"`
}

// VectorExtractor reads embedded text from PDFs. Pages whose text layer
// is too sparse are handed to OCR instead; Usable makes that call.
type VectorExtractor struct {
	// MinWords is the word count below which a page's text layer is
	// considered unusable.
	MinWords int

	// MinCoverage is the minimum fraction of the page area the text
	// boxes must cover.
	MinCoverage float64
}

// NewVectorExtractor returns an extractor with default thresholds.
func NewVectorExtractor() *VectorExtractor {
	return &VectorExtractor{MinWords: 5, MinCoverage: 0.005}
}

// Usable reports whether a page's vector text is good enough to skip
// OCR.
func (e *VectorExtractor) Usable(page VectorPage) bool {
	return len(page.Words) >= e.MinWords && page.Coverage >= e.MinCoverage
}

// ExtractWords reads all pages and returns their positioned words,
// keyed by 1-based page number. Pages that fail to parse are skipped;
// callers treat missing pages as OCR candidates.
func (e *VectorExtractor) ExtractWords(filename string) (map[int]VectorPage, error) {
	reader, err := pdf.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("pdf: open %q: %w", filename, err)
	}

	result := make(map[int]VectorPage)
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		size := mediaBox(page)
		words := wordsFromRuns(page.Content().Text, size)
		result[pageNum] = VectorPage{
			Size:     size,
			Words:    words,
			Coverage: coverage(words, size),
		}
	}
	return result, nil
}

// mediaBox resolves the page's media box, walking up the page tree for
// inherited values. Letter size is the fallback.
func mediaBox(page pdf.Page) PageSize {
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		mb := v.Key("MediaBox")
		if mb.IsNull() || mb.Len() < 4 {
			continue
		}
		w := mb.Index(2).Float64() - mb.Index(0).Float64()
		h := mb.Index(3).Float64() - mb.Index(1).Float64()
		if w > 0 && h > 0 {
			return PageSize{Width: w, Height: h}
		}
	}
	return PageSize{Width: 612, Height: 792}
}

// wordsFromRuns merges the content stream's text runs into words. Runs
// are grouped into rows by baseline, then packed left to right; a
// horizontal gap wider than a fraction of the font size starts a new
// word. PDF y grows upward from the bottom edge, so boxes are flipped
// into the top-down system here.
func wordsFromRuns(runs []pdf.Text, size PageSize) []extract.Word {
	runs = cleanRuns(runs)
	if len(runs) == 0 {
		return nil
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if !sameBaseline(runs[i], runs[j]) {
			return runs[i].Y > runs[j].Y
		}
		return runs[i].X < runs[j].X
	})

	var words []extract.Word
	line := 0
	current := runs[0]
	text := strings.Builder{}
	text.WriteString(current.S)
	startX := current.X

	flush := func(last pdf.Text) {
		fontSize := last.FontSize
		if fontSize <= 0 {
			fontSize = 12
		}
		words = append(words, extract.Word{
			Text: text.String(),
			Box: layout.BBox{
				X: startX,
				Y: size.Height - last.Y - fontSize,
				W: last.X + last.W - startX,
				H: fontSize,
			},
			Confidence: 1.0,
			Line:       line,
		})
		text.Reset()
	}

	for _, run := range runs[1:] {
		newRow := !sameBaseline(current, run)
		gap := run.X - (current.X + current.W)
		wordBreak := newRow || gap > 0.3*math.Max(current.FontSize, 1)
		if wordBreak {
			flush(current)
			if newRow {
				line++
			}
			startX = run.X
		}
		text.WriteString(run.S)
		current = run
	}
	flush(current)
	return words
}

// cleanRuns drops whitespace-only runs; their positions only matter as
// implicit word breaks, which the gap heuristic already covers.
func cleanRuns(runs []pdf.Text) []pdf.Text {
	out := runs[:0:0]
	for _, r := range runs {
		if strings.TrimSpace(r.S) == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

func sameBaseline(a, b pdf.Text) bool {
	tol := 0.3 * math.Max(a.FontSize, 1)
	return math.Abs(a.Y-b.Y) <= tol
}

func coverage(words []extract.Word, size PageSize) float64 {
	if size.Width <= 0 || size.Height <= 0 {
		return 0
	}
	total := 0.0
	for _, w := range words {
		total += w.Box.W * w.Box.H
	}
	return math.Min(total/(size.Width*size.Height), 1.0)
}
