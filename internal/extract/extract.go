// Package extract normalizes raw OCR output into the layout document
// model. The OCR engine itself is an external capability; this package
// owns image preprocessing, word-to-block grouping, reading-order
// assignment and geometry validation.
package extract

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/MeKo-Tech/doctran/internal/layout"
)

// Word is a single recognized token as returned by the OCR capability.
type Word struct {
	Text       string
	Box        layout.BBox
	Confidence float64 // [0,1]
	Line       int     // engine-reported line number, advisory grouping hint
}

// Engine is the external OCR capability. Implementations receive a
// page image and return recognized words with bounding boxes in image
// coordinates. Confidence is advisory; the adapter never rejects a
// region for low confidence, it only drops individual words below the
// configured floor.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) ([]Word, error)
}

// Config holds extraction settings.
type Config struct {
	// MinConfidence is the per-word floor below which recognized
	// words are discarded before grouping.
	MinConfidence float64

	// VerticalGap is the distance in device units between a word and
	// the previous block's baseline that starts a new block.
	VerticalGap float64

	// HeadingFontSize marks blocks with a larger estimated font size
	// as headings.
	HeadingFontSize float64

	// RowTolerance is passed to layout.AssignReadingOrder.
	RowTolerance float64

	// FontSizeRatio estimates font size from glyph box height.
	FontSizeRatio float64

	Preprocess PreprocessConfig
}

// DefaultConfig returns extraction defaults matching typical 150 DPI
// scans.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.30,
		VerticalGap:     5.0,
		HeadingFontSize: 14.0,
		RowTolerance:    layout.DefaultRowTolerance,
		FontSizeRatio:   0.75,
		Preprocess:      DefaultPreprocessConfig(),
	}
}

// Adapter turns OCR engine output into validated layout pages.
type Adapter struct {
	engine Engine
	config Config
}

// NewAdapter creates an adapter around the given OCR engine.
func NewAdapter(engine Engine, config Config) (*Adapter, error) {
	if engine == nil {
		return nil, errors.New("extract: nil OCR engine")
	}
	if config.FontSizeRatio <= 0 {
		config.FontSizeRatio = DefaultConfig().FontSizeRatio
	}
	return &Adapter{engine: engine, config: config}, nil
}

// Extract runs OCR on a page image and returns the normalized page.
// The returned page has regions grouped into logical blocks, ordered
// by reading order and validated against the page bounds. A degenerate
// or out-of-bounds region fails the whole page with
// *layout.MalformedRegionError.
func (a *Adapter) Extract(ctx context.Context, img image.Image, pageIndex int) (*layout.Page, error) {
	if img == nil {
		return nil, errors.New("extract: nil page image")
	}
	prepared := Preprocess(img, a.config.Preprocess)

	words, err := a.engine.Recognize(ctx, prepared)
	if err != nil {
		return nil, fmt.Errorf("extract: OCR failed on page %d: %w", pageIndex, err)
	}

	// Region coordinates come from the prepared image, so page
	// dimensions must too (preprocessing may downscale).
	bounds := prepared.Bounds()
	page := &layout.Page{
		Index:  pageIndex,
		Width:  float64(bounds.Dx()),
		Height: float64(bounds.Dy()),
	}
	page.Regions = GroupWords(words, a.config)
	layout.AssignReadingOrder(page.Regions, a.config.RowTolerance)

	if err := page.Validate(); err != nil {
		return nil, err
	}
	return page, nil
}

// FromWords builds a validated page from pre-positioned words, used by
// the vector text path where no OCR pass is needed. Word boxes are
// expected in page device units.
func FromWords(words []Word, pageIndex int, width, height float64, config Config) (*layout.Page, error) {
	page := &layout.Page{Index: pageIndex, Width: width, Height: height}
	page.Regions = GroupWords(words, config)
	layout.AssignReadingOrder(page.Regions, config.RowTolerance)
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return page, nil
}
