// Package layout defines the in-memory document model shared by the
// extraction, translation, reconciliation and rendering stages: pages,
// text regions and their geometry.
package layout

import "fmt"

// BBox is an axis-aligned rectangle in page device units. The origin is
// the top-left corner of the page, y grows downward.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Right returns the x coordinate of the right edge.
func (b BBox) Right() float64 { return b.X + b.W }

// Bottom returns the y coordinate of the bottom edge.
func (b BBox) Bottom() float64 { return b.Y + b.H }

// Degenerate reports whether the box has zero or negative extent.
func (b BBox) Degenerate() bool { return b.W <= 0 || b.H <= 0 }

// Within reports whether the box lies entirely inside a page of the
// given dimensions.
func (b BBox) Within(width, height float64) bool {
	return b.X >= 0 && b.Y >= 0 && b.Right() <= width && b.Bottom() <= height
}

// Region is a rectangular text area on a page. Regions are produced by
// the extraction adapter and are not mutated downstream; reconciliation
// derives new values instead of changing them in place.
type Region struct {
	// Order is the reading-order index, unique within a page,
	// assigned top-to-bottom then left-to-right.
	Order int `json:"order"`

	Box BBox `json:"box"`

	// FontSize is the estimated source font size in device units.
	FontSize float64 `json:"font_size"`

	// Text is the recognized source text. Lines are separated by '\n'.
	Text string `json:"text"`

	// Confidence is the recognition confidence in [0,1]. Advisory
	// only; low-confidence regions are still translated.
	Confidence float64 `json:"confidence"`

	// Heading marks blocks whose font size is above the heading
	// threshold.
	Heading bool `json:"heading,omitempty"`
}

// Page is one unit of document geometry with its ordered regions.
// Immutable once reconciliation begins.
type Page struct {
	Index   int      `json:"index"` // zero-based page index
	Width   float64  `json:"width"`
	Height  float64  `json:"height"`
	Regions []Region `json:"regions"`
}

// MalformedRegionError reports a region whose geometry cannot be placed
// on its page. It is fatal for the page; sibling pages continue.
type MalformedRegionError struct {
	Page   int
	Region int
	Reason string
}

func (e *MalformedRegionError) Error() string {
	return fmt.Sprintf("page %d: malformed region %d: %s", e.Page, e.Region, e.Reason)
}

// Validate checks the page invariants: positive page dimensions, every
// box non-degenerate and within page bounds, and reading-order indices
// unique. It returns a *MalformedRegionError describing the first
// violation found.
func (p *Page) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return &MalformedRegionError{Page: p.Index, Region: -1, Reason: "non-positive page dimensions"}
	}
	seen := make(map[int]bool, len(p.Regions))
	for i, r := range p.Regions {
		if r.Box.Degenerate() {
			return &MalformedRegionError{Page: p.Index, Region: i, Reason: "degenerate bounding box"}
		}
		if !r.Box.Within(p.Width, p.Height) {
			return &MalformedRegionError{Page: p.Index, Region: i, Reason: "bounding box outside page bounds"}
		}
		if seen[r.Order] {
			return &MalformedRegionError{Page: p.Index, Region: i,
				Reason: fmt.Sprintf("duplicate reading-order index %d", r.Order)}
		}
		seen[r.Order] = true
	}
	return nil
}
