package reconcile

import (
	"strings"

	"github.com/MeKo-Tech/doctran/internal/layout"
	"github.com/MeKo-Tech/doctran/internal/translate"
)

// widthSlack absorbs float rounding when comparing measured widths
// against box widths.
const widthSlack = 1e-6

// Constraints bound the fitting search.
type Constraints struct {
	// MinScale is the smallest acceptable font scale factor.
	MinScale float64 `mapstructure:"min_scale" yaml:"min_scale" json:"min_scale"`

	// MaxScale is the largest scale the search will return.
	MaxScale float64 `mapstructure:"max_scale" yaml:"max_scale" json:"max_scale"`

	// LineSpacing is the line height as a multiple of the font size.
	LineSpacing float64 `mapstructure:"line_spacing" yaml:"line_spacing" json:"line_spacing"`

	// MaxIterations caps the binary search refinement steps.
	MaxIterations int `mapstructure:"max_iterations" yaml:"max_iterations" json:"max_iterations"`
}

// DefaultConstraints returns the standard fitting bounds.
func DefaultConstraints() Constraints {
	return Constraints{
		MinScale:      0.5,
		MaxScale:      1.0,
		LineSpacing:   1.2,
		MaxIterations: 8,
	}
}

func (c Constraints) normalized() Constraints {
	d := DefaultConstraints()
	if c.MinScale <= 0 {
		c.MinScale = d.MinScale
	}
	if c.MaxScale <= 0 {
		c.MaxScale = d.MaxScale
	}
	if c.MaxScale < c.MinScale {
		c.MaxScale = c.MinScale
	}
	if c.LineSpacing <= 0 {
		c.LineSpacing = d.LineSpacing
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	return c
}

// ReconciledRegion is a region whose text has been wrapped and scaled
// to its bounding box.
type ReconciledRegion struct {
	// Region is the source region the text was fitted into.
	Region layout.Region `json:"region"`

	// Text is the text that was fitted, translated or fallback.
	Text string `json:"text"`

	// Lines is the wrapped text, one entry per rendered line.
	Lines []string `json:"lines"`

	// Scale is the font scale factor the search settled on.
	Scale float64 `json:"scale"`

	// FontSize is the effective size, Region.FontSize * Scale.
	FontSize float64 `json:"font_size"`

	// Overflow is true when even the minimum scale could not fit the
	// text; the minimum-scale layout is kept and the renderer clips.
	Overflow bool `json:"overflow"`

	// Fallback is true when the source text was used because the
	// translation failed or came back empty.
	Fallback bool `json:"fallback"`
}

// Reconcile fits one translated unit into its region. The result is
// deterministic for identical inputs. Failed or empty translations fall
// back to the source text so the output never loses content.
func Reconcile(region layout.Region, unit translate.Unit, c Constraints, m FontMetrics) ReconciledRegion {
	c = c.normalized()
	if m == nil {
		m = DefaultApproxMetrics()
	}

	text := unit.TargetText
	fallback := unit.Failed || strings.TrimSpace(text) == ""
	if fallback {
		text = region.Text
	}

	out := ReconciledRegion{
		Region:   region,
		Text:     text,
		Fallback: fallback,
	}

	if strings.TrimSpace(text) == "" {
		out.Scale = clamp(1, c.MinScale, c.MaxScale)
		out.FontSize = region.FontSize * out.Scale
		return out
	}

	// A single line that fits at the original size needs no search.
	if !strings.Contains(text, "\n") &&
		m.StringWidth(text, region.FontSize) <= region.Box.W+widthSlack {
		out.Lines = []string{strings.Join(strings.Fields(text), " ")}
		out.Scale = clamp(1, c.MinScale, c.MaxScale)
		out.FontSize = region.FontSize * out.Scale
		return out
	}

	if lines, ok := fit(text, region, c.MaxScale, c, m); ok {
		out.Lines = lines
		out.Scale = c.MaxScale
		out.FontSize = region.FontSize * c.MaxScale
		return out
	}

	minLines, minOK := fit(text, region, c.MinScale, c, m)
	if !minOK {
		// Even the floor does not fit. Keep the floor layout and flag
		// the overflow for the renderer.
		out.Lines = minLines
		out.Scale = c.MinScale
		out.FontSize = region.FontSize * c.MinScale
		out.Overflow = true
		return out
	}

	// Binary search for the largest fitting scale in (min, max).
	lo, hi := c.MinScale, c.MaxScale
	best, bestLines := c.MinScale, minLines
	for range c.MaxIterations {
		mid := (lo + hi) / 2
		if lines, ok := fit(text, region, mid, c, m); ok {
			best, bestLines = mid, lines
			lo = mid
		} else {
			hi = mid
		}
	}
	out.Lines = bestLines
	out.Scale = best
	out.FontSize = region.FontSize * best
	return out
}

// fit wraps text at the given scale and reports whether the result fits
// the region's box in both dimensions.
func fit(text string, region layout.Region, scale float64, c Constraints, m FontMetrics) ([]string, bool) {
	size := region.FontSize * scale
	lines := Wrap(text, region.Box.W, size, m)
	height := float64(len(lines)) * c.LineSpacing * size
	if height > region.Box.H+widthSlack {
		return lines, false
	}
	if maxLineWidth(lines, size, m) > region.Box.W+widthSlack {
		return lines, false
	}
	return lines, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
