// Package render reconstructs the output document: each page gets its
// background (the source scan, when one exists) with the reconciled
// text drawn at the source regions' positions and the fitted sizes.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	"codeberg.org/go-pdf/fpdf"

	"github.com/MeKo-Tech/doctran/internal/reconcile"
)

// Page is one output page: its geometry in points, an optional
// background image scaled to fill it, and the reconciled regions to
// draw.
type Page struct {
	Width      float64
	Height     float64
	Background image.Image
	Regions    []reconcile.ReconciledRegion
}

// Document is the full set of output pages in order.
type Document struct {
	Pages []Page
}

// RenderError is fatal for a single page. Page failures never cascade;
// the caller decides whether to keep the other pages.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: page %d: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer writes documents as PDFs.
type Renderer struct {
	config Config
}

// NewRenderer creates a renderer with the given configuration, applying
// defaults for zero values.
func NewRenderer(config Config) *Renderer {
	return &Renderer{config: config.normalized()}
}

// CheckPage verifies that the output font can represent the page's
// text. It fails with a RenderError when too many lines fall outside
// the font's coverage, so callers can drop the page before rendering
// without touching its siblings.
func (r *Renderer) CheckPage(index int, page Page) error {
	bad := 0
	total := 0
	for _, region := range page.Regions {
		for _, line := range region.Lines {
			if line == "" {
				continue
			}
			total++
			if _, ok := encodeWinAnsi(line); !ok {
				bad++
			}
		}
	}
	if total > 0 && bad > total/10 {
		return &RenderError{
			Page: index,
			Err:  fmt.Errorf("font lacks coverage for %d of %d lines", bad, total),
		}
	}
	return nil
}

// Render writes the document to w. Text never extends past the page
// edge: lines that an overflowing region pushes beyond the page bottom
// or past its right margin are clipped. Glyphs outside the output
// font's coverage are replaced; pages expected to fail that way should
// be filtered out with CheckPage beforehand.
func (r *Renderer) Render(doc *Document, w io.Writer) error {
	pdf := fpdf.New("P", "pt", "", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, page := range doc.Pages {
		if err := r.renderPage(pdf, i, page); err != nil {
			return err
		}
		if pdf.Err() {
			return &RenderError{Page: i, Err: pdf.Error()}
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render: write output: %w", err)
	}
	return nil
}

func (r *Renderer) renderPage(pdf *fpdf.Fpdf, index int, page Page) error {
	pdf.AddPageFormat("P", fpdf.SizeType{Wd: page.Width, Ht: page.Height})

	if page.Background != nil {
		if err := r.drawBackground(pdf, index, page); err != nil {
			return &RenderError{Page: index, Err: err}
		}
	}

	for _, region := range page.Regions {
		r.drawRegion(pdf, page, region)
	}
	return nil
}

// drawBackground paints the source image over the whole page. The image
// may have been downscaled during preprocessing; stretching it to the
// page size keeps it aligned with the region coordinates, which share
// that scale.
func (r *Renderer) drawBackground(pdf *fpdf.Fpdf, index int, page Page) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, page.Background); err != nil {
		return fmt.Errorf("encode background: %w", err)
	}
	name := fmt.Sprintf("bg%d", index)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, &buf)
	pdf.ImageOptions(name, 0, 0, page.Width, page.Height, false, opts, 0, "")
	return nil
}

// drawRegion draws a region's lines at its box origin. Lines that an
// overflowing region pushes past the page bottom or page right edge
// are clipped; they may exceed the region box but never the page.
func (r *Renderer) drawRegion(pdf *fpdf.Fpdf, page Page, region reconcile.ReconciledRegion) {
	style := r.config.FontStyle
	if region.Region.Heading {
		style = r.config.HeadingStyle
	}
	pdf.SetFont(r.config.FontFamily, style, region.FontSize)

	for i, line := range region.Lines {
		if line == "" {
			continue
		}
		baseline := region.Region.Box.Y +
			float64(i)*r.config.LineSpacing*region.FontSize +
			r.config.AscentRatio*region.FontSize
		if baseline > page.Height {
			break
		}
		encoded, _ := encodeWinAnsi(line)
		if region.Region.Box.X+pdf.GetStringWidth(encoded) > page.Width {
			continue
		}
		pdf.Text(region.Region.Box.X, baseline, encoded)
	}
}
