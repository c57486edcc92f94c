// Package reconcile fits translated text back into the bounding boxes
// of the source layout. Translations rarely have the same length as the
// source, so each region's text is re-wrapped and, when needed, scaled
// down within configured bounds until it fits its box.
package reconcile

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontMetrics measures rendered string widths in the same units as the
// page coordinate system. The fitting algorithm is deterministic given
// a metrics implementation, so swapping implementations changes the
// wrap points but never the invariants.
type FontMetrics interface {
	// StringWidth returns the width of s when rendered at fontSize.
	StringWidth(s string, fontSize float64) float64
}

// ApproxMetrics estimates width as runeCount * WidthRatio * fontSize.
// Good enough for proportional Latin text and requires no font data.
type ApproxMetrics struct {
	// WidthRatio is the average glyph width as a fraction of the font
	// size. Zero means the default of 0.5.
	WidthRatio float64
}

// DefaultApproxMetrics returns the approximation used when no metrics
// are supplied.
func DefaultApproxMetrics() ApproxMetrics {
	return ApproxMetrics{WidthRatio: 0.5}
}

// StringWidth implements FontMetrics.
func (m ApproxMetrics) StringWidth(s string, fontSize float64) float64 {
	ratio := m.WidthRatio
	if ratio <= 0 {
		ratio = 0.5
	}
	runes := 0
	for range s {
		runes++
	}
	return float64(runes) * ratio * fontSize
}

// FaceMetrics measures widths with a real font face, scaled from the
// face's design size to the requested size.
type FaceMetrics struct {
	Face     font.Face
	FaceSize float64
}

// NewFaceMetrics returns metrics backed by the builtin fixed-width
// face. Callers with access to the actual output font should construct
// FaceMetrics directly for tighter wrapping.
func NewFaceMetrics() FaceMetrics {
	return FaceMetrics{Face: basicfont.Face7x13, FaceSize: 13}
}

// StringWidth implements FontMetrics.
func (m FaceMetrics) StringWidth(s string, fontSize float64) float64 {
	if m.Face == nil || m.FaceSize <= 0 {
		return DefaultApproxMetrics().StringWidth(s, fontSize)
	}
	w := float64(font.MeasureString(m.Face, s)) / 64
	return w * fontSize / m.FaceSize
}
