package extract

import (
	"image"

	"github.com/disintegration/imaging"
)

// PreprocessConfig controls image preparation before OCR.
type PreprocessConfig struct {
	// Grayscale converts the page image to grayscale.
	Grayscale bool

	// MaxDimension caps the longer image side in pixels; larger
	// images are downscaled proportionally. 0 disables scaling.
	MaxDimension int

	// Contrast adjustment percentage in [-100,100]. 0 is a no-op.
	Contrast float64
}

// DefaultPreprocessConfig returns conservative preprocessing defaults.
func DefaultPreprocessConfig() PreprocessConfig {
	return PreprocessConfig{
		Grayscale:    true,
		MaxDimension: 4096,
		Contrast:     0,
	}
}

// Preprocess prepares a page image for recognition. The input image is
// never mutated.
func Preprocess(img image.Image, cfg PreprocessConfig) image.Image {
	out := img
	if cfg.MaxDimension > 0 {
		b := out.Bounds()
		if b.Dx() > cfg.MaxDimension || b.Dy() > cfg.MaxDimension {
			out = imaging.Fit(out, cfg.MaxDimension, cfg.MaxDimension, imaging.Lanczos)
		}
	}
	if cfg.Grayscale {
		out = imaging.Grayscale(out)
	}
	if cfg.Contrast != 0 {
		out = imaging.AdjustContrast(out, cfg.Contrast)
	}
	return out
}
