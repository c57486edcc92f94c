// Package pdf reads source documents: page geometry and embedded page
// images via pdfcpu for the scanned path, and positioned vector text
// via dslipak/pdf for born-digital files.
package pdf

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageSize is a page's media box dimensions in points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PageSizes returns the media box of every page, 0-indexed.
func PageSizes(filename string) ([]PageSize, error) {
	dims, err := api.PageDimsFile(filename)
	if err != nil {
		return nil, fmt.Errorf("pdf: read page dimensions of %q: %w", filename, err)
	}
	sizes := make([]PageSize, len(dims))
	for i, d := range dims {
		sizes[i] = PageSize{Width: d.Width, Height: d.Height}
	}
	return sizes, nil
}

// ExtractPageImages extracts the embedded images of a PDF and returns
// the largest image per page, keyed by 1-based page number. Scanned
// documents carry one full-page scan per page; picking the largest
// skips decorative images on mixed pages.
func ExtractPageImages(filename string) (map[int]image.Image, error) {
	tempDir, err := os.MkdirTemp("", "doctran-extract-*")
	if err != nil {
		return nil, fmt.Errorf("pdf: create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	if err := api.ExtractImagesFile(filename, tempDir, nil, nil); err != nil {
		return nil, fmt.Errorf("pdf: extract images from %q: %w", filename, err)
	}

	result := make(map[int]image.Image)
	err = filepath.Walk(tempDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		pageNum, err := pageFromFilename(info.Name())
		if err != nil {
			return nil
		}
		img, err := loadImageFile(path)
		if err != nil || img == nil {
			return nil
		}
		if prev, ok := result[pageNum]; !ok || area(img) > area(prev) {
			result[pageNum] = img
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pdf: collect extracted images: %w", err)
	}
	return result, nil
}

func loadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // user-provided document path
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	return img, err
}

// pageFromFilename parses the page number out of pdfcpu's extracted
// filename format, page_<num>_image_<idx>.<ext>.
func pageFromFilename(filename string) (int, error) {
	if !strings.HasPrefix(filename, "page_") {
		return 0, errors.New("not a page image file")
	}
	parts := strings.Split(filename, "_")
	if len(parts) < 2 {
		return 0, errors.New("unexpected filename format")
	}
	return strconv.Atoi(parts[1])
}

func area(img image.Image) int {
	b := img.Bounds()
	return b.Dx() * b.Dy()
}
