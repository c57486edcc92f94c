package extract

import (
	"strings"

	"github.com/MeKo-Tech/doctran/internal/layout"
)

// blockBuilder accumulates consecutive words into one logical block.
type blockBuilder struct {
	words      []Word
	box        layout.BBox
	confSum    float64
	lastHeight float64
}

func (b *blockBuilder) add(w Word) {
	if len(b.words) == 0 {
		b.box = w.Box
	} else {
		right := b.box.Right()
		bottom := b.box.Bottom()
		if w.Box.X < b.box.X {
			b.box.X = w.Box.X
		}
		if w.Box.Y < b.box.Y {
			b.box.Y = w.Box.Y
		}
		if w.Box.Right() > right {
			right = w.Box.Right()
		}
		if w.Box.Bottom() > bottom {
			bottom = w.Box.Bottom()
		}
		b.box.W = right - b.box.X
		b.box.H = bottom - b.box.Y
	}
	b.words = append(b.words, w)
	b.confSum += w.Confidence
	b.lastHeight = w.Box.H
}

// text joins the block's words into lines using the engine-reported
// line numbers, words within a line separated by single spaces.
func (b *blockBuilder) text() string {
	var lines []string
	var current []string
	currentLine := -1
	for _, w := range b.words {
		if currentLine != -1 && w.Line != currentLine {
			lines = append(lines, strings.Join(current, " "))
			current = current[:0]
		}
		currentLine = w.Line
		current = append(current, w.Text)
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func (b *blockBuilder) region(cfg Config) (layout.Region, bool) {
	text := b.text()
	if text == "" {
		return layout.Region{}, false
	}
	fontSize := cfg.FontSizeRatio * b.lastHeight
	if fontSize <= 0 {
		fontSize = 12
	}
	return layout.Region{
		Box:        b.box,
		FontSize:   fontSize,
		Text:       text,
		Confidence: b.confSum / float64(len(b.words)),
		Heading:    cfg.HeadingFontSize > 0 && fontSize > cfg.HeadingFontSize,
	}, true
}

// GroupWords groups OCR words into logical text blocks. A new block
// starts on a significant vertical gap (new paragraph) or when the
// y position moves upward (new section). Words at or below the
// confidence floor are dropped and also terminate the current block.
// Reading-order indices are not assigned here.
func GroupWords(words []Word, cfg Config) []layout.Region {
	var regions []layout.Region
	var builder blockBuilder
	lastY := -1.0
	lastHeight := 0.0

	flush := func() {
		if len(builder.words) > 0 {
			if r, ok := builder.region(cfg); ok {
				regions = append(regions, r)
			}
			builder = blockBuilder{}
		}
	}

	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" || w.Confidence <= cfg.MinConfidence {
			flush()
			continue
		}
		w.Text = text

		if lastY >= 0 {
			gap := w.Box.Y - (lastY + lastHeight)
			if gap > cfg.VerticalGap || w.Box.Y < lastY {
				flush()
			}
		}
		builder.add(w)
		lastY = w.Box.Y
		lastHeight = w.Box.H
	}
	flush()
	return regions
}
