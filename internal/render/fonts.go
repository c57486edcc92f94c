package render

import "golang.org/x/text/encoding/charmap"

// Config selects the output font and text layout parameters.
type Config struct {
	// FontFamily is one of the PDF core families (Helvetica, Times,
	// Courier).
	FontFamily string `mapstructure:"font_family" yaml:"font_family" json:"font_family"`

	// FontStyle is the body style, empty for regular.
	FontStyle string `mapstructure:"font_style" yaml:"font_style" json:"font_style"`

	// HeadingStyle is applied to regions flagged as headings.
	HeadingStyle string `mapstructure:"heading_style" yaml:"heading_style" json:"heading_style"`

	// AscentRatio places the first baseline below the box top as a
	// fraction of the font size.
	AscentRatio float64 `mapstructure:"ascent_ratio" yaml:"ascent_ratio" json:"ascent_ratio"`

	// LineSpacing is the line height as a multiple of the font size.
	// It must match the spacing the text was fitted with.
	LineSpacing float64 `mapstructure:"line_spacing" yaml:"line_spacing" json:"line_spacing"`
}

// DefaultConfig returns the standard output font settings.
func DefaultConfig() Config {
	return Config{
		FontFamily:   "Helvetica",
		FontStyle:    "",
		HeadingStyle: "B",
		AscentRatio:  0.8,
		LineSpacing:  1.2,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.FontFamily == "" {
		c.FontFamily = d.FontFamily
	}
	if c.HeadingStyle == "" {
		c.HeadingStyle = d.HeadingStyle
	}
	if c.AscentRatio <= 0 {
		c.AscentRatio = d.AscentRatio
	}
	if c.LineSpacing <= 0 {
		c.LineSpacing = d.LineSpacing
	}
	return c
}

// encodeWinAnsi converts text to the cp1252 encoding the core PDF
// fonts use. Characters outside the codepage are replaced and the
// second return is false, so callers can track coverage problems.
func encodeWinAnsi(s string) (string, bool) {
	encoded, err := charmap.Windows1252.NewEncoder().String(s)
	if err == nil {
		return encoded, true
	}
	out := make([]byte, 0, len(s))
	ok := true
	enc := charmap.Windows1252.NewEncoder()
	for _, r := range s {
		b, err := enc.String(string(r))
		if err != nil {
			out = append(out, '?')
			ok = false
			continue
		}
		out = append(out, b...)
	}
	return string(out), ok
}
