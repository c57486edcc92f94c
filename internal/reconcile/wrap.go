package reconcile

import "strings"

// Wrap breaks text into lines no wider than width at the given font
// size. Hard breaks in the input are honored as paragraph boundaries;
// within a paragraph, words are packed greedily. A single word wider
// than the box gets a line of its own rather than being hyphenated.
func Wrap(text string, width, fontSize float64, m FontMetrics) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			candidate := current + " " + word
			if m.StringWidth(candidate, fontSize) <= width {
				current = candidate
				continue
			}
			lines = append(lines, current)
			current = word
		}
		lines = append(lines, current)
	}
	return lines
}

func maxLineWidth(lines []string, fontSize float64, m FontMetrics) float64 {
	widest := 0.0
	for _, line := range lines {
		if w := m.StringWidth(line, fontSize); w > widest {
			widest = w
		}
	}
	return widest
}
