package translate

// Batch is a contiguous run of region indices sent to the backend in
// one call. Indices refer to the page's region slice, which is already
// in reading order; batch membership never affects output ordering.
type Batch struct {
	Indices []int
	Chars   int
}

// BuildBatches partitions region texts into batches bounded by a
// maximum unit count and a maximum total character count. A single
// text larger than maxChars gets a batch of its own rather than being
// split. Every input index appears in exactly one batch and relative
// order is preserved.
func BuildBatches(texts []string, maxUnits, maxChars int) []Batch {
	if len(texts) == 0 {
		return nil
	}
	if maxUnits <= 0 {
		maxUnits = 1
	}
	var batches []Batch
	var current Batch

	flush := func() {
		if len(current.Indices) > 0 {
			batches = append(batches, current)
			current = Batch{}
		}
	}

	for i, t := range texts {
		size := len(t)
		if maxChars > 0 && size >= maxChars {
			flush()
			batches = append(batches, Batch{Indices: []int{i}, Chars: size})
			continue
		}
		overUnits := len(current.Indices) >= maxUnits
		overChars := maxChars > 0 && len(current.Indices) > 0 && current.Chars+size > maxChars
		if overUnits || overChars {
			flush()
		}
		current.Indices = append(current.Indices, i)
		current.Chars += size
	}
	flush()
	return batches
}
