package layout

import "sort"

// DefaultRowTolerance is the vertical slack, as a fraction of a
// region's box height, within which two regions are considered to sit
// on the same visual row.
const DefaultRowTolerance = 0.5

// AssignReadingOrder sorts regions top-to-bottom then left-to-right and
// rewrites their Order fields as 0..n-1. Regions whose vertical centers
// fall within rowTol of each other (relative to the smaller box height)
// are treated as one row and ordered by x. Ties keep the original
// detection order; the sort is stable, so identical input always yields
// identical output. Multi-column detection is out of scope, single
// column top-to-bottom flow is assumed.
func AssignReadingOrder(regions []Region, rowTol float64) {
	if rowTol <= 0 {
		rowTol = DefaultRowTolerance
	}
	sort.SliceStable(regions, func(i, j int) bool {
		a, b := regions[i], regions[j]
		ref := a.Box.H
		if b.Box.H < ref {
			ref = b.Box.H
		}
		ca := a.Box.Y + a.Box.H/2
		cb := b.Box.Y + b.Box.H/2
		d := ca - cb
		if d < 0 {
			d = -d
		}
		if d > rowTol*ref {
			return ca < cb
		}
		return a.Box.X < b.Box.X
	})
	for i := range regions {
		regions[i].Order = i
	}
}
