// Package translate groups text regions into batches, dispatches them
// to the translation backend and joins results back onto regions by
// identity. One broken string never blocks the rest of the page: failed
// units fall back to source text with a failure marker.
package translate

import (
	"context"
	"fmt"

	"golang.org/x/text/language"
)

// Unit pairs one region's source text with its resolved translation.
// Immutable once populated; a region maps to at most one unit.
type Unit struct {
	// RegionOrder is the reading-order index of the region this unit
	// belongs to.
	RegionOrder int `json:"region_order"`

	SourceText string `json:"source_text"`

	// TargetText is the translated text. Empty when Failed is true;
	// downstream reconciliation then renders the source text
	// unchanged, never a blank box.
	TargetText string `json:"target_text,omitempty"`

	SourceLang language.Tag `json:"source_lang"`
	TargetLang language.Tag `json:"target_lang"`

	// Failed marks units whose translation could not be resolved
	// after retries.
	Failed bool `json:"failed,omitempty"`

	// Attempts is the number of backend calls spent on this unit's
	// batch.
	Attempts int `json:"attempts,omitempty"`
}

// Failure records a region whose translation fell back to source text.
type Failure struct {
	RegionOrder int    `json:"region_order"`
	Reason      string `json:"reason"`
}

// BatchMismatchError reports a backend response whose length does not
// match the request. The coordinator escalates it to a per-unit failure
// for every member of the batch instead of misassigning outputs.
type BatchMismatchError struct {
	Want int
	Got  int
}

func (e *BatchMismatchError) Error() string {
	return fmt.Sprintf("translate: backend returned %d results for %d inputs", e.Got, e.Want)
}

// Backend is the external translation capability. Implementations must
// return one result per input in the same order, or an error. Length
// mismatches are defended against by the coordinator.
type Backend interface {
	TranslateBatch(ctx context.Context, texts []string, source, target language.Tag) ([]string, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, texts []string, source, target language.Tag) ([]string, error)

// TranslateBatch implements Backend.
func (f BackendFunc) TranslateBatch(ctx context.Context, texts []string, source, target language.Tag) ([]string, error) {
	return f(ctx, texts, source, target)
}
