package pipeline

import (
	"sync"
	"time"
)

// Status is the lifecycle stage of a document run.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusExtracting  Status = "extracting"
	StatusTranslating Status = "translating"
	StatusReconciling Status = "reconciling"
	StatusRendering   Status = "rendering"
	StatusComplete    Status = "complete"
	StatusFailed      Status = "failed"
)

// ProgressFunc receives stage transitions while a document is
// processed. page is 1-based; stage-wide events report page 0.
type ProgressFunc func(status Status, page, total int)

// PageFailure records a page that could not be processed. Failures are
// isolated: the rest of the document still renders.
type PageFailure struct {
	Page   int    `json:"page"`
	Reason string `json:"reason"`
}

// Summary is the outcome of one document run.
type Summary struct {
	Pages      int           `json:"pages"`
	Rendered   int           `json:"rendered"`
	Translated int           `json:"translated_regions"`
	Fallback   int           `json:"fallback_regions"`
	Overflow   int           `json:"overflow_regions"`
	Failures   []PageFailure `json:"failures,omitempty"`
}

// DocumentRun tracks an asynchronous document translation, typically
// one started through the HTTP server. All methods are safe for
// concurrent use.
type DocumentRun struct {
	ID        string
	CreatedAt time.Time

	mu         sync.RWMutex
	status     Status
	summary    *Summary
	err        error
	outputPath string
}

// NewDocumentRun creates a run in the queued state.
func NewDocumentRun(id string) *DocumentRun {
	return &DocumentRun{
		ID:        id,
		CreatedAt: time.Now(),
		status:    StatusQueued,
	}
}

// SetStatus moves the run to a new stage.
func (r *DocumentRun) SetStatus(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

// Complete marks the run finished with its summary and output file.
func (r *DocumentRun) Complete(summary *Summary, outputPath string) {
	r.mu.Lock()
	r.status = StatusComplete
	r.summary = summary
	r.outputPath = outputPath
	r.mu.Unlock()
}

// Fail marks the run failed.
func (r *DocumentRun) Fail(err error) {
	r.mu.Lock()
	r.status = StatusFailed
	r.err = err
	r.mu.Unlock()
}

// RunSnapshot is a point-in-time view of a run, safe to serialize.
type RunSnapshot struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	Summary   *Summary  `json:"summary,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Snapshot returns the current state of the run.
func (r *DocumentRun) Snapshot() RunSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := RunSnapshot{
		ID:        r.ID,
		Status:    r.status,
		CreatedAt: r.CreatedAt,
		Summary:   r.summary,
	}
	if r.err != nil {
		snap.Error = r.err.Error()
	}
	return snap
}

// OutputPath returns the rendered file location once the run is
// complete, empty otherwise.
func (r *DocumentRun) OutputPath() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.outputPath
}
