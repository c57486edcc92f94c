// Package pipeline wires the document translation stages together:
// text extraction (vector or OCR), translation, layout reconciliation
// and rendering. Pages are processed by a worker pool and joined back
// in document order.
package pipeline

import (
	"errors"
	"runtime"

	"github.com/MeKo-Tech/doctran/internal/extract"
	"github.com/MeKo-Tech/doctran/internal/pdf"
	"github.com/MeKo-Tech/doctran/internal/reconcile"
	"github.com/MeKo-Tech/doctran/internal/render"
	"github.com/MeKo-Tech/doctran/internal/translate"
)

// Pipeline processes whole documents. Construct it with a Builder.
type Pipeline struct {
	adapter     *extract.Adapter
	vector      *pdf.VectorExtractor
	coordinator *translate.Coordinator
	renderer    *render.Renderer
	metrics     reconcile.FontMetrics
	constraints reconcile.Constraints
	extractCfg  extract.Config
	workers     int
	progress    ProgressFunc
}

// Builder assembles a Pipeline step by step. A translation backend is
// required; an OCR engine is optional and only needed for scanned
// input.
type Builder struct {
	engine       extract.Engine
	backend      translate.Backend
	extractCfg   extract.Config
	translateCfg translate.Config
	constraints  reconcile.Constraints
	renderCfg    render.Config
	metrics      reconcile.FontMetrics
	workers      int
	progress     ProgressFunc
}

// NewBuilder returns a builder with default stage configurations.
func NewBuilder() *Builder {
	return &Builder{
		extractCfg:   extract.DefaultConfig(),
		translateCfg: translate.DefaultConfig(),
		constraints:  reconcile.DefaultConstraints(),
		renderCfg:    render.DefaultConfig(),
		workers:      runtime.NumCPU(),
	}
}

// WithOCREngine sets the OCR capability for scanned pages.
func (b *Builder) WithOCREngine(engine extract.Engine) *Builder {
	b.engine = engine
	return b
}

// WithBackend sets the translation backend.
func (b *Builder) WithBackend(backend translate.Backend) *Builder {
	b.backend = backend
	return b
}

// WithExtractConfig overrides the extraction settings.
func (b *Builder) WithExtractConfig(cfg extract.Config) *Builder {
	b.extractCfg = cfg
	return b
}

// WithTranslateConfig overrides the batching and retry settings.
func (b *Builder) WithTranslateConfig(cfg translate.Config) *Builder {
	b.translateCfg = cfg
	return b
}

// WithConstraints overrides the reconciliation fitting bounds.
func (b *Builder) WithConstraints(c reconcile.Constraints) *Builder {
	b.constraints = c
	return b
}

// WithRenderConfig overrides the output font settings.
func (b *Builder) WithRenderConfig(cfg render.Config) *Builder {
	b.renderCfg = cfg
	return b
}

// WithFontMetrics sets the width measurement strategy used during
// fitting.
func (b *Builder) WithFontMetrics(m reconcile.FontMetrics) *Builder {
	b.metrics = m
	return b
}

// WithWorkers bounds the number of pages processed concurrently.
func (b *Builder) WithWorkers(n int) *Builder {
	b.workers = n
	return b
}

// WithProgress sets the per-stage progress callback.
func (b *Builder) WithProgress(fn ProgressFunc) *Builder {
	b.progress = fn
	return b
}

// Build validates the configuration and constructs the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if b.backend == nil {
		return nil, errors.New("pipeline: translation backend is required")
	}
	workers := b.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p := &Pipeline{
		vector:      pdf.NewVectorExtractor(),
		coordinator: translate.NewCoordinator(b.backend, b.translateCfg),
		renderer:    render.NewRenderer(b.renderCfg),
		metrics:     b.metrics,
		constraints: b.constraints,
		extractCfg:  b.extractCfg,
		workers:     workers,
		progress:    b.progress,
	}
	if b.engine != nil {
		adapter, err := extract.NewAdapter(b.engine, b.extractCfg)
		if err != nil {
			return nil, err
		}
		p.adapter = adapter
	}
	return p, nil
}

func (p *Pipeline) report(status Status, page, total int) {
	if p.progress != nil {
		p.progress(status, page, total)
	}
}
