package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/text/language"

	"github.com/MeKo-Tech/doctran/internal/extract"
	"github.com/MeKo-Tech/doctran/internal/layout"
	"github.com/MeKo-Tech/doctran/internal/pdf"
	"github.com/MeKo-Tech/doctran/internal/reconcile"
	"github.com/MeKo-Tech/doctran/internal/render"
)

// ErrAllPagesFailed is returned when not a single page of a document
// could be processed.
var ErrAllPagesFailed = errors.New("pipeline: no page could be processed")

// pageSource is one page's input: either a usable vector text layer or
// a page image for OCR.
type pageSource struct {
	index  int
	vector *pdf.VectorPage
	image  image.Image
}

// pageResult carries a processed page back from the worker pool.
type pageResult struct {
	index      int
	page       render.Page
	translated int
	fallback   int
	overflow   int
	err        error
	done       bool
}

// ProcessPDF translates a PDF document and writes the rendered output
// to out. Born-digital pages use their text layer directly; pages
// without a usable layer go through OCR when an engine is configured.
// A failed page is recorded in the summary and skipped; processing
// fails only when every page fails or the context is cancelled.
func (p *Pipeline) ProcessPDF(ctx context.Context, filename string, source, target language.Tag, out io.Writer) (*Summary, error) {
	sizes, err := pdf.PageSizes(filename)
	if err != nil {
		return nil, err
	}
	total := len(sizes)
	if total == 0 {
		return nil, fmt.Errorf("pipeline: %q has no pages", filename)
	}

	vpages, err := p.vector.ExtractWords(filename)
	if err != nil {
		slog.Warn("vector text extraction failed, falling back to OCR",
			"file", filename, "error", err)
		vpages = nil
	}

	needImages := false
	for i := range sizes {
		if vp, ok := vpages[i+1]; !ok || !p.vector.Usable(vp) {
			needImages = true
			break
		}
	}
	var images map[int]image.Image
	if needImages && p.adapter != nil {
		images, err = pdf.ExtractPageImages(filename)
		if err != nil {
			slog.Warn("page image extraction failed", "file", filename, "error", err)
		}
	}

	sources := make([]pageSource, total)
	for i := range sizes {
		src := pageSource{index: i}
		if vp, ok := vpages[i+1]; ok && p.vector.Usable(vp) {
			page := vp
			src.vector = &page
		} else if img, ok := images[i+1]; ok {
			src.image = img
		}
		sources[i] = src
	}

	results := p.processPages(ctx, sources, source, target)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &Summary{Pages: total}
	doc := &render.Document{}
	for i, res := range results {
		if res.err != nil {
			slog.Warn("page failed", "page", i+1, "error", res.err)
			summary.Failures = append(summary.Failures, PageFailure{
				Page:   i + 1,
				Reason: res.err.Error(),
			})
			continue
		}
		doc.Pages = append(doc.Pages, res.page)
		summary.Rendered++
		summary.Translated += res.translated
		summary.Fallback += res.fallback
		summary.Overflow += res.overflow
	}
	if summary.Rendered == 0 {
		return nil, fmt.Errorf("%w: %d of %d pages failed", ErrAllPagesFailed, total, total)
	}

	p.report(StatusRendering, 0, total)
	if err := p.renderer.Render(doc, out); err != nil {
		return nil, err
	}
	return summary, nil
}

// ProcessImage translates a single page image. Requires an OCR engine.
func (p *Pipeline) ProcessImage(ctx context.Context, img image.Image, source, target language.Tag, out io.Writer) (*Summary, error) {
	if p.adapter == nil {
		return nil, errors.New("pipeline: image input requires an OCR engine")
	}
	res := p.processPage(ctx, pageSource{index: 0, image: img}, source, target, 1)
	if res.err != nil {
		return nil, res.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &Summary{
		Pages:      1,
		Rendered:   1,
		Translated: res.translated,
		Fallback:   res.fallback,
		Overflow:   res.overflow,
	}
	p.report(StatusRendering, 0, 1)
	if err := p.renderer.Render(&render.Document{Pages: []render.Page{res.page}}, out); err != nil {
		return nil, err
	}
	return summary, nil
}

// processPages runs the per-page worker pool and joins results back by
// page index.
func (p *Pipeline) processPages(ctx context.Context, sources []pageSource, source, target language.Tag) []pageResult {
	workers := p.workers
	if workers > len(sources) {
		workers = len(sources)
	}

	jobs := make(chan pageSource, len(sources))
	out := make(chan pageResult, len(sources))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go p.pageWorker(ctx, jobs, out, &wg, source, target, len(sources))
	}

	go func() {
		defer close(jobs)
		for _, src := range sources {
			select {
			case jobs <- src:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]pageResult, len(sources))
	for res := range out {
		results[res.index] = res
	}
	for i := range results {
		if !results[i].done && results[i].err == nil {
			results[i] = pageResult{index: i, err: ctx.Err(), done: true}
			if results[i].err == nil {
				results[i].err = errors.New("page was not processed")
			}
		}
	}
	return results
}

func (p *Pipeline) pageWorker(ctx context.Context, jobs <-chan pageSource, out chan<- pageResult,
	wg *sync.WaitGroup, source, target language.Tag, total int,
) {
	defer wg.Done()
	for {
		select {
		case src, ok := <-jobs:
			if !ok {
				return
			}
			res := p.processPage(ctx, src, source, target, total)
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// processPage runs one page through extraction, translation and
// reconciliation.
func (p *Pipeline) processPage(ctx context.Context, src pageSource, source, target language.Tag, total int) pageResult {
	res := pageResult{index: src.index, done: true}
	pageNum := src.index + 1

	p.report(StatusExtracting, pageNum, total)
	var (
		lp  *layout.Page
		bg  image.Image
		err error
	)
	switch {
	case src.vector != nil:
		lp, err = extract.FromWords(src.vector.Words, src.index,
			src.vector.Size.Width, src.vector.Size.Height, p.extractCfg)
	case src.image != nil && p.adapter != nil:
		lp, err = p.adapter.Extract(ctx, src.image, src.index)
		if err == nil {
			// The background must share the coordinate system the
			// regions were extracted in.
			bg = extract.Preprocess(src.image, p.extractCfg.Preprocess)
		}
	default:
		err = errors.New("no usable text layer and no OCR source")
	}
	if err != nil {
		res.err = fmt.Errorf("page %d: %w", pageNum, err)
		return res
	}

	p.report(StatusTranslating, pageNum, total)
	translated, err := p.coordinator.Translate(ctx, lp, source, target)
	if err != nil {
		res.err = fmt.Errorf("page %d: %w", pageNum, err)
		return res
	}

	p.report(StatusReconciling, pageNum, total)
	regions := make([]reconcile.ReconciledRegion, len(lp.Regions))
	for i, region := range lp.Regions {
		rr := reconcile.Reconcile(region, translated.Units[i], p.constraints, p.metrics)
		regions[i] = rr
		switch {
		case rr.Fallback:
			res.fallback++
		default:
			res.translated++
		}
		if rr.Overflow {
			res.overflow++
		}
	}

	res.page = render.Page{
		Width:      lp.Width,
		Height:     lp.Height,
		Background: bg,
		Regions:    regions,
	}
	// A page the output font cannot represent fails here, before any
	// sibling page is affected.
	if err := p.renderer.CheckPage(src.index, res.page); err != nil {
		res.err = err
		res.page = render.Page{}
	}
	return res
}
