package translate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/MeKo-Tech/doctran/internal/layout"
)

// Config holds batching and dispatch settings for the coordinator.
type Config struct {
	// MaxBatchUnits caps the number of regions per backend call.
	MaxBatchUnits int `mapstructure:"max_batch_units" yaml:"max_batch_units" json:"max_batch_units"`

	// MaxBatchChars caps the total character count per backend call.
	MaxBatchChars int `mapstructure:"max_batch_chars" yaml:"max_batch_chars" json:"max_batch_chars"`

	// Concurrency bounds the number of in-flight backend calls for a
	// page. Backpressure: the coordinator never exceeds it regardless
	// of batch count.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`

	// MaxRetries is the number of additional attempts per batch
	// before its units are marked failed.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`

	// RetryBaseDelay is the base for exponential backoff between
	// attempts.
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" yaml:"retry_base_delay" json:"retry_base_delay"`
}

// DefaultConfig returns coordinator defaults.
func DefaultConfig() Config {
	return Config{
		MaxBatchUnits:  16,
		MaxBatchChars:  4000,
		Concurrency:    3,
		MaxRetries:     2,
		RetryBaseDelay: 2 * time.Second,
	}
}

// Coordinator dispatches region texts to the translation backend.
type Coordinator struct {
	backend Backend
	config  Config
}

// NewCoordinator creates a coordinator around the given backend.
func NewCoordinator(backend Backend, config Config) *Coordinator {
	if config.MaxBatchUnits <= 0 {
		config.MaxBatchUnits = DefaultConfig().MaxBatchUnits
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConfig().Concurrency
	}
	return &Coordinator{backend: backend, config: config}
}

// Result is the ordered outcome of translating one page.
type Result struct {
	// Units has exactly one entry per region, ordered by reading
	// order regardless of backend completion order.
	Units []Unit

	// Failures lists the units that fell back to source text.
	Failures []Failure
}

// Translate translates all regions of a page. Batches run concurrently
// up to the configured limit; each batch is retried with exponential
// backoff on error. A mismatched-length backend response or exhausted
// retries marks every unit of that batch failed; the rest of the page
// proceeds. Results are joined back by region index, never by arrival
// order.
func (c *Coordinator) Translate(ctx context.Context, page *layout.Page, source, target language.Tag) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	texts := make([]string, len(page.Regions))
	for i, r := range page.Regions {
		texts[i] = r.Text
	}
	batches := BuildBatches(texts, c.config.MaxBatchUnits, c.config.MaxBatchChars)

	units := make([]Unit, len(page.Regions))
	for i, r := range page.Regions {
		units[i] = Unit{
			RegionOrder: r.Order,
			SourceText:  r.Text,
			SourceLang:  source,
			TargetLang:  target,
		}
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, c.config.Concurrency)
	)

	for _, batch := range batches {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		}

		wg.Add(1)
		go func(b Batch) {
			defer wg.Done()
			defer func() { <-sem }()

			in := make([]string, len(b.Indices))
			for i, idx := range b.Indices {
				in[i] = texts[idx]
			}
			out, attempts, err := c.callWithRetry(ctx, in, source, target)

			mu.Lock()
			defer mu.Unlock()
			for i, idx := range b.Indices {
				units[idx].Attempts = attempts
				if err != nil {
					units[idx].Failed = true
					continue
				}
				units[idx].TargetText = out[i]
			}
			if err != nil {
				slog.Warn("translation batch failed, falling back to source text",
					"regions", len(b.Indices), "attempts", attempts, "error", err)
			}
		}(batch)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		// Cancelled mid-run: discard partial results rather than
		// reporting a half-translated page.
		return nil, err
	}

	result := &Result{Units: units}
	for _, u := range units {
		if u.Failed {
			result.Failures = append(result.Failures, Failure{
				RegionOrder: u.RegionOrder,
				Reason:      "translation failed, source text carried through",
			})
		}
	}
	return result, nil
}

// callWithRetry invokes the backend, validating the response length and
// retrying with exponential backoff. It returns the number of attempts
// made alongside the final outcome.
func (c *Coordinator) callWithRetry(ctx context.Context, texts []string, source, target language.Tag) ([]string, int, error) {
	var lastErr error
	attempts := 0
	for try := 0; try <= c.config.MaxRetries; try++ {
		if try > 0 {
			delay := c.config.RetryBaseDelay << (try - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, attempts, ctx.Err()
			}
		}
		attempts++
		out, err := c.backend.TranslateBatch(ctx, texts, source, target)
		if err == nil && len(out) != len(texts) {
			err = &BatchMismatchError{Want: len(texts), Got: len(out)}
		}
		if err == nil {
			return out, attempts, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, attempts, ctx.Err()
		}
	}
	return nil, attempts, lastErr
}
