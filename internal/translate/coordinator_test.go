package translate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/MeKo-Tech/doctran/internal/layout"
)

func testPage(texts ...string) *layout.Page {
	page := &layout.Page{Index: 0, Width: 612, Height: 792}
	for i, t := range texts {
		page.Regions = append(page.Regions, layout.Region{
			Order: i,
			Box:   layout.BBox{X: 50, Y: 50 + float64(i)*30, W: 400, H: 20},
			Text:  t,
		})
	}
	return page
}

func upperBackend() Backend {
	return BackendFunc(func(_ context.Context, texts []string, _, _ language.Tag) ([]string, error) {
		out := make([]string, len(texts))
		for i, t := range texts {
			out[i] = strings.ToUpper(t)
		}
		return out, nil
	})
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryBaseDelay = time.Millisecond
	return cfg
}

func TestCoordinator_Translate_AllSucceed(t *testing.T) {
	c := NewCoordinator(upperBackend(), fastConfig())
	page := testPage("one", "two", "three")

	res, err := c.Translate(context.Background(), page, language.English, language.German)
	require.NoError(t, err)
	require.Len(t, res.Units, 3)
	assert.Empty(t, res.Failures)

	for i, u := range res.Units {
		assert.Equal(t, i, u.RegionOrder)
		assert.Equal(t, page.Regions[i].Text, u.SourceText)
		assert.Equal(t, strings.ToUpper(page.Regions[i].Text), u.TargetText)
		assert.False(t, u.Failed)
	}
}

func TestCoordinator_Translate_OrderIndependentOfCompletion(t *testing.T) {
	// Earlier batches finish last; output must still be in reading
	// order because results are joined by region index.
	var calls atomic.Int32
	backend := BackendFunc(func(_ context.Context, texts []string, _, _ language.Tag) ([]string, error) {
		n := calls.Add(1)
		time.Sleep(time.Duration(10-n) * 5 * time.Millisecond)
		out := make([]string, len(texts))
		for i, t := range texts {
			out[i] = "t:" + t
		}
		return out, nil
	})

	cfg := fastConfig()
	cfg.MaxBatchUnits = 1
	cfg.Concurrency = 4
	c := NewCoordinator(backend, cfg)

	page := testPage("r0", "r1", "r2", "r3", "r4")
	res, err := c.Translate(context.Background(), page, language.English, language.French)
	require.NoError(t, err)
	require.Len(t, res.Units, 5)
	for i, u := range res.Units {
		assert.Equal(t, i, u.RegionOrder)
		assert.Equal(t, "t:"+page.Regions[i].Text, u.TargetText)
	}
}

func TestCoordinator_Translate_PartialFailure(t *testing.T) {
	// Backend errors on region 3 of 5: four translated units, one
	// fallback, and no overall error.
	backend := BackendFunc(func(_ context.Context, texts []string, _, _ language.Tag) ([]string, error) {
		if texts[0] == "r3" {
			return nil, errors.New("boom")
		}
		out := make([]string, len(texts))
		for i, t := range texts {
			out[i] = "t:" + t
		}
		return out, nil
	})

	cfg := fastConfig()
	cfg.MaxBatchUnits = 1
	cfg.MaxRetries = 1
	c := NewCoordinator(backend, cfg)

	res, err := c.Translate(context.Background(), testPage("r0", "r1", "r2", "r3", "r4"),
		language.English, language.Spanish)
	require.NoError(t, err)

	translated := 0
	for _, u := range res.Units {
		if !u.Failed {
			translated++
		}
	}
	assert.Equal(t, 4, translated)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 3, res.Failures[0].RegionOrder)
	assert.True(t, res.Units[3].Failed)
	assert.Empty(t, res.Units[3].TargetText)
	assert.Equal(t, "r3", res.Units[3].SourceText)
}

func TestCoordinator_Translate_BatchMismatchFailsWholeBatch(t *testing.T) {
	// Two strings back for a three-string batch: every member must be
	// marked failed, none silently misassigned.
	backend := BackendFunc(func(_ context.Context, texts []string, _, _ language.Tag) ([]string, error) {
		return []string{"a", "b"}, nil
	})

	cfg := fastConfig()
	cfg.MaxBatchUnits = 3
	cfg.MaxRetries = 0
	c := NewCoordinator(backend, cfg)

	res, err := c.Translate(context.Background(), testPage("x", "y", "z"),
		language.English, language.German)
	require.NoError(t, err)
	require.Len(t, res.Failures, 3)
	for _, u := range res.Units {
		assert.True(t, u.Failed)
		assert.Empty(t, u.TargetText)
	}
}

func TestCoordinator_Translate_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	backend := BackendFunc(func(_ context.Context, texts []string, _, _ language.Tag) ([]string, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("transient")
		}
		return []string{"ok"}, nil
	})

	cfg := fastConfig()
	cfg.MaxBatchUnits = 1
	cfg.MaxRetries = 2
	c := NewCoordinator(backend, cfg)

	res, err := c.Translate(context.Background(), testPage("hello"), language.English, language.Italian)
	require.NoError(t, err)
	require.Len(t, res.Units, 1)
	assert.False(t, res.Units[0].Failed)
	assert.Equal(t, "ok", res.Units[0].TargetText)
	assert.Equal(t, 3, res.Units[0].Attempts)
}

func TestCoordinator_Translate_ConcurrencyLimit(t *testing.T) {
	var inFlight, peak int32
	var mu sync.Mutex
	backend := BackendFunc(func(_ context.Context, texts []string, _, _ language.Tag) ([]string, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return make([]string, len(texts)), nil
	})

	cfg := fastConfig()
	cfg.MaxBatchUnits = 1
	cfg.Concurrency = 2
	c := NewCoordinator(backend, cfg)

	_, err := c.Translate(context.Background(), testPage("a", "b", "c", "d", "e", "f"),
		language.English, language.German)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, int32(2))
}

func TestCoordinator_Translate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCoordinator(upperBackend(), fastConfig())
	_, err := c.Translate(ctx, testPage("a"), language.English, language.German)
	require.ErrorIs(t, err, context.Canceled)
}

func TestBatchMismatchError_Message(t *testing.T) {
	err := &BatchMismatchError{Want: 3, Got: 2}
	assert.Contains(t, err.Error(), "2 results for 3 inputs")
}
