// Package batch runs detection over whole books with a bounded worker
// pool. Pages are independent, so the pool is a plain fan-out: per-page
// failures are recorded and never abort the batch, and cancellation
// stops scheduling new pages while letting in-flight pages finish.
package batch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/panelworks/panel-detect/internal/book"
	"github.com/panelworks/panel-detect/internal/detect"
	"github.com/panelworks/panel-detect/internal/store"
)

// Status is the terminal state of one page within a batch.
type Status string

const (
	StatusDone    Status = "done"
	StatusCached  Status = "cached"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// PageStatus reports what happened to one page.
type PageStatus struct {
	Index  int    `json:"index"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Runner executes detection batches. Safe for concurrent use; each Run
// call is independent.
type Runner struct {
	detector *detect.Detector
	cache    *store.ResultCache
	workers  int
	log      zerolog.Logger
}

// NewRunner builds a Runner. workers caps concurrent pages; values below
// one are treated as one. cache may be nil to disable memoization.
func NewRunner(d *detect.Detector, cache *store.ResultCache, workers int, log zerolog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{detector: d, cache: cache, workers: workers, log: log}
}

// Run detects panels on every page of the book, writing results into
// data and returning per-page statuses in page order. The returned error
// is only the context's error on cancellation; page-level failures are
// reported through the statuses.
func (r *Runner) Run(ctx context.Context, bk *book.Book, data *book.Data) ([]PageStatus, error) {
	statuses := make([]PageStatus, len(bk.Pages))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	settingsHash := r.detector.Settings().Hash()
	for _, page := range bk.Pages {
		page := page

		if ctx.Err() != nil {
			statuses[page.Index] = PageStatus{Index: page.Index, Status: StatusSkipped}
			continue
		}

		g.Go(func() error {
			st := r.runPage(ctx, bk, data, &mu, page, settingsHash)
			mu.Lock()
			statuses[page.Index] = st
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return statuses, err
	}
	return statuses, ctx.Err()
}

func (r *Runner) runPage(ctx context.Context, bk *book.Book, data *book.Data, mu *sync.Mutex, page book.Page, settingsHash string) PageStatus {
	if ctx.Err() != nil {
		return PageStatus{Index: page.Index, Status: StatusSkipped}
	}

	if r.cache != nil {
		if res, ok := r.cache.Get(bk.Hash, page.Index, settingsHash); ok {
			mu.Lock()
			data.Results[page.Index] = res
			mu.Unlock()
			return PageStatus{Index: page.Index, Status: StatusCached}
		}
	}

	img, err := bk.LoadPage(page.Index)
	if err != nil {
		r.log.Error().Int("page", page.Index).Err(err).Msg("failed to load page")
		return PageStatus{Index: page.Index, Status: StatusFailed, Error: err.Error()}
	}

	res, err := r.detector.Detect(img, page.Index, bk.Metadata.Direction)
	if err != nil {
		r.log.Error().Int("page", page.Index).Err(err).Msg("detection failed")
		return PageStatus{Index: page.Index, Status: StatusFailed, Error: err.Error()}
	}

	mu.Lock()
	data.Results[page.Index] = res
	mu.Unlock()
	if r.cache != nil {
		r.cache.Put(bk.Hash, res)
	}
	return PageStatus{Index: page.Index, Status: StatusDone}
}
