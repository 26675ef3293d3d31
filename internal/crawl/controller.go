// Package crawl drives the bounded, paginated crawl of the disclosure
// registry. The controller owns pagination state and the date window,
// applies the normalizer to every raw row, and feeds canonical records to
// the downstream pipeline stage one at a time.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marknadsdata/insider-crawler/internal/metrics"
	"github.com/marknadsdata/insider-crawler/internal/normalize"
	"github.com/marknadsdata/insider-crawler/internal/registry"
)

// StopReason explains why a crawl terminated cleanly.
type StopReason string

// Clean termination reasons. Neither is an error.
const (
	StopEndDateReached StopReason = "end_date_reached"
	StopMaxPageReached StopReason = "max_page_reached"
)

// Config holds the validated crawl settings.
type Config struct {
	// StartDate is the inclusive upper bound of publication dates to
	// collect, YYYY-MM-DD. Empty means yesterday.
	StartDate string
	// EndDate is the exclusive stopping boundary, YYYY-MM-DD. Empty means
	// the fixed epoch date.
	EndDate string
	// PageJump resumes the crawl at the given 1-based page.
	PageJump int
	// Delay is the pause between page fetches; floored at MinPageDelay.
	Delay time.Duration
}

// Archiver persists raw page bodies for offline replay.
type Archiver interface {
	SavePage(ctx context.Context, fetchedAt time.Time, page int, body []byte) (string, error)
}

// Result summarizes a finished crawl run.
type Result struct {
	Reason   StopReason
	Pages    int
	RowsSeen int
	Emitted  int
	Skipped  int
	Dropped  int
}

// state is the controller's explicit pagination state. It is created in Run
// and threaded through the loop; nothing about the crawl's progress lives on
// the Controller itself, so a Controller can run repeatedly.
type state struct {
	page         int
	maxPage      int
	maxCollected bool
}

// Controller paginates the registry source and pumps records through the
// pipeline stage.
type Controller struct {
	source   registry.Source
	stage    Stage
	archiver Archiver
	window   Window
	pageJump int
	delay    time.Duration
	pause    pauser
	clock    Clock
	logger   *zap.Logger
	runID    string
}

// New validates cfg and builds a Controller. Configuration faults are
// reported before any fetch happens. The archiver may be nil.
func New(
	cfg Config,
	source registry.Source,
	stage Stage,
	archiver Archiver,
	clock Clock,
	logger *zap.Logger,
) (*Controller, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: source is required", ErrInvalidConfiguration)
	}
	if stage == nil {
		return nil, fmt.Errorf("%w: pipeline stage is required", ErrInvalidConfiguration)
	}
	window, err := NewWindow(cfg.StartDate, cfg.EndDate, clock)
	if err != nil {
		return nil, err
	}
	if cfg.PageJump < 1 {
		return nil, fmt.Errorf("%w: page_jump %d must be >= 1", ErrInvalidConfiguration, cfg.PageJump)
	}
	delay := cfg.Delay
	if delay < MinPageDelay {
		delay = MinPageDelay
	}
	runID := uuid.NewString()
	return &Controller{
		source:   source,
		stage:    stage,
		archiver: archiver,
		window:   window,
		pageJump: cfg.PageJump,
		delay:    delay,
		pause:    &timerPauser{},
		clock:    clock,
		logger:   logger.With(zap.String("run_id", runID)),
		runID:    runID,
	}, nil
}

// RunID identifies this controller's crawl runs in logs.
func (c *Controller) RunID() string { return c.runID }

// Run executes the crawl until the window is exhausted, the page bound is
// reached, or a fatal fault occurs. Per-record faults are logged and
// counted, never fatal.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	res := Result{}

	if err := c.stage.Open(ctx); err != nil {
		return res, fmt.Errorf("open pipeline stage: %w", err)
	}
	defer func() {
		if err := c.stage.Close(); err != nil {
			c.logger.Warn("Failed to close pipeline stage", zap.Error(err))
		}
	}()

	c.logger.Info("Crawl starting",
		zap.Time("window_start", c.window.Start),
		zap.Time("window_end", c.window.End),
		zap.Int("page_jump", c.pageJump),
		zap.Duration("delay", c.delay),
	)

	st := state{page: c.pageJump}
	for {
		page, err := c.source.FetchPage(ctx, st.page)
		if err != nil {
			return res, fmt.Errorf("fetch page %d: %w", st.page, err)
		}
		res.Pages++
		metrics.PageFetched()
		c.archivePage(ctx, page)

		st, err = c.collectMaxPage(st, page)
		if err != nil {
			return res, err
		}

		stopped, err := c.processPage(ctx, page, &res)
		if err != nil {
			return res, err
		}
		if stopped {
			res.Reason = StopEndDateReached
			c.logStop(res)
			return res, nil
		}

		if st.page >= st.maxPage {
			res.Reason = StopMaxPageReached
			c.logStop(res)
			return res, nil
		}

		c.pause.Pause(ctx, c.delay)
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("crawl canceled: %w", err)
		}
		st.page++
	}
}

// collectMaxPage caches the maximum page count exactly once, from the first
// fetched page. A first page without the indicator is fatal: the crawl
// cannot bound itself.
func (c *Controller) collectMaxPage(st state, page registry.Page) (state, error) {
	if st.maxCollected {
		return st, nil
	}
	if page.MaxPage < 1 {
		return st, fmt.Errorf("page %d: %w", page.Number, registry.ErrMaxPageMissing)
	}
	st.maxPage = page.MaxPage
	st.maxCollected = true
	c.logger.Info("Collected max page count", zap.Int("max_page", st.maxPage))
	return st, nil
}

// processPage walks a page's rows in site order. It reports stopped=true
// when the stopping boundary was hit, in which case the rest of the page has
// been discarded: rows below it are older than anything the window still
// wants. A stage fault that is not record-scoped aborts the run.
func (c *Controller) processPage(ctx context.Context, page registry.Page, res *Result) (bool, error) {
	for _, raw := range page.Rows {
		res.RowsSeen++

		rec, err := normalize.Normalize(raw)
		if err != nil {
			res.Dropped++
			metrics.RecordDropped("normalize")
			c.logger.Warn("Dropping unparseable row",
				zap.Int("page", page.Number),
				zap.Error(err),
			)
			continue
		}

		if c.window.Terminates(rec.PublicationDate) {
			return true, nil
		}
		if c.window.TooRecent(rec.PublicationDate) {
			res.Skipped++
			metrics.RecordSkipped()
			continue
		}

		if err := c.stage.Process(ctx, rec); err != nil {
			if errors.Is(err, ErrRecordDropped) {
				res.Dropped++
				c.logger.Warn("Dropping record after stage fault",
					zap.Int("page", page.Number),
					zap.String("issuer", rec.Issuer),
					zap.Error(err),
				)
				continue
			}
			// Anything a stage does not mark record-scoped (a lost database
			// connection, a canceled context) aborts the run.
			return false, fmt.Errorf("pipeline stage: %w", err)
		}
		res.Emitted++
		metrics.RecordEmitted()
	}
	return false, nil
}

func (c *Controller) archivePage(ctx context.Context, page registry.Page) {
	if c.archiver == nil || len(page.Body) == 0 {
		return
	}
	path, err := c.archiver.SavePage(ctx, c.clock.Now(), page.Number, page.Body)
	if err != nil {
		c.logger.Warn("Failed to archive page",
			zap.Int("page", page.Number),
			zap.Error(err),
		)
		return
	}
	c.logger.Debug("Archived page", zap.Int("page", page.Number), zap.String("path", path))
}

func (c *Controller) logStop(res Result) {
	metrics.CrawlStopped(string(res.Reason))
	c.logger.Info("Crawl stopped",
		zap.String("reason", string(res.Reason)),
		zap.Int("pages", res.Pages),
		zap.Int("rows_seen", res.RowsSeen),
		zap.Int("emitted", res.Emitted),
		zap.Int("skipped", res.Skipped),
		zap.Int("dropped", res.Dropped),
	)
}
