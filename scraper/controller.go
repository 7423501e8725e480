// Package scraper drives the per-product retry state machine: fetch a
// rendered page, extract the per-kilogram price, and decide whether to stop,
// recover in-page, retry, or give up.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-price-sync/config"
	"github.com/aluiziolira/go-price-sync/extract"
	"github.com/aluiziolira/go-price-sync/fetch"
	"github.com/aluiziolira/go-price-sync/models"
)

// resultCacheSize bounds the duplicate-URL cache for one run.
const resultCacheSize = 256

// Controller resolves products strictly sequentially: one product is fully
// settled (succeeded or given up) before the next begins. It owns one fetch
// session per product and guarantees the session is closed on every exit
// path before the next product starts.
type Controller struct {
	cfg      *config.Config
	strategy fetch.Strategy
	Metrics  *Metrics

	cache      *lru.Cache[string, models.ProductResult]
	recoveries int
	sleep      func(time.Duration)
	now        func() time.Time
}

// NewController builds a controller around the given fetch strategy.
func NewController(cfg *config.Config, strategy fetch.Strategy) (*Controller, error) {
	cache, err := lru.New[string, models.ProductResult](resultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	return &Controller{
		cfg:      cfg,
		strategy: strategy,
		Metrics:  NewMetrics(),
		cache:    cache,
		sleep:    time.Sleep,
		now:      time.Now,
	}, nil
}

// Run resolves every reference in order and returns run totals plus exactly
// one result per reference. A URL listed more than once in the source table
// is fetched once; later rows reuse the cached result.
func (c *Controller) Run(ctx context.Context, refs []models.ProductReference) (*models.RunResult, []models.ProductResult) {
	run := &models.RunResult{
		StartTime:    c.now(),
		TotalCount:   len(refs),
		ErrorsByType: make(map[string]int),
	}
	c.recoveries = 0
	results := make([]models.ProductResult, 0, len(refs))

	for i, ref := range refs {
		// A canceled run must not settle further products: every fetch would
		// fail instantly and resolve them to the error marker, turning an
		// operator interrupt into an overwrite of good data downstream.
		if ctx.Err() != nil {
			slog.Warn("run canceled, stopping",
				slog.Int("processed", i),
				slog.Int("total", len(refs)),
			)
			break
		}

		if cached, ok := c.cache.Get(ref.URL); ok {
			run.CacheHits++
			cached.Reference = ref
			results = append(results, cached)
			c.tally(run, cached)
			continue
		}

		res := c.Resolve(ctx, ref, i)
		c.cache.Add(ref.URL, res)
		results = append(results, res)
		c.tally(run, res)
		run.AttemptCount += res.Attempts

		if i < len(refs)-1 && c.cfg.RowDelay > 0 {
			c.sleep(c.cfg.RowDelay)
		}
	}

	run.RecoveryCount = c.recoveries
	run.EndTime = c.now()
	return run, results
}

func (c *Controller) tally(run *models.RunResult, res models.ProductResult) {
	if res.Found {
		run.SuccessCount++
		return
	}
	run.ErrorCount++
	run.FailedURLs = append(run.FailedURLs, res.Reference.URL)
	if res.Error != "" {
		run.ErrorsByType[res.Error]++
	}
}

// Resolve settles one product within the attempt budget. position is the
// product's index in the batch, used to name the diagnostic screenshot.
func (c *Controller) Resolve(ctx context.Context, ref models.ProductReference, position int) models.ProductResult {
	result := models.ProductResult{Reference: ref}

	session, err := c.strategy.NewSession()
	if err != nil {
		slog.Error("session setup failed",
			slog.String("url", ref.URL),
			slog.Any("error", err),
		)
		result.Error = errorTypeLabel(fetch.TransportError{Err: err})
		result.UpdatedAt = c.now()
		c.Metrics.IncProduct("given_up")
		return result
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Debug("session close failed", slog.String("url", ref.URL), slog.Any("error", err))
		}
	}()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		slog.Info("attempt",
			slog.String("url", ref.URL),
			slog.Int("attempt", attempt),
			slog.Int("budget", c.cfg.MaxAttempts),
		)
		c.Metrics.IncAttempt()
		result.Attempts = attempt

		price, err := c.attempt(ctx, session, ref.URL)
		if err == nil {
			slog.Info("price found",
				slog.String("url", ref.URL),
				slog.Int("price", price),
				slog.Int("attempts", attempt),
			)
			result.Price = price
			result.Found = true
			result.UpdatedAt = c.now()
			c.Metrics.IncProduct("succeeded")
			return result
		}

		lastErr = err
		label := errorTypeLabel(err)
		c.Metrics.IncError(label)
		slog.Warn("attempt failed",
			slog.String("url", ref.URL),
			slog.Int("attempt", attempt),
			slog.String("category", label),
			slog.Any("error", err),
		)

		// A missing or unparsable price element is structural: the same
		// markup will come back on every re-fetch, so stop immediately.
		if isStructural(err) {
			break
		}
		// No point retrying once the run itself is canceled.
		if ctx.Err() != nil {
			break
		}
		if attempt < c.cfg.MaxAttempts && c.cfg.AttemptDelay > 0 {
			c.sleep(c.cfg.AttemptDelay)
		}
	}

	result.Error = errorTypeLabel(lastErr)
	result.UpdatedAt = c.now()
	c.Metrics.IncProduct("given_up")
	c.screenshot(session, ref, position)

	slog.Error("giving up on product",
		slog.String("url", ref.URL),
		slog.Int("attempts", result.Attempts),
		slog.String("category", result.Error),
	)
	return result
}

// attempt performs one fetch+extract cycle. When the fetch times out and the
// session can recover in-page, the retry control is clicked and the fetch is
// re-attempted on the same session; those recovery cycles are bounded but do
// not consume the attempt budget.
func (c *Controller) attempt(ctx context.Context, session fetch.Session, url string) (int, error) {
	page, err := session.Fetch(ctx, url)

	for recoveries := 0; err != nil && isTimeout(err) && recoveries < c.cfg.MaxRecoveries; recoveries++ {
		recoverer, ok := session.(fetch.Recoverer)
		if !ok || !recoverer.Recover(ctx) {
			break
		}
		c.recoveries++
		c.Metrics.IncRecovery()
		slog.Info("retry control clicked, re-waiting on the same session", slog.String("url", url))
		if c.cfg.RecoveryDelay > 0 {
			c.sleep(c.cfg.RecoveryDelay)
		}
		page, err = session.Fetch(ctx, url)
	}
	if err != nil {
		return 0, err
	}

	c.Metrics.ObserveFetch(page.Elapsed)
	return extract.PricePerKilo(page.HTML, c.cfg.MarkerText)
}

// screenshot writes the diagnostic artifact on terminal failure when the
// session supports it. Failures here are logged and never mask the
// extraction failure.
func (c *Controller) screenshot(session fetch.Session, ref models.ProductReference, position int) {
	if c.cfg.ScreenshotDir == "" {
		return
	}
	shooter, ok := session.(fetch.Screenshotter)
	if !ok {
		return
	}

	if err := os.MkdirAll(c.cfg.ScreenshotDir, 0o755); err != nil {
		slog.Warn("screenshot dir", slog.Any("error", err))
		return
	}
	path := filepath.Join(c.cfg.ScreenshotDir, fmt.Sprintf("product-%03d.png", position+1))
	if err := shooter.Screenshot(path); err != nil {
		slog.Warn("screenshot failed",
			slog.String("url", ref.URL),
			slog.String("path", path),
			slog.Any("error", err),
		)
		return
	}
	slog.Info("screenshot saved", slog.String("path", path))
}
