package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"court_spider/internal/artifacts"
	"court_spider/internal/models"
	"court_spider/internal/outcome"
)

// Store is the persistence surface the loop needs. The Mongo implementation
// guards against demoting terminal markers; fakes in tests mirror that.
type Store interface {
	IsProcessed(ctx context.Context, unit models.QueryUnit) (bool, error)
	MarkProcessed(ctx context.Context, unit models.QueryUnit, status, detail string) error
	UpsertJudgement(ctx context.Context, rec models.Judgement) error
	InsertJudgement(ctx context.Context, rec models.Judgement) error
}

// Solver turns a CAPTCHA image into a validated solution string.
type Solver interface {
	Solve(ctx context.Context, image []byte) (string, error)
}

// Site is one court portal's capability set: everything the loop cannot
// know generically. Implementations own the browser session and the
// outcome rule priority list.
type Site interface {
	Name() string
	Units() []models.QueryUnit
	// AppendOnly sites persist with plain inserts (nonce ids, no dedup).
	AppendOnly() bool
	FillForm(ctx context.Context, unit models.QueryUnit) error
	CaptchaImage(ctx context.Context) ([]byte, error)
	Submit(ctx context.Context, solution string) error
	WaitOutcome(ctx context.Context) (outcome.State, string, error)
	// Screenshot captures the current viewport for debug artifacts.
	Screenshot(ctx context.Context) ([]byte, error)
	Extract(html string, unit models.QueryUnit) ([]models.Judgement, error)
	// Reset returns the session to the search form between units.
	Reset(ctx context.Context) error
}

type Config struct {
	MaxAttempts     int
	RetryDelay      time.Duration
	PolitenessDelay time.Duration
}

// Engine drives one Site through its QueryUnits sequentially, skipping
// units that already carry a processed marker.
type Engine struct {
	cfg    Config
	store  Store
	solver Solver
	sink   *artifacts.Sink
	log    *zap.Logger
}

func New(cfg Config, store Store, solver Solver, sink *artifacts.Sink, log *zap.Logger) *Engine {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	return &Engine{cfg: cfg, store: store, solver: solver, sink: sink, log: log}
}

// Run processes every unit of the site. Unit-level failures never abort
// the run; only context cancellation does.
func (e *Engine) Run(ctx context.Context, site Site) error {
	units := site.Units()
	e.log.Info("starting scrape loop",
		zap.String("site", site.Name()),
		zap.Int("units", len(units)))

	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := e.store.IsProcessed(ctx, unit)
		if err != nil {
			return fmt.Errorf("processed check for %s: %w", unit.Key, err)
		}
		if done {
			e.log.Info("unit already processed, skipping",
				zap.String("site", site.Name()),
				zap.String("unit", unit.Key))
			continue
		}

		if err := e.processUnit(ctx, site, unit); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.log.Error("unit processing failed",
				zap.String("site", site.Name()),
				zap.String("unit", unit.Key),
				zap.Error(err))
		}

		if err := site.Reset(ctx); err != nil {
			e.log.Warn("session reset failed",
				zap.String("site", site.Name()),
				zap.Error(err))
		}
		if err := sleepCtx(ctx, e.cfg.PolitenessDelay); err != nil {
			return err
		}
	}

	e.log.Info("scrape loop finished", zap.String("site", site.Name()))
	return nil
}

func (e *Engine) processUnit(ctx context.Context, site Site, unit models.QueryUnit) error {
	log := e.log.With(zap.String("site", site.Name()), zap.String("unit", unit.Key))

	formDirty := true
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Info("attempt", zap.Int("n", attempt), zap.Int("max", e.cfg.MaxAttempts))

		if formDirty {
			if err := site.FillForm(ctx, unit); err != nil {
				log.Warn("form fill failed", zap.Int("attempt", attempt), zap.Error(err))
				if err := sleepCtx(ctx, e.cfg.RetryDelay); err != nil {
					return err
				}
				continue
			}
			formDirty = false
		}

		image, err := site.CaptchaImage(ctx)
		if err != nil {
			log.Warn("captcha capture failed", zap.Int("attempt", attempt), zap.Error(err))
			formDirty = true
			if err := sleepCtx(ctx, e.cfg.RetryDelay); err != nil {
				return err
			}
			continue
		}

		solution, err := e.solver.Solve(ctx, image)
		if err != nil {
			// Solve failures keep the filled form; only a fresh CAPTCHA
			// is needed on the next attempt.
			log.Warn("captcha solve failed", zap.Int("attempt", attempt), zap.Error(err))
			if err := sleepCtx(ctx, e.cfg.RetryDelay); err != nil {
				return err
			}
			continue
		}

		if err := site.Submit(ctx, solution); err != nil {
			log.Warn("submit failed", zap.Int("attempt", attempt), zap.Error(err))
			formDirty = true
			if err := sleepCtx(ctx, e.cfg.RetryDelay); err != nil {
				return err
			}
			continue
		}

		state, html, err := site.WaitOutcome(ctx)
		if err != nil {
			log.Warn("outcome wait failed", zap.Int("attempt", attempt), zap.Error(err))
			formDirty = true
			if err := sleepCtx(ctx, e.cfg.RetryDelay); err != nil {
				return err
			}
			continue
		}
		log.Info("page state resolved", zap.Stringer("state", state), zap.Int("attempt", attempt))

		switch state {
		case outcome.InvalidCaptcha:
			// Dates survive a rejected CAPTCHA; retry without refilling.
			if err := sleepCtx(ctx, e.cfg.RetryDelay); err != nil {
				return err
			}
			continue

		case outcome.NoRecords:
			return e.store.MarkProcessed(ctx, unit, models.StatusNoRecords, "")

		case outcome.OverLimit:
			log.Warn("result count exceeds the portal cap, cannot scrape fully")
			return e.store.MarkProcessed(ctx, unit, models.StatusOverLimit, "")

		case outcome.ResultsFound:
			saved, err := e.extractAndPersist(ctx, site, unit, html, log)
			if err != nil {
				return err
			}
			detail := fmt.Sprintf("parsed %d records", saved)
			return e.store.MarkProcessed(ctx, unit, models.StatusSuccess, detail)

		default: // Unknown: best-effort fallback parse before burning the attempt.
			saved, err := e.extractAndPersist(ctx, site, unit, html, log)
			if err == nil && saved > 0 {
				log.Info("fallback parse recovered records", zap.Int("records", saved))
				detail := fmt.Sprintf("parsed %d records via fallback", saved)
				return e.store.MarkProcessed(ctx, unit, models.StatusSuccess, detail)
			}
			log.Warn("no known page state and fallback parse empty", zap.Int("attempt", attempt))
			if e.sink != nil {
				e.sink.SavePage(unit.Key, html)
				if png, err := site.Screenshot(ctx); err != nil {
					log.Warn("screenshot capture failed", zap.Error(err))
				} else {
					e.sink.SaveScreenshot(unit.Key, png)
				}
			}
			formDirty = true
			if err := sleepCtx(ctx, e.cfg.RetryDelay); err != nil {
				return err
			}
		}
	}

	// The store refuses to demote an already-recorded terminal status.
	detail := fmt.Sprintf("failed after %d attempts", e.cfg.MaxAttempts)
	return e.store.MarkProcessed(ctx, unit, models.StatusError, detail)
}

func (e *Engine) extractAndPersist(ctx context.Context, site Site, unit models.QueryUnit, html string, log *zap.Logger) (int, error) {
	records, err := site.Extract(html, unit)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", unit.Key, err)
	}

	saved := 0
	for _, rec := range records {
		var err error
		if site.AppendOnly() {
			err = e.store.InsertJudgement(ctx, rec)
		} else {
			err = e.store.UpsertJudgement(ctx, rec)
		}
		if err != nil {
			// Per-record write failures never abort the batch.
			log.Error("judgement save failed", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		saved++
	}
	log.Info("records persisted", zap.Int("saved", saved), zap.Int("parsed", len(records)))
	return saved, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
