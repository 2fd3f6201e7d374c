package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"court_spider/internal/artifacts"
	"court_spider/internal/browser"
	"court_spider/internal/captcha"
	"court_spider/internal/config"
	"court_spider/internal/db"
	"court_spider/internal/engine"
	"court_spider/internal/landmark"
	"court_spider/internal/sites"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := buildLogger(cfg.LogDev)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil && err != context.Canceled {
		logger.Fatal("run failed", zap.Error(err))
	}
}

func buildLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown signal received", zap.Stringer("signal", sig))
		cancel()
	}()

	store, err := db.NewMongoStore(cfg.DB, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	anySite := cfg.Sites.Rajasthan.Enabled || cfg.Sites.SupremeCourt.Enabled || cfg.Sites.ECourts.Enabled
	if anySite {
		if err := runSites(ctx, cfg, store, logger); err != nil {
			return err
		}
	}

	if cfg.Landmark.Enabled {
		crawler, err := landmark.NewCrawler(cfg.Landmark, store, logger)
		if err != nil {
			return err
		}
		if err := crawler.Run(ctx); err != nil {
			return err
		}
	}

	return nil
}

func runSites(ctx context.Context, cfg *config.Config, store *db.MongoStore, logger *zap.Logger) error {
	sink, err := artifacts.NewSink(cfg.Artifacts.Dir, logger)
	if err != nil {
		return err
	}
	pool, err := captcha.NewKeyPool(cfg.Gemini.APIKeys)
	if err != nil {
		return err
	}
	solver := captcha.NewSolver(cfg.Gemini, pool, sink, logger)

	session, err := browser.NewSession(cfg.Browser, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	timing := sites.Timing{
		OutcomeTimeout: cfg.OutcomeTimeout(),
		PollInterval:   cfg.PollInterval(),
	}
	engCfg := engine.Config{
		MaxAttempts:     cfg.Loop.MaxAttempts,
		RetryDelay:      cfg.PollInterval() * 4,
		PolitenessDelay: cfg.PolitenessDelay(),
	}

	type target struct {
		site engine.Site
		spec captcha.Spec
	}
	var targets []target
	if cfg.Sites.Rajasthan.Enabled {
		targets = append(targets, target{
			site: sites.NewRajasthan(cfg.Sites.Rajasthan, session, timing, logger),
			spec: sites.RajasthanCaptchaSpec,
		})
	}
	if cfg.Sites.SupremeCourt.Enabled {
		targets = append(targets, target{
			site: sites.NewSupremeCourt(cfg.Sites.SupremeCourt, session, timing, logger),
			spec: sites.SupremeCourtCaptchaSpec,
		})
	}
	if cfg.Sites.ECourts.Enabled {
		targets = append(targets, target{
			site: sites.NewECourts(cfg.Sites.ECourts, session, timing, logger),
			spec: sites.ECourtsCaptchaSpec,
		})
	}

	for _, t := range targets {
		bound := captcha.Bound{Solver: solver, Spec: t.spec}
		eng := engine.New(engCfg, store, bound, sink, logger)
		if err := eng.Run(ctx, t.site); err != nil {
			return err
		}
	}
	return nil
}
