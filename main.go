package main

import (
	"context"
	"errors"
	"os"

	"github.com/google/uuid"

	"restaurant-collector/config"
	"restaurant-collector/metrics"
	"restaurant-collector/pipeline"
	"restaurant-collector/scraper"
	"restaurant-collector/scraper/opendata"
	"restaurant-collector/scraper/places"
	"restaurant-collector/services"
	"restaurant-collector/storage"
	"restaurant-collector/utils"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, warnings := config.ParseArgs(args)
	cfg := config.Load(nil)
	cfg.DryRun = opts.DryRun

	runID := uuid.NewString()
	logger := utils.NewLoggerWithOptions(utils.LoggerOptions{Level: cfg.LogLevel, Format: cfg.LogFormat}).
		With("run_id", runID)
	logger.SetVerbose(opts.Verbose)

	for _, w := range warnings {
		logger.Warn("[config] %s", w)
	}

	if err := cfg.Validate(); err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			for _, p := range cfgErr.Problems {
				logger.Error("[config] %s (check your .env file)", p)
			}
		} else {
			logger.Error("[config] %v", err)
		}
		return 1
	}

	logger.Info("=== Restaurant collector starting ===")
	if opts.DryRun {
		logger.Info("[DRY RUN] nothing will be written to the store")
	}
	if opts.Update {
		logger.Info("[UPDATE] matching stored restaurants will be merged")
	}
	if opts.Category != "" {
		logger.Info("[CATEGORY] collecting %s only", opts.Category)
	}
	logger.Info("[LIMIT] at most %d per category", opts.Limit)
	if !opts.SkipSerp && !cfg.HasSearchKey() {
		logger.Warn("SERPAPI_KEY is not set, running as with --skip-serp")
		opts.SkipSerp = true
	}
	if !opts.SkipSerp {
		logger.Info("[SERP-BUDGET] at most %d searches", opts.SerpBudget)
	}

	ctx := context.Background()
	runMetrics := metrics.NewRun(runID)

	kcisaLimiter := utils.NewRateLimiter(opendata.SourceName, cfg.KCISAMinInterval, cfg.KCISAMaxCalls)
	deps := pipeline.Deps{
		Source:   opendata.New(cfg.KCISAURL, cfg.KCISAKey, kcisaLimiter, newFetcher(opendata.SourceName, cfg, logger, runMetrics)),
		Reporter: services.NewReporter(os.Stdout),
		Logger:   logger,
		NoColor:  cfg.LogFormat == "json" || os.Getenv("NO_COLOR") != "",
	}

	var serpLimiter *utils.RateLimiter
	if !opts.SkipSerp {
		serpLimiter = utils.NewRateLimiter(places.SourceName, cfg.SerpMinInterval, 0)
		var placeOpts []places.Option
		if cfg.SearchCacheDir != "" {
			cache, err := storage.OpenSearchCache(cfg.SearchCacheDir, cfg.SearchCacheTTL)
			if err != nil {
				logger.Warn("[cache] %v, searching without a cache", err)
			} else {
				defer cache.Close()
				placeOpts = append(placeOpts, places.WithCache(cache))
			}
		}
		deps.Places = places.New(cfg.SerpAPIURL, cfg.SerpAPIKey, serpLimiter,
			newFetcher(places.SourceName, cfg, logger, runMetrics), logger, placeOpts...)
	}

	if !opts.DryRun {
		store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
		} else {
			defer store.Close()
			deps.Store = store
		}
	}

	if cfg.CSVOutputPath != "" {
		w, err := storage.NewCSVWriter(cfg.CSVOutputPath)
		if err != nil {
			logger.Warn("[export] %v", err)
		} else {
			defer w.Close()
			deps.Export = w
		}
	}

	res, err := pipeline.New(deps, opts, cfg.Area, runID).Run(ctx)
	if err != nil {
		logger.Warn("run ended early: %v", err)
	}

	logger.Info("[limits] %s: %d calls", kcisaLimiter.Name(), kcisaLimiter.Calls())
	if serpLimiter != nil {
		logger.Info("[limits] %s: %d calls", serpLimiter.Name(), serpLimiter.Calls())
	}

	if cfg.MetricsTextfile != "" {
		runMetrics.Record(res.Stats)
		if err := runMetrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Warn("[metrics] %v", err)
		}
	}
	return 0
}

func newFetcher(source string, cfg *config.Config, logger *utils.Logger, obs scraper.Observer) *scraper.Fetcher {
	f := scraper.NewFetcher(source, logger)
	f.Timeout = cfg.HTTPTimeout
	f.Retry.MaxAttempts = cfg.MaxRetries
	f.Observer = obs
	return f
}
