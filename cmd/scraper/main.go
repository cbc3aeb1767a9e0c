package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"gigleads/internal/archive"
	"gigleads/internal/browser"
	"gigleads/internal/config"
	"gigleads/internal/scraper/captcha"
	"gigleads/internal/scraper/craigslist"
	"gigleads/internal/scraper/email"
	"gigleads/internal/sink"
	"gigleads/pkg/utils"
)

func main() {
	var (
		configPath  = flag.String("config", "configs/config.yaml", "path to config file")
		locationURL = flag.String("location", "", "marketplace location base URL (required)")
		categories  = flag.String("categories", "gigs", "comma-separated categories to scrape")
		keywords    = flag.String("keywords", "", "comma-separated search keywords")
		maxPages    = flag.Int("max-pages", 3, "max result pages per category")
		withDetails = flag.Bool("details", false, "fetch detail pages for every listing")
		withEmails  = flag.Bool("emails", false, "extract poster emails (may incur captcha cost)")
	)
	flag.Parse()

	if *locationURL == "" {
		log.Fatal("-location is required, e.g. https://sfbay.craigslist.org")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg)
	runID := utils.GenerateRunID()
	logger.WithField("run_id", runID).Info("Starting gigleads scraper")

	// Map SIGINT/SIGTERM to cooperative cancellation; the scraper returns
	// whatever it has collected so far.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := browser.NewManager(cfg, logger)
	if err := manager.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to launch browser")
	}
	defer manager.Cleanup()

	leadSink, err := buildSink(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize lead sink")
	}
	defer leadSink.Close()

	solver := captcha.NewSolver(cfg, logger)
	extractor := email.NewExtractor(cfg, manager, solver, logger)

	scraper := craigslist.New(cfg, manager, extractor, logger).WithSink(leadSink)

	if cfg.Storage.Redis.URL != "" {
		seen, err := sink.NewSeenCache(ctx, cfg.Storage.Redis.URL, cfg.Storage.Redis.SeenTTL, logger)
		if err != nil {
			logger.WithError(err).Warn("Seen cache unavailable; continuing without dedupe")
		} else {
			defer seen.Close()
			scraper = scraper.WithSeenCache(seen)
		}
	}

	if cfg.Archive.Enabled {
		archiver, err := archive.NewSpacesArchiver(cfg, logger)
		if err != nil {
			logger.WithError(err).Warn("HTML archiver unavailable; continuing without archive")
		} else {
			scraper = scraper.WithArchiver(archiver)
		}
	}

	catList := splitCSV(*categories)
	kwList := splitCSV(*keywords)

	if *withDetails || *withEmails {
		details, err := scraper.ScrapeLocationWithEmails(ctx, *locationURL, catList, kwList, *maxPages, craigslist.EnrichmentOptions{
			ExtractContactDetails: *withDetails,
			ExtractEmails:         *withEmails,
		})
		if err != nil {
			logger.WithError(err).Fatal("Scrape run failed")
		}
		logger.WithField("leads", len(details)).Info("Scrape run completed")
	} else {
		summaries, err := scraper.ScrapeLocation(ctx, *locationURL, catList, kwList, *maxPages)
		if err != nil {
			logger.WithError(err).Fatal("Scrape run failed")
		}
		logger.WithField("leads", len(summaries)).Info("Scrape run completed")
	}

	stats := scraper.Stats().Snapshot()
	stats["captcha_attempts"] = solver.Costs().Attempts()
	stats["captcha_solved"] = solver.Costs().Solved()
	stats["captcha_spend_usd"] = solver.Costs().Total()
	stats["run_id"] = runID
	logger.WithFields(logrus.Fields(stats)).Info("Run statistics")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// buildSink prefers Postgres when configured and falls back to the JSONL
// file sink.
func buildSink(ctx context.Context, cfg *config.Config) (sink.LeadSink, error) {
	if cfg.Storage.PostgresDSN != "" {
		return sink.NewPostgresSink(ctx, cfg.Storage.PostgresDSN)
	}
	return sink.NewJSONLSink(cfg.Storage.OutputFile)
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
