// Package main is the entry point for the meridian yield engine API server.
// It wires together the pricing services and starts the HTTP server alongside
// the background scheduler.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/meridian-travel/yield/internal/api"
	"github.com/meridian-travel/yield/internal/config"
	"github.com/meridian-travel/yield/internal/provider"
	"github.com/meridian-travel/yield/internal/repository"
	"github.com/meridian-travel/yield/internal/scheduler"
	"github.com/meridian-travel/yield/internal/scraper"
	"github.com/meridian-travel/yield/internal/service"
)

func main() {
	// ── 1. Logger ─────────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting meridian yield engine", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// ── 2. Database ───────────────────────────────────────────────────────────
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err = db.Ping(); err != nil {
		logger.Error("database ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// ── 3. Repositories ───────────────────────────────────────────────────────
	matchRepo := repository.NewHotelMatchRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	priceRepo := repository.NewCompetitorPriceRepository(db)
	proposalRepo := repository.NewProposalRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	intelligenceRepo := repository.NewIntelligenceRepository(db)

	// ── 4. Providers ──────────────────────────────────────────────────────────
	providers := []service.Provider{
		provider.NewSolvex(cfg.Provider.SolvexURL, cfg.Provider.FetchTimeout),
		provider.NewTCT(cfg.Provider.TCTURL, cfg.Provider.FetchTimeout),
		provider.NewOpenGreece(cfg.Provider.OpenGreeceURL, cfg.Provider.FetchTimeout),
	}

	// ── 5. Services ───────────────────────────────────────────────────────────
	matcherSvc := service.NewMatcherService(matchRepo, logger)

	extractor := scraper.NewChromeExtractor(cfg.Scraper.Headless, cfg.Scraper.NavTimeout, logger)
	scraperSvc := service.NewScraperService(
		sessionRepo, priceRepo, extractor, service.DefaultTargets(),
		cfg.Scraper.MinDelay, cfg.Scraper.MaxDelay, logger)

	markupSvc := service.NewMarkupService(proposalRepo, historyRepo, settingsRepo, logger)

	aggregatorSvc := service.NewAggregatorService(
		providers, priceRepo, intelligenceRepo, markupSvc, logger)

	// ── 6. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 7. Scheduler ──────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scraperSvc, markupSvc, cfg, logger)
	sched.Start(ctx)

	// ── 8. HTTP Router ────────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		AggregatorSvc: aggregatorSvc,
		ScraperSvc:    scraperSvc,
		MatcherSvc:    matcherSvc,
		MarkupSvc:     markupSvc,
		Cfg:           cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 9. Start server ───────────────────────────────────────────────────────
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop() // trigger graceful shutdown
		}
	}()

	// ── 10. Graceful shutdown ─────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}

	db.Close()
	logger.Info("server stopped cleanly")
}
