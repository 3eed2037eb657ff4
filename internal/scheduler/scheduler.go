// Package scheduler manages the two background goroutines of the yield engine:
//  1. scrapeLoop – runs competitor scraping sessions on the configured cadence.
//  2. expiryLoop – sweeps stale pending proposals into the expired state.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/meridian-travel/yield/internal/config"
	"github.com/meridian-travel/yield/internal/domain"
	"github.com/meridian-travel/yield/internal/service"
)

// Scheduler runs the background loops.  Call Start(ctx) once from main();
// cancel the context to shut it down gracefully.
type Scheduler struct {
	scraperSvc *service.ScraperService
	markupSvc  *service.MarkupService
	cfg        *config.Config
	logger     *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	scraperSvc *service.ScraperService,
	markupSvc *service.MarkupService,
	cfg *config.Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		scraperSvc: scraperSvc,
		markupSvc:  markupSvc,
		cfg:        cfg,
		logger:     logger,
	}
}

// Start launches the background goroutines.  It returns immediately; both
// loops run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.scrapeLoop(ctx)
	go s.expiryLoop(ctx)
	s.logger.Info("scheduler started")
}

// ──────────────────────────────────────────────────────────────────────────────
// scrapeLoop
// ──────────────────────────────────────────────────────────────────────────────

// scrapeLoop runs a scheduled scraping session for every configured
// destination on the cadence set in the active yield settings.  The cadence is
// re-read before each session, so a settings change takes effect on the next
// cycle without a restart.
func (s *Scheduler) scrapeLoop(ctx context.Context) {
	defer s.recoverAndLog("scrapeLoop")

	for {
		interval := s.scrapeInterval(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("scrapeLoop: shutting down")
			return
		case <-time.After(interval):
		}

		settings, err := s.markupSvc.GetYieldSettings(ctx)
		if err != nil {
			s.logger.Error("scrapeLoop: settings read failed", "err", err)
			continue
		}
		if !settings.ScrapingEnabled {
			s.logger.Info("scrapeLoop: scraping disabled, skipping cycle")
			continue
		}

		s.runScheduledSessions(ctx)
	}
}

// runScheduledSessions scrapes every configured destination sequentially.
func (s *Scheduler) runScheduledSessions(ctx context.Context) {
	if len(s.cfg.Scraper.Destinations) == 0 {
		s.logger.Warn("scrapeLoop: no destinations configured, nothing to scrape")
		return
	}

	checkIn := time.Now().UTC().AddDate(0, 0, s.cfg.Scraper.LeadDays).Truncate(24 * time.Hour)
	checkOut := checkIn.AddDate(0, 0, s.cfg.Scraper.StayNights)

	for _, destination := range s.cfg.Scraper.Destinations {
		session, err := s.scraperSvc.ScrapeAllCompetitors(ctx, service.ScrapeRequest{
			Destination: destination,
			CheckIn:     checkIn,
			CheckOut:    checkOut,
			Adults:      2,
			TriggeredBy: "scheduler",
			SessionType: domain.SessionScheduled,
		})
		if err != nil {
			s.logger.Error("scrapeLoop: session failed", "destination", destination, "err", err)
			continue
		}
		s.logger.Info("scheduled scraping session finished",
			"destination", destination, "session", session.ID,
			"prices", session.TotalPricesScraped, "failed", session.FailedScrapes)
	}
}

// scrapeInterval maps the configured scraping frequency to a wait duration.
func (s *Scheduler) scrapeInterval(ctx context.Context) time.Duration {
	settings, err := s.markupSvc.GetYieldSettings(ctx)
	if err != nil {
		s.logger.Warn("scrapeLoop: settings read failed, using daily cadence", "err", err)
		return 24 * time.Hour
	}

	switch settings.ScrapingFrequency {
	case "hourly":
		return time.Hour
	case "weekly":
		return 7 * 24 * time.Hour
	default: // "daily"
		return 24 * time.Hour
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// expiryLoop
// ──────────────────────────────────────────────────────────────────────────────

// expiryLoop sweeps overdue pending proposals on a fixed interval.
func (s *Scheduler) expiryLoop(ctx context.Context) {
	defer s.recoverAndLog("expiryLoop")

	ticker := time.NewTicker(s.cfg.Scheduler.ExpirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiryLoop: shutting down")
			return
		case <-ticker.C:
			if _, err := s.markupSvc.ExpireOldProposals(ctx); err != nil {
				s.logger.Error("expiryLoop: ExpireOldProposals", "err", err)
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine to catch unexpected panics,
// log them, and allow the rest of the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
