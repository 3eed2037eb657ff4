package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/meridian-travel/yield/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Collaborator contracts
// ──────────────────────────────────────────────────────────────────────────────

// Extractor is the browser-automation collaborator.  Implementations own the
// anti-detection configuration (user-agent rotation, stealth flags); the
// scraper only sequences calls and handles failures.
type Extractor interface {
	Extract(ctx context.Context, target domain.ScrapingTarget, req ScrapeRequest) ([]domain.CompetitorPrice, error)
}

// SessionStore is the persistence contract for scraping sessions.
// Implemented by repository.SessionRepository.
type SessionStore interface {
	Create(ctx context.Context, s *domain.ScrapingSession) error
	Complete(ctx context.Context, s *domain.ScrapingSession) error
	List(ctx context.Context, limit int) ([]*domain.ScrapingSession, error)
}

// PriceSink is the persistence contract for competitor price observations.
// Implemented by repository.CompetitorPriceRepository.
type PriceSink interface {
	Insert(ctx context.Context, p *domain.CompetitorPrice) error
	GetLatest(ctx context.Context, destination string, since time.Time) ([]domain.CompetitorPrice, error)
}

// ScrapeRequest carries the search parameters for one scraping session.
type ScrapeRequest struct {
	Destination string    `json:"destination"`
	CheckIn     time.Time `json:"check_in"`
	CheckOut    time.Time `json:"check_out"`
	Adults      int       `json:"adults"`
	Children    int       `json:"children"`
	TriggeredBy string    `json:"triggered_by,omitempty"`
	SessionType domain.SessionType
}

// ──────────────────────────────────────────────────────────────────────────────
// Target registry
// ──────────────────────────────────────────────────────────────────────────────

// DefaultTargets returns the fixed competitor registry with per-site selector
// hints.  Disabled targets stay in the registry so sessions can report them.
func DefaultTargets() []domain.ScrapingTarget {
	return []domain.ScrapingTarget{
		{
			Name:    "travelland",
			URL:     "https://www.travelland.rs/",
			Enabled: true,
			Selectors: domain.TargetSelectors{
				DestinationInput: `input[name="destination"]`,
				CheckInInput:     `input[name="checkin"]`,
				CheckOutInput:    `input[name="checkout"]`,
				AdultsInput:      `input[name="adults"]`,
				SubmitButton:     `button[type="submit"]`,
				ResultCard:       `.hotel-card, .result-item`,
				HotelName:        `.hotel-name, .hotel-title, h2.title`,
				Price:            `.price, .hotel-price, .total-price`,
				Availability:     `.availability, .status`,
				MealPlan:         `.meal-plan, .board-type`,
				RoomType:         `.room-type, .accommodation-type`,
			},
		},
		{
			Name:    "bigblue",
			URL:     "https://bigblue.rs/sr",
			Enabled: true,
			Selectors: domain.TargetSelectors{
				DestinationInput: `input[name="destination"]`,
				CheckInInput:     `input[name="date_from"]`,
				CheckOutInput:    `input[name="date_to"]`,
				AdultsInput:      `select[name="adults"]`,
				SubmitButton:     `button.search-submit, button[type="submit"]`,
				ResultCard:       `.property-card, .offer`,
				HotelName:        `.hotel-name, .property-name`,
				Price:            `.price, .amount`,
				Availability:     `.available, .status`,
				MealPlan:         `.meal, .board`,
				RoomType:         `.room, .type`,
			},
		},
		{
			Name:    "filiptravel",
			URL:     "https://www.filiptravel.rs/sr",
			Enabled: true,
			Selectors: domain.TargetSelectors{
				DestinationInput: `input[name="q"], input[name="destination"]`,
				CheckInInput:     `input[name="checkin"]`,
				CheckOutInput:    `input[name="checkout"]`,
				AdultsInput:      `input[name="adults"]`,
				SubmitButton:     `button[type="submit"]`,
				ResultCard:       `.offer-card, article`,
				HotelName:        `.hotel-title, h3`,
				Price:            `.price-value, .cost`,
				Availability:     `.availability`,
				MealPlan:         `.meal-plan`,
				RoomType:         `.room-category`,
			},
		},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// ScraperService
// ──────────────────────────────────────────────────────────────────────────────

// ScraperService orchestrates bounded scraping sessions across the competitor
// registry.  Targets are scraped sequentially with a randomized pause between
// them — a rate-limiting device against detection, not a bottleneck.
type ScraperService struct {
	sessions  SessionStore
	prices    PriceSink
	extractor Extractor
	targets   []domain.ScrapingTarget
	logger    *slog.Logger

	minDelay time.Duration
	maxDelay time.Duration
	sleep    func(time.Duration) // injectable for tests
}

// NewScraperService creates a ScraperService over the given target registry.
func NewScraperService(
	sessions SessionStore,
	prices PriceSink,
	extractor Extractor,
	targets []domain.ScrapingTarget,
	minDelay, maxDelay time.Duration,
	logger *slog.Logger,
) *ScraperService {
	return &ScraperService{
		sessions:  sessions,
		prices:    prices,
		extractor: extractor,
		targets:   targets,
		logger:    logger,
		minDelay:  minDelay,
		maxDelay:  maxDelay,
		sleep:     time.Sleep,
	}
}

// Targets returns the configured registry.
func (s *ScraperService) Targets() []domain.ScrapingTarget {
	return s.targets
}

// ScrapeAllCompetitors runs one bounded scraping session over every enabled
// target.  A failing target is recorded in the session's error list and never
// aborts the run; a session with zero successful targets still completes
// normally with total 0.
func (s *ScraperService) ScrapeAllCompetitors(ctx context.Context, req ScrapeRequest) (*domain.ScrapingSession, error) {
	enabled := make([]domain.ScrapingTarget, 0, len(s.targets))
	names := make([]string, 0, len(s.targets))
	for _, t := range s.targets {
		if t.Enabled {
			enabled = append(enabled, t)
			names = append(names, t.Name)
		}
	}
	if len(enabled) == 0 {
		return nil, domain.ErrNoTargetsEnabled
	}

	sessionType := req.SessionType
	if !sessionType.IsValid() {
		sessionType = domain.SessionManual
	}

	now := time.Now().UTC()
	session := &domain.ScrapingSession{
		ID:                uuid.New(),
		SessionType:       sessionType,
		TargetCompetitors: pq.StringArray(names),
		Status:            domain.SessionRunning,
		StartedAt:         now,
		Errors:            domain.ScrapeErrorList{},
		TriggeredBy:       req.TriggeredBy,
		CreatedAt:         now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("scraper.ScrapeAllCompetitors create session: %w", err)
	}

	s.logger.Info("scraping session started",
		"session", session.ID, "type", sessionType,
		"targets", len(enabled), "destination", req.Destination)

	for i, target := range enabled {
		prices, err := s.scrapeTarget(ctx, target, req, session.ID)
		// Count whatever was persisted even when the target later failed, so
		// total_prices_scraped always equals the session's persisted rows.
		session.TotalPricesScraped += len(prices)
		if err != nil {
			// Isolate the failure: record it and move to the next target.
			s.logger.Error("target scrape failed",
				"session", session.ID, "competitor", target.Name, "err", err)
			session.Errors = append(session.Errors, domain.ScrapeError{
				Competitor: target.Name,
				Error:      err.Error(),
				Timestamp:  time.Now().UTC(),
			})
			session.FailedScrapes++
		} else {
			s.logger.Info("target scraped",
				"session", session.ID, "competitor", target.Name, "prices", len(prices))
		}

		// Randomized pacing between targets to avoid detection.
		if i < len(enabled)-1 {
			s.sleep(s.randomDelay())
		}
	}

	completed := time.Now().UTC()
	duration := int(completed.Sub(session.StartedAt).Seconds())
	session.Status = domain.SessionCompleted
	session.CompletedAt = &completed
	session.DurationSeconds = &duration
	session.SuccessfulScrapes = session.TotalPricesScraped

	if err := s.sessions.Complete(ctx, session); err != nil {
		return nil, fmt.Errorf("scraper.ScrapeAllCompetitors complete session: %w", err)
	}

	s.logger.Info("scraping session completed",
		"session", session.ID, "total", session.TotalPricesScraped,
		"failed", session.FailedScrapes, "duration_s", duration)

	return session, nil
}

// scrapeTarget extracts one competitor and persists each resulting observation.
func (s *ScraperService) scrapeTarget(ctx context.Context, target domain.ScrapingTarget, req ScrapeRequest, sessionID uuid.UUID) ([]domain.CompetitorPrice, error) {
	extracted, err := s.extractor.Extract(ctx, target, req)
	if err != nil {
		return nil, err
	}

	nights := domain.CalculateNights(req.CheckIn, req.CheckOut)
	saved := make([]domain.CompetitorPrice, 0, len(extracted))
	for _, p := range extracted {
		p.ID = uuid.New()
		p.SessionID = sessionID
		p.CompetitorName = target.Name
		p.CompetitorURL = target.URL
		p.Destination = req.Destination
		p.CheckIn = req.CheckIn
		p.CheckOut = req.CheckOut
		p.Nights = nights
		p.Adults = req.Adults
		p.Children = req.Children
		if p.Currency == "" {
			p.Currency = "EUR"
		}
		p.IsAvailable = true
		p.ScrapedAt = time.Now().UTC()

		if err := s.prices.Insert(ctx, &p); err != nil {
			return saved, fmt.Errorf("persist price for %q: %w", p.HotelName, err)
		}
		saved = append(saved, p)
	}
	return saved, nil
}

// randomDelay picks a pause in [minDelay, maxDelay].
func (s *ScraperService) randomDelay() time.Duration {
	if s.maxDelay <= s.minDelay {
		return s.minDelay
	}
	return s.minDelay + time.Duration(rand.Int63n(int64(s.maxDelay-s.minDelay)))
}

// ──────────────────────────────────────────────────────────────────────────────
// Read side
// ──────────────────────────────────────────────────────────────────────────────

// GetScrapingSessions returns the most recent sessions, newest first.
func (s *ScraperService) GetScrapingSessions(ctx context.Context, limit int) ([]*domain.ScrapingSession, error) {
	if limit <= 0 {
		limit = 20
	}
	sessions, err := s.sessions.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("scraper.GetScrapingSessions: %w", err)
	}
	return sessions, nil
}

// GetLatestPrices returns observations for a destination scraped in the last
// N days, newest first.
func (s *ScraperService) GetLatestPrices(ctx context.Context, destination string, days int) ([]domain.CompetitorPrice, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	prices, err := s.prices.GetLatest(ctx, destination, since)
	if err != nil {
		return nil, fmt.Errorf("scraper.GetLatestPrices: %w", err)
	}
	return prices, nil
}
