package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-travel/yield/internal/domain"
	"github.com/meridian-travel/yield/internal/service"
	"github.com/shopspring/decimal"
)

// ── Fake extractor / stores ───────────────────────────────────────────────────

// fakeExtractor returns canned results per competitor name.
type fakeExtractor struct {
	results map[string][]domain.CompetitorPrice
	errs    map[string]error
}

func (f *fakeExtractor) Extract(_ context.Context, target domain.ScrapingTarget, _ service.ScrapeRequest) ([]domain.CompetitorPrice, error) {
	if err := f.errs[target.Name]; err != nil {
		return nil, err
	}
	return f.results[target.Name], nil
}

type fakeSessionStore struct {
	sessions []*domain.ScrapingSession
}

func (f *fakeSessionStore) Create(_ context.Context, s *domain.ScrapingSession) error {
	f.sessions = append(f.sessions, s)
	return nil
}

func (f *fakeSessionStore) Complete(_ context.Context, s *domain.ScrapingSession) error {
	for i, existing := range f.sessions {
		if existing.ID == s.ID {
			f.sessions[i] = s
			return nil
		}
	}
	return domain.ErrSessionNotFound
}

func (f *fakeSessionStore) List(_ context.Context, limit int) ([]*domain.ScrapingSession, error) {
	if len(f.sessions) > limit {
		return f.sessions[:limit], nil
	}
	return f.sessions, nil
}

type fakePriceSink struct {
	prices []domain.CompetitorPrice
}

func (f *fakePriceSink) Insert(_ context.Context, p *domain.CompetitorPrice) error {
	f.prices = append(f.prices, *p)
	return nil
}

func (f *fakePriceSink) GetLatest(_ context.Context, destination string, since time.Time) ([]domain.CompetitorPrice, error) {
	var out []domain.CompetitorPrice
	for _, p := range f.prices {
		if p.Destination == destination && !p.ScrapedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func scraped(hotel string, price int64) domain.CompetitorPrice {
	return domain.CompetitorPrice{
		HotelName: hotel,
		Price:     decimal.NewFromInt(price),
	}
}

func scrapeRequest() service.ScrapeRequest {
	checkIn := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	return service.ScrapeRequest{
		Destination: "Halkidiki",
		CheckIn:     checkIn,
		CheckOut:    checkIn.AddDate(0, 0, 7),
		Adults:      2,
		TriggeredBy: "test",
		SessionType: domain.SessionManual,
	}
}

func targets(names ...string) []domain.ScrapingTarget {
	out := make([]domain.ScrapingTarget, 0, len(names))
	for _, n := range names {
		out = append(out, domain.ScrapingTarget{Name: n, URL: "https://" + n + ".example", Enabled: true})
	}
	return out
}

// newScraperService builds a service with zero inter-target delay so tests run
// instantly.
func newScraperService(extractor service.Extractor, reg []domain.ScrapingTarget) (*service.ScraperService, *fakeSessionStore, *fakePriceSink) {
	sessions := &fakeSessionStore{}
	prices := &fakePriceSink{}
	svc := service.NewScraperService(sessions, prices, extractor, reg, 0, 0, testLogger())
	return svc, sessions, prices
}

// ── ScrapeAllCompetitors ──────────────────────────────────────────────────────

func TestScrapeAllCompetitorsIsolatesFailure(t *testing.T) {
	extractor := &fakeExtractor{
		results: map[string][]domain.CompetitorPrice{
			"travelland":  {scraped("Hotel Olympia", 480)},
			"filiptravel": {scraped("Hotel Olympia", 460), scraped("Villa Andromeda", 300), scraped("Hotel Poseidon", 350)},
		},
		errs: map[string]error{
			"bigblue": errors.New("navigation timeout"),
		},
	}
	svc, _, prices := newScraperService(extractor, targets("travelland", "bigblue", "filiptravel"))

	session, err := svc.ScrapeAllCompetitors(context.Background(), scrapeRequest())
	if err != nil {
		t.Fatalf("ScrapeAllCompetitors: %v", err)
	}

	if session.Status != domain.SessionCompleted {
		t.Errorf("status = %s, want completed", session.Status)
	}
	if len(session.TargetCompetitors) != 3 {
		t.Errorf("target competitors = %v, want all 3 listed", session.TargetCompetitors)
	}
	if session.FailedScrapes != 1 {
		t.Errorf("failed scrapes = %d, want 1", session.FailedScrapes)
	}
	if session.TotalPricesScraped != 4 {
		t.Errorf("total prices = %d, want 4", session.TotalPricesScraped)
	}
	if len(prices.prices) != session.TotalPricesScraped {
		t.Errorf("persisted rows = %d, total = %d, must be equal", len(prices.prices), session.TotalPricesScraped)
	}
	if len(session.Errors) != 1 || session.Errors[0].Competitor != "bigblue" {
		t.Errorf("errors = %+v, want single bigblue entry", session.Errors)
	}
	if session.CompletedAt == nil || session.DurationSeconds == nil {
		t.Error("completed session missing completion metadata")
	}
}

func TestScrapeAllCompetitorsStampsObservations(t *testing.T) {
	extractor := &fakeExtractor{
		results: map[string][]domain.CompetitorPrice{
			"travelland": {scraped("Hotel Olympia", 480)},
		},
	}
	svc, _, prices := newScraperService(extractor, targets("travelland"))

	req := scrapeRequest()
	session, err := svc.ScrapeAllCompetitors(context.Background(), req)
	if err != nil {
		t.Fatalf("ScrapeAllCompetitors: %v", err)
	}

	if len(prices.prices) != 1 {
		t.Fatalf("persisted rows = %d, want 1", len(prices.prices))
	}
	p := prices.prices[0]
	if p.ID == uuid.Nil || p.SessionID != session.ID {
		t.Errorf("identity stamps wrong: id=%s session=%s", p.ID, p.SessionID)
	}
	if p.CompetitorName != "travelland" || p.Destination != "Halkidiki" {
		t.Errorf("context stamps wrong: %+v", p)
	}
	if p.Nights != 7 || p.Currency != "EUR" || !p.IsAvailable {
		t.Errorf("derived fields wrong: nights=%d currency=%s available=%v", p.Nights, p.Currency, p.IsAvailable)
	}
}

func TestScrapeAllCompetitorsZeroSuccesses(t *testing.T) {
	extractor := &fakeExtractor{
		errs: map[string]error{
			"travelland": errors.New("blocked"),
			"bigblue":    errors.New("blocked"),
		},
	}
	svc, _, _ := newScraperService(extractor, targets("travelland", "bigblue"))

	session, err := svc.ScrapeAllCompetitors(context.Background(), scrapeRequest())
	if err != nil {
		t.Fatalf("all-fail session should still complete: %v", err)
	}
	if session.Status != domain.SessionCompleted {
		t.Errorf("status = %s, want completed", session.Status)
	}
	if session.TotalPricesScraped != 0 || session.FailedScrapes != 2 {
		t.Errorf("counters = (%d, %d), want (0, 2)", session.TotalPricesScraped, session.FailedScrapes)
	}
}

func TestScrapeAllCompetitorsNoTargetsEnabled(t *testing.T) {
	reg := targets("travelland")
	reg[0].Enabled = false
	svc, sessions, _ := newScraperService(&fakeExtractor{}, reg)

	_, err := svc.ScrapeAllCompetitors(context.Background(), scrapeRequest())
	if err != domain.ErrNoTargetsEnabled {
		t.Fatalf("err = %v, want ErrNoTargetsEnabled", err)
	}
	if len(sessions.sessions) != 0 {
		t.Errorf("sessions created = %d, want 0", len(sessions.sessions))
	}
}

func TestScrapeAllCompetitorsSkipsDisabledTarget(t *testing.T) {
	reg := targets("travelland", "bigblue")
	reg[1].Enabled = false
	extractor := &fakeExtractor{
		results: map[string][]domain.CompetitorPrice{
			"travelland": {scraped("Hotel Olympia", 480)},
			"bigblue":    {scraped("Hotel Olympia", 999)},
		},
	}
	svc, _, prices := newScraperService(extractor, reg)

	session, err := svc.ScrapeAllCompetitors(context.Background(), scrapeRequest())
	if err != nil {
		t.Fatal(err)
	}
	if len(session.TargetCompetitors) != 1 || session.TargetCompetitors[0] != "travelland" {
		t.Errorf("targets = %v, want travelland only", session.TargetCompetitors)
	}
	if len(prices.prices) != 1 {
		t.Errorf("persisted rows = %d, want 1", len(prices.prices))
	}
}

// ── Read side ─────────────────────────────────────────────────────────────────

func TestGetScrapingSessionsAndLatestPrices(t *testing.T) {
	extractor := &fakeExtractor{
		results: map[string][]domain.CompetitorPrice{
			"travelland": {scraped("Hotel Olympia", 480)},
		},
	}
	svc, _, _ := newScraperService(extractor, targets("travelland"))
	ctx := context.Background()

	if _, err := svc.ScrapeAllCompetitors(ctx, scrapeRequest()); err != nil {
		t.Fatal(err)
	}

	sessions, err := svc.GetScrapingSessions(ctx, 0) // 0 falls back to default limit
	if err != nil {
		t.Fatalf("GetScrapingSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(sessions))
	}

	prices, err := svc.GetLatestPrices(ctx, "Halkidiki", 7)
	if err != nil {
		t.Fatalf("GetLatestPrices: %v", err)
	}
	if len(prices) != 1 {
		t.Errorf("prices = %d, want 1", len(prices))
	}
}
