package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meridian-travel/yield/internal/domain"
	"github.com/meridian-travel/yield/internal/service"
	"github.com/shopspring/decimal"
)

// ── Fake collaborators ────────────────────────────────────────────────────────

type fakeProvider struct {
	name   string
	prices []domain.ProviderPrice
	err    error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(_ context.Context, _ domain.PriceSearchParams) ([]domain.ProviderPrice, error) {
	return f.prices, f.err
}

type fakeCompetitorWindow struct {
	prices []domain.CompetitorPrice
	err    error
}

func (f *fakeCompetitorWindow) GetForWindow(_ context.Context, _ string, _, _ time.Time, _ int) ([]domain.CompetitorPrice, error) {
	return f.prices, f.err
}

type fakeIntelligenceStore struct {
	entries []*domain.PriceIntelligenceLog
}

func (f *fakeIntelligenceStore) Insert(_ context.Context, l *domain.PriceIntelligenceLog) error {
	f.entries = append(f.entries, l)
	return nil
}

func (f *fakeIntelligenceStore) GetByHotel(_ context.Context, hotelName string, since time.Time) ([]*domain.PriceIntelligenceLog, error) {
	var out []*domain.PriceIntelligenceLog
	for _, l := range f.entries {
		if l.HotelName != nil && *l.HotelName == hotelName && !l.Timestamp.Before(since) {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeSettingsSource struct{}

func (fakeSettingsSource) GetYieldSettings(_ context.Context) (domain.YieldSettings, error) {
	return domain.DefaultYieldSettings(), nil
}

func quote(provider string, price int64) domain.ProviderPrice {
	return domain.ProviderPrice{
		Provider:  provider,
		HotelName: "Hotel Olympia",
		Price:     decimal.NewFromInt(price),
		Currency:  "EUR",
		Available: true,
	}
}

func observation(price int64, available bool) domain.CompetitorPrice {
	return domain.CompetitorPrice{
		CompetitorName: "travelland",
		HotelName:      "Hotel Olympia",
		Price:          decimal.NewFromInt(price),
		Currency:       "EUR",
		IsAvailable:    available,
	}
}

func searchParams() domain.PriceSearchParams {
	checkIn := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	return domain.PriceSearchParams{
		Destination: "Halkidiki",
		HotelName:   "Hotel Olympia",
		CheckIn:     checkIn,
		CheckOut:    checkIn.AddDate(0, 0, 7),
		Adults:      2,
	}
}

// ── AggregatePrices ───────────────────────────────────────────────────────────

func TestAggregatePrices(t *testing.T) {
	providers := []service.Provider{
		&fakeProvider{name: "solvex", prices: []domain.ProviderPrice{quote("solvex", 400)}},
		&fakeProvider{name: "tct", prices: []domain.ProviderPrice{quote("tct", 380)}},
		&fakeProvider{name: "opengreece", prices: []domain.ProviderPrice{quote("opengreece", 410)}},
	}
	competitors := &fakeCompetitorWindow{prices: []domain.CompetitorPrice{
		observation(480, true),
		observation(460, true),
		observation(999, false), // unavailable rows are excluded from the mean
	}}
	intelligence := &fakeIntelligenceStore{}
	svc := service.NewAggregatorService(providers, competitors, intelligence, fakeSettingsSource{}, testLogger())

	result, err := svc.AggregatePrices(context.Background(), searchParams())
	if err != nil {
		t.Fatalf("AggregatePrices: %v", err)
	}

	if result.LowestProvider != "tct" || !result.LowestPrice.Equal(decimal.NewFromInt(380)) {
		t.Errorf("lowest = (%s, %s), want (tct, 380)", result.LowestProvider, result.LowestPrice)
	}
	if !result.CompetitorAvgPrice.Equal(decimal.NewFromInt(470)) {
		t.Errorf("competitor avg = %s, want 470", result.CompetitorAvgPrice)
	}
	if len(result.ProviderPrices) != 3 {
		t.Errorf("provider quotes = %d, want 3", len(result.ProviderPrices))
	}

	// Markup on base 380 vs avg 470: (470-380)/380×100 ≈ 23.68, minus 2 →
	// 21.68, inside [5, 30].
	if want := decimal.NewFromFloat(21.68); !result.RecommendedMarkup.Equal(want) {
		t.Errorf("markup = %s, want %s", result.RecommendedMarkup, want)
	}
	if result.PriceAdvantage.IsNegative() {
		t.Errorf("price advantage %s should be positive when we undercut", result.PriceAdvantage)
	}

	if len(intelligence.entries) != 1 {
		t.Fatalf("intelligence entries = %d, want 1", len(intelligence.entries))
	}
	entry := intelligence.entries[0]
	if entry.LowestProvider == nil || *entry.LowestProvider != "tct" {
		t.Errorf("logged lowest provider = %v, want tct", entry.LowestProvider)
	}
}

func TestAggregatePricesIsolatesFailingProvider(t *testing.T) {
	providers := []service.Provider{
		&fakeProvider{name: "solvex", prices: []domain.ProviderPrice{quote("solvex", 400)}},
		&fakeProvider{name: "tct", err: errors.New("connection refused")},
	}
	svc := service.NewAggregatorService(
		providers, &fakeCompetitorWindow{}, &fakeIntelligenceStore{}, fakeSettingsSource{}, testLogger())

	result, err := svc.AggregatePrices(context.Background(), searchParams())
	if err != nil {
		t.Fatalf("AggregatePrices with one dead provider: %v", err)
	}
	if len(result.ProviderPrices) != 1 || result.LowestProvider != "solvex" {
		t.Errorf("result = %+v, want solvex quote only", result.ProviderPrices)
	}
}

func TestAggregatePricesNoProviderQuotes(t *testing.T) {
	providers := []service.Provider{
		&fakeProvider{name: "solvex", err: errors.New("timeout")},
		&fakeProvider{name: "tct", err: errors.New("timeout")},
	}
	// Competitor data alone cannot produce a recommendation.
	competitors := &fakeCompetitorWindow{prices: []domain.CompetitorPrice{observation(480, true)}}
	intelligence := &fakeIntelligenceStore{}
	svc := service.NewAggregatorService(providers, competitors, intelligence, fakeSettingsSource{}, testLogger())

	_, err := svc.AggregatePrices(context.Background(), searchParams())
	if err != domain.ErrNoPricesFound {
		t.Fatalf("err = %v, want ErrNoPricesFound", err)
	}
	if len(intelligence.entries) != 0 {
		t.Errorf("intelligence entries = %d, want 0 for failed aggregation", len(intelligence.entries))
	}
}

func TestAggregatePricesWithoutCompetitorData(t *testing.T) {
	providers := []service.Provider{
		&fakeProvider{name: "solvex", prices: []domain.ProviderPrice{quote("solvex", 400)}},
	}
	svc := service.NewAggregatorService(
		providers, &fakeCompetitorWindow{err: errors.New("db down")},
		&fakeIntelligenceStore{}, fakeSettingsSource{}, testLogger())

	result, err := svc.AggregatePrices(context.Background(), searchParams())
	if err != nil {
		t.Fatalf("AggregatePrices: %v", err)
	}

	// No competitor data: default markup applies and advantage is zero.
	if want := decimal.NewFromInt(15); !result.RecommendedMarkup.Equal(want) {
		t.Errorf("markup = %s, want default %s", result.RecommendedMarkup, want)
	}
	if !result.PriceAdvantage.IsZero() {
		t.Errorf("price advantage = %s, want 0", result.PriceAdvantage)
	}
}

// ── GetPriceHistory ───────────────────────────────────────────────────────────

func TestGetPriceHistory(t *testing.T) {
	providers := []service.Provider{
		&fakeProvider{name: "solvex", prices: []domain.ProviderPrice{quote("solvex", 400)}},
	}
	intelligence := &fakeIntelligenceStore{}
	svc := service.NewAggregatorService(
		providers, &fakeCompetitorWindow{}, intelligence, fakeSettingsSource{}, testLogger())
	ctx := context.Background()

	if _, err := svc.AggregatePrices(ctx, searchParams()); err != nil {
		t.Fatal(err)
	}

	logs, err := svc.GetPriceHistory(ctx, "Hotel Olympia", 30)
	if err != nil {
		t.Fatalf("GetPriceHistory: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("history entries = %d, want 1", len(logs))
	}
}
