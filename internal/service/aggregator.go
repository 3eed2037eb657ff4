package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-travel/yield/internal/domain"
	"github.com/shopspring/decimal"
)

// competitorWindowLimit caps how many competitor observations feed one
// aggregation.
const competitorWindowLimit = 50

// ──────────────────────────────────────────────────────────────────────────────
// Collaborator contracts
// ──────────────────────────────────────────────────────────────────────────────

// Provider is a supply-side price source queried during aggregation.
type Provider interface {
	Name() string
	Search(ctx context.Context, params domain.PriceSearchParams) ([]domain.ProviderPrice, error)
}

// CompetitorWindow reads competitor observations overlapping a check-in window.
// Implemented by repository.CompetitorPriceRepository.
type CompetitorWindow interface {
	GetForWindow(ctx context.Context, destination string, from, to time.Time, limit int) ([]domain.CompetitorPrice, error)
}

// IntelligenceStore persists aggregation snapshots.
// Implemented by repository.IntelligenceRepository.
type IntelligenceStore interface {
	Insert(ctx context.Context, l *domain.PriceIntelligenceLog) error
	GetByHotel(ctx context.Context, hotelName string, since time.Time) ([]*domain.PriceIntelligenceLog, error)
}

// SettingsSource supplies the active yield configuration.
// Implemented by MarkupService.
type SettingsSource interface {
	GetYieldSettings(ctx context.Context) (domain.YieldSettings, error)
}

// ──────────────────────────────────────────────────────────────────────────────
// AggregatorService
// ──────────────────────────────────────────────────────────────────────────────

// AggregatorService fans one search out to every supply provider in parallel,
// joins the quotes with recent competitor observations, and produces a pricing
// recommendation.
type AggregatorService struct {
	providers    []Provider
	competitors  CompetitorWindow
	intelligence IntelligenceStore
	settings     SettingsSource
	logger       *slog.Logger
}

// NewAggregatorService creates an AggregatorService.
func NewAggregatorService(
	providers []Provider,
	competitors CompetitorWindow,
	intelligence IntelligenceStore,
	settings SettingsSource,
	logger *slog.Logger,
) *AggregatorService {
	return &AggregatorService{
		providers:    providers,
		competitors:  competitors,
		intelligence: intelligence,
		settings:     settings,
		logger:       logger,
	}
}

type providerResult struct {
	provider string
	prices   []domain.ProviderPrice
	err      error
}

// AggregatePrices queries every provider concurrently, reads the competitor
// window, and computes the recommendation.  A failing provider is logged and
// skipped; zero provider quotes overall is a failure (ErrNoPricesFound) even
// when competitor data exists, because there is nothing to price.
func (s *AggregatorService) AggregatePrices(ctx context.Context, params domain.PriceSearchParams) (*domain.PriceAggregationResult, error) {
	results := make(chan providerResult, len(s.providers))
	for _, p := range s.providers {
		go func(p Provider) {
			prices, err := p.Search(ctx, params)
			results <- providerResult{provider: p.Name(), prices: prices, err: err}
		}(p)
	}

	var providerPrices []domain.ProviderPrice
	for range s.providers {
		res := <-results
		if res.err != nil {
			// Isolate the failure: one dead provider never fails the whole call.
			s.logger.Warn("provider search failed", "provider", res.provider, "err", res.err)
			continue
		}
		providerPrices = append(providerPrices, res.prices...)
	}

	if len(providerPrices) == 0 {
		return nil, domain.ErrNoPricesFound
	}

	competitorPrices, err := s.competitorWindow(ctx, params)
	if err != nil {
		// Degraded mode: recommend from provider data alone.
		s.logger.Warn("competitor window read failed", "destination", params.Destination, "err", err)
		competitorPrices = nil
	}

	lowestPrice, lowestProvider := lowestQuote(providerPrices)
	competitorAvg := competitorMean(competitorPrices)

	settings, err := s.settings.GetYieldSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregator.AggregatePrices: %w", err)
	}
	markup := settings.DynamicMarkup(lowestPrice, competitorAvg, nil)
	sellingPrice := domain.SellingPrice(lowestPrice, markup)

	// Positive advantage means our recommended price sits under the competitor
	// average; zero when there is no competitor data to compare against.
	advantage := decimal.Zero
	if competitorAvg.IsPositive() {
		advantage = competitorAvg.Sub(sellingPrice).Round(2)
	}

	result := &domain.PriceAggregationResult{
		HotelName:               params.HotelName,
		Destination:             params.Destination,
		CheckIn:                 params.CheckIn,
		CheckOut:                params.CheckOut,
		ProviderPrices:          providerPrices,
		CompetitorPrices:        competitorPrices,
		LowestPrice:             lowestPrice,
		LowestProvider:          lowestProvider,
		CompetitorAvgPrice:      competitorAvg,
		RecommendedMarkup:       markup,
		RecommendedSellingPrice: sellingPrice,
		PriceAdvantage:          advantage,
	}

	s.logIntelligence(ctx, params, result)

	s.logger.Info("prices aggregated",
		"destination", params.Destination, "hotel", params.HotelName,
		"provider_quotes", len(providerPrices), "competitor_obs", len(competitorPrices),
		"lowest", lowestPrice.String(), "markup", markup.String())

	return result, nil
}

// GetPriceHistory returns aggregation snapshots for a hotel from the last N
// days, newest first.
func (s *AggregatorService) GetPriceHistory(ctx context.Context, hotelName string, days int) ([]*domain.PriceIntelligenceLog, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	logs, err := s.intelligence.GetByHotel(ctx, hotelName, since)
	if err != nil {
		return nil, fmt.Errorf("aggregator.GetPriceHistory: %w", err)
	}
	return logs, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────────────────────────────────

// competitorWindow reads observations whose check-in falls inside the searched
// stay window.
func (s *AggregatorService) competitorWindow(ctx context.Context, params domain.PriceSearchParams) ([]domain.CompetitorPrice, error) {
	return s.competitors.GetForWindow(ctx, params.Destination, params.CheckIn, params.CheckOut, competitorWindowLimit)
}

// lowestQuote returns the cheapest quote and its provider.  Callers guarantee
// at least one quote.
func lowestQuote(prices []domain.ProviderPrice) (decimal.Decimal, string) {
	lowest := prices[0]
	for _, p := range prices[1:] {
		if p.Price.LessThan(lowest.Price) {
			lowest = p
		}
	}
	return lowest.Price, lowest.Provider
}

// competitorMean averages available competitor observations, zero when none.
func competitorMean(prices []domain.CompetitorPrice) decimal.Decimal {
	sum := decimal.Zero
	count := 0
	for _, p := range prices {
		if !p.IsAvailable {
			continue
		}
		sum = sum.Add(p.Price)
		count++
	}
	if count == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(count))).Round(2)
}

// logIntelligence appends the audit snapshot.  Best-effort: a failed write is
// logged, never fails the aggregation.
func (s *AggregatorService) logIntelligence(ctx context.Context, params domain.PriceSearchParams, r *domain.PriceAggregationResult) {
	entry := &domain.PriceIntelligenceLog{
		ID:                 uuid.New(),
		ServiceType:        domain.ServiceHotel,
		SearchParams:       params,
		ProviderPrices:     r.ProviderPrices,
		CompetitorPrices:   r.CompetitorPrices,
		LowestPrice:        r.LowestPrice,
		CompetitorAvgPrice: r.CompetitorAvgPrice,
		RecommendedMarkup:  r.RecommendedMarkup,
		PriceAdvantage:     r.PriceAdvantage,
		Timestamp:          time.Now().UTC(),
	}
	if params.HotelName != "" {
		entry.HotelName = &params.HotelName
	}
	if params.Destination != "" {
		entry.Destination = &params.Destination
	}
	if !params.CheckIn.IsZero() {
		entry.CheckIn = &params.CheckIn
	}
	if !params.CheckOut.IsZero() {
		entry.CheckOut = &params.CheckOut
	}
	if r.LowestProvider != "" {
		entry.LowestProvider = &r.LowestProvider
	}

	if err := s.intelligence.Insert(ctx, entry); err != nil {
		s.logger.Error("price intelligence write failed", "destination", params.Destination, "err", err)
	}
}
