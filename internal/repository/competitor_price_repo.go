package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/meridian-travel/yield/internal/domain"
)

// CompetitorPriceRepository handles the append-only competitor price
// observations written by the scraper and read by the aggregator.
type CompetitorPriceRepository struct {
	db *sqlx.DB
}

// NewCompetitorPriceRepository creates a new CompetitorPriceRepository.
func NewCompetitorPriceRepository(db *sqlx.DB) *CompetitorPriceRepository {
	return &CompetitorPriceRepository{db: db}
}

// Insert appends one competitor price observation.
func (r *CompetitorPriceRepository) Insert(ctx context.Context, p *domain.CompetitorPrice) error {
	query := `
		INSERT INTO competitor_prices
			(id, session_id, competitor_name, competitor_url, hotel_name, hotel_location,
			 hotel_stars, destination, check_in, check_out, nights, adults, children,
			 price, currency, meal_plan, room_type, is_available, scraped_at)
		VALUES
			(:id, :session_id, :competitor_name, :competitor_url, :hotel_name, :hotel_location,
			 :hotel_stars, :destination, :check_in, :check_out, :nights, :adults, :children,
			 :price, :currency, :meal_plan, :room_type, :is_available, :scraped_at)`
	_, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("competitor_price_repo.Insert: %w", err)
	}
	return nil
}

// GetLatest returns observations for a destination scraped since the cutoff,
// most recent first.
func (r *CompetitorPriceRepository) GetLatest(ctx context.Context, destination string, since time.Time) ([]domain.CompetitorPrice, error) {
	var prices []domain.CompetitorPrice
	err := r.db.SelectContext(ctx, &prices, `
		SELECT * FROM competitor_prices
		WHERE destination = $1 AND scraped_at >= $2
		ORDER BY scraped_at DESC`,
		destination, since)
	if err != nil {
		return nil, fmt.Errorf("competitor_price_repo.GetLatest: %w", err)
	}
	return prices, nil
}

// GetForWindow returns available observations for a destination whose check-in
// falls inside [from, to], most recently scraped first, capped at limit.
func (r *CompetitorPriceRepository) GetForWindow(ctx context.Context, destination string, from, to time.Time, limit int) ([]domain.CompetitorPrice, error) {
	var prices []domain.CompetitorPrice
	err := r.db.SelectContext(ctx, &prices, `
		SELECT * FROM competitor_prices
		WHERE destination = $1
		  AND check_in >= $2 AND check_in <= $3
		  AND is_available = true
		ORDER BY scraped_at DESC
		LIMIT $4`,
		destination, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("competitor_price_repo.GetForWindow: %w", err)
	}
	return prices, nil
}

// CountBySession returns how many observations a session persisted.
func (r *CompetitorPriceRepository) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM competitor_prices WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("competitor_price_repo.CountBySession: %w", err)
	}
	return count, nil
}
