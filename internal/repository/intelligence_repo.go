package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/meridian-travel/yield/internal/domain"
)

// IntelligenceRepository handles the append-only price intelligence audit log.
type IntelligenceRepository struct {
	db *sqlx.DB
}

// NewIntelligenceRepository creates a new IntelligenceRepository.
func NewIntelligenceRepository(db *sqlx.DB) *IntelligenceRepository {
	return &IntelligenceRepository{db: db}
}

// Insert appends one aggregation snapshot.
func (r *IntelligenceRepository) Insert(ctx context.Context, l *domain.PriceIntelligenceLog) error {
	query := `
		INSERT INTO price_intelligence_log
			(id, service_type, hotel_name, destination, check_in, check_out,
			 search_params, provider_prices, competitor_prices,
			 lowest_provider, lowest_price, competitor_avg_price,
			 recommended_markup, price_advantage, timestamp)
		VALUES
			(:id, :service_type, :hotel_name, :destination, :check_in, :check_out,
			 :search_params, :provider_prices, :competitor_prices,
			 :lowest_provider, :lowest_price, :competitor_avg_price,
			 :recommended_markup, :price_advantage, :timestamp)`
	_, err := r.db.NamedExecContext(ctx, query, l)
	if err != nil {
		return fmt.Errorf("intelligence_repo.Insert: %w", err)
	}
	return nil
}

// GetByHotel returns snapshots for a hotel recorded since the cutoff, newest
// first.
func (r *IntelligenceRepository) GetByHotel(ctx context.Context, hotelName string, since time.Time) ([]*domain.PriceIntelligenceLog, error) {
	var logs []*domain.PriceIntelligenceLog
	err := r.db.SelectContext(ctx, &logs, `
		SELECT * FROM price_intelligence_log
		WHERE hotel_name = $1 AND timestamp >= $2
		ORDER BY timestamp DESC`,
		hotelName, since)
	if err != nil {
		return nil, fmt.Errorf("intelligence_repo.GetByHotel: %w", err)
	}
	return logs, nil
}
