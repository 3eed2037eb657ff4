package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/meridian-travel/yield/internal/domain"
)

// SettingsRepository handles the single active yield settings row.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetActive returns the active global settings scope.
// Returns ErrSettingsNotFound when none has been configured yet — callers fall
// back to domain.DefaultYieldSettings.
func (r *SettingsRepository) GetActive(ctx context.Context) (*domain.YieldSettings, error) {
	var s domain.YieldSettings
	err := r.db.GetContext(ctx, &s, `
		SELECT * FROM yield_settings
		WHERE setting_type = 'global' AND active = true
		LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSettingsNotFound
		}
		return nil, fmt.Errorf("settings_repo.GetActive: %w", err)
	}
	return &s, nil
}

// Upsert writes the global settings scope, replacing the active row when one
// exists and inserting it otherwise.
func (r *SettingsRepository) Upsert(ctx context.Context, s *domain.YieldSettings) error {
	query := `
		INSERT INTO yield_settings
			(id, setting_type, default_markup_percent, min_markup_percent, max_markup_percent,
			 auto_approve_threshold_percent, match_competitor_price, undercut_competitor_by_percent,
			 scraping_frequency, scraping_enabled, notify_on_price_change, notify_on_competitor_lower,
			 active, created_at, updated_at)
		VALUES
			(:id, :setting_type, :default_markup_percent, :min_markup_percent, :max_markup_percent,
			 :auto_approve_threshold_percent, :match_competitor_price, :undercut_competitor_by_percent,
			 :scraping_frequency, :scraping_enabled, :notify_on_price_change, :notify_on_competitor_lower,
			 :active, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			default_markup_percent         = EXCLUDED.default_markup_percent,
			min_markup_percent             = EXCLUDED.min_markup_percent,
			max_markup_percent             = EXCLUDED.max_markup_percent,
			auto_approve_threshold_percent = EXCLUDED.auto_approve_threshold_percent,
			match_competitor_price         = EXCLUDED.match_competitor_price,
			undercut_competitor_by_percent = EXCLUDED.undercut_competitor_by_percent,
			scraping_frequency             = EXCLUDED.scraping_frequency,
			scraping_enabled               = EXCLUDED.scraping_enabled,
			notify_on_price_change         = EXCLUDED.notify_on_price_change,
			notify_on_competitor_lower     = EXCLUDED.notify_on_competitor_lower,
			active                         = EXCLUDED.active,
			updated_at                     = now()`
	_, err := r.db.NamedExecContext(ctx, query, s)
	if err != nil {
		return fmt.Errorf("settings_repo.Upsert: %w", err)
	}
	return nil
}
