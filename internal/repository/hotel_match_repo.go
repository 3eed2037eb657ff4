package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/meridian-travel/yield/internal/domain"
)

// HotelMatchRepository handles all database operations for hotel identity
// matching records.
type HotelMatchRepository struct {
	db *sqlx.DB
}

// NewHotelMatchRepository creates a new HotelMatchRepository.
func NewHotelMatchRepository(db *sqlx.DB) *HotelMatchRepository {
	return &HotelMatchRepository{db: db}
}

// Create inserts a new master hotel record.
func (r *HotelMatchRepository) Create(ctx context.Context, m *domain.HotelMatch) error {
	query := `
		INSERT INTO hotel_matches
			(id, master_hotel_name, master_hotel_location, master_hotel_stars, variants,
			 matching_algorithm, confidence_score, manually_verified, created_at, updated_at)
		VALUES
			(:id, :master_hotel_name, :master_hotel_location, :master_hotel_stars, :variants,
			 :matching_algorithm, :confidence_score, :manually_verified, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, m)
	if err != nil {
		return fmt.Errorf("hotel_match_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a match by its primary key.
func (r *HotelMatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.HotelMatch, error) {
	var m domain.HotelMatch
	err := r.db.GetContext(ctx, &m, `SELECT * FROM hotel_matches WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, fmt.Errorf("hotel_match_repo.GetByID: %w", err)
	}
	return &m, nil
}

// FindByVariant returns the match that already lists exactly (source, name) as
// a variant, or nil when none does.
func (r *HotelMatchRepository) FindByVariant(ctx context.Context, source, name string) (*domain.HotelMatch, error) {
	var m domain.HotelMatch
	err := r.db.GetContext(ctx, &m, `
		SELECT * FROM hotel_matches
		WHERE variants @> jsonb_build_array(jsonb_build_object('source', $1::text, 'name', $2::text))
		LIMIT 1`,
		source, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("hotel_match_repo.FindByVariant: %w", err)
	}
	return &m, nil
}

// GetAll returns every match, most recently created first.
func (r *HotelMatchRepository) GetAll(ctx context.Context) ([]*domain.HotelMatch, error) {
	var matches []*domain.HotelMatch
	err := r.db.SelectContext(ctx, &matches,
		`SELECT * FROM hotel_matches ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("hotel_match_repo.GetAll: %w", err)
	}
	return matches, nil
}

// AppendVariant adds (source, name, score) to the match's variant list unless
// the pair is already present.  The row is locked for the duration of the
// read-then-write so concurrent matchers cannot produce duplicate variants.
func (r *HotelMatchRepository) AppendVariant(ctx context.Context, matchID uuid.UUID, v domain.HotelVariant) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("hotel_match_repo.AppendVariant begin: %w", err)
	}
	defer tx.Rollback()

	var m domain.HotelMatch
	err = tx.GetContext(ctx, &m,
		`SELECT * FROM hotel_matches WHERE id = $1 FOR UPDATE`, matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrMatchNotFound
		}
		return fmt.Errorf("hotel_match_repo.AppendVariant lock: %w", err)
	}

	if m.Variants.Contains(v.Source, v.Name) {
		return nil // idempotent: nothing to do
	}

	variants := append(m.Variants, v)
	_, err = tx.ExecContext(ctx,
		`UPDATE hotel_matches SET variants = $1, updated_at = now() WHERE id = $2`,
		variants, matchID)
	if err != nil {
		return fmt.Errorf("hotel_match_repo.AppendVariant update: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("hotel_match_repo.AppendVariant commit: %w", err)
	}
	return nil
}

// Verify flags a match as manually verified.  No structural change.
func (r *HotelMatchRepository) Verify(ctx context.Context, matchID uuid.UUID, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE hotel_matches
		SET manually_verified = true,
		    verified_by       = $1,
		    verified_at       = $2,
		    updated_at        = now()
		WHERE id = $3`,
		userID, at, matchID)
	if err != nil {
		return fmt.Errorf("hotel_match_repo.Verify: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrMatchNotFound
	}
	return nil
}
