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

// SessionRepository handles scraping session lifecycle rows.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session row in status running.
func (r *SessionRepository) Create(ctx context.Context, s *domain.ScrapingSession) error {
	query := `
		INSERT INTO scraping_sessions
			(id, session_type, target_competitors, status, started_at,
			 total_prices_scraped, successful_scrapes, failed_scrapes, errors,
			 triggered_by, created_at)
		VALUES
			(:id, :session_type, :target_competitors, :status, :started_at,
			 :total_prices_scraped, :successful_scrapes, :failed_scrapes, :errors,
			 :triggered_by, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, s)
	if err != nil {
		return fmt.Errorf("session_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a session by its primary key.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScrapingSession, error) {
	var s domain.ScrapingSession
	err := r.db.GetContext(ctx, &s, `SELECT * FROM scraping_sessions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("session_repo.GetByID: %w", err)
	}
	return &s, nil
}

// Complete finalises a session: sets status, completion time, duration and the
// accumulated counters and errors in one write.
func (r *SessionRepository) Complete(ctx context.Context, s *domain.ScrapingSession) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE scraping_sessions
		SET status               = $1,
		    completed_at         = $2,
		    duration_seconds     = $3,
		    total_prices_scraped = $4,
		    successful_scrapes   = $5,
		    failed_scrapes       = $6,
		    errors               = $7
		WHERE id = $8`,
		s.Status, s.CompletedAt, s.DurationSeconds,
		s.TotalPricesScraped, s.SuccessfulScrapes, s.FailedScrapes, s.Errors,
		s.ID)
	if err != nil {
		return fmt.Errorf("session_repo.Complete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// List returns the most recent sessions, newest first.
func (r *SessionRepository) List(ctx context.Context, limit int) ([]*domain.ScrapingSession, error) {
	var sessions []*domain.ScrapingSession
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM scraping_sessions
		ORDER BY started_at DESC
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("session_repo.List: %w", err)
	}
	return sessions, nil
}

// ListSince returns sessions started after the cutoff, newest first.
func (r *SessionRepository) ListSince(ctx context.Context, since time.Time) ([]*domain.ScrapingSession, error) {
	var sessions []*domain.ScrapingSession
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM scraping_sessions
		WHERE started_at >= $1
		ORDER BY started_at DESC`,
		since)
	if err != nil {
		return nil, fmt.Errorf("session_repo.ListSince: %w", err)
	}
	return sessions, nil
}
