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

// ──────────────────────────────────────────────────────────────────────────────
// ProposalRepository
// ──────────────────────────────────────────────────────────────────────────────

// ProposalRepository handles markup proposal rows and their approval state
// machine transitions.
type ProposalRepository struct {
	db *sqlx.DB
}

// NewProposalRepository creates a new ProposalRepository.
func NewProposalRepository(db *sqlx.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

// Create inserts a new proposal row.
func (r *ProposalRepository) Create(ctx context.Context, p *domain.MarkupProposal) error {
	query := `
		INSERT INTO markup_proposals
			(id, service_type, hotel_name, destination, base_cost, competitor_avg_price,
			 current_markup_percent, current_selling_price,
			 proposed_markup_percent, proposed_selling_price,
			 calculation_factors, status, proposed_by, proposed_at,
			 auto_approved, auto_approval_reason, valid_from, valid_until,
			 created_at, updated_at)
		VALUES
			(:id, :service_type, :hotel_name, :destination, :base_cost, :competitor_avg_price,
			 :current_markup_percent, :current_selling_price,
			 :proposed_markup_percent, :proposed_selling_price,
			 :calculation_factors, :status, :proposed_by, :proposed_at,
			 :auto_approved, :auto_approval_reason, :valid_from, :valid_until,
			 :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("proposal_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a proposal by its primary key.
func (r *ProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.MarkupProposal, error) {
	var p domain.MarkupProposal
	err := r.db.GetContext(ctx, &p, `SELECT * FROM markup_proposals WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProposalNotFound
		}
		return nil, fmt.Errorf("proposal_repo.GetByID: %w", err)
	}
	return &p, nil
}

// GetPending returns proposals awaiting review, newest first.
func (r *ProposalRepository) GetPending(ctx context.Context) ([]*domain.MarkupProposal, error) {
	var proposals []*domain.MarkupProposal
	err := r.db.SelectContext(ctx, &proposals, `
		SELECT * FROM markup_proposals
		WHERE status = 'pending'
		ORDER BY proposed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("proposal_repo.GetPending: %w", err)
	}
	return proposals, nil
}

// Review transitions a proposal from pending to the given terminal status and
// stamps the reviewer metadata.  The status predicate makes the update
// optimistic: a proposal that has already left pending is not touched, which
// preserves the terminal-state invariant under concurrent reviews.
func (r *ProposalRepository) Review(ctx context.Context, id uuid.UUID, status domain.ProposalStatus, reviewer string, notes *string, at time.Time) (*domain.MarkupProposal, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE markup_proposals
		SET status       = $1,
		    reviewed_by  = $2,
		    reviewed_at  = $3,
		    review_notes = $4,
		    updated_at   = now()
		WHERE id = $5 AND status = 'pending'`,
		status, reviewer, at, notes, id)
	if err != nil {
		return nil, fmt.Errorf("proposal_repo.Review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish missing row from a terminal-state conflict.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrProposalNotPending
	}
	return r.GetByID(ctx, id)
}

// ExpirePending transitions every pending proposal whose validity window has
// elapsed to expired and returns the affected count.
func (r *ProposalRepository) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE markup_proposals
		SET status = 'expired', updated_at = now()
		WHERE status = 'pending' AND valid_until < $1`,
		now)
	if err != nil {
		return 0, fmt.Errorf("proposal_repo.ExpirePending: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// HistoryRepository
// ──────────────────────────────────────────────────────────────────────────────

// HistoryRepository handles the append-only markup change ledger.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Insert appends one ledger row.
func (r *HistoryRepository) Insert(ctx context.Context, h *domain.MarkupHistory) error {
	query := `
		INSERT INTO markup_history
			(id, proposal_id, service_type, hotel_name,
			 old_markup_percent, new_markup_percent, old_price, new_price,
			 change_reason, trigger_data, changed_by, changed_at)
		VALUES
			(:id, :proposal_id, :service_type, :hotel_name,
			 :old_markup_percent, :new_markup_percent, :old_price, :new_price,
			 :change_reason, :trigger_data, :changed_by, :changed_at)`
	_, err := r.db.NamedExecContext(ctx, query, h)
	if err != nil {
		return fmt.Errorf("history_repo.Insert: %w", err)
	}
	return nil
}

// List returns the most recent ledger rows, newest first.
func (r *HistoryRepository) List(ctx context.Context, limit int) ([]*domain.MarkupHistory, error) {
	var rows []*domain.MarkupHistory
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM markup_history
		ORDER BY changed_at DESC
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("history_repo.List: %w", err)
	}
	return rows, nil
}
