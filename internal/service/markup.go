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

// ──────────────────────────────────────────────────────────────────────────────
// Store contracts
// ──────────────────────────────────────────────────────────────────────────────

// ProposalStore is the persistence contract for markup proposals.
// Implemented by repository.ProposalRepository.
type ProposalStore interface {
	Create(ctx context.Context, p *domain.MarkupProposal) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.MarkupProposal, error)
	GetPending(ctx context.Context) ([]*domain.MarkupProposal, error)
	Review(ctx context.Context, id uuid.UUID, status domain.ProposalStatus, reviewer string, notes *string, at time.Time) (*domain.MarkupProposal, error)
	ExpirePending(ctx context.Context, now time.Time) (int, error)
}

// HistoryStore is the persistence contract for the markup change ledger.
// Implemented by repository.HistoryRepository.
type HistoryStore interface {
	Insert(ctx context.Context, h *domain.MarkupHistory) error
	List(ctx context.Context, limit int) ([]*domain.MarkupHistory, error)
}

// SettingsStore is the persistence contract for the yield configuration scope.
// Implemented by repository.SettingsRepository.
type SettingsStore interface {
	GetActive(ctx context.Context) (*domain.YieldSettings, error)
	Upsert(ctx context.Context, s *domain.YieldSettings) error
}

// ──────────────────────────────────────────────────────────────────────────────
// MarkupService
// ──────────────────────────────────────────────────────────────────────────────

// MarkupService computes bounded dynamic markups and runs the proposal
// approval state machine with its append-only change history.
type MarkupService struct {
	proposals ProposalStore
	history   HistoryStore
	settings  SettingsStore
	logger    *slog.Logger
}

// NewMarkupService creates a MarkupService.
func NewMarkupService(proposals ProposalStore, history HistoryStore, settings SettingsStore, logger *slog.Logger) *MarkupService {
	return &MarkupService{
		proposals: proposals,
		history:   history,
		settings:  settings,
		logger:    logger,
	}
}

// GetYieldSettings loads the single active settings scope.  A missing row is
// not an error: the hardcoded defaults keep the engine operable before first
// configuration.
func (s *MarkupService) GetYieldSettings(ctx context.Context) (domain.YieldSettings, error) {
	settings, err := s.settings.GetActive(ctx)
	if err != nil {
		if err == domain.ErrSettingsNotFound {
			return domain.DefaultYieldSettings(), nil
		}
		return domain.YieldSettings{}, fmt.Errorf("markup.GetYieldSettings: %w", err)
	}
	return *settings, nil
}

// UpdateYieldSettings writes the global configuration scope.
func (s *MarkupService) UpdateYieldSettings(ctx context.Context, settings domain.YieldSettings) (domain.YieldSettings, error) {
	if settings.ID == uuid.Nil {
		settings.ID = uuid.New()
		settings.CreatedAt = time.Now().UTC()
	}
	settings.SettingType = "global"
	settings.Active = true
	settings.UpdatedAt = time.Now().UTC()

	if err := s.settings.Upsert(ctx, &settings); err != nil {
		return domain.YieldSettings{}, fmt.Errorf("markup.UpdateYieldSettings: %w", err)
	}
	return settings, nil
}

// CalculateDynamicMarkup computes the bounded markup for a base cost using
// the active settings.  Exposed for the aggregator and dashboards; the math
// lives on domain.YieldSettings.
func (s *MarkupService) CalculateDynamicMarkup(ctx context.Context, baseCost, competitorAvg decimal.Decimal, factors *domain.CalculationFactors) (decimal.Decimal, error) {
	settings, err := s.GetYieldSettings(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return settings.DynamicMarkup(baseCost, competitorAvg, factors), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Proposal lifecycle
// ──────────────────────────────────────────────────────────────────────────────

// CreateProposalRequest carries the validated inputs for creating a proposal.
type CreateProposalRequest struct {
	ServiceType        domain.ServiceType
	BaseCost           decimal.Decimal
	CompetitorAvgPrice decimal.Decimal
	HotelName          *string
	Destination        *string
	Factors            *domain.CalculationFactors
	ProposedBy         string
}

// CreateProposal computes a markup proposal and persists it.  Proposals whose
// markup deviates from the configured default by no more than the auto-approve
// threshold are approved immediately and get exactly one history row; the rest
// await manual review for 24 hours.
func (s *MarkupService) CreateProposal(ctx context.Context, req CreateProposalRequest) (*domain.MarkupProposal, error) {
	if !req.ServiceType.IsValid() {
		return nil, domain.ErrInvalidServiceType
	}
	if !req.BaseCost.IsPositive() {
		return nil, domain.ErrInvalidBaseCost
	}

	settings, err := s.GetYieldSettings(ctx)
	if err != nil {
		return nil, err
	}

	proposedMarkup := settings.DynamicMarkup(req.BaseCost, req.CompetitorAvgPrice, req.Factors)
	proposedPrice := domain.SellingPrice(req.BaseCost, proposedMarkup)

	currentMarkup := settings.DefaultMarkupPercent
	currentPrice := domain.SellingPrice(req.BaseCost, currentMarkup)

	deviation := proposedMarkup.Sub(currentMarkup).Abs()
	autoApprove := deviation.LessThanOrEqual(settings.AutoApproveThresholdPercent)

	proposedBy := req.ProposedBy
	if proposedBy == "" {
		proposedBy = "system"
	}

	now := time.Now().UTC()
	proposal := &domain.MarkupProposal{
		ID:                    uuid.New(),
		ServiceType:           req.ServiceType,
		HotelName:             req.HotelName,
		Destination:           req.Destination,
		BaseCost:              req.BaseCost,
		CompetitorAvgPrice:    req.CompetitorAvgPrice,
		CurrentMarkupPercent:  currentMarkup,
		CurrentSellingPrice:   currentPrice,
		ProposedMarkupPercent: proposedMarkup,
		ProposedSellingPrice:  proposedPrice,
		CalculationFactors:    req.Factors,
		Status:                domain.ProposalPending,
		ProposedBy:            proposedBy,
		ProposedAt:            now,
		AutoApproved:          autoApprove,
		ValidFrom:             now,
		ValidUntil:            now.Add(domain.ProposalValidity),
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if autoApprove {
		proposal.Status = domain.ProposalApproved
		reason := fmt.Sprintf(
			"markup change (%s%%) is within auto-approval threshold (%s%%)",
			deviation.StringFixed(2), settings.AutoApproveThresholdPercent.String())
		proposal.AutoApprovalReason = &reason
	}

	if err := s.proposals.Create(ctx, proposal); err != nil {
		return nil, fmt.Errorf("markup.CreateProposal: %w", err)
	}

	if autoApprove {
		s.writeHistory(ctx, proposal, "auto_approval", "system")
	}

	s.logger.Info("markup proposal created",
		"proposal", proposal.ID, "markup", proposedMarkup.String(),
		"auto_approved", autoApprove)

	return proposal, nil
}

// ApproveProposal transitions a pending proposal to approved, stamps the
// reviewer metadata, and writes exactly one history row.  A proposal that has
// already reached a terminal state yields ErrProposalNotPending.
func (s *MarkupService) ApproveProposal(ctx context.Context, id uuid.UUID, userID string, notes *string) (*domain.MarkupProposal, error) {
	proposal, err := s.proposals.Review(ctx, id, domain.ProposalApproved, userID, notes, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("markup.ApproveProposal: %w", err)
	}

	s.writeHistory(ctx, proposal, "manual_approval", userID)

	s.logger.Info("markup proposal approved", "proposal", id, "by", userID)
	return proposal, nil
}

// RejectProposal transitions a pending proposal to rejected.  No history row
// is written: the ledger records effective markup changes only.
func (s *MarkupService) RejectProposal(ctx context.Context, id uuid.UUID, userID string, notes *string) (*domain.MarkupProposal, error) {
	proposal, err := s.proposals.Review(ctx, id, domain.ProposalRejected, userID, notes, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("markup.RejectProposal: %w", err)
	}

	s.logger.Info("markup proposal rejected", "proposal", id, "by", userID)
	return proposal, nil
}

// ExpireOldProposals bulk-transitions overdue pending proposals to expired and
// returns the affected count.  Run periodically by the scheduler.
func (s *MarkupService) ExpireOldProposals(ctx context.Context) (int, error) {
	count, err := s.proposals.ExpirePending(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("markup.ExpireOldProposals: %w", err)
	}
	if count > 0 {
		s.logger.Info("expired stale markup proposals", "count", count)
	}
	return count, nil
}

// GetPendingProposals returns proposals awaiting review, newest first.
func (s *MarkupService) GetPendingProposals(ctx context.Context) ([]*domain.MarkupProposal, error) {
	proposals, err := s.proposals.GetPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("markup.GetPendingProposals: %w", err)
	}
	return proposals, nil
}

// GetMarkupHistory returns the most recent ledger rows, newest first.
func (s *MarkupService) GetMarkupHistory(ctx context.Context, limit int) ([]*domain.MarkupHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.history.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("markup.GetMarkupHistory: %w", err)
	}
	return rows, nil
}

// writeHistory appends the ledger row paired with an approval.  Best-effort:
// a failed side-record is logged, never fails the approval itself.
func (s *MarkupService) writeHistory(ctx context.Context, p *domain.MarkupProposal, reason, changedBy string) {
	h := &domain.MarkupHistory{
		ID:               uuid.New(),
		ProposalID:       p.ID,
		ServiceType:      p.ServiceType,
		HotelName:        p.HotelName,
		OldMarkupPercent: p.CurrentMarkupPercent,
		NewMarkupPercent: p.ProposedMarkupPercent,
		OldPrice:         p.CurrentSellingPrice,
		NewPrice:         p.ProposedSellingPrice,
		ChangeReason:     reason,
		TriggerData:      p.CalculationFactors,
		ChangedBy:        changedBy,
		ChangedAt:        time.Now().UTC(),
	}
	if err := s.history.Insert(ctx, h); err != nil {
		s.logger.Error("markup history write failed", "proposal", p.ID, "err", err)
	}
}
