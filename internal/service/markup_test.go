package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-travel/yield/internal/domain"
	"github.com/meridian-travel/yield/internal/service"
	"github.com/shopspring/decimal"
)

// ── Fake proposal / history / settings stores ─────────────────────────────────

type fakeProposalStore struct {
	proposals map[uuid.UUID]*domain.MarkupProposal
}

func newFakeProposalStore() *fakeProposalStore {
	return &fakeProposalStore{proposals: make(map[uuid.UUID]*domain.MarkupProposal)}
}

func (f *fakeProposalStore) Create(_ context.Context, p *domain.MarkupProposal) error {
	cp := *p
	f.proposals[p.ID] = &cp
	return nil
}

func (f *fakeProposalStore) GetByID(_ context.Context, id uuid.UUID) (*domain.MarkupProposal, error) {
	p, ok := f.proposals[id]
	if !ok {
		return nil, domain.ErrProposalNotFound
	}
	return p, nil
}

func (f *fakeProposalStore) GetPending(_ context.Context) ([]*domain.MarkupProposal, error) {
	var out []*domain.MarkupProposal
	for _, p := range f.proposals {
		if p.Status == domain.ProposalPending {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProposalStore) Review(_ context.Context, id uuid.UUID, status domain.ProposalStatus, reviewer string, notes *string, at time.Time) (*domain.MarkupProposal, error) {
	p, ok := f.proposals[id]
	if !ok {
		return nil, domain.ErrProposalNotFound
	}
	if p.Status != domain.ProposalPending {
		return nil, domain.ErrProposalNotPending
	}
	p.Status = status
	p.ReviewedBy = &reviewer
	p.ReviewedAt = &at
	p.ReviewNotes = notes
	p.UpdatedAt = at
	return p, nil
}

func (f *fakeProposalStore) ExpirePending(_ context.Context, now time.Time) (int, error) {
	count := 0
	for _, p := range f.proposals {
		if p.Status == domain.ProposalPending && p.ValidUntil.Before(now) {
			p.Status = domain.ProposalExpired
			count++
		}
	}
	return count, nil
}

type fakeHistoryStore struct {
	rows []*domain.MarkupHistory
}

func (f *fakeHistoryStore) Insert(_ context.Context, h *domain.MarkupHistory) error {
	f.rows = append(f.rows, h)
	return nil
}

func (f *fakeHistoryStore) List(_ context.Context, limit int) ([]*domain.MarkupHistory, error) {
	if len(f.rows) > limit {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

type fakeSettingsStore struct {
	active *domain.YieldSettings
}

func (f *fakeSettingsStore) GetActive(_ context.Context) (*domain.YieldSettings, error) {
	if f.active == nil {
		return nil, domain.ErrSettingsNotFound
	}
	return f.active, nil
}

func (f *fakeSettingsStore) Upsert(_ context.Context, s *domain.YieldSettings) error {
	cp := *s
	f.active = &cp
	return nil
}

func newMarkupService() (*service.MarkupService, *fakeProposalStore, *fakeHistoryStore, *fakeSettingsStore) {
	proposals := newFakeProposalStore()
	history := &fakeHistoryStore{}
	settings := &fakeSettingsStore{}
	return service.NewMarkupService(proposals, history, settings, testLogger()), proposals, history, settings
}

// ── Settings ──────────────────────────────────────────────────────────────────

func TestGetYieldSettingsFallsBackToDefaults(t *testing.T) {
	svc, _, _, _ := newMarkupService()

	settings, err := svc.GetYieldSettings(context.Background())
	if err != nil {
		t.Fatalf("GetYieldSettings: %v", err)
	}
	if !settings.DefaultMarkupPercent.Equal(decimal.NewFromInt(15)) {
		t.Errorf("default markup = %s, want 15", settings.DefaultMarkupPercent)
	}
}

func TestUpdateYieldSettings(t *testing.T) {
	svc, _, _, store := newMarkupService()
	ctx := context.Background()

	in := domain.DefaultYieldSettings()
	in.DefaultMarkupPercent = decimal.NewFromInt(18)

	updated, err := svc.UpdateYieldSettings(ctx, in)
	if err != nil {
		t.Fatalf("UpdateYieldSettings: %v", err)
	}
	if updated.ID == uuid.Nil {
		t.Error("updated settings missing generated id")
	}
	if store.active == nil || !store.active.DefaultMarkupPercent.Equal(decimal.NewFromInt(18)) {
		t.Errorf("settings not persisted: %+v", store.active)
	}

	settings, err := svc.GetYieldSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !settings.DefaultMarkupPercent.Equal(decimal.NewFromInt(18)) {
		t.Errorf("read-back markup = %s, want 18", settings.DefaultMarkupPercent)
	}
}

// ── CreateProposal ────────────────────────────────────────────────────────────

func TestCreateProposalAutoApproves(t *testing.T) {
	svc, _, history, _ := newMarkupService()

	// Competitor avg 118 on base 100: markup (18 - 2) = 16, deviation from the
	// default 15 is 1 — inside the 5 % auto-approve threshold.
	p, err := svc.CreateProposal(context.Background(), service.CreateProposalRequest{
		ServiceType:        domain.ServiceHotel,
		BaseCost:           decimal.NewFromInt(100),
		CompetitorAvgPrice: decimal.NewFromInt(118),
	})
	if err != nil {
		t.Fatalf("CreateProposal: %v", err)
	}

	if p.Status != domain.ProposalApproved || !p.AutoApproved {
		t.Errorf("status = %s auto=%v, want approved/true", p.Status, p.AutoApproved)
	}
	if p.AutoApprovalReason == nil {
		t.Error("auto-approved proposal missing reason")
	}
	if !p.ProposedMarkupPercent.Equal(decimal.NewFromInt(16)) {
		t.Errorf("proposed markup = %s, want 16", p.ProposedMarkupPercent)
	}
	if !p.ProposedSellingPrice.Equal(decimal.NewFromInt(116)) {
		t.Errorf("proposed price = %s, want 116", p.ProposedSellingPrice)
	}

	if len(history.rows) != 1 {
		t.Fatalf("history rows = %d, want exactly 1", len(history.rows))
	}
	h := history.rows[0]
	if h.ChangeReason != "auto_approval" || h.ChangedBy != "system" {
		t.Errorf("history row = (%s, %s), want (auto_approval, system)", h.ChangeReason, h.ChangedBy)
	}
	if h.ProposalID != p.ID {
		t.Errorf("history proposal id = %s, want %s", h.ProposalID, p.ID)
	}
}

func TestCreateProposalStaysPending(t *testing.T) {
	svc, _, history, _ := newMarkupService()

	// Competitor avg 130: markup 28, deviation 13 — beyond the threshold.
	p, err := svc.CreateProposal(context.Background(), service.CreateProposalRequest{
		ServiceType:        domain.ServiceHotel,
		BaseCost:           decimal.NewFromInt(100),
		CompetitorAvgPrice: decimal.NewFromInt(130),
	})
	if err != nil {
		t.Fatalf("CreateProposal: %v", err)
	}

	if p.Status != domain.ProposalPending || p.AutoApproved {
		t.Errorf("status = %s auto=%v, want pending/false", p.Status, p.AutoApproved)
	}
	if len(history.rows) != 0 {
		t.Errorf("history rows = %d, want 0 before review", len(history.rows))
	}
	if got := p.ValidUntil.Sub(p.ValidFrom); got != domain.ProposalValidity {
		t.Errorf("validity window = %s, want %s", got, domain.ProposalValidity)
	}
	if p.ProposedBy != "system" {
		t.Errorf("proposed_by = %q, want system default", p.ProposedBy)
	}
}

func TestCreateProposalValidation(t *testing.T) {
	svc, _, _, _ := newMarkupService()
	ctx := context.Background()

	_, err := svc.CreateProposal(ctx, service.CreateProposalRequest{
		ServiceType: "cruise",
		BaseCost:    decimal.NewFromInt(100),
	})
	if err != domain.ErrInvalidServiceType {
		t.Errorf("invalid service type err = %v", err)
	}

	_, err = svc.CreateProposal(ctx, service.CreateProposalRequest{
		ServiceType: domain.ServiceHotel,
		BaseCost:    decimal.Zero,
	})
	if err != domain.ErrInvalidBaseCost {
		t.Errorf("zero base cost err = %v", err)
	}
}

// ── Review ────────────────────────────────────────────────────────────────────

func createPending(t *testing.T, svc *service.MarkupService) *domain.MarkupProposal {
	t.Helper()
	p, err := svc.CreateProposal(context.Background(), service.CreateProposalRequest{
		ServiceType:        domain.ServiceHotel,
		BaseCost:           decimal.NewFromInt(100),
		CompetitorAvgPrice: decimal.NewFromInt(130),
	})
	if err != nil {
		t.Fatalf("CreateProposal: %v", err)
	}
	if p.Status != domain.ProposalPending {
		t.Fatalf("fixture proposal status = %s, want pending", p.Status)
	}
	return p
}

func TestApproveProposal(t *testing.T) {
	svc, _, history, _ := newMarkupService()
	ctx := context.Background()
	p := createPending(t, svc)

	approved, err := svc.ApproveProposal(ctx, p.ID, "manager", nil)
	if err != nil {
		t.Fatalf("ApproveProposal: %v", err)
	}
	if approved.Status != domain.ProposalApproved {
		t.Errorf("status = %s, want approved", approved.Status)
	}
	if approved.ReviewedBy == nil || *approved.ReviewedBy != "manager" {
		t.Errorf("reviewed_by = %v, want manager", approved.ReviewedBy)
	}

	if len(history.rows) != 1 {
		t.Fatalf("history rows = %d, want 1", len(history.rows))
	}
	if h := history.rows[0]; h.ChangeReason != "manual_approval" || h.ChangedBy != "manager" {
		t.Errorf("history row = (%s, %s), want (manual_approval, manager)", h.ChangeReason, h.ChangedBy)
	}

	// Second review of the same proposal must conflict.
	if _, err = svc.ApproveProposal(ctx, p.ID, "other", nil); !domain.IsConflict(err) {
		t.Errorf("double approve err = %v, want conflict", err)
	}
	if _, err = svc.RejectProposal(ctx, p.ID, "other", nil); !domain.IsConflict(err) {
		t.Errorf("reject after approve err = %v, want conflict", err)
	}
	if len(history.rows) != 1 {
		t.Errorf("history rows after failed reviews = %d, want still 1", len(history.rows))
	}
}

func TestRejectProposalWritesNoHistory(t *testing.T) {
	svc, _, history, _ := newMarkupService()
	p := createPending(t, svc)

	notes := "competitor data too thin"
	rejected, err := svc.RejectProposal(context.Background(), p.ID, "manager", &notes)
	if err != nil {
		t.Fatalf("RejectProposal: %v", err)
	}
	if rejected.Status != domain.ProposalRejected {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}
	if len(history.rows) != 0 {
		t.Errorf("history rows = %d, want 0 for rejection", len(history.rows))
	}
}

func TestReviewUnknownProposal(t *testing.T) {
	svc, _, _, _ := newMarkupService()

	_, err := svc.ApproveProposal(context.Background(), uuid.New(), "manager", nil)
	if !domain.IsNotFound(err) {
		t.Errorf("approve unknown err = %v, want not-found", err)
	}
}

// ── Expiry ────────────────────────────────────────────────────────────────────

func TestExpireOldProposals(t *testing.T) {
	svc, proposals, _, _ := newMarkupService()
	ctx := context.Background()

	stale := createPending(t, svc)
	fresh := createPending(t, svc)

	// Age the first proposal past its validity window.
	proposals.proposals[stale.ID].ValidUntil = time.Now().UTC().Add(-time.Hour)

	count, err := svc.ExpireOldProposals(ctx)
	if err != nil {
		t.Fatalf("ExpireOldProposals: %v", err)
	}
	if count != 1 {
		t.Errorf("expired count = %d, want 1", count)
	}
	if got := proposals.proposals[stale.ID].Status; got != domain.ProposalExpired {
		t.Errorf("stale status = %s, want expired", got)
	}
	if got := proposals.proposals[fresh.ID].Status; got != domain.ProposalPending {
		t.Errorf("fresh status = %s, want still pending", got)
	}

	// Expired proposals are terminal.
	if _, err = svc.ApproveProposal(ctx, stale.ID, "manager", nil); !domain.IsConflict(err) {
		t.Errorf("approve expired err = %v, want conflict", err)
	}
}
