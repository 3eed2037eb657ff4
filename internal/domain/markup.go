package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// ServiceType identifies the kind of travel service a proposal prices.
type ServiceType string

const (
	ServiceHotel    ServiceType = "hotel"
	ServicePackage  ServiceType = "package"
	ServiceCharter  ServiceType = "charter"
	ServiceTransfer ServiceType = "transfer"
)

// IsValid returns true if the service type is recognised.
func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceHotel, ServicePackage, ServiceCharter, ServiceTransfer:
		return true
	}
	return false
}

// ProposalStatus is the approval lifecycle state of a markup proposal.
// approved, rejected and expired are terminal.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
	ProposalExpired  ProposalStatus = "expired"
)

// MarketLevel grades a contextual factor (season, demand, risk).
type MarketLevel string

const (
	LevelLow    MarketLevel = "low"
	LevelMedium MarketLevel = "medium"
	LevelHigh   MarketLevel = "high"
)

// ProposalValidity is how long a proposal stays actionable before the expiry
// sweep transitions it to expired.
const ProposalValidity = 24 * time.Hour

// ──────────────────────────────────────────────────────────────────────────────
// Calculation factors
// ──────────────────────────────────────────────────────────────────────────────

// CalculationFactors carries the contextual inputs of one markup calculation.
// Stored as JSONB on proposals and echoed into history rows as trigger data.
type CalculationFactors struct {
	Season                   MarketLevel `json:"season,omitempty"`
	Demand                   MarketLevel `json:"demand,omitempty"`
	Risk                     MarketLevel `json:"risk,omitempty"`
	DaysToDeparture          *int        `json:"days_to_departure,omitempty"`
	OccupancyRate            *float64    `json:"occupancy_rate,omitempty"`
	HistoricalConversionRate *float64    `json:"historical_conversion_rate,omitempty"`
}

// Value implements driver.Valuer for JSONB storage.
func (f CalculationFactors) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements sql.Scanner for JSONB storage.
func (f *CalculationFactors) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("calculation_factors: unsupported scan type %T", src)
	}
	return json.Unmarshal(b, f)
}

// ──────────────────────────────────────────────────────────────────────────────
// YieldSettings — the single active pricing configuration scope
// ──────────────────────────────────────────────────────────────────────────────

// YieldSettings is the active global pricing configuration.  When no active
// row exists the engine falls back to DefaultYieldSettings, so it is operable
// before first configuration.
type YieldSettings struct {
	ID                          uuid.UUID       `json:"id"                             db:"id"`
	SettingType                 string          `json:"setting_type"                   db:"setting_type"`
	DefaultMarkupPercent        decimal.Decimal `json:"default_markup_percent"         db:"default_markup_percent"`
	MinMarkupPercent            decimal.Decimal `json:"min_markup_percent"             db:"min_markup_percent"`
	MaxMarkupPercent            decimal.Decimal `json:"max_markup_percent"             db:"max_markup_percent"`
	AutoApproveThresholdPercent decimal.Decimal `json:"auto_approve_threshold_percent" db:"auto_approve_threshold_percent"`
	MatchCompetitorPrice        bool            `json:"match_competitor_price"         db:"match_competitor_price"`
	UndercutCompetitorByPercent decimal.Decimal `json:"undercut_competitor_by_percent" db:"undercut_competitor_by_percent"`
	ScrapingFrequency           string          `json:"scraping_frequency"             db:"scraping_frequency"` // hourly | daily | weekly
	ScrapingEnabled             bool            `json:"scraping_enabled"               db:"scraping_enabled"`
	NotifyOnPriceChange         bool            `json:"notify_on_price_change"         db:"notify_on_price_change"`
	NotifyOnCompetitorLower     bool            `json:"notify_on_competitor_lower"     db:"notify_on_competitor_lower"`
	Active                      bool            `json:"active"                         db:"active"`
	CreatedAt                   time.Time       `json:"created_at"                     db:"created_at"`
	UpdatedAt                   time.Time       `json:"updated_at"                     db:"updated_at"`
}

// DefaultYieldSettings returns the hardcoded safe defaults used when no active
// settings row has been configured yet.
func DefaultYieldSettings() YieldSettings {
	return YieldSettings{
		SettingType:                 "global",
		DefaultMarkupPercent:        decimal.NewFromInt(15),
		MinMarkupPercent:            decimal.NewFromInt(5),
		MaxMarkupPercent:            decimal.NewFromInt(30),
		AutoApproveThresholdPercent: decimal.NewFromInt(5),
		MatchCompetitorPrice:        false,
		UndercutCompetitorByPercent: decimal.NewFromInt(2),
		ScrapingFrequency:           "daily",
		ScrapingEnabled:             true,
		NotifyOnPriceChange:         true,
		NotifyOnCompetitorLower:     true,
		Active:                      true,
	}
}

// Seasonal, demand and lead-time multipliers applied by DynamicMarkup.
var (
	highSeasonMult = decimal.NewFromFloat(1.10)
	lowSeasonMult  = decimal.NewFromFloat(0.90)
	highDemandMult = decimal.NewFromFloat(1.05)
	lowDemandMult  = decimal.NewFromFloat(0.95)
	lastMinuteMult = decimal.NewFromFloat(0.80) // < 7 days to departure
	nearTermMult   = decimal.NewFromFloat(0.90) // < 14 days to departure
)

// DynamicMarkup computes the bounded markup percentage for a base cost given
// the competitor average and contextual factors.
//
// The step order is a binding design choice — clamping happens only at the end,
// so multiplication order matters:
//
//	competitor base → seasonal → demand → lead time → clamp → round 2 dp
//
// A zero competitorAvg means no competitor data; the default markup is the base.
func (s YieldSettings) DynamicMarkup(baseCost, competitorAvg decimal.Decimal, factors *CalculationFactors) decimal.Decimal {
	markup := s.DefaultMarkupPercent

	// 1. Competitor-based adjustment
	if competitorAvg.IsPositive() && baseCost.IsPositive() {
		hundred := decimal.NewFromInt(100)
		competitorMarkup := competitorAvg.Sub(baseCost).Div(baseCost).Mul(hundred)
		if s.MatchCompetitorPrice {
			markup = competitorMarkup
		} else {
			markup = competitorMarkup.Sub(s.UndercutCompetitorByPercent)
		}
	}

	if factors != nil {
		// 2. Seasonal adjustment
		switch factors.Season {
		case LevelHigh:
			markup = markup.Mul(highSeasonMult)
		case LevelLow:
			markup = markup.Mul(lowSeasonMult)
		}

		// 3. Demand adjustment
		switch factors.Demand {
		case LevelHigh:
			markup = markup.Mul(highDemandMult)
		case LevelLow:
			markup = markup.Mul(lowDemandMult)
		}

		// 4. Lead-time adjustment
		if factors.DaysToDeparture != nil {
			switch {
			case *factors.DaysToDeparture < 7:
				markup = markup.Mul(lastMinuteMult)
			case *factors.DaysToDeparture < 14:
				markup = markup.Mul(nearTermMult)
			}
		}
	}

	// 5. Clamp to [min, max]
	if markup.LessThan(s.MinMarkupPercent) {
		markup = s.MinMarkupPercent
	}
	if markup.GreaterThan(s.MaxMarkupPercent) {
		markup = s.MaxMarkupPercent
	}

	return markup.Round(2)
}

// SellingPrice applies a percentage markup to a base cost.
func SellingPrice(baseCost, markupPercent decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	return baseCost.Mul(one.Add(markupPercent.Div(hundred))).Round(2)
}

// ──────────────────────────────────────────────────────────────────────────────
// MarkupProposal
// ──────────────────────────────────────────────────────────────────────────────

// MarkupProposal is one proposed change to the selling-price markup, moving
// through the pending → approved | rejected | expired state machine.
type MarkupProposal struct {
	ID                    uuid.UUID           `json:"id"                      db:"id"`
	ServiceType           ServiceType         `json:"service_type"            db:"service_type"`
	HotelName             *string             `json:"hotel_name"              db:"hotel_name"`
	Destination           *string             `json:"destination"             db:"destination"`
	BaseCost              decimal.Decimal     `json:"base_cost"               db:"base_cost"`
	CompetitorAvgPrice    decimal.Decimal     `json:"competitor_avg_price"    db:"competitor_avg_price"`
	CurrentMarkupPercent  decimal.Decimal     `json:"current_markup_percent"  db:"current_markup_percent"`
	CurrentSellingPrice   decimal.Decimal     `json:"current_selling_price"   db:"current_selling_price"`
	ProposedMarkupPercent decimal.Decimal     `json:"proposed_markup_percent" db:"proposed_markup_percent"`
	ProposedSellingPrice  decimal.Decimal     `json:"proposed_selling_price"  db:"proposed_selling_price"`
	CalculationFactors    *CalculationFactors `json:"calculation_factors"     db:"calculation_factors"`
	Status                ProposalStatus      `json:"status"                  db:"status"`
	ProposedBy            string              `json:"proposed_by"             db:"proposed_by"`
	ProposedAt            time.Time           `json:"proposed_at"             db:"proposed_at"`
	ReviewedBy            *string             `json:"reviewed_by"             db:"reviewed_by"`
	ReviewedAt            *time.Time          `json:"reviewed_at"             db:"reviewed_at"`
	ReviewNotes           *string             `json:"review_notes"            db:"review_notes"`
	AutoApproved          bool                `json:"auto_approved"           db:"auto_approved"`
	AutoApprovalReason    *string             `json:"auto_approval_reason"    db:"auto_approval_reason"`
	ValidFrom             time.Time           `json:"valid_from"              db:"valid_from"`
	ValidUntil            time.Time           `json:"valid_until"             db:"valid_until"`
	CreatedAt             time.Time           `json:"created_at"              db:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"              db:"updated_at"`
}

// IsPending returns true while the proposal can still be reviewed.
func (p *MarkupProposal) IsPending() bool {
	return p.Status == ProposalPending
}

// ──────────────────────────────────────────────────────────────────────────────
// MarkupHistory — append-only change ledger
// ──────────────────────────────────────────────────────────────────────────────

// MarkupHistory records one effective markup change.  Exactly one row is
// written per approval, whether automatic or manual; rejections write none.
type MarkupHistory struct {
	ID               uuid.UUID           `json:"id"                 db:"id"`
	ProposalID       uuid.UUID           `json:"proposal_id"        db:"proposal_id"`
	ServiceType      ServiceType         `json:"service_type"       db:"service_type"`
	HotelName        *string             `json:"hotel_name"         db:"hotel_name"`
	OldMarkupPercent decimal.Decimal     `json:"old_markup_percent" db:"old_markup_percent"`
	NewMarkupPercent decimal.Decimal     `json:"new_markup_percent" db:"new_markup_percent"`
	OldPrice         decimal.Decimal     `json:"old_price"          db:"old_price"`
	NewPrice         decimal.Decimal     `json:"new_price"          db:"new_price"`
	ChangeReason     string              `json:"change_reason"      db:"change_reason"` // auto_approval | manual_approval
	TriggerData      *CalculationFactors `json:"trigger_data"       db:"trigger_data"`
	ChangedBy        string              `json:"changed_by"         db:"changed_by"`
	ChangedAt        time.Time           `json:"changed_at"         db:"changed_at"`
}
