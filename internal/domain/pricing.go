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
// Provider prices — ephemeral, never persisted on their own
// ──────────────────────────────────────────────────────────────────────────────

// ProviderPrice is a single supply-side quote returned by one provider
// collaborator for a search.
type ProviderPrice struct {
	Provider  string          `json:"provider"`
	HotelName string          `json:"hotel_name,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	Available bool            `json:"available"`
	RoomType  string          `json:"room_type,omitempty"`
	MealPlan  string          `json:"meal_plan,omitempty"`
}

// ProviderPriceList is a JSONB-backed slice of provider quotes.
type ProviderPriceList []ProviderPrice

// Value implements driver.Valuer for JSONB storage.
func (l ProviderPriceList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB storage.
func (l *ProviderPriceList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("provider_price_list: unsupported scan type %T", src)
	}
	return json.Unmarshal(b, l)
}

// CompetitorPriceList is a JSONB-backed snapshot of competitor observations.
type CompetitorPriceList []CompetitorPrice

// Value implements driver.Valuer for JSONB storage.
func (l CompetitorPriceList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB storage.
func (l *CompetitorPriceList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("competitor_price_list: unsupported scan type %T", src)
	}
	return json.Unmarshal(b, l)
}

// ──────────────────────────────────────────────────────────────────────────────
// Search params & aggregation result
// ──────────────────────────────────────────────────────────────────────────────

// PriceSearchParams carries the inputs for one price aggregation call.
type PriceSearchParams struct {
	Destination string    `json:"destination"`
	HotelName   string    `json:"hotel_name,omitempty"`
	CheckIn     time.Time `json:"check_in"`
	CheckOut    time.Time `json:"check_out"`
	Adults      int       `json:"adults"`
	Children    int       `json:"children"`
}

// Value implements driver.Valuer so params can be snapshotted as JSONB.
func (p PriceSearchParams) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *PriceSearchParams) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("price_search_params: unsupported scan type %T", src)
	}
	return json.Unmarshal(b, p)
}

// PriceAggregationResult is the full outcome of one aggregation call.
// Ephemeral: callers receive it, only the intelligence log persists a snapshot.
type PriceAggregationResult struct {
	HotelName               string              `json:"hotel_name"`
	Destination             string              `json:"destination"`
	CheckIn                 time.Time           `json:"check_in"`
	CheckOut                time.Time           `json:"check_out"`
	ProviderPrices          []ProviderPrice     `json:"provider_prices"`
	CompetitorPrices        []CompetitorPrice   `json:"competitor_prices"`
	LowestPrice             decimal.Decimal     `json:"lowest_price"`
	LowestProvider          string              `json:"lowest_provider"`
	CompetitorAvgPrice      decimal.Decimal     `json:"competitor_avg_price"`
	RecommendedMarkup       decimal.Decimal     `json:"recommended_markup"`
	RecommendedSellingPrice decimal.Decimal     `json:"recommended_selling_price"`
	PriceAdvantage          decimal.Decimal     `json:"price_advantage"`
}

// ──────────────────────────────────────────────────────────────────────────────
// PriceIntelligenceLog — append-only audit trail of aggregation decisions
// ──────────────────────────────────────────────────────────────────────────────

// PriceIntelligenceLog snapshots one aggregation computation: its inputs, every
// price seen, and the resulting pricing decision.
type PriceIntelligenceLog struct {
	ID                 uuid.UUID           `json:"id"                   db:"id"`
	ServiceType        ServiceType         `json:"service_type"         db:"service_type"`
	HotelName          *string             `json:"hotel_name"           db:"hotel_name"`
	Destination        *string             `json:"destination"          db:"destination"`
	CheckIn            *time.Time          `json:"check_in"             db:"check_in"`
	CheckOut           *time.Time          `json:"check_out"            db:"check_out"`
	SearchParams       PriceSearchParams   `json:"search_params"        db:"search_params"`
	ProviderPrices     ProviderPriceList   `json:"provider_prices"      db:"provider_prices"`
	CompetitorPrices   CompetitorPriceList `json:"competitor_prices"    db:"competitor_prices"`
	LowestProvider     *string             `json:"lowest_provider"      db:"lowest_provider"`
	LowestPrice        decimal.Decimal     `json:"lowest_price"         db:"lowest_price"`
	CompetitorAvgPrice decimal.Decimal     `json:"competitor_avg_price" db:"competitor_avg_price"`
	RecommendedMarkup  decimal.Decimal     `json:"recommended_markup"   db:"recommended_markup"`
	PriceAdvantage     decimal.Decimal     `json:"price_advantage"      db:"price_advantage"`
	Timestamp          time.Time           `json:"timestamp"            db:"timestamp"`
}
