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
// Hotel identity matching
// ──────────────────────────────────────────────────────────────────────────────

// HotelVariant is one source-specific spelling of a master hotel record.
type HotelVariant struct {
	Source          string  `json:"source"`
	Name            string  `json:"name"`
	SimilarityScore float64 `json:"similarity_score"` // 0–1 against the master name
}

// VariantList is a JSONB-backed slice of hotel name variants.
type VariantList []HotelVariant

// Value implements driver.Valuer for JSONB storage.
func (l VariantList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB storage.
func (l *VariantList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("variant_list: unsupported scan type %T", src)
	}
	return json.Unmarshal(b, l)
}

// Contains returns true when the list already carries the (source, name) pair.
func (l VariantList) Contains(source, name string) bool {
	for _, v := range l {
		if v.Source == source && v.Name == name {
			return true
		}
	}
	return false
}

// HotelMatch is the canonical identity of one real property, with all known
// source-specific name variants attached.  The master name is immutable after
// creation; only the variant list and verification flags change.
type HotelMatch struct {
	ID                  uuid.UUID   `json:"id"                    db:"id"`
	MasterHotelName     string      `json:"master_hotel_name"     db:"master_hotel_name"`
	MasterHotelLocation *string     `json:"master_hotel_location" db:"master_hotel_location"`
	MasterHotelStars    *int        `json:"master_hotel_stars"    db:"master_hotel_stars"`
	Variants            VariantList `json:"variants"              db:"variants"`
	MatchingAlgorithm   string      `json:"matching_algorithm"    db:"matching_algorithm"` // fuzzy | manual
	ConfidenceScore     float64     `json:"confidence_score"      db:"confidence_score"`
	ManuallyVerified    bool        `json:"manually_verified"     db:"manually_verified"`
	VerifiedBy          *string     `json:"verified_by"           db:"verified_by"`
	VerifiedAt          *time.Time  `json:"verified_at"           db:"verified_at"`
	CreatedAt           time.Time   `json:"created_at"            db:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"            db:"updated_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Deduplication view — one card per real hotel
// ──────────────────────────────────────────────────────────────────────────────

// RawHotel is a multi-source search entry before identity resolution.
type RawHotel struct {
	Name     string          `json:"name"`
	Source   string          `json:"source"`
	Price    decimal.Decimal `json:"price"`
	Location *string         `json:"location,omitempty"`
	Stars    *int            `json:"stars,omitempty"`
}

// SourcePrice pairs a source with the price it advertises.
type SourcePrice struct {
	Source string          `json:"source"`
	Price  decimal.Decimal `json:"price"`
}

// DedupedHotel groups every source offering the same real property under its
// master name, tracking the cheapest offer.
type DedupedHotel struct {
	MasterName  string          `json:"master_name"`
	Sources     []string        `json:"sources"`
	LowestPrice decimal.Decimal `json:"lowest_price"`
	AllPrices   []SourcePrice   `json:"all_prices"`
}
