// Package domain defines the core business entities and types for the
// Meridian Travel yield-management and dynamic-pricing engine.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// SessionType describes how a scraping session was triggered.
type SessionType string

const (
	SessionScheduled SessionType = "scheduled" // started by the background scheduler
	SessionManual    SessionType = "manual"    // started from a dashboard command
	SessionOnDemand  SessionType = "on_demand" // started by an aggregation request
)

// IsValid returns true if the session type is recognised.
func (s SessionType) IsValid() bool {
	return s == SessionScheduled || s == SessionManual || s == SessionOnDemand
}

// SessionStatus is the lifecycle state of a scraping session.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
)

// ──────────────────────────────────────────────────────────────────────────────
// Scraping targets
// ──────────────────────────────────────────────────────────────────────────────

// TargetSelectors holds the CSS selector hints used to locate the search form
// and to extract listing fields on one competitor site.  Selectors are
// comma-separated alternatives, tried in DOM order.
type TargetSelectors struct {
	DestinationInput string `json:"destination_input"`
	CheckInInput     string `json:"check_in_input"`
	CheckOutInput    string `json:"check_out_input"`
	AdultsInput      string `json:"adults_input"`
	SubmitButton     string `json:"submit_button"`

	ResultCard   string `json:"result_card"`
	HotelName    string `json:"hotel_name"`
	Price        string `json:"price"`
	Availability string `json:"availability"`
	MealPlan     string `json:"meal_plan"`
	RoomType     string `json:"room_type"`
}

// ScrapingTarget is one competitor site in the fixed scraping registry.
type ScrapingTarget struct {
	Name      string          `json:"name"`
	URL       string          `json:"url"`
	Enabled   bool            `json:"enabled"`
	Selectors TargetSelectors `json:"selectors"`
}

// ──────────────────────────────────────────────────────────────────────────────
// CompetitorPrice
// ──────────────────────────────────────────────────────────────────────────────

// CompetitorPrice is one price observation scraped from a competitor site.
// Rows are append-only; a row exists only for a successful per-target extraction.
type CompetitorPrice struct {
	ID             uuid.UUID       `json:"id"              db:"id"`
	SessionID      uuid.UUID       `json:"session_id"      db:"session_id"`
	CompetitorName string          `json:"competitor_name" db:"competitor_name"`
	CompetitorURL  string          `json:"competitor_url"  db:"competitor_url"`
	HotelName      string          `json:"hotel_name"      db:"hotel_name"`
	HotelLocation  *string         `json:"hotel_location"  db:"hotel_location"`
	HotelStars     *int            `json:"hotel_stars"     db:"hotel_stars"`
	Destination    string          `json:"destination"     db:"destination"`
	CheckIn        time.Time       `json:"check_in"        db:"check_in"`
	CheckOut       time.Time       `json:"check_out"       db:"check_out"`
	Nights         int             `json:"nights"          db:"nights"`
	Adults         int             `json:"adults"          db:"adults"`
	Children       int             `json:"children"        db:"children"`
	Price          decimal.Decimal `json:"price"           db:"price"`
	Currency       string          `json:"currency"        db:"currency"`
	MealPlan       *string         `json:"meal_plan"       db:"meal_plan"`
	RoomType       *string         `json:"room_type"       db:"room_type"`
	IsAvailable    bool            `json:"is_available"    db:"is_available"`
	ScrapedAt      time.Time       `json:"scraped_at"      db:"scraped_at"`
}

// CalculateNights returns the number of nights between check-in and check-out,
// rounding partial days up.
func CalculateNights(checkIn, checkOut time.Time) int {
	diff := checkOut.Sub(checkIn)
	nights := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		nights++
	}
	return nights
}

// ──────────────────────────────────────────────────────────────────────────────
// ScrapingSession
// ──────────────────────────────────────────────────────────────────────────────

// ScrapeError records one failed competitor extraction inside a session.
type ScrapeError struct {
	Competitor string    `json:"competitor"`
	Error      string    `json:"error"`
	Timestamp  time.Time `json:"timestamp"`
}

// ScrapeErrorList is a JSONB-backed slice of scrape errors.
type ScrapeErrorList []ScrapeError

// Value implements driver.Valuer for JSONB storage.
func (l ScrapeErrorList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB storage.
func (l *ScrapeErrorList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("scrape_error_list: unsupported scan type %T", src)
	}
	return json.Unmarshal(b, l)
}

// ScrapingSession is one bounded orchestration run across the target registry.
// Failures accumulate in Errors and never abort the session.
type ScrapingSession struct {
	ID                 uuid.UUID       `json:"id"                   db:"id"`
	SessionType        SessionType     `json:"session_type"         db:"session_type"`
	TargetCompetitors  pq.StringArray  `json:"target_competitors"   db:"target_competitors"`
	Status             SessionStatus   `json:"status"               db:"status"`
	StartedAt          time.Time       `json:"started_at"           db:"started_at"`
	CompletedAt        *time.Time      `json:"completed_at"         db:"completed_at"`
	DurationSeconds    *int            `json:"duration_seconds"     db:"duration_seconds"`
	TotalPricesScraped int             `json:"total_prices_scraped" db:"total_prices_scraped"`
	SuccessfulScrapes  int             `json:"successful_scrapes"   db:"successful_scrapes"`
	FailedScrapes      int             `json:"failed_scrapes"       db:"failed_scrapes"`
	Errors             ScrapeErrorList `json:"errors"               db:"errors"`
	TriggeredBy        string          `json:"triggered_by"         db:"triggered_by"`
	CreatedAt          time.Time       `json:"created_at"           db:"created_at"`
}

// IsRunning returns true while the session has not been completed.
func (s *ScrapingSession) IsRunning() bool {
	return s.Status == SessionRunning
}
