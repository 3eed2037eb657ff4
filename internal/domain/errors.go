package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Pricing / aggregation errors
var (
	// ErrNoPricesFound is returned when every provider branch settles without a
	// single usable price.  Distinct from a valid zero-competitor-data result.
	ErrNoPricesFound = errors.New("no prices found from any provider")

	// ErrProviderUnavailable is returned by a single provider client when its
	// upstream cannot be reached or answers with a non-success status.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// Markup proposal errors
var (
	// ErrProposalNotFound is returned when no proposal matches the given id.
	ErrProposalNotFound = errors.New("markup proposal not found")

	// ErrProposalNotPending is returned when an approve/reject is attempted on a
	// proposal that has already reached a terminal state.
	ErrProposalNotPending = errors.New("markup proposal is not pending review")

	// ErrInvalidServiceType is returned when a proposal names an unknown service type.
	ErrInvalidServiceType = errors.New("invalid service type")

	// ErrInvalidBaseCost is returned when a proposal is created with a
	// non-positive base cost.
	ErrInvalidBaseCost = errors.New("base cost must be positive")
)

// Hotel matching errors
var (
	// ErrMatchNotFound is returned when no hotel match row exists for the id.
	ErrMatchNotFound = errors.New("hotel match not found")
)

// Scraping errors
var (
	// ErrSessionNotFound is returned when no scraping session matches the id.
	ErrSessionNotFound = errors.New("scraping session not found")

	// ErrNoTargetsEnabled is returned when a session is requested but every
	// registry target is disabled.
	ErrNoTargetsEnabled = errors.New("no scraping targets are enabled")
)

// Settings errors
var (
	// ErrSettingsNotFound signals that no active yield settings row exists.
	// Callers treat this as "use defaults", never as a failure.
	ErrSettingsNotFound = errors.New("no active yield settings")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinel errors so that
// IsNotFound can stay in sync automatically.
var notFoundErrors = []error{
	ErrProposalNotFound,
	ErrMatchNotFound,
	ErrSessionNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this instead of comparing error values directly
// when translating domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors that represent a state conflict, such as
// reviewing a proposal that already reached a terminal state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrProposalNotPending)
}
