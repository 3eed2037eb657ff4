// Package service implements the four engine components: hotel identity
// matching, competitor scraping, price aggregation and the markup approval
// workflow.  Services accept narrow store interfaces so the sqlx repositories
// can be swapped for in-memory fakes in tests.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-travel/yield/internal/domain"
)

// SimilarityThreshold is the minimum score at which two hotel names are
// considered the same physical property.  A tunable balance between false
// merges and missed merges.
const SimilarityThreshold = 0.75

// MatchStore is the persistence contract the matcher needs.
// Implemented by repository.HotelMatchRepository.
type MatchStore interface {
	Create(ctx context.Context, m *domain.HotelMatch) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.HotelMatch, error)
	FindByVariant(ctx context.Context, source, name string) (*domain.HotelMatch, error)
	GetAll(ctx context.Context) ([]*domain.HotelMatch, error)
	AppendVariant(ctx context.Context, matchID uuid.UUID, v domain.HotelVariant) error
	Verify(ctx context.Context, matchID uuid.UUID, userID string, at time.Time) error
}

// MatcherService resolves inconsistent hotel names across supply and
// competitor sources to master hotel records.
type MatcherService struct {
	store  MatchStore
	logger *slog.Logger
}

// NewMatcherService creates a MatcherService.
func NewMatcherService(store MatchStore, logger *slog.Logger) *MatcherService {
	return &MatcherService{store: store, logger: logger}
}

// ──────────────────────────────────────────────────────────────────────────────
// Similarity algorithm — pure, no I/O
// ──────────────────────────────────────────────────────────────────────────────

var (
	starRatingRe  = regexp.MustCompile(`\d+\*`)
	nonWordRe     = regexp.MustCompile(`[^\w\s&]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	strippedWords = strings.NewReplacer("hotel", "", "resort", "")
)

// normalizeHotelName lowercases the name, strips the generic tokens "hotel"
// and "resort", star-rating patterns (e.g. "5*") and punctuation except "&",
// and collapses whitespace.
func normalizeHotelName(name string) string {
	n := strings.ToLower(name)
	n = strings.ReplaceAll(n, "&amp;", "&")
	n = strippedWords.Replace(n)
	n = starRatingRe.ReplaceAllString(n, "")
	n = nonWordRe.ReplaceAllString(n, "")
	n = whitespaceRe.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

// Similarity scores two hotel names in [0, 1], rounded to 2 decimals.
// Symmetric; identical names score 1.0.
func Similarity(name1, name2 string) float64 {
	n1 := normalizeHotelName(name1)
	n2 := normalizeHotelName(name2)

	maxLen := len([]rune(n1))
	if l2 := len([]rune(n2)); l2 > maxLen {
		maxLen = l2
	}
	if maxLen == 0 {
		return 1.0 // both names normalize to nothing
	}

	distance := levenshtein(n1, n2)
	similarity := 1 - float64(distance)/float64(maxLen)
	return math.Round(similarity*100) / 100
}

// ──────────────────────────────────────────────────────────────────────────────
// Matching operations
// ──────────────────────────────────────────────────────────────────────────────

// FindMatches resolves a (name, source) observation to a master hotel record:
//
//  1. If a match already lists exactly (source, name) as a variant, it is
//     returned unchanged.
//  2. Otherwise every match is scored against the name, over both master names
//     and variants.
//  3. A best score at or above the threshold appends the variant idempotently
//     and returns that match.
//  4. Below the threshold a new master record is created with the name as its
//     sole variant.
func (s *MatcherService) FindMatches(ctx context.Context, hotelName, source string, location *string, stars *int) (*domain.HotelMatch, error) {
	// 1. Fast path: exact variant already registered
	existing, err := s.store.FindByVariant(ctx, source, hotelName)
	if err != nil {
		return nil, fmt.Errorf("matcher.FindMatches: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	// 2. Score against every known match
	matches, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("matcher.FindMatches: %w", err)
	}

	var best *domain.HotelMatch
	bestScore := 0.0
	for _, m := range matches {
		score := Similarity(hotelName, m.MasterHotelName)
		if score > bestScore {
			bestScore = score
			best = m
		}
		for _, v := range m.Variants {
			if vs := Similarity(hotelName, v.Name); vs > bestScore {
				bestScore = vs
				best = m
			}
		}
	}

	// 3. Threshold reached: attach as a variant of the best match
	if best != nil && bestScore >= SimilarityThreshold {
		s.logger.Info("hotel match found",
			"hotel", hotelName, "source", source,
			"master", best.MasterHotelName, "score", bestScore)

		err = s.store.AppendVariant(ctx, best.ID, domain.HotelVariant{
			Source:          source,
			Name:            hotelName,
			SimilarityScore: bestScore,
		})
		if err != nil {
			// Best-effort side record: the resolved identity is still valid.
			s.logger.Warn("variant append failed", "master", best.MasterHotelName, "err", err)
		}
		return best, nil
	}

	// 4. No match: new master record
	s.logger.Info("no hotel match, creating master record", "hotel", hotelName, "source", source)

	now := time.Now().UTC()
	newMatch := &domain.HotelMatch{
		ID:                  uuid.New(),
		MasterHotelName:     hotelName,
		MasterHotelLocation: location,
		MasterHotelStars:    stars,
		Variants: domain.VariantList{
			{Source: source, Name: hotelName, SimilarityScore: 1.0},
		},
		MatchingAlgorithm: "fuzzy",
		ConfidenceScore:   1.0,
		ManuallyVerified:  false,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err = s.store.Create(ctx, newMatch); err != nil {
		return nil, fmt.Errorf("matcher.FindMatches create: %w", err)
	}
	return newMatch, nil
}

// DeduplicateHotels groups raw multi-source search entries by resolved master
// name, tracking per-source prices and the cheapest offer per group, so the
// caller can present one card per real hotel.
func (s *MatcherService) DeduplicateHotels(ctx context.Context, hotels []domain.RawHotel) ([]domain.DedupedHotel, error) {
	groups := make(map[string]*domain.DedupedHotel)
	var order []string // preserve first-seen ordering

	for _, h := range hotels {
		match, err := s.FindMatches(ctx, h.Name, h.Source, h.Location, h.Stars)
		if err != nil {
			return nil, fmt.Errorf("matcher.DeduplicateHotels: %w", err)
		}

		master := match.MasterHotelName
		g, ok := groups[master]
		if !ok {
			g = &domain.DedupedHotel{MasterName: master, LowestPrice: h.Price}
			groups[master] = g
			order = append(order, master)
		}

		g.Sources = append(g.Sources, h.Source)
		g.AllPrices = append(g.AllPrices, domain.SourcePrice{Source: h.Source, Price: h.Price})
		if h.Price.LessThan(g.LowestPrice) {
			g.LowestPrice = h.Price
		}
	}

	result := make([]domain.DedupedHotel, 0, len(order))
	for _, master := range order {
		result = append(result, *groups[master])
	}
	return result, nil
}

// VerifyMatch marks a match as manually verified by the given user.
// Verification is a flag only; the variant structure is untouched.
func (s *MatcherService) VerifyMatch(ctx context.Context, matchID uuid.UUID, userID string) error {
	if err := s.store.Verify(ctx, matchID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("matcher.VerifyMatch: %w", err)
	}
	return nil
}

// GetAllMatches returns every master record, most recently created first.
func (s *MatcherService) GetAllMatches(ctx context.Context) ([]*domain.HotelMatch, error) {
	matches, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("matcher.GetAllMatches: %w", err)
	}
	return matches, nil
}
