package domain_test

import (
	"testing"
	"time"

	"github.com/meridian-travel/yield/internal/domain"
	"github.com/shopspring/decimal"
)

// TestDynamicMarkupCompetitorUndercut validates the competitor-based step of
// the markup calculation.  No I/O — pure arithmetic.
//
//	Scenario:
//	  base cost        = 100 EUR
//	  competitor avg   = 130 EUR
//	  undercut         = 2 %
//
//	  competitor markup = (130 - 100) / 100 × 100 = 30 %
//	  proposed          = 30 - 2                  = 28 %   (inside [5, 30])
//	  selling price     = 100 × 1.28              = 128.00
func TestDynamicMarkupCompetitorUndercut(t *testing.T) {
	s := domain.DefaultYieldSettings()
	base := decimal.NewFromInt(100)
	competitorAvg := decimal.NewFromInt(130)

	markup := s.DynamicMarkup(base, competitorAvg, nil)
	if want := decimal.NewFromInt(28); !markup.Equal(want) {
		t.Errorf("markup = %s, want %s", markup, want)
	}

	price := domain.SellingPrice(base, markup)
	if want := decimal.NewFromInt(128); !price.Equal(want) {
		t.Errorf("selling price = %s, want %s", price, want)
	}
}

// TestDynamicMarkupLastMinute extends the scenario above with a departure in
// 5 days: the last-minute multiplier (×0.8) applies after the competitor step.
//
//	28 × 0.8 = 22.4 %  →  selling price 122.40
func TestDynamicMarkupLastMinute(t *testing.T) {
	s := domain.DefaultYieldSettings()
	base := decimal.NewFromInt(100)
	competitorAvg := decimal.NewFromInt(130)
	days := 5

	markup := s.DynamicMarkup(base, competitorAvg, &domain.CalculationFactors{DaysToDeparture: &days})
	if want := decimal.NewFromFloat(22.4); !markup.Equal(want) {
		t.Errorf("markup = %s, want %s", markup, want)
	}

	price := domain.SellingPrice(base, markup)
	if want := decimal.NewFromFloat(122.4); !price.Equal(want) {
		t.Errorf("selling price = %s, want %s", price, want)
	}
}

// TestDynamicMarkupMatchCompetitor checks the match-price mode: no undercut
// subtraction, the competitor-implied markup is taken as is.
func TestDynamicMarkupMatchCompetitor(t *testing.T) {
	s := domain.DefaultYieldSettings()
	s.MatchCompetitorPrice = true

	markup := s.DynamicMarkup(decimal.NewFromInt(100), decimal.NewFromInt(120), nil)
	if want := decimal.NewFromInt(20); !markup.Equal(want) {
		t.Errorf("markup = %s, want %s", markup, want)
	}
}

// TestDynamicMarkupClamp verifies the result never leaves [min, max] whatever
// the inputs do.
func TestDynamicMarkupClamp(t *testing.T) {
	s := domain.DefaultYieldSettings()
	base := decimal.NewFromInt(100)

	// Competitor far above us: implied markup 150 %, clamped to max 30 %.
	markup := s.DynamicMarkup(base, decimal.NewFromInt(250), nil)
	if !markup.Equal(s.MaxMarkupPercent) {
		t.Errorf("markup = %s, want clamped to max %s", markup, s.MaxMarkupPercent)
	}

	// Competitor below cost: implied markup negative, clamped to min 5 %.
	markup = s.DynamicMarkup(base, decimal.NewFromInt(80), nil)
	if !markup.Equal(s.MinMarkupPercent) {
		t.Errorf("markup = %s, want clamped to min %s", markup, s.MinMarkupPercent)
	}

	// Low season + low demand on the default markup also bottoms out above min.
	markup = s.DynamicMarkup(base, decimal.Zero, &domain.CalculationFactors{
		Season: domain.LevelLow,
		Demand: domain.LevelLow,
	})
	if markup.LessThan(s.MinMarkupPercent) || markup.GreaterThan(s.MaxMarkupPercent) {
		t.Errorf("markup %s outside [%s, %s]", markup, s.MinMarkupPercent, s.MaxMarkupPercent)
	}
}

// TestDynamicMarkupNoCompetitorData checks that a zero competitor average
// leaves the default markup as the calculation base.
func TestDynamicMarkupNoCompetitorData(t *testing.T) {
	s := domain.DefaultYieldSettings()

	markup := s.DynamicMarkup(decimal.NewFromInt(100), decimal.Zero, nil)
	if !markup.Equal(s.DefaultMarkupPercent) {
		t.Errorf("markup = %s, want default %s", markup, s.DefaultMarkupPercent)
	}
}

// TestDefaultYieldSettings pins the hardcoded fallback values the engine uses
// before first configuration.
func TestDefaultYieldSettings(t *testing.T) {
	s := domain.DefaultYieldSettings()

	if !s.DefaultMarkupPercent.Equal(decimal.NewFromInt(15)) {
		t.Errorf("default markup = %s, want 15", s.DefaultMarkupPercent)
	}
	if !s.MinMarkupPercent.Equal(decimal.NewFromInt(5)) {
		t.Errorf("min markup = %s, want 5", s.MinMarkupPercent)
	}
	if !s.MaxMarkupPercent.Equal(decimal.NewFromInt(30)) {
		t.Errorf("max markup = %s, want 30", s.MaxMarkupPercent)
	}
	if !s.AutoApproveThresholdPercent.Equal(decimal.NewFromInt(5)) {
		t.Errorf("auto-approve threshold = %s, want 5", s.AutoApproveThresholdPercent)
	}
	if !s.UndercutCompetitorByPercent.Equal(decimal.NewFromInt(2)) {
		t.Errorf("undercut = %s, want 2", s.UndercutCompetitorByPercent)
	}
	if !s.ScrapingEnabled || s.ScrapingFrequency != "daily" {
		t.Errorf("scraping defaults = (%v, %q), want (true, daily)", s.ScrapingEnabled, s.ScrapingFrequency)
	}
}

func TestCalculateNights(t *testing.T) {
	checkIn := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)

	if n := domain.CalculateNights(checkIn, checkIn.AddDate(0, 0, 7)); n != 7 {
		t.Errorf("nights = %d, want 7", n)
	}
	// Partial days round up.
	if n := domain.CalculateNights(checkIn, checkIn.Add(36*time.Hour)); n != 2 {
		t.Errorf("nights = %d, want 2", n)
	}
}
