// Package scraper implements the browser-automation extractor behind the
// competitor scraping sessions, built on chromedp.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/meridian-travel/yield/internal/domain"
	"github.com/meridian-travel/yield/internal/service"
	"github.com/shopspring/decimal"
)

// userAgents is rotated per extraction to vary the browser fingerprint.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
}

const dateFormat = "2006-01-02"

// ChromeExtractor drives a headless Chrome instance through a competitor's
// public search form and scrapes the result cards.  One fresh browser per
// target keeps sessions isolated and fingerprints independent.
type ChromeExtractor struct {
	headless   bool
	navTimeout time.Duration
	logger     *slog.Logger
}

// NewChromeExtractor creates a ChromeExtractor.
func NewChromeExtractor(headless bool, navTimeout time.Duration, logger *slog.Logger) *ChromeExtractor {
	return &ChromeExtractor{
		headless:   headless,
		navTimeout: navTimeout,
		logger:     logger,
	}
}

// newContext creates a fresh chromedp context (one browser, one tab).
func (e *ChromeExtractor) newContext(parent context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", e.headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("log-level", "3"),
		chromedp.UserAgent(userAgents[rand.Intn(len(userAgents))]),
		chromedp.WindowSize(1366, 900),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	cancel := func() {
		cancelCtx()
		cancelAlloc()
	}
	return ctx, cancel
}

// Extract implements service.Extractor.  It navigates to the target, submits
// the search form with the request's parameters, and scrapes the result cards
// using the target's selector hints.
func (e *ChromeExtractor) Extract(ctx context.Context, target domain.ScrapingTarget, req service.ScrapeRequest) ([]domain.CompetitorPrice, error) {
	browserCtx, cancel := e.newContext(ctx)
	defer cancel()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, e.navTimeout)
	defer cancelTimeout()

	sel := target.Selectors

	err := chromedp.Run(browserCtx,
		chromedp.Navigate(target.URL),
		chromedp.Sleep(3*time.Second), // give JS time to render
	)
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", target.Name, err)
	}

	// Best-effort form fill: sites that encode the search in the URL render
	// results without the form, so a missing field is not fatal.
	if sel.DestinationInput != "" {
		fillErr := chromedp.Run(browserCtx,
			chromedp.SendKeys(sel.DestinationInput, req.Destination, chromedp.ByQuery),
			chromedp.SendKeys(sel.CheckInInput, req.CheckIn.Format(dateFormat), chromedp.ByQuery),
			chromedp.SendKeys(sel.CheckOutInput, req.CheckOut.Format(dateFormat), chromedp.ByQuery),
			chromedp.SendKeys(sel.AdultsInput, fmt.Sprint(req.Adults), chromedp.ByQuery),
			chromedp.Click(sel.SubmitButton, chromedp.ByQuery),
			chromedp.Sleep(5*time.Second), // wait for the results page
		)
		if fillErr != nil {
			e.logger.Warn("search form fill failed, scraping landing page",
				"competitor", target.Name, "err", fillErr)
		}
	}

	// Wait for at least one result card; fall back to a fixed pause when the
	// selector never appears.
	if waitErr := chromedp.Run(browserCtx, chromedp.WaitVisible(sel.ResultCard, chromedp.ByQuery)); waitErr != nil {
		_ = chromedp.Run(browserCtx, chromedp.Sleep(3*time.Second))
	}

	cards, err := e.extractCards(browserCtx, sel)
	if err != nil {
		return nil, fmt.Errorf("extract cards %s: %w", target.Name, err)
	}

	prices := make([]domain.CompetitorPrice, 0, len(cards))
	for _, c := range cards {
		if c.Name == "" || c.Price == "" {
			continue
		}
		price, err := ParsePrice(c.Price)
		if err != nil {
			e.logger.Warn("unparseable price, skipping card",
				"competitor", target.Name, "hotel", c.Name, "raw", c.Price)
			continue
		}

		p := domain.CompetitorPrice{
			HotelName: c.Name,
			Price:     price,
			Currency:  detectCurrency(c.Price),
		}
		if c.MealPlan != "" {
			mp := c.MealPlan
			p.MealPlan = &mp
		}
		if c.RoomType != "" {
			rt := c.RoomType
			p.RoomType = &rt
		}
		prices = append(prices, p)
	}

	e.logger.Debug("cards extracted",
		"competitor", target.Name, "cards", len(cards), "usable", len(prices))
	return prices, nil
}

type cardData struct {
	Name         string `json:"name"`
	Price        string `json:"price"`
	Availability string `json:"availability"`
	MealPlan     string `json:"meal_plan"`
	RoomType     string `json:"room_type"`
}

// extractCards runs the in-page extraction script over the result cards.
func (e *ChromeExtractor) extractCards(ctx context.Context, sel domain.TargetSelectors) ([]cardData, error) {
	selJSON, err := json.Marshal(map[string]string{
		"card":         sel.ResultCard,
		"name":         sel.HotelName,
		"price":        sel.Price,
		"availability": sel.Availability,
		"mealPlan":     sel.MealPlan,
		"roomType":     sel.RoomType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal selectors: %w", err)
	}

	script := fmt.Sprintf(`
		(function() {
			var sel = %s;
			var text = function(root, s) {
				if (!s) return '';
				var el = root.querySelector(s);
				return el ? el.innerText.trim() : '';
			};
			var cards = [];
			document.querySelectorAll(sel.card).forEach(function(card) {
				cards.push({
					name: text(card, sel.name),
					price: text(card, sel.price),
					availability: text(card, sel.availability),
					meal_plan: text(card, sel.mealPlan),
					room_type: text(card, sel.roomType)
				});
			});
			return cards;
		})()
	`, selJSON)

	var cards []cardData
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &cards)); err != nil {
		return nil, err
	}
	return cards, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Price parsing
// ──────────────────────────────────────────────────────────────────────────────

var priceDigitsRe = regexp.MustCompile(`[\d.,]+`)

// ParsePrice extracts a decimal amount from a scraped price string, handling
// both "1,250.50" and European "1.250,50" digit grouping.
func ParsePrice(raw string) (decimal.Decimal, error) {
	s := priceDigitsRe.FindString(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("no digits in %q", raw)
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma > lastDot:
		// comma is the decimal separator, dots group thousands
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	default:
		// dot (or nothing) is the decimal separator, commas group thousands
		s = strings.ReplaceAll(s, ",", "")
	}

	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %q: %w", raw, err)
	}
	return price, nil
}

// detectCurrency infers the currency from symbols in the raw price text.
// Competitor sites price in EUR or RSD; EUR is the default.
func detectCurrency(raw string) string {
	switch {
	case strings.Contains(raw, "$"):
		return "USD"
	case strings.Contains(raw, "rsd") || strings.Contains(raw, "RSD") || strings.Contains(raw, "din"):
		return "RSD"
	default:
		return "EUR"
	}
}
