package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/meridian-travel/yield/internal/domain"
	"github.com/shopspring/decimal"
)

// Solvex queries the Solvex hotel inventory API.
//
//	GET /v1/hotels/search?city=...&date_from=...&date_to=...&adults=N
//	{"hotels":[{"name":"...","price":"420.00","currency":"EUR","room":"DBL","board":"HB","available":true}]}
type Solvex struct {
	client
}

// NewSolvex creates a Solvex client.
func NewSolvex(baseURL string, timeout time.Duration) *Solvex {
	return &Solvex{client: newClient(baseURL, timeout)}
}

// Name implements service.Provider.
func (s *Solvex) Name() string { return "solvex" }

// Search implements service.Provider.
func (s *Solvex) Search(ctx context.Context, params domain.PriceSearchParams) ([]domain.ProviderPrice, error) {
	q := url.Values{}
	q.Set("city", params.Destination)
	q.Set("date_from", params.CheckIn.Format(dateFormat))
	q.Set("date_to", params.CheckOut.Format(dateFormat))
	q.Set("adults", fmt.Sprint(params.Adults))
	if params.Children > 0 {
		q.Set("children", fmt.Sprint(params.Children))
	}
	if params.HotelName != "" {
		q.Set("hotel", params.HotelName)
	}

	body, err := s.doGet(ctx, "/v1/hotels/search?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("solvex: %w", err)
	}

	var resp struct {
		Hotels []struct {
			Name      string `json:"name"`
			Price     string `json:"price"`
			Currency  string `json:"currency"`
			Room      string `json:"room"`
			Board     string `json:"board"`
			Available bool   `json:"available"`
		} `json:"hotels"`
	}
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("solvex parse: %w", err)
	}

	prices := make([]domain.ProviderPrice, 0, len(resp.Hotels))
	for _, h := range resp.Hotels {
		price, err := decimal.NewFromString(h.Price)
		if err != nil {
			return nil, fmt.Errorf("solvex decimal %q: %w", h.Price, err)
		}
		currency := h.Currency
		if currency == "" {
			currency = "EUR"
		}
		prices = append(prices, domain.ProviderPrice{
			Provider:  s.Name(),
			HotelName: h.Name,
			Price:     price,
			Currency:  currency,
			Available: h.Available,
			RoomType:  h.Room,
			MealPlan:  h.Board,
		})
	}
	return prices, nil
}
