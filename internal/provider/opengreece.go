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

// OpenGreece queries the Open Greece availability API.
//
//	GET /availability?location=...&from=...&to=...&guests=N
//	{"data":[{"property":"...","rate":"395.00","ccy":"EUR","category":"Standard","board_basis":"BB","status":"available"}]}
type OpenGreece struct {
	client
}

// NewOpenGreece creates an OpenGreece client.
func NewOpenGreece(baseURL string, timeout time.Duration) *OpenGreece {
	return &OpenGreece{client: newClient(baseURL, timeout)}
}

// Name implements service.Provider.
func (o *OpenGreece) Name() string { return "opengreece" }

// Search implements service.Provider.
func (o *OpenGreece) Search(ctx context.Context, params domain.PriceSearchParams) ([]domain.ProviderPrice, error) {
	q := url.Values{}
	q.Set("location", params.Destination)
	q.Set("from", params.CheckIn.Format(dateFormat))
	q.Set("to", params.CheckOut.Format(dateFormat))
	q.Set("guests", fmt.Sprint(params.Adults+params.Children))
	if params.HotelName != "" {
		q.Set("property", params.HotelName)
	}

	body, err := o.doGet(ctx, "/availability?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("opengreece: %w", err)
	}

	var resp struct {
		Data []struct {
			Property   string `json:"property"`
			Rate       string `json:"rate"`
			Ccy        string `json:"ccy"`
			Category   string `json:"category"`
			BoardBasis string `json:"board_basis"`
			Status     string `json:"status"`
		} `json:"data"`
	}
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("opengreece parse: %w", err)
	}

	prices := make([]domain.ProviderPrice, 0, len(resp.Data))
	for _, d := range resp.Data {
		rate, err := decimal.NewFromString(d.Rate)
		if err != nil {
			return nil, fmt.Errorf("opengreece decimal %q: %w", d.Rate, err)
		}
		currency := d.Ccy
		if currency == "" {
			currency = "EUR"
		}
		prices = append(prices, domain.ProviderPrice{
			Provider:  o.Name(),
			HotelName: d.Property,
			Price:     rate,
			Currency:  currency,
			Available: d.Status == "available",
			RoomType:  d.Category,
			MealPlan:  d.BoardBasis,
		})
	}
	return prices, nil
}
