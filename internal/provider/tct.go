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

// TCT queries the TCT accommodation API.
//
//	GET /api/offers?destination=...&checkin=...&checkout=...&pax=N
//	{"result":{"offers":[{"hotel":"...","total":412.5,"currency":"EUR","room_type":"Double","meal_plan":"AI","in_stock":true}]}}
type TCT struct {
	client
}

// NewTCT creates a TCT client.
func NewTCT(baseURL string, timeout time.Duration) *TCT {
	return &TCT{client: newClient(baseURL, timeout)}
}

// Name implements service.Provider.
func (t *TCT) Name() string { return "tct" }

// Search implements service.Provider.
func (t *TCT) Search(ctx context.Context, params domain.PriceSearchParams) ([]domain.ProviderPrice, error) {
	q := url.Values{}
	q.Set("destination", params.Destination)
	q.Set("checkin", params.CheckIn.Format(dateFormat))
	q.Set("checkout", params.CheckOut.Format(dateFormat))
	q.Set("pax", fmt.Sprint(params.Adults+params.Children))
	if params.HotelName != "" {
		q.Set("name", params.HotelName)
	}

	body, err := t.doGet(ctx, "/api/offers?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("tct: %w", err)
	}

	var resp struct {
		Result struct {
			Offers []struct {
				Hotel    string  `json:"hotel"`
				Total    float64 `json:"total"`
				Currency string  `json:"currency"`
				RoomType string  `json:"room_type"`
				MealPlan string  `json:"meal_plan"`
				InStock  bool    `json:"in_stock"`
			} `json:"offers"`
		} `json:"result"`
	}
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("tct parse: %w", err)
	}

	prices := make([]domain.ProviderPrice, 0, len(resp.Result.Offers))
	for _, o := range resp.Result.Offers {
		currency := o.Currency
		if currency == "" {
			currency = "EUR"
		}
		prices = append(prices, domain.ProviderPrice{
			Provider:  t.Name(),
			HotelName: o.Hotel,
			Price:     decimal.NewFromFloat(o.Total),
			Currency:  currency,
			Available: o.InStock,
			RoomType:  o.RoomType,
			MealPlan:  o.MealPlan,
		})
	}
	return prices, nil
}
