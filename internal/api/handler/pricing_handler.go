package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meridian-travel/yield/internal/domain"
	"github.com/meridian-travel/yield/internal/service"
)

const dateFormat = "2006-01-02"

// PricingHandler serves price aggregation endpoints.
type PricingHandler struct {
	aggregatorSvc *service.AggregatorService
}

// NewPricingHandler creates a PricingHandler.
func NewPricingHandler(aggregatorSvc *service.AggregatorService) *PricingHandler {
	return &PricingHandler{aggregatorSvc: aggregatorSvc}
}

type aggregateRequest struct {
	Destination string `json:"destination" binding:"required"`
	HotelName   string `json:"hotel_name"`
	CheckIn     string `json:"check_in" binding:"required"`
	CheckOut    string `json:"check_out" binding:"required"`
	Adults      int    `json:"adults" binding:"required,min=1"`
	Children    int    `json:"children" binding:"min=0"`
}

// Aggregate godoc
// POST /api/pricing/aggregate
func (h *PricingHandler) Aggregate(c *gin.Context) {
	var req aggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	checkIn, err := time.Parse(dateFormat, req.CheckIn)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "check_in must be YYYY-MM-DD")
		return
	}
	checkOut, err := time.Parse(dateFormat, req.CheckOut)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "check_out must be YYYY-MM-DD")
		return
	}
	if !checkOut.After(checkIn) {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "check_out must be after check_in")
		return
	}

	result, err := h.aggregatorSvc.AggregatePrices(c.Request.Context(), domain.PriceSearchParams{
		Destination: req.Destination,
		HotelName:   req.HotelName,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Adults:      req.Adults,
		Children:    req.Children,
	})
	if err != nil {
		if err == domain.ErrNoPricesFound {
			respondError(c, http.StatusNotFound, "ERR_NO_PRICES", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "price aggregation failed")
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

// History godoc
// GET /api/pricing/history?hotel=...&days=30
func (h *PricingHandler) History(c *gin.Context) {
	hotel := c.Query("hotel")
	if hotel == "" {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "hotel query parameter is required")
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	logs, err := h.aggregatorSvc.GetPriceHistory(c.Request.Context(), hotel, days)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch price history")
		return
	}
	respondList(c, logs, len(logs))
}
