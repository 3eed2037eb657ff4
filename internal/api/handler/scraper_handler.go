package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meridian-travel/yield/internal/domain"
	"github.com/meridian-travel/yield/internal/service"
)

// ScraperHandler serves competitor scraping endpoints.
type ScraperHandler struct {
	scraperSvc *service.ScraperService
}

// NewScraperHandler creates a ScraperHandler.
func NewScraperHandler(scraperSvc *service.ScraperService) *ScraperHandler {
	return &ScraperHandler{scraperSvc: scraperSvc}
}

type scrapeSessionRequest struct {
	Destination string `json:"destination" binding:"required"`
	CheckIn     string `json:"check_in" binding:"required"`
	CheckOut    string `json:"check_out" binding:"required"`
	Adults      int    `json:"adults" binding:"required,min=1"`
	Children    int    `json:"children" binding:"min=0"`
	TriggeredBy string `json:"triggered_by"`
}

// StartSession godoc
// POST /api/scraper/sessions
func (h *ScraperHandler) StartSession(c *gin.Context) {
	var req scrapeSessionRequest
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

	session, err := h.scraperSvc.ScrapeAllCompetitors(c.Request.Context(), service.ScrapeRequest{
		Destination: req.Destination,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Adults:      req.Adults,
		Children:    req.Children,
		TriggeredBy: req.TriggeredBy,
		SessionType: domain.SessionManual,
	})
	if err != nil {
		if err == domain.ErrNoTargetsEnabled {
			respondError(c, http.StatusConflict, "ERR_NO_TARGETS", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "scraping session failed")
		return
	}
	respondSuccess(c, http.StatusCreated, session)
}

// ListSessions godoc
// GET /api/scraper/sessions?limit=20
func (h *ScraperHandler) ListSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	sessions, err := h.scraperSvc.GetScrapingSessions(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch sessions")
		return
	}
	respondList(c, sessions, len(sessions))
}

// LatestPrices godoc
// GET /api/scraper/prices?destination=...&days=7
func (h *ScraperHandler) LatestPrices(c *gin.Context) {
	destination := c.Query("destination")
	if destination == "" {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "destination query parameter is required")
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	prices, err := h.scraperSvc.GetLatestPrices(c.Request.Context(), destination, days)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch prices")
		return
	}
	respondList(c, prices, len(prices))
}
