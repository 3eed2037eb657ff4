package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meridian-travel/yield/internal/domain"
	"github.com/meridian-travel/yield/internal/service"
)

// MatchHandler serves hotel identity matching endpoints.
type MatchHandler struct {
	matcherSvc *service.MatcherService
}

// NewMatchHandler creates a MatchHandler.
func NewMatchHandler(matcherSvc *service.MatcherService) *MatchHandler {
	return &MatchHandler{matcherSvc: matcherSvc}
}

// List godoc
// GET /api/matches
func (h *MatchHandler) List(c *gin.Context) {
	matches, err := h.matcherSvc.GetAllMatches(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch matches")
		return
	}
	respondList(c, matches, len(matches))
}

type verifyMatchRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Verify godoc
// POST /api/matches/:id/verify
func (h *MatchHandler) Verify(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid match id")
		return
	}

	var req verifyMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err := h.matcherSvc.VerifyMatch(c.Request.Context(), id, req.UserID); err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", "match not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not verify match")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"verified": true})
}
