package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meridian-travel/yield/internal/domain"
	"github.com/meridian-travel/yield/internal/service"
	"github.com/shopspring/decimal"
)

// MarkupHandler serves markup proposal and yield settings endpoints.
type MarkupHandler struct {
	markupSvc *service.MarkupService
}

// NewMarkupHandler creates a MarkupHandler.
func NewMarkupHandler(markupSvc *service.MarkupService) *MarkupHandler {
	return &MarkupHandler{markupSvc: markupSvc}
}

// ──────────────────────────────────────────────────────────────────────────────
// Proposals
// ──────────────────────────────────────────────────────────────────────────────

type createProposalRequest struct {
	ServiceType        string                     `json:"service_type" binding:"required"`
	BaseCost           decimal.Decimal            `json:"base_cost" binding:"required"`
	CompetitorAvgPrice decimal.Decimal            `json:"competitor_avg_price"`
	HotelName          *string                    `json:"hotel_name"`
	Destination        *string                    `json:"destination"`
	Factors            *domain.CalculationFactors `json:"calculation_factors"`
	ProposedBy         string                     `json:"proposed_by"`
}

// CreateProposal godoc
// POST /api/proposals
func (h *MarkupHandler) CreateProposal(c *gin.Context) {
	var req createProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	proposal, err := h.markupSvc.CreateProposal(c.Request.Context(), service.CreateProposalRequest{
		ServiceType:        domain.ServiceType(req.ServiceType),
		BaseCost:           req.BaseCost,
		CompetitorAvgPrice: req.CompetitorAvgPrice,
		HotelName:          req.HotelName,
		Destination:        req.Destination,
		Factors:            req.Factors,
		ProposedBy:         req.ProposedBy,
	})
	if err != nil {
		switch err {
		case domain.ErrInvalidServiceType:
			respondError(c, http.StatusBadRequest, "ERR_INVALID_SERVICE_TYPE", err.Error())
		case domain.ErrInvalidBaseCost:
			respondError(c, http.StatusBadRequest, "ERR_INVALID_BASE_COST", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not create proposal")
		}
		return
	}
	respondSuccess(c, http.StatusCreated, proposal)
}

// PendingProposals godoc
// GET /api/proposals/pending
func (h *MarkupHandler) PendingProposals(c *gin.Context) {
	proposals, err := h.markupSvc.GetPendingProposals(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch proposals")
		return
	}
	respondList(c, proposals, len(proposals))
}

type reviewRequest struct {
	UserID string  `json:"user_id" binding:"required"`
	Notes  *string `json:"notes"`
}

// Approve godoc
// POST /api/proposals/:id/approve
func (h *MarkupHandler) Approve(c *gin.Context) {
	h.review(c, domain.ProposalApproved)
}

// Reject godoc
// POST /api/proposals/:id/reject
func (h *MarkupHandler) Reject(c *gin.Context) {
	h.review(c, domain.ProposalRejected)
}

func (h *MarkupHandler) review(c *gin.Context, status domain.ProposalStatus) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid proposal id")
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	var proposal *domain.MarkupProposal
	if status == domain.ProposalApproved {
		proposal, err = h.markupSvc.ApproveProposal(c.Request.Context(), id, req.UserID, req.Notes)
	} else {
		proposal, err = h.markupSvc.RejectProposal(c.Request.Context(), id, req.UserID, req.Notes)
	}
	if err != nil {
		switch {
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", "proposal not found")
		case domain.IsConflict(err):
			respondError(c, http.StatusConflict, "ERR_NOT_PENDING", "proposal is no longer pending")
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not review proposal")
		}
		return
	}
	respondSuccess(c, http.StatusOK, proposal)
}

// History godoc
// GET /api/markup/history?limit=50
func (h *MarkupHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	rows, err := h.markupSvc.GetMarkupHistory(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch history")
		return
	}
	respondList(c, rows, len(rows))
}

// ──────────────────────────────────────────────────────────────────────────────
// Settings
// ──────────────────────────────────────────────────────────────────────────────

// GetSettings godoc
// GET /api/settings
func (h *MarkupHandler) GetSettings(c *gin.Context) {
	settings, err := h.markupSvc.GetYieldSettings(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch settings")
		return
	}
	respondSuccess(c, http.StatusOK, settings)
}

// UpdateSettings godoc
// PUT /api/settings
func (h *MarkupHandler) UpdateSettings(c *gin.Context) {
	var settings domain.YieldSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if settings.MinMarkupPercent.GreaterThan(settings.MaxMarkupPercent) {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "min markup cannot exceed max markup")
		return
	}

	updated, err := h.markupSvc.UpdateYieldSettings(c.Request.Context(), settings)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not update settings")
		return
	}
	respondSuccess(c, http.StatusOK, updated)
}
