package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xralks/Bancodealimentos/internal/calc"
	"github.com/xralks/Bancodealimentos/internal/dto"
	"github.com/xralks/Bancodealimentos/internal/models"
	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
	"github.com/xralks/Bancodealimentos/pkg/response"
)

type stockService interface {
	Inventory(ctx context.Context, session *models.JWTClaims) (calc.Inventory, error)
	Pickups(ctx context.Context, session *models.JWTClaims) ([]models.PickupLocation, error)
	ConfirmPickup(ctx context.Context, session *models.JWTClaims, postID string, req dto.PickupRequest) (*dto.PickupResult, error)
}

// StockHandler serves the reconciled inventory and pickups.
type StockHandler struct {
	service stockService
}

// NewStockHandler constructs the handler.
func NewStockHandler(svc stockService) *StockHandler {
	return &StockHandler{service: svc}
}

// Inventory godoc
// @Summary Available stock
// @Description Received kilograms per category and product minus everything already donated. Computed on every request.
// @Tags Stock
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /stock [get]
func (h *StockHandler) Inventory(c *gin.Context) {
	inventory, err := h.service.Inventory(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.StockResponse{Inventory: inventory}, nil)
}

// Pickups godoc
// @Summary Pending pickups
// @Description Accepted posts with product lines still waiting for pickup, with the author's address.
// @Tags Stock
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /stock/pickups [get]
func (h *StockHandler) Pickups(c *gin.Context) {
	pickups, err := h.service.Pickups(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pickups, nil)
}

// ConfirmPickup godoc
// @Summary Confirm pickup
// @Description Flip every line of the post between pending and received, or set the given status.
// @Tags Stock
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param payload body dto.PickupRequest false "Explicit status"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /posts/{id}/pickup [post]
func (h *StockHandler) ConfirmPickup(c *gin.Context) {
	id, ok := pathID(c, "id", "post not found")
	if !ok {
		return
	}
	var req dto.PickupRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pickup payload"))
		return
	}
	result, err := h.service.ConfirmPickup(c.Request.Context(), claimsFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
