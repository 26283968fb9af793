package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xralks/Bancodealimentos/internal/dto"
	"github.com/xralks/Bancodealimentos/internal/models"
	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
	"github.com/xralks/Bancodealimentos/pkg/response"
)

type donationService interface {
	Institutions(ctx context.Context, session *models.JWTClaims) ([]models.Institution, error)
	Confirm(ctx context.Context, session *models.JWTClaims, req dto.ConfirmDonationRequest) (*models.DonationRecord, error)
	Ledger(ctx context.Context, session *models.JWTClaims, filter models.DonationFilter) (*dto.DonationListResponse, error)
}

// DonationHandler serves the donation ledger.
type DonationHandler struct {
	service donationService
}

// NewDonationHandler constructs the handler.
func NewDonationHandler(svc donationService) *DonationHandler {
	return &DonationHandler{service: svc}
}

// Institutions godoc
// @Summary Donation recipients
// @Description Authors of posts accepted as institution posts, one per display name.
// @Tags Donations
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /donations/institutions [get]
func (h *DonationHandler) Institutions(c *gin.Context) {
	institutions, err := h.service.Institutions(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, institutions, nil)
}

// Confirm godoc
// @Summary Confirm donation
// @Description Append a donation record when 0 < quantity_kg <= available stock of the product.
// @Tags Donations
// @Accept json
// @Produce json
// @Param payload body dto.ConfirmDonationRequest true "Donation"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /donations [post]
func (h *DonationHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid donation payload"))
		return
	}
	record, err := h.service.Confirm(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// List godoc
// @Summary Donation ledger
// @Tags Donations
// @Produce json
// @Param product_id query string false "Product filter"
// @Param institution_id query string false "Institution filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /donations [get]
func (h *DonationHandler) List(c *gin.Context) {
	filter := models.DonationFilter{
		ProductID:     c.Query("product_id"),
		InstitutionID: c.Query("institution_id"),
		Limit:         queryInt(c, "limit", 0),
		Offset:        queryInt(c, "offset", 0),
	}
	ledger, err := h.service.Ledger(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ledger, nil)
}
