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

type productService interface {
	List(ctx context.Context, session *models.JWTClaims) ([]models.Product, error)
	Create(ctx context.Context, session *models.JWTClaims, req dto.CreateProductRequest) (*models.Product, error)
}

// ProductHandler serves the product catalogue.
type ProductHandler struct {
	service productService
}

// NewProductHandler constructs the handler.
func NewProductHandler(svc productService) *ProductHandler {
	return &ProductHandler{service: svc}
}

// List godoc
// @Summary List products
// @Tags Products
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.service.List(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, products, nil)
}

// Create godoc
// @Summary Create product
// @Tags Products
// @Accept json
// @Produce json
// @Param payload body dto.CreateProductRequest true "Product"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid product payload"))
		return
	}
	product, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, product)
}
