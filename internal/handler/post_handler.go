package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xralks/Bancodealimentos/internal/dto"
	"github.com/xralks/Bancodealimentos/internal/middleware"
	"github.com/xralks/Bancodealimentos/internal/models"
	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
	"github.com/xralks/Bancodealimentos/pkg/response"
)

type postService interface {
	Create(ctx context.Context, session *models.JWTClaims, req dto.CreatePostRequest) (*dto.PostDetail, error)
	Feed(ctx context.Context, session *models.JWTClaims, limit, offset int) (*dto.PostListResponse, error)
	Mine(ctx context.Context, session *models.JWTClaims) (*dto.PostListResponse, error)
	Get(ctx context.Context, session *models.JWTClaims, id string) (*dto.PostDetail, error)
	ToggleAcceptance(ctx context.Context, session *models.JWTClaims, id string) (*models.PostWithAuthor, error)
}

// PostHandler serves posts and the acceptance workflow.
type PostHandler struct {
	service postService
}

// NewPostHandler constructs the handler.
func NewPostHandler(svc postService) *PostHandler {
	return &PostHandler{service: svc}
}

// Create godoc
// @Summary Publish post
// @Description Publish a donation offer or request with optional product lines. Without quantity_detail a summary is generated from the lines.
// @Tags Posts
// @Accept json
// @Produce json
// @Param payload body dto.CreatePostRequest true "Post"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /posts [post]
func (h *PostHandler) Create(c *gin.Context) {
	var req dto.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}
	post, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

// Feed godoc
// @Summary Post feed
// @Description Posts by other users. Administrators and institutions only see posts awaiting review.
// @Tags Posts
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /posts/feed [get]
func (h *PostHandler) Feed(c *gin.Context) {
	feed, err := h.service.Feed(c.Request.Context(), claimsFromContext(c), queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, feed.FromCache)
	response.JSON(c, http.StatusOK, feed, nil, middleware.ExtractMeta(c))
}

// Mine godoc
// @Summary Own posts
// @Tags Posts
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /posts/mine [get]
func (h *PostHandler) Mine(c *gin.Context) {
	posts, err := h.service.Mine(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, posts, nil)
}

// Get godoc
// @Summary Post detail
// @Tags Posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /posts/{id} [get]
func (h *PostHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id", "post not found")
	if !ok {
		return
	}
	post, err := h.service.Get(c.Request.Context(), claimsFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}

// Accept godoc
// @Summary Toggle post acceptance
// @Description not_reviewed becomes accepted (or accepted_institution for institution authors); accepted posts return to not_reviewed.
// @Tags Posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /posts/{id}/accept [post]
func (h *PostHandler) Accept(c *gin.Context) {
	id, ok := pathID(c, "id", "post not found")
	if !ok {
		return
	}
	post, err := h.service.ToggleAcceptance(c.Request.Context(), claimsFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}
