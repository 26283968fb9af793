package dto

import (
	"github.com/shopspring/decimal"

	"github.com/xralks/Bancodealimentos/internal/models"
)

// PostLineRequest pledges a quantity of one catalogue product.
type PostLineRequest struct {
	ProductID  string          `json:"product_id" validate:"required,uuid"`
	QuantityKg decimal.Decimal `json:"quantity_kg"`
}

// CreatePostRequest defines the payload for publishing a post.
type CreatePostRequest struct {
	Title          string            `json:"title" validate:"required,max=150"`
	Content        string            `json:"content" validate:"required"`
	QuantityDetail string            `json:"quantity_detail" validate:"omitempty,max=500"`
	Lines          []PostLineRequest `json:"lines" validate:"omitempty,dive"`
}

// PostListResponse is a list of posts with its size.
type PostListResponse struct {
	Items     []models.PostWithAuthor `json:"items"`
	Count     int                     `json:"count"`
	FromCache bool                    `json:"-"`
}

// PostDetail is a post with its author and product lines.
type PostDetail struct {
	models.PostWithAuthor
	AuthorRoleLabel string                   `json:"author_role_label"`
	Lines           []models.PostProductLine `json:"lines"`
}

// PickupRequest optionally forces the stock status of every line of a post.
type PickupRequest struct {
	Status *models.StockStatus `json:"status,omitempty"`
}

// PickupResult reports the stock status applied to a post's lines.
type PickupResult struct {
	PostID       string             `json:"post_id"`
	StockStatus  models.StockStatus `json:"stock_status"`
	LinesUpdated int64              `json:"lines_updated"`
}

// CreateProductRequest adds a catalogue product.
type CreateProductRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Category string `json:"category" validate:"required,max=80"`
}
