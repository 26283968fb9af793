package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/xralks/Bancodealimentos/internal/models"
)

const postProductLineSelect = `SELECT pp.id, pp.post_id, pp.product_id, pp.quantity, pp.stock_status, pp.created_at, pp.updated_at,
pr.name AS product_name, pr.category
FROM post_products pp JOIN products pr ON pr.id = pp.product_id`

const receivedLinesQuery = postProductLineSelect + ` WHERE pp.stock_status = 'received' ORDER BY pp.created_at ASC, pp.id ASC`

// PostProductRepository reads and updates pledged product lines.
type PostProductRepository struct {
	db *sqlx.DB
}

// NewPostProductRepository constructs the repository.
func NewPostProductRepository(db *sqlx.DB) *PostProductRepository {
	return &PostProductRepository{db: db}
}

// ListByPost returns a post's lines in insertion order.
func (r *PostProductRepository) ListByPost(ctx context.Context, postID string) ([]models.PostProductLine, error) {
	query := postProductLineSelect + ` WHERE pp.post_id = $1 ORDER BY pp.created_at ASC, pp.id ASC`
	var lines []models.PostProductLine
	if err := r.db.SelectContext(ctx, &lines, query, postID); err != nil {
		return nil, fmt.Errorf("list post products: %w", err)
	}
	return lines, nil
}

// ListReceived returns every line already picked up into stock.
func (r *PostProductRepository) ListReceived(ctx context.Context) ([]models.PostProductLine, error) {
	var lines []models.PostProductLine
	if err := r.db.SelectContext(ctx, &lines, receivedLinesQuery); err != nil {
		return nil, fmt.Errorf("list received lines: %w", err)
	}
	return lines, nil
}

// SetStockStatus applies status to every line of a post and returns the number of
// lines updated.
func (r *PostProductRepository) SetStockStatus(ctx context.Context, postID string, status models.StockStatus, updatedAt time.Time) (int64, error) {
	const query = `UPDATE post_products SET stock_status = $2, updated_at = $3 WHERE post_id = $1`
	res, err := r.db.ExecContext(ctx, query, postID, status, updatedAt)
	if err != nil {
		return 0, fmt.Errorf("set stock status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set stock status rows affected: %w", err)
	}
	return affected, nil
}
