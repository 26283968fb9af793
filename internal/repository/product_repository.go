package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/xralks/Bancodealimentos/internal/models"
)

// ProductRepository reads and writes the product catalogue.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository constructs the repository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns every product ordered by category then name.
func (r *ProductRepository) List(ctx context.Context) ([]models.Product, error) {
	const query = `SELECT id, name, category, created_at FROM products ORDER BY category ASC, name ASC`
	var products []models.Product
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// FindByID returns a product by identifier.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	const query = `SELECT id, name, category, created_at FROM products WHERE id = $1`
	var product models.Product
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &product, nil
}

// FindByIDs returns the products matching ids. Unknown ids are silently absent.
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, name, category, created_at FROM products WHERE id = ANY($1)`
	var products []models.Product
	if err := r.db.SelectContext(ctx, &products, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	return products, nil
}

// ExistsByName reports whether a product with the same name already exists in category.
func (r *ProductRepository) ExistsByName(ctx context.Context, name, category string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM products WHERE LOWER(name) = LOWER($1) AND LOWER(category) = LOWER($2))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name, category); err != nil {
		return false, fmt.Errorf("check product name: %w", err)
	}
	return exists, nil
}

// Create inserts a product.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO products (id, name, category, created_at) VALUES (:id, :name, :category, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, product); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}
