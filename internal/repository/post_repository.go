package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/xralks/Bancodealimentos/internal/models"
)

const postWithAuthorSelect = `SELECT p.id, p.title, p.content, p.user_id, p.status, p.quantity_detail, p.created_at, p.updated_at,
u.full_name AS author_name, u.role AS author_role, u.address AS author_address, u.avatar_url AS author_avatar
FROM posts p JOIN users u ON u.id = p.user_id`

// PostRepository persists posts and their pledged product lines.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository constructs the repository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts a post together with its product lines in a single transaction.
// Lines are forced to pending stock.
func (r *PostRepository) Create(ctx context.Context, post *models.Post, lines []models.PostProduct) (err error) {
	now := time.Now().UTC()
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.Status == "" {
		post.Status = models.AcceptanceNotReviewed
	}
	post.CreatedAt = now
	post.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create post tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertPost = `INSERT INTO posts (id, title, content, user_id, status, quantity_detail, created_at, updated_at)
VALUES (:id, :title, :content, :user_id, :status, :quantity_detail, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertPost, post); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	const insertLine = `INSERT INTO post_products (id, post_id, product_id, quantity, stock_status, created_at, updated_at)
VALUES (:id, :post_id, :product_id, :quantity, :stock_status, :created_at, :updated_at)`
	for i := range lines {
		line := &lines[i]
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		line.PostID = post.ID
		line.StockStatus = models.StockPending
		line.CreatedAt = now
		line.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, insertLine, line); err != nil {
			return fmt.Errorf("insert post product: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create post tx: %w", err)
	}
	return nil
}

// GetWithAuthor returns a post joined with its author's profile.
func (r *PostRepository) GetWithAuthor(ctx context.Context, id string) (*models.PostWithAuthor, error) {
	query := postWithAuthorSelect + ` WHERE p.id = $1`
	var post models.PostWithAuthor
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

// List returns posts matching the filter, newest first.
func (r *PostRepository) List(ctx context.Context, filter models.PostFilter) ([]models.PostWithAuthor, error) {
	where, args := buildPostFilter(filter)
	query := postWithAuthorSelect + where + ` ORDER BY p.created_at DESC, p.id DESC`

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	var posts []models.PostWithAuthor
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// Count returns the number of posts matching the filter, ignoring pagination.
func (r *PostRepository) Count(ctx context.Context, filter models.PostFilter) (int, error) {
	where, args := buildPostFilter(filter)
	query := `SELECT COUNT(*) FROM posts p` + where
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return total, nil
}

func buildPostFilter(filter models.PostFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("p.user_id = $%d", len(args)))
	}
	if filter.ExcludeUserID != "" {
		args = append(args, filter.ExcludeUserID)
		conditions = append(conditions, fmt.Sprintf("p.user_id <> $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("p.status = ANY($%d)", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// UpdateStatus moves a post from one acceptance state to another. It returns
// sql.ErrNoRows when the post no longer is in state from.
func (r *PostRepository) UpdateStatus(ctx context.Context, id string, from, to models.AcceptanceStatus, updatedAt time.Time) error {
	const query = `UPDATE posts SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to, updatedAt)
	if err != nil {
		return fmt.Errorf("update post status: %w", err)
	}
	return requireAffected(res, "update post status")
}

// ListPickups returns accepted vendor posts that still have lines awaiting pickup.
func (r *PostRepository) ListPickups(ctx context.Context) ([]models.PickupLocation, error) {
	const query = `SELECT p.id AS post_id, p.title, p.content, p.user_id, u.full_name AS author_name, u.address,
COUNT(pp.id) AS pending_lines
FROM posts p
JOIN users u ON u.id = p.user_id
JOIN post_products pp ON pp.post_id = p.id AND pp.stock_status = 'pending'
WHERE p.status = 'accepted'
GROUP BY p.id, p.title, p.content, p.user_id, u.full_name, u.address
ORDER BY p.created_at ASC`
	var pickups []models.PickupLocation
	if err := r.db.SelectContext(ctx, &pickups, query); err != nil {
		return nil, fmt.Errorf("list pickups: %w", err)
	}
	return pickups, nil
}

// ListInstitutions returns the authors of institution-accepted posts, one per
// trimmed display name.
func (r *PostRepository) ListInstitutions(ctx context.Context) ([]models.Institution, error) {
	const query = `SELECT DISTINCT ON (TRIM(u.full_name)) u.id, TRIM(u.full_name) AS name
FROM posts p JOIN users u ON u.id = p.user_id
WHERE p.status = 'accepted_institution'
ORDER BY TRIM(u.full_name) ASC, u.id ASC`
	var institutions []models.Institution
	if err := r.db.SelectContext(ctx, &institutions, query); err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	return institutions, nil
}

// IsInstitution reports whether userID authored at least one institution-accepted post.
func (r *PostRepository) IsInstitution(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM posts WHERE user_id = $1 AND status = 'accepted_institution')`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, userID); err != nil {
		return false, fmt.Errorf("check institution: %w", err)
	}
	return ok, nil
}
