package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xralks/Bancodealimentos/internal/models"
)

var postRowColumns = []string{"id", "title", "content", "user_id", "status", "quantity_detail", "created_at", "updated_at", "author_name", "author_role", "author_address", "author_avatar"}

func TestPostRepositoryCreateWithLines(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO posts")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO post_products")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO post_products")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	post := &models.Post{Title: "Excedente de fruta", Content: "Retirar antes de las 18:00", UserID: "vendor-1"}
	lines := []models.PostProduct{
		{ProductID: "apple", Quantity: decimal.NewFromInt(10), StockStatus: models.StockReceived},
		{ProductID: "pear", Quantity: decimal.RequireFromString("2.5")},
	}
	require.NoError(t, repo.Create(context.Background(), post, lines))

	assert.NotEmpty(t, post.ID)
	assert.Equal(t, models.AcceptanceNotReviewed, post.Status)
	for _, line := range lines {
		assert.Equal(t, post.ID, line.PostID)
		assert.Equal(t, models.StockPending, line.StockStatus)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryCreateRollsBackOnLineFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO posts")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO post_products")).WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Post{Title: "t", Content: "c", UserID: "u"}, []models.PostProduct{{ProductID: "ghost", Quantity: decimal.NewFromInt(1)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert post product")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryListFeed(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(postRowColumns).
		AddRow("p1", "Papas", "Saco de papas", "vendor-2", "not_reviewed", nil, now, now, "Feria Sur", "LOCATARIO", "Calle 1", nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.user_id <> $1 AND p.status = ANY($2) ORDER BY p.created_at DESC, p.id DESC LIMIT 50 OFFSET 0")).
		WithArgs("admin-1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	posts, err := repo.List(context.Background(), models.PostFilter{
		ExcludeUserID: "admin-1",
		Statuses:      []models.AcceptanceStatus{models.AcceptanceNotReviewed},
	})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Feria Sur", posts[0].AuthorName)
	assert.Equal(t, models.RoleLocatario, posts[0].AuthorRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryCountByOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM posts p WHERE p.user_id = $1")).
		WithArgs("vendor-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	total, err := repo.Count(context.Background(), models.PostFilter{UserID: "vendor-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryUpdateStatusConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE posts SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2")).
		WithArgs("p1", "not_reviewed", "accepted", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "p1", models.AcceptanceNotReviewed, models.AcceptanceAccepted, now)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE posts SET status = $3")).
		WithArgs("p1", "accepted_institution", "not_reviewed", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "p1", models.AcceptanceAcceptedInstitution, models.AcceptanceNotReviewed, now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryListPickups(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	rows := sqlmock.NewRows([]string{"post_id", "title", "content", "user_id", "author_name", "address", "pending_lines"}).
		AddRow("p1", "Verduras", "Lechugas", "vendor-1", "Feria Norte", "Av. Brasil 55", 2)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN post_products pp ON pp.post_id = p.id AND pp.stock_status = 'pending'\nWHERE p.status = 'accepted'\n")).
		WillReturnRows(rows)

	pickups, err := repo.ListPickups(context.Background())
	require.NoError(t, err)
	require.Len(t, pickups, 1)
	assert.Equal(t, 2, pickups[0].PendingLines)
	require.NotNil(t, pickups[0].Address)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryListInstitutions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name"}).
		AddRow("inst-1", "Hogar de Cristo").
		AddRow("inst-2", "Comedor San José")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT ON (TRIM(u.full_name)) u.id, TRIM(u.full_name) AS name")).
		WillReturnRows(rows)

	institutions, err := repo.ListInstitutions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Institution{{ID: "inst-1", Name: "Hogar de Cristo"}, {ID: "inst-2", Name: "Comedor San José"}}, institutions)
	assert.NoError(t, mock.ExpectationsWereMet())
}
