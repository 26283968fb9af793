package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xralks/Bancodealimentos/internal/models"
)

var lineRowColumns = []string{"id", "post_id", "product_id", "quantity", "stock_status", "created_at", "updated_at", "product_name", "category"}

func TestPostProductRepositoryListByPost(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostProductRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(lineRowColumns).
		AddRow("l1", "p1", "apple", "10.500", "pending", now, now, "Manzana", "Fruta")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE pp.post_id = $1 ORDER BY pp.created_at ASC, pp.id ASC")).
		WithArgs("p1").
		WillReturnRows(rows)

	lines, err := repo.ListByPost(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, decimal.RequireFromString("10.5").Equal(lines[0].Quantity))
	assert.Equal(t, models.StockPending, lines[0].StockStatus)
	assert.Equal(t, "Fruta", lines[0].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostProductRepositoryListReceived(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostProductRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(lineRowColumns).
		AddRow("l1", "p1", "apple", "4", "received", now, now, "Manzana", "Fruta").
		AddRow("l2", "p2", "potato", "8", "received", now, now, "Papa", "Verdura")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE pp.stock_status = 'received'")).WillReturnRows(rows)

	lines, err := repo.ListReceived(context.Background())
	require.NoError(t, err)
	assert.Len(t, lines, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostProductRepositorySetStockStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostProductRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE post_products SET stock_status = $2, updated_at = $3 WHERE post_id = $1")).
		WithArgs("p1", "received", now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := repo.SetStockStatus(context.Background(), "p1", models.StockReceived, now)
	require.NoError(t, err)
	assert.EqualValues(t, 3, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
