package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xralks/Bancodealimentos/internal/models"
)

func TestProductRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProductRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "category", "created_at"}).
		AddRow("apple", "Manzana", "Fruta", time.Now()).
		AddRow("potato", "Papa", "Verdura", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, category, created_at FROM products ORDER BY category ASC, name ASC")).
		WillReturnRows(rows)

	products, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepositoryFindByIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProductRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "category", "created_at"}).
		AddRow("apple", "Manzana", "Fruta", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	products, err := repo.FindByIDs(context.Background(), []string{"apple", "ghost"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Manzana", products[0].Name)

	none, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProductRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products (id, name, category, created_at)")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	product := &models.Product{Name: "Pera", Category: "Fruta"}
	require.NoError(t, repo.Create(context.Background(), product))
	assert.NotEmpty(t, product.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
