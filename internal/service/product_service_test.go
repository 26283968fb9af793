package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xralks/Bancodealimentos/internal/dto"
	"github.com/xralks/Bancodealimentos/internal/models"
	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
)

type productRepoStub struct {
	products []models.Product
}

func (p *productRepoStub) List(ctx context.Context) ([]models.Product, error) {
	return p.products, nil
}

func (p *productRepoStub) FindByID(ctx context.Context, id string) (*models.Product, error) {
	for i := range p.products {
		if p.products[i].ID == id {
			return &p.products[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (p *productRepoStub) FindByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if product, err := p.FindByID(ctx, id); err == nil {
			out = append(out, *product)
		}
	}
	return out, nil
}

func (p *productRepoStub) ExistsByName(ctx context.Context, name, category string) (bool, error) {
	for _, product := range p.products {
		if product.Name == name && product.Category == category {
			return true, nil
		}
	}
	return false, nil
}

func (p *productRepoStub) Create(ctx context.Context, product *models.Product) error {
	product.ID = uuid.NewString()
	p.products = append(p.products, *product)
	return nil
}

func TestProductServiceList(t *testing.T) {
	svc := NewProductService(&productRepoStub{}, nil, zap.NewNop())
	products, err := svc.List(context.Background(), vendorSession)
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestProductServiceCreate(t *testing.T) {
	repo := &productRepoStub{products: []models.Product{{ID: "p1", Name: "Manzana", Category: "Fruta"}}}
	svc := NewProductService(repo, nil, zap.NewNop())

	product, err := svc.Create(context.Background(), adminSession, dto.CreateProductRequest{Name: " Pera ", Category: "Fruta"})
	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, "Pera", product.Name)

	_, err = svc.Create(context.Background(), adminSession, dto.CreateProductRequest{Name: "Manzana", Category: "Fruta"})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrConflict.Code))

	_, err = svc.Create(context.Background(), vendorSession, dto.CreateProductRequest{Name: "Kiwi", Category: "Fruta"})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))

	_, err = svc.Create(context.Background(), adminSession, dto.CreateProductRequest{Name: "", Category: "Fruta"})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
	assert.Len(t, repo.products, 2)
}
