package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xralks/Bancodealimentos/internal/dto"
	"github.com/xralks/Bancodealimentos/internal/models"
	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
)

type productRepository interface {
	List(ctx context.Context) ([]models.Product, error)
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	ExistsByName(ctx context.Context, name, category string) (bool, error)
	Create(ctx context.Context, product *models.Product) error
}

// ProductService manages the product catalogue.
type ProductService struct {
	repo      productRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProductService constructs the service.
func NewProductService(repo productRepository, validate *validator.Validate, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProductService{repo: repo, validator: validate, logger: logger}
}

// List returns the catalogue.
func (s *ProductService) List(ctx context.Context, session *models.JWTClaims) ([]models.Product, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list products")
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// Create adds a product. Only administrators maintain the catalogue.
func (s *ProductService) Create(ctx context.Context, session *models.JWTClaims, req dto.CreateProductRequest) (*models.Product, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if session.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid product payload")
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name, req.Category)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check product")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "product already exists in category")
	}

	product := &models.Product{Name: req.Name, Category: req.Category}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create product")
	}
	s.logger.Info("product created", zap.String("product_id", product.ID), zap.String("category", product.Category))
	return product, nil
}
