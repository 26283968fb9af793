package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xralks/Bancodealimentos/internal/calc"
	"github.com/xralks/Bancodealimentos/internal/dto"
	"github.com/xralks/Bancodealimentos/internal/models"
	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
)

type stockLineRepository interface {
	ListByPost(ctx context.Context, postID string) ([]models.PostProductLine, error)
	ListReceived(ctx context.Context) ([]models.PostProductLine, error)
	SetStockStatus(ctx context.Context, postID string, status models.StockStatus, updatedAt time.Time) (int64, error)
}

type donationTotals interface {
	Totals(ctx context.Context) ([]models.DonationTotal, error)
}

type pickupDirectory interface {
	GetWithAuthor(ctx context.Context, id string) (*models.PostWithAuthor, error)
	ListPickups(ctx context.Context) ([]models.PickupLocation, error)
}

// StockService exposes the reconciled inventory and the pickup workflow.
type StockService struct {
	lines     stockLineRepository
	donations donationTotals
	posts     pickupDirectory
	audit     auditRecorder
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewStockService constructs the service.
func NewStockService(lines stockLineRepository, donations donationTotals, posts pickupDirectory, audit auditRecorder, metrics *MetricsService, logger *zap.Logger) *StockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockService{lines: lines, donations: donations, posts: posts, audit: audit, metrics: metrics, logger: logger}
}

// Inventory reconciles every received line against the whole donation ledger.
// Nothing is cached; each call reads both sources afresh.
func (s *StockService) Inventory(ctx context.Context, session *models.JWTClaims) (calc.Inventory, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	lines, err := s.lines.ListReceived(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stock")
	}
	totals, err := s.donations.Totals(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donations")
	}
	return reconcile(lines, totals), nil
}

// Pickups lists accepted posts that still hold lines waiting for pickup.
func (s *StockService) Pickups(ctx context.Context, session *models.JWTClaims) ([]models.PickupLocation, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	pickups, err := s.posts.ListPickups(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pickups")
	}
	if pickups == nil {
		pickups = []models.PickupLocation{}
	}
	return pickups, nil
}

// ConfirmPickup sets the stock status of every line of a post. Without an
// explicit status the first line's status is flipped and applied to all lines.
func (s *StockService) ConfirmPickup(ctx context.Context, session *models.JWTClaims, postID string, req dto.PickupRequest) (*dto.PickupResult, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if session.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators confirm pickups")
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending or received")
	}

	post, err := s.posts.GetWithAuthor(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}
	// Only accepted vendor offers are picked up; requests and unreviewed posts never become stock.
	if post.Status != models.AcceptanceAccepted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only accepted posts can be picked up")
	}

	lines, err := s.lines.ListByPost(ctx, postID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post products")
	}
	if len(lines) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "post has no product lines")
	}

	previous := lines[0].StockStatus
	next := previous.Toggle()
	if req.Status != nil {
		next = *req.Status
	}

	updated, err := s.lines.SetStockStatus(ctx, postID, next, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update stock status")
	}

	s.metrics.RecordPickup(string(next))
	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &session.UserID,
			Action:     models.AuditActionPickupConfirm,
			Resource:   "post",
			ResourceID: &postID,
			OldValues:  auditPayload(map[string]interface{}{"stock_status": previous}),
			NewValues:  auditPayload(map[string]interface{}{"stock_status": next, "lines": updated}),
		}); err != nil {
			s.logger.Warn("failed to record pickup audit log", zap.Error(err))
		}
	}

	return &dto.PickupResult{PostID: postID, StockStatus: next, LinesUpdated: updated}, nil
}

func reconcile(lines []models.PostProductLine, totals []models.DonationTotal) calc.Inventory {
	stock := make([]calc.StockLine, len(lines))
	for i, line := range lines {
		stock[i] = calc.StockLine{
			PostID:      line.PostID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Category:    line.Category,
			Quantity:    line.Quantity,
			Stock:       line.StockStatus,
		}
	}
	donations := make([]calc.Donation, len(totals))
	for i, total := range totals {
		donations[i] = calc.Donation{ProductID: total.ProductID, Quantity: total.Total}
	}
	return calc.Reconcile(stock, donations)
}
