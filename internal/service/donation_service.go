package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xralks/Bancodealimentos/internal/calc"
	"github.com/xralks/Bancodealimentos/internal/dto"
	"github.com/xralks/Bancodealimentos/internal/models"
	"github.com/xralks/Bancodealimentos/internal/repository"
	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
)

type donationLedger interface {
	Append(ctx context.Context, record *models.DonationRecord) error
	AppendGuarded(ctx context.Context, record *models.DonationRecord, check repository.DonationCheck) error
	Totals(ctx context.Context) ([]models.DonationTotal, error)
	List(ctx context.Context, filter models.DonationFilter) ([]models.DonationLedgerEntry, error)
}

type receivedLineReader interface {
	ListReceived(ctx context.Context) ([]models.PostProductLine, error)
}

type productFinder interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
}

type institutionDirectory interface {
	ListInstitutions(ctx context.Context) ([]models.Institution, error)
	IsInstitution(ctx context.Context, userID string) (bool, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// DonationServiceConfig controls confirmation guarding.
type DonationServiceConfig struct {
	// StrictGuard runs the availability check and the append in one locked
	// transaction. When false the check reads outside the write.
	StrictGuard bool
}

// DonationService disburses stock to institutions through the append-only ledger.
type DonationService struct {
	ledger       donationLedger
	lines        receivedLineReader
	products     productFinder
	institutions institutionDirectory
	users        userFinder
	audit        auditRecorder
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          DonationServiceConfig
}

// NewDonationService constructs the service.
func NewDonationService(ledger donationLedger, lines receivedLineReader, products productFinder, institutions institutionDirectory, users userFinder, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg DonationServiceConfig) *DonationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DonationService{
		ledger:       ledger,
		lines:        lines,
		products:     products,
		institutions: institutions,
		users:        users,
		audit:        audit,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
	}
}

// Institutions lists the recipients a donation can be addressed to.
func (s *DonationService) Institutions(ctx context.Context, session *models.JWTClaims) ([]models.Institution, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	institutions, err := s.institutions.ListInstitutions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institutions")
	}
	if institutions == nil {
		institutions = []models.Institution{}
	}
	return institutions, nil
}

// Confirm appends one donation record after checking, against freshly reconciled
// stock, that 0 < quantity <= available. Rejections happen before any write and
// leave the ledger unchanged. Stock lines are never modified.
func (s *DonationService) Confirm(ctx context.Context, session *models.JWTClaims, req dto.ConfirmDonationRequest) (*models.DonationRecord, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if session.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators confirm donations")
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.InstitutionID = strings.TrimSpace(req.InstitutionID)
	req.InstitutionName = strings.TrimSpace(req.InstitutionName)
	if err := s.validator.Struct(req); err != nil {
		return nil, s.reject(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid donation payload"))
	}
	if err := calc.CheckQuantity(req.QuantityKg); err != nil {
		return nil, s.reject(appErrors.Clone(appErrors.ErrValidation, err.Error()))
	}

	if _, err := s.products.FindByID(ctx, req.ProductID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.reject(appErrors.Clone(appErrors.ErrNotFound, "product not found"))
		}
		return nil, s.fail(appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load product"))
	}

	name, err := s.resolveInstitution(ctx, req.InstitutionID, req.InstitutionName)
	if err != nil {
		return nil, err
	}

	record := &models.DonationRecord{
		ProductID:       req.ProductID,
		Quantity:        req.QuantityKg,
		InstitutionID:   req.InstitutionID,
		InstitutionName: name,
		CreatedBy:       session.UserID,
	}

	check := func(lines []models.PostProductLine, totals []models.DonationTotal) error {
		available := reconcile(lines, totals).AvailableFor(req.ProductID)
		if req.QuantityKg.GreaterThan(available) {
			return appErrors.Clone(appErrors.ErrInsufficientStock,
				fmt.Sprintf("requested %s kg but only %s kg available", req.QuantityKg.String(), available.String()))
		}
		return nil
	}

	if s.cfg.StrictGuard {
		err = s.ledger.AppendGuarded(ctx, record, check)
	} else {
		err = s.appendUnguarded(ctx, record, check)
	}
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, s.reject(appErr)
		}
		return nil, s.fail(appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record donation"))
	}

	kg, _ := record.Quantity.Float64()
	s.metrics.RecordDonation(DonationOutcomeConfirmed, kg)
	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &session.UserID,
			Action:     models.AuditActionDonationConfirm,
			Resource:   "donation",
			ResourceID: &record.ID,
			NewValues:  auditPayload(record),
		}); err != nil {
			s.logger.Warn("failed to record donation audit log", zap.Error(err))
		}
	}
	s.logger.Info("donation confirmed",
		zap.String("donation_id", record.ID),
		zap.String("product_id", record.ProductID),
		zap.String("quantity_kg", record.Quantity.String()),
		zap.String("institution_id", record.InstitutionID),
	)
	return record, nil
}

// Ledger lists donation records, newest first.
func (s *DonationService) Ledger(ctx context.Context, session *models.JWTClaims, filter models.DonationFilter) (*dto.DonationListResponse, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	entries, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donations")
	}
	if entries == nil {
		entries = []models.DonationLedgerEntry{}
	}
	return &dto.DonationListResponse{Items: entries, Count: len(entries)}, nil
}

func (s *DonationService) appendUnguarded(ctx context.Context, record *models.DonationRecord, check repository.DonationCheck) error {
	lines, err := s.lines.ListReceived(ctx)
	if err != nil {
		return err
	}
	totals, err := s.ledger.Totals(ctx)
	if err != nil {
		return err
	}
	if err := check(lines, totals); err != nil {
		return err
	}
	return s.ledger.Append(ctx, record)
}

func (s *DonationService) resolveInstitution(ctx context.Context, id, name string) (string, error) {
	eligible, err := s.institutions.IsInstitution(ctx, id)
	if err != nil {
		return "", s.fail(appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check institution"))
	}
	if !eligible {
		return "", s.reject(appErrors.Clone(appErrors.ErrValidation, "institution has no accepted institution post"))
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", s.reject(appErrors.Clone(appErrors.ErrNotFound, "institution not found"))
		}
		return "", s.fail(appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution"))
	}
	stored := strings.TrimSpace(user.FullName)
	// The ledger name always comes from the user record; a supplied name may only confirm it.
	if name != "" && !strings.EqualFold(name, stored) {
		return "", s.reject(appErrors.Clone(appErrors.ErrValidation, "institution_name does not match the institution"))
	}
	return stored, nil
}

func (s *DonationService) reject(err *appErrors.Error) error {
	s.metrics.RecordDonation(DonationOutcomeRejected, 0)
	return err
}

func (s *DonationService) fail(err *appErrors.Error) error {
	s.metrics.RecordDonation(DonationOutcomeFailed, 0)
	return err
}
