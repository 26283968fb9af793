package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xralks/Bancodealimentos/internal/dto"
	"github.com/xralks/Bancodealimentos/internal/models"
	"github.com/xralks/Bancodealimentos/internal/repository"
	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
)

const (
	institutionID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	vendorUserID  = "16fd2706-8baf-433b-82eb-8c7fada847da"
)

type donationLedgerStub struct {
	lines        *stockLinesStub
	records      []models.DonationRecord
	appendErr    error
	guardedCalls int
	plainAppends int
}

func (d *donationLedgerStub) Append(ctx context.Context, record *models.DonationRecord) error {
	d.plainAppends++
	return d.insert(record)
}

func (d *donationLedgerStub) AppendGuarded(ctx context.Context, record *models.DonationRecord, check repository.DonationCheck) error {
	d.guardedCalls++
	lines, _ := d.lines.ListReceived(ctx)
	totals, _ := d.Totals(ctx)
	if err := check(lines, totals); err != nil {
		return err
	}
	return d.insert(record)
}

func (d *donationLedgerStub) insert(record *models.DonationRecord) error {
	if d.appendErr != nil {
		return d.appendErr
	}
	record.ID = uuid.NewString()
	d.records = append(d.records, *record)
	return nil
}

func (d *donationLedgerStub) Totals(ctx context.Context) ([]models.DonationTotal, error) {
	sums := map[string]decimal.Decimal{}
	for _, r := range d.records {
		sums[r.ProductID] = sums[r.ProductID].Add(r.Quantity)
	}
	out := make([]models.DonationTotal, 0, len(sums))
	for id, total := range sums {
		out = append(out, models.DonationTotal{ProductID: id, Total: total})
	}
	return out, nil
}

func (d *donationLedgerStub) List(ctx context.Context, filter models.DonationFilter) ([]models.DonationLedgerEntry, error) {
	var out []models.DonationLedgerEntry
	for i := len(d.records) - 1; i >= 0; i-- {
		r := d.records[i]
		if filter.ProductID != "" && r.ProductID != filter.ProductID {
			continue
		}
		out = append(out, models.DonationLedgerEntry{DonationRecord: r})
	}
	return out, nil
}

type productByIDStub struct {
	products map[string]models.Product
}

func (p productByIDStub) FindByID(ctx context.Context, id string) (*models.Product, error) {
	product, ok := p.products[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &product, nil
}

type institutionDirectoryStub struct {
	eligible map[string]string
}

func (i institutionDirectoryStub) ListInstitutions(ctx context.Context) ([]models.Institution, error) {
	var out []models.Institution
	for id, name := range i.eligible {
		out = append(out, models.Institution{ID: id, Name: name})
	}
	return out, nil
}

func (i institutionDirectoryStub) IsInstitution(ctx context.Context, userID string) (bool, error) {
	_, ok := i.eligible[userID]
	return ok, nil
}

type userByIDStub struct {
	users map[string]models.User
}

func (u userByIDStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := u.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

type donationFixture struct {
	svc     *DonationService
	ledger  *donationLedgerStub
	lines   *stockLinesStub
	audit   *auditStub
	metrics *MetricsService
}

func newDonationServiceForTest(t *testing.T, strict bool) donationFixture {
	t.Helper()
	lines := newStockLinesStub()
	lines.byPost["p1"] = []models.PostProductLine{
		receivedLine("p1", appleID, "Manzana", "Fruta", "10"),
	}
	lines.byPost["p2"] = []models.PostProductLine{
		pendingLine("p2", appleID, "Manzana", "Fruta", "100"),
	}
	ledger := &donationLedgerStub{lines: lines}
	products := productByIDStub{products: map[string]models.Product{
		appleID: {ID: appleID, Name: "Manzana", Category: "Fruta"},
	}}
	institutions := institutionDirectoryStub{eligible: map[string]string{institutionID: "Hogar San José"}}
	users := userByIDStub{users: map[string]models.User{institutionID: {ID: institutionID, FullName: " Hogar San José "}}}
	audit := &auditStub{}
	metrics := NewMetricsService()
	svc := NewDonationService(ledger, lines, products, institutions, users, audit, metrics, nil, zap.NewNop(), DonationServiceConfig{StrictGuard: strict})
	return donationFixture{svc: svc, ledger: ledger, lines: lines, audit: audit, metrics: metrics}
}

func donationRequest(qty string) dto.ConfirmDonationRequest {
	return dto.ConfirmDonationRequest{
		ProductID:     appleID,
		QuantityKg:    decimal.RequireFromString(qty),
		InstitutionID: institutionID,
	}
}

func TestDonationServiceConfirm(t *testing.T) {
	for _, strict := range []bool{true, false} {
		f := newDonationServiceForTest(t, strict)
		record, err := f.svc.Confirm(context.Background(), adminSession, donationRequest("4"))
		require.NoError(t, err)
		assert.NotEmpty(t, record.ID)
		assert.Equal(t, "Hogar San José", record.InstitutionName)
		assert.Equal(t, adminSession.UserID, record.CreatedBy)
		require.Len(t, f.ledger.records, 1)
		if strict {
			assert.Equal(t, 1, f.ledger.guardedCalls)
			assert.Zero(t, f.ledger.plainAppends)
		} else {
			assert.Zero(t, f.ledger.guardedCalls)
			assert.Equal(t, 1, f.ledger.plainAppends)
		}
		require.Len(t, f.audit.logs, 1)
		assert.Equal(t, models.AuditActionDonationConfirm, f.audit.logs[0].Action)
		assert.Equal(t, uint64(1), f.metrics.Snapshot().DonationsConfirmed)
	}
}

func TestDonationServiceConfirmExhaustsStock(t *testing.T) {
	f := newDonationServiceForTest(t, true)
	_, err := f.svc.Confirm(context.Background(), adminSession, donationRequest("6"))
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), adminSession, donationRequest("4"))
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), adminSession, donationRequest("0.001"))
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrInsufficientStock.Code))
	assert.Len(t, f.ledger.records, 2)
}

func TestDonationServiceConfirmIgnoresPendingLines(t *testing.T) {
	f := newDonationServiceForTest(t, false)
	_, err := f.svc.Confirm(context.Background(), adminSession, donationRequest("11"))
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrInsufficientStock.Code))
	assert.Contains(t, err.Error(), "only 10 kg available")
	assert.Empty(t, f.ledger.records)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().DonationsRejected)
}

func TestDonationServiceConfirmRejectionsLeaveLedgerUnchanged(t *testing.T) {
	cases := []struct {
		name    string
		session *models.JWTClaims
		req     dto.ConfirmDonationRequest
		code    string
	}{
		{name: "no session", session: nil, req: donationRequest("1"), code: appErrors.ErrUnauthorized.Code},
		{name: "institution caller", session: instSession, req: donationRequest("1"), code: appErrors.ErrForbidden.Code},
		{name: "zero quantity", session: adminSession, req: donationRequest("0"), code: appErrors.ErrValidation.Code},
		{name: "negative quantity", session: adminSession, req: donationRequest("-2"), code: appErrors.ErrValidation.Code},
		{name: "sub-gram quantity", session: adminSession, req: donationRequest("0.0004"), code: appErrors.ErrValidation.Code},
		{name: "four decimals", session: adminSession, req: donationRequest("2.0004"), code: appErrors.ErrValidation.Code},
		{name: "quantity too large", session: adminSession, req: donationRequest("1000000000"), code: appErrors.ErrValidation.Code},
		{
			name:    "missing product",
			session: adminSession,
			req:     dto.ConfirmDonationRequest{QuantityKg: decimal.NewFromInt(1), InstitutionID: institutionID},
			code:    appErrors.ErrValidation.Code,
		},
		{
			name:    "malformed product id",
			session: adminSession,
			req:     dto.ConfirmDonationRequest{ProductID: "prod-apple", QuantityKg: decimal.NewFromInt(1), InstitutionID: institutionID},
			code:    appErrors.ErrValidation.Code,
		},
		{
			name:    "malformed institution id",
			session: adminSession,
			req:     dto.ConfirmDonationRequest{ProductID: appleID, QuantityKg: decimal.NewFromInt(1), InstitutionID: "inst-1"},
			code:    appErrors.ErrValidation.Code,
		},
		{
			name:    "unknown product",
			session: adminSession,
			req:     dto.ConfirmDonationRequest{ProductID: ghostID, QuantityKg: decimal.NewFromInt(1), InstitutionID: institutionID},
			code:    appErrors.ErrNotFound.Code,
		},
		{
			name:    "not an institution",
			session: adminSession,
			req:     dto.ConfirmDonationRequest{ProductID: appleID, QuantityKg: decimal.NewFromInt(1), InstitutionID: vendorUserID},
			code:    appErrors.ErrValidation.Code,
		},
		{
			name:    "institution name mismatch",
			session: adminSession,
			req:     dto.ConfirmDonationRequest{ProductID: appleID, QuantityKg: decimal.NewFromInt(1), InstitutionID: institutionID, InstitutionName: "Comedor Norte"},
			code:    appErrors.ErrValidation.Code,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newDonationServiceForTest(t, true)
			_, err := f.svc.Confirm(context.Background(), tc.session, tc.req)
			require.Error(t, err)
			assert.True(t, appErrors.IsCode(err, tc.code), "got %v", err)
			assert.Empty(t, f.ledger.records)
			assert.Empty(t, f.audit.logs)
		})
	}
}

func TestDonationServiceConfirmAppendFailure(t *testing.T) {
	f := newDonationServiceForTest(t, false)
	f.ledger.appendErr = errors.New("connection refused")

	_, err := f.svc.Confirm(context.Background(), adminSession, donationRequest("1"))
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrInternal.Code))
	assert.Empty(t, f.ledger.records)
	assert.Empty(t, f.audit.logs)
}

func TestDonationServiceConfirmStoresRecordedInstitutionName(t *testing.T) {
	f := newDonationServiceForTest(t, true)
	req := donationRequest("1")
	req.InstitutionName = "  hogar san josé "
	record, err := f.svc.Confirm(context.Background(), adminSession, req)
	require.NoError(t, err)
	assert.Equal(t, "Hogar San José", record.InstitutionName)
	require.Len(t, f.ledger.records, 1)
	assert.Equal(t, "Hogar San José", f.ledger.records[0].InstitutionName)
}

func TestDonationServiceLedgerAndInstitutions(t *testing.T) {
	f := newDonationServiceForTest(t, true)
	_, err := f.svc.Confirm(context.Background(), adminSession, donationRequest("1"))
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), adminSession, donationRequest("2"))
	require.NoError(t, err)

	ledger, err := f.svc.Ledger(context.Background(), instSession, models.DonationFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, ledger.Count)
	assert.True(t, ledger.Items[0].Quantity.Equal(decimal.NewFromInt(2)))

	institutions, err := f.svc.Institutions(context.Background(), adminSession)
	require.NoError(t, err)
	require.Len(t, institutions, 1)
	assert.Equal(t, institutionID, institutions[0].ID)
}
