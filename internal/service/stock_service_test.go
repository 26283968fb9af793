package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xralks/Bancodealimentos/internal/dto"
	"github.com/xralks/Bancodealimentos/internal/models"
	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
)

type stockLinesStub struct {
	byPost      map[string][]models.PostProductLine
	receivedErr error
}

func newStockLinesStub() *stockLinesStub {
	return &stockLinesStub{byPost: map[string][]models.PostProductLine{}}
}

func (s *stockLinesStub) ListByPost(ctx context.Context, postID string) ([]models.PostProductLine, error) {
	return s.byPost[postID], nil
}

func (s *stockLinesStub) ListReceived(ctx context.Context) ([]models.PostProductLine, error) {
	if s.receivedErr != nil {
		return nil, s.receivedErr
	}
	var out []models.PostProductLine
	for _, lines := range s.byPost {
		for _, line := range lines {
			if line.StockStatus == models.StockReceived {
				out = append(out, line)
			}
		}
	}
	return out, nil
}

func (s *stockLinesStub) SetStockStatus(ctx context.Context, postID string, status models.StockStatus, updatedAt time.Time) (int64, error) {
	lines := s.byPost[postID]
	for i := range lines {
		lines[i].StockStatus = status
		lines[i].UpdatedAt = updatedAt
	}
	return int64(len(lines)), nil
}

type pickupDirectoryStub struct {
	*postRepoStub
	pickups []models.PickupLocation
}

func (p pickupDirectoryStub) ListPickups(ctx context.Context) ([]models.PickupLocation, error) {
	return p.pickups, nil
}

func pendingLine(postID, productID, name, category, qty string) models.PostProductLine {
	line := receivedLine(postID, productID, name, category, qty)
	line.StockStatus = models.StockPending
	return line
}

type stockFixture struct {
	svc    *StockService
	lines  *stockLinesStub
	ledger *ledgerStub
	posts  *postRepoStub
	audit  *auditStub
}

func newStockServiceForTest(t *testing.T) stockFixture {
	t.Helper()
	lines := newStockLinesStub()
	ledger := &ledgerStub{}
	posts := newPostRepoStub()
	audit := &auditStub{}
	dir := pickupDirectoryStub{postRepoStub: posts, pickups: []models.PickupLocation{{PostID: "p1", Title: "Excedente", PendingLines: 2}}}
	svc := NewStockService(lines, ledger, dir, audit, NewMetricsService(), zap.NewNop())
	return stockFixture{svc: svc, lines: lines, ledger: ledger, posts: posts, audit: audit}
}

func TestStockServiceInventoryRecomputesEveryCall(t *testing.T) {
	f := newStockServiceForTest(t)
	f.lines.byPost["p1"] = []models.PostProductLine{
		receivedLine("p1", "prod-apple", "Manzana", "Fruta", "10"),
		pendingLine("p1", "prod-papa", "Papa", "Verdura", "50"),
	}
	f.ledger.totals = []models.DonationTotal{{ProductID: "prod-apple", Total: decimal.NewFromInt(4)}}

	inv, err := f.svc.Inventory(context.Background(), vendorSession)
	require.NoError(t, err)
	entry, ok := inv["Fruta"]["Manzana"]
	require.True(t, ok)
	assert.True(t, entry.Available.Equal(decimal.NewFromInt(6)))
	_, hasPapa := inv["Verdura"]
	assert.False(t, hasPapa)

	f.ledger.totals = []models.DonationTotal{{ProductID: "prod-apple", Total: decimal.NewFromInt(12)}}
	inv, err = f.svc.Inventory(context.Background(), vendorSession)
	require.NoError(t, err)
	assert.True(t, inv["Fruta"]["Manzana"].Available.IsZero())
}

func TestStockServiceInventoryFailure(t *testing.T) {
	f := newStockServiceForTest(t)
	f.lines.receivedErr = errors.New("db down")
	_, err := f.svc.Inventory(context.Background(), adminSession)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrInternal.Code))

	_, err = f.svc.Inventory(context.Background(), nil)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrUnauthorized.Code))
}

func TestStockServicePickups(t *testing.T) {
	f := newStockServiceForTest(t)
	pickups, err := f.svc.Pickups(context.Background(), adminSession)
	require.NoError(t, err)
	require.Len(t, pickups, 1)
	assert.Equal(t, 2, pickups[0].PendingLines)
}

func TestStockServiceConfirmPickupToggles(t *testing.T) {
	f := newStockServiceForTest(t)
	seedPost(f.posts, "p1", "vendor-2", models.RoleLocatario, models.AcceptanceAccepted)
	f.lines.byPost["p1"] = []models.PostProductLine{
		pendingLine("p1", "prod-apple", "Manzana", "Fruta", "10"),
		pendingLine("p1", "prod-papa", "Papa", "Verdura", "5"),
	}

	res, err := f.svc.ConfirmPickup(context.Background(), adminSession, "p1", dto.PickupRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StockReceived, res.StockStatus)
	assert.Equal(t, int64(2), res.LinesUpdated)
	for _, line := range f.lines.byPost["p1"] {
		assert.Equal(t, models.StockReceived, line.StockStatus)
	}
	require.Len(t, f.audit.logs, 1)

	res, err = f.svc.ConfirmPickup(context.Background(), adminSession, "p1", dto.PickupRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StockPending, res.StockStatus)
}

func TestStockServiceConfirmPickupExplicitStatus(t *testing.T) {
	f := newStockServiceForTest(t)
	seedPost(f.posts, "p1", "vendor-2", models.RoleLocatario, models.AcceptanceAccepted)
	f.lines.byPost["p1"] = []models.PostProductLine{receivedLine("p1", "prod-apple", "Manzana", "Fruta", "10")}

	status := models.StockReceived
	res, err := f.svc.ConfirmPickup(context.Background(), adminSession, "p1", dto.PickupRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.StockReceived, res.StockStatus)
}

func TestStockServiceConfirmPickupRejections(t *testing.T) {
	f := newStockServiceForTest(t)
	seedPost(f.posts, "empty", "vendor-2", models.RoleLocatario, models.AcceptanceAccepted)

	_, err := f.svc.ConfirmPickup(context.Background(), vendorSession, "empty", dto.PickupRequest{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))

	bogus := models.StockStatus("lost")
	_, err = f.svc.ConfirmPickup(context.Background(), adminSession, "empty", dto.PickupRequest{Status: &bogus})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	_, err = f.svc.ConfirmPickup(context.Background(), adminSession, "missing", dto.PickupRequest{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))

	_, err = f.svc.ConfirmPickup(context.Background(), adminSession, "empty", dto.PickupRequest{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
	assert.Empty(t, f.audit.logs)
}

func TestStockServiceConfirmPickupRequiresAcceptedOffer(t *testing.T) {
	cases := []struct {
		name   string
		role   models.UserRole
		status models.AcceptanceStatus
	}{
		{name: "not reviewed", role: models.RoleLocatario, status: models.AcceptanceNotReviewed},
		{name: "institution request", role: models.RoleInstitucion, status: models.AcceptanceAcceptedInstitution},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newStockServiceForTest(t)
			seedPost(f.posts, "p1", "author-1", tc.role, tc.status)
			f.lines.byPost["p1"] = []models.PostProductLine{pendingLine("p1", "prod-apple", "Manzana", "Fruta", "100")}

			_, err := f.svc.ConfirmPickup(context.Background(), adminSession, "p1", dto.PickupRequest{})
			assert.True(t, appErrors.IsCode(err, appErrors.ErrConflict.Code))
			assert.Equal(t, models.StockPending, f.lines.byPost["p1"][0].StockStatus)
			assert.Empty(t, f.audit.logs)

			inv, err := f.svc.Inventory(context.Background(), adminSession)
			require.NoError(t, err)
			assert.Empty(t, inv)
		})
	}
}
