package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/xralks/Bancodealimentos/internal/models"
)

const donationTotalsQuery = `SELECT product_id, SUM(quantity) AS total FROM donations GROUP BY product_id`

// DonationCheck inspects a consistent snapshot of received lines and donated
// totals before a record is appended. A non-nil error aborts the append.
type DonationCheck func(lines []models.PostProductLine, totals []models.DonationTotal) error

// DonationRepository is the append-only donation ledger.
type DonationRepository struct {
	db *sqlx.DB
}

// NewDonationRepository constructs the repository.
func NewDonationRepository(db *sqlx.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

const insertDonation = `INSERT INTO donations (id, product_id, quantity, institution_id, institution_name, created_by, created_at)
VALUES (:id, :product_id, :quantity, :institution_id, :institution_name, :created_by, :created_at)`

func prepareDonation(record *models.DonationRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
}

// Append writes one ledger record.
func (r *DonationRepository) Append(ctx context.Context, record *models.DonationRecord) error {
	prepareDonation(record)
	if _, err := r.db.NamedExecContext(ctx, insertDonation, record); err != nil {
		return fmt.Errorf("append donation: %w", err)
	}
	return nil
}

// AppendGuarded re-reads stock and the ledger inside a transaction holding a
// per-product advisory lock, runs check, then appends the record. Concurrent
// confirmations of the same product are serialised.
func (r *DonationRepository) AppendGuarded(ctx context.Context, record *models.DonationRecord, check DonationCheck) (err error) {
	prepareDonation(record)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin donation tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, record.ProductID); err != nil {
		return fmt.Errorf("lock product %s: %w", record.ProductID, err)
	}

	var lines []models.PostProductLine
	if err = tx.SelectContext(ctx, &lines, receivedLinesQuery); err != nil {
		return fmt.Errorf("list received lines: %w", err)
	}
	var totals []models.DonationTotal
	if err = tx.SelectContext(ctx, &totals, donationTotalsQuery); err != nil {
		return fmt.Errorf("donation totals: %w", err)
	}

	if err = check(lines, totals); err != nil {
		return err
	}

	if _, err = tx.NamedExecContext(ctx, insertDonation, record); err != nil {
		return fmt.Errorf("append donation: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit donation tx: %w", err)
	}
	return nil
}

// Totals returns the donated sum per product.
func (r *DonationRepository) Totals(ctx context.Context) ([]models.DonationTotal, error) {
	var totals []models.DonationTotal
	if err := r.db.SelectContext(ctx, &totals, donationTotalsQuery); err != nil {
		return nil, fmt.Errorf("donation totals: %w", err)
	}
	return totals, nil
}

// List returns ledger entries with product details, newest first.
func (r *DonationRepository) List(ctx context.Context, filter models.DonationFilter) ([]models.DonationLedgerEntry, error) {
	query := `SELECT d.id, d.product_id, d.quantity, d.institution_id, d.institution_name, d.created_by, d.created_at,
pr.name AS product_name, pr.category
FROM donations d JOIN products pr ON pr.id = d.product_id`

	var conditions []string
	var args []interface{}
	if filter.ProductID != "" {
		args = append(args, filter.ProductID)
		conditions = append(conditions, fmt.Sprintf("d.product_id = $%d", len(args)))
	}
	if filter.InstitutionID != "" {
		args = append(args, filter.InstitutionID)
		conditions = append(conditions, fmt.Sprintf("d.institution_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY d.created_at DESC, d.id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, max(filter.Offset, 0))
	}

	var entries []models.DonationLedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return entries, nil
}
