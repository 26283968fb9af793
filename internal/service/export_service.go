package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xralks/Bancodealimentos/internal/models"
	"github.com/xralks/Bancodealimentos/pkg/export"
	"github.com/xralks/Bancodealimentos/pkg/storage"
)

type ledgerSource interface {
	List(ctx context.Context, filter models.DonationFilter) ([]models.DonationLedgerEntry, error)
	Totals(ctx context.Context) ([]models.DonationTotal, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService renders ledger and inventory reports and persists the files.
type ExportService struct {
	ledger  ledgerSource
	stock   receivedLineReader
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// NewExportService constructs an ExportService.
func NewExportService(ledger ledgerSource, stock receivedLineReader, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		ledger:  ledger,
		stock:   stock,
		storage: storage,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate builds the dataset for job, renders it and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Debug("export generated", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("rows", len(dataset.Rows)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.SignedToken, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, or the configured ResultTTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "all"
	if job.Params.ProductID != "" {
		scope = sanitizeFilename(job.Params.ProductID)
	}
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeDonations:
		return s.buildDonationDataset(ctx, job.Params)
	case models.ReportTypeInventory:
		return s.buildInventoryDataset(ctx)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildDonationDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	entries, err := s.ledger.List(ctx, models.DonationFilter{ProductID: params.ProductID, InstitutionID: params.InstitutionID})
	if err != nil {
		return export.Dataset{}, "", err
	}
	headers := []string{"Fecha", "Producto", "Categoría", "Cantidad (kg)", "Institución"}
	rows := make([]map[string]string, 0, len(entries))
	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.Quantity)
		rows = append(rows, map[string]string{
			"Fecha":         entry.CreatedAt.UTC().Format("2006-01-02 15:04"),
			"Producto":      entry.ProductName,
			"Categoría":     entry.Category,
			"Cantidad (kg)": entry.Quantity.String(),
			"Institución":   entry.InstitutionName,
		})
	}
	dataset := export.Dataset{
		Headers: headers,
		Rows:    rows,
		Footer:  fmt.Sprintf("Total donado: %s kg en %d registros", total.String(), len(entries)),
	}
	return dataset, "Detalle de donaciones", nil
}

func (s *ExportService) buildInventoryDataset(ctx context.Context) (export.Dataset, string, error) {
	lines, err := s.stock.ListReceived(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}
	totals, err := s.ledger.Totals(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}
	inventory := reconcile(lines, totals)

	categories := make([]string, 0, len(inventory))
	for category := range inventory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	rows := make([]map[string]string, 0)
	for _, category := range categories {
		names := make([]string, 0, len(inventory[category]))
		for name := range inventory[category] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			entry := inventory[category][name]
			rows = append(rows, map[string]string{
				"Categoría":       category,
				"Producto":        name,
				"Recibido (kg)":   entry.TotalPledged.String(),
				"Disponible (kg)": entry.Available.String(),
			})
		}
	}
	dataset := export.Dataset{
		Headers: []string{"Categoría", "Producto", "Recibido (kg)", "Disponible (kg)"},
		Rows:    rows,
		Footer:  fmt.Sprintf("Generado %s", time.Now().UTC().Format(time.RFC3339)),
	}
	return dataset, "Inventario disponible", nil
}
