package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/medistock/medistock-backend/internal/inventory/repository"
	"github.com/medistock/medistock-backend/internal/inventory/stock"
	"github.com/medistock/medistock-backend/pkg/config"
	"github.com/medistock/medistock-backend/pkg/database"
	"github.com/medistock/medistock-backend/pkg/errors"
	"github.com/medistock/medistock-backend/pkg/logger"
)

// maxPlausibleQuantity flags suspiciously large rows during import
const maxPlausibleQuantity = 100000

// ImportRow is one parsed row supplied by the upload collaborator. File
// parsing happens outside this service; callers hand over structured rows.
type ImportRow struct {
	Name          string          `json:"name" validate:"required"`
	Category      string          `json:"category" validate:"required"`
	BatchNumber   string          `json:"batch_number" validate:"required"`
	ExpiryDate    time.Time       `json:"expiry_date" validate:"required"`
	Quantity      int             `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	RackNumber    string          `json:"rack_number"`
	ReorderLevel  int             `json:"reorder_level"`
	Supplier      string          `json:"supplier"`
}

// ImportAnomaly flags a suspicious row. Anomalies warn, they do not reject.
type ImportAnomaly struct {
	Row    int    `json:"row"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ImportResult summarizes one bulk import
type ImportResult struct {
	Processed  int                   `json:"processed"`
	Successful int                   `json:"successful"`
	Failed     int                   `json:"failed"`
	Created    int                   `json:"created"`
	Merged     int                   `json:"merged"`
	Anomalies  []ImportAnomaly       `json:"anomalies"`
	UploadLog  *repository.UploadLog `json:"upload_log"`
}

// ImportService merges bulk medicine rows into stock and records an upload log
type ImportService struct {
	db        *database.DB
	inventory *InventoryService
	medicines *repository.MedicineRepository
	history   *repository.HistoryRepository
	uploads   *repository.UploadLogRepository
	cfg       *config.PharmacyConfig
	logger    *logger.Logger
	now       func() time.Time
}

// NewImportService creates a new import service
func NewImportService(
	db *database.DB,
	inventory *InventoryService,
	medicines *repository.MedicineRepository,
	history *repository.HistoryRepository,
	uploads *repository.UploadLogRepository,
	cfg *config.PharmacyConfig,
	log *logger.Logger,
) *ImportService {
	return &ImportService{
		db:        db,
		inventory: inventory,
		medicines: medicines,
		history:   history,
		uploads:   uploads,
		cfg:       cfg,
		logger:    log.WithComponent("import-service"),
		now:       time.Now,
	}
}

// Import processes rows one at a time: an existing (name, batch) match gets
// its quantity added to, anything else becomes a new medicine. Row failures
// are counted, not fatal to the rest of the upload. The anomaly pre-check
// flags suspicious rows without rejecting them.
func (s *ImportService) Import(ctx context.Context, fileName string, rows []ImportRow, actorID string) (*ImportResult, error) {
	if len(rows) == 0 {
		return nil, errors.Validation(map[string]string{"rows": "must not be empty"})
	}

	result := &ImportResult{
		Processed: len(rows),
		Anomalies: s.checkAnomalies(rows),
	}

	for i, row := range rows {
		if err := s.importRow(ctx, row, actorID, result); err != nil {
			result.Failed++
			s.logger.Warn().Err(err).Int("row", i+1).Str("name", row.Name).Msg("import row failed")
			continue
		}
		result.Successful++
	}

	anomalies, err := json.Marshal(result.Anomalies)
	if err != nil {
		anomalies = json.RawMessage("[]")
	}

	status := repository.UploadSuccess
	switch {
	case result.Successful == 0:
		status = repository.UploadFailed
	case result.Failed > 0:
		status = repository.UploadPartial
	}

	log := &repository.UploadLog{
		RecordsProcessed:  result.Processed,
		RecordsSuccessful: result.Successful,
		RecordsFailed:     result.Failed,
		Anomalies:         anomalies,
		UploadedBy:        actorPtr(actorID),
		Status:            status,
	}
	if fileName != "" {
		log.FileName = &fileName
	}
	if err := s.uploads.Create(ctx, log); err != nil {
		return nil, err
	}
	result.UploadLog = log

	s.logger.Info().
		Int("processed", result.Processed).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("anomalies", len(result.Anomalies)).
		Msg("bulk import completed")
	return result, nil
}

func (s *ImportService) importRow(ctx context.Context, row ImportRow, actorID string, result *ImportResult) error {
	if row.Name == "" || row.BatchNumber == "" {
		return errors.Validation(map[string]string{"name": "name and batch_number are required"})
	}
	if row.Quantity < 0 {
		// flagged as an anomaly but still imported; a negative add would
		// violate the stock invariant, so clamp to zero
		row.Quantity = 0
	}

	existing, err := s.medicines.FindByNameAndBatch(ctx, row.Name, row.BatchNumber)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return err
	}

	if existing != nil {
		return s.mergeRow(ctx, existing.ID, row, actorID, result)
	}

	reorderLevel := row.ReorderLevel
	if reorderLevel <= 0 {
		reorderLevel = s.cfg.DefaultReorderLevel
	}
	supplier := row.Supplier
	if supplier == "" {
		supplier = s.cfg.DefaultSupplier
	}

	m := &repository.Medicine{
		Name:          row.Name,
		Category:      row.Category,
		BatchNumber:   row.BatchNumber,
		ExpiryDate:    row.ExpiryDate,
		Quantity:      row.Quantity,
		ReorderLevel:  reorderLevel,
		PurchasePrice: row.PurchasePrice,
		SellingPrice:  row.SellingPrice,
		RackNumber:    row.RackNumber,
		StockStatus:   string(stock.Classify(row.Quantity, reorderLevel)),
		Supplier:      supplier,
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return s.inventory.createMedicineTx(ctx, tx, m, actorID)
	})
	if err != nil {
		return err
	}
	result.Created++
	return nil
}

// mergeRow adds the row's quantity to an existing batch under the row lock
func (s *ImportService) mergeRow(ctx context.Context, medicineID string, row ImportRow, actorID string, result *ImportResult) error {
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		m, err := s.medicines.GetForUpdateTx(ctx, tx, medicineID)
		if err != nil {
			return err
		}

		newQuantity := m.Quantity + row.Quantity
		status := string(stock.Classify(newQuantity, m.ReorderLevel))
		if _, err := s.medicines.UpdateQuantityTx(ctx, tx, m.ID, newQuantity, status); err != nil {
			return err
		}

		reason := "bulk import merge"
		entry := &repository.HistoryEntry{
			MedicineID:       m.ID,
			MedicineName:     m.Name,
			Action:           repository.ActionAdd,
			QuantityChanged:  row.Quantity,
			PreviousQuantity: m.Quantity,
			NewQuantity:      newQuantity,
			Reason:           &reason,
			PerformedBy:      actorPtr(actorID),
		}
		return s.history.CreateTx(ctx, tx, entry)
	})
	if err != nil {
		return err
	}
	result.Merged++
	return nil
}

// checkAnomalies runs the fixed-threshold pre-checks over all rows
func (s *ImportService) checkAnomalies(rows []ImportRow) []ImportAnomaly {
	now := s.now()
	anomalies := make([]ImportAnomaly, 0)

	for i, row := range rows {
		rowNo := i + 1
		if row.Quantity < 0 {
			anomalies = append(anomalies, ImportAnomaly{
				Row: rowNo, Name: row.Name,
				Reason: fmt.Sprintf("negative quantity %d", row.Quantity),
			})
		}
		if row.Quantity > maxPlausibleQuantity {
			anomalies = append(anomalies, ImportAnomaly{
				Row: rowNo, Name: row.Name,
				Reason: fmt.Sprintf("quantity %d exceeds plausible maximum %d", row.Quantity, maxPlausibleQuantity),
			})
		}
		if stock.IsExpired(row.ExpiryDate, now) {
			anomalies = append(anomalies, ImportAnomaly{
				Row: rowNo, Name: row.Name,
				Reason: fmt.Sprintf("expiry date %s already in the past", row.ExpiryDate.Format("2006-01-02")),
			})
		}
		if row.SellingPrice.LessThan(row.PurchasePrice) {
			anomalies = append(anomalies, ImportAnomaly{
				Row: rowNo, Name: row.Name,
				Reason: fmt.Sprintf("selling price %s below purchase price %s", row.SellingPrice, row.PurchasePrice),
			})
		}
	}
	return anomalies
}

// ListUploadLogs returns recent bulk import logs
func (s *ImportService) ListUploadLogs(ctx context.Context, limit int) ([]repository.UploadLog, error) {
	return s.uploads.ListRecent(ctx, limit)
}
