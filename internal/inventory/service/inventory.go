// Package service implements the inventory ledger: medicine lifecycle,
// atomic quantity mutations with history, alert sweeps, bulk import, and
// reporting rollups.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/medistock/medistock-backend/internal/inventory/events"
	"github.com/medistock/medistock-backend/internal/inventory/repository"
	"github.com/medistock/medistock-backend/internal/inventory/stock"
	"github.com/medistock/medistock-backend/pkg/config"
	"github.com/medistock/medistock-backend/pkg/database"
	"github.com/medistock/medistock-backend/pkg/errors"
	"github.com/medistock/medistock-backend/pkg/logger"
)

// InventoryService owns medicine records and their quantity mutations
type InventoryService struct {
	db        *database.DB
	medicines *repository.MedicineRepository
	history   *repository.HistoryRepository
	publisher *events.InventoryEventPublisher
	cfg       *config.PharmacyConfig
	logger    *logger.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	db *database.DB,
	medicines *repository.MedicineRepository,
	history *repository.HistoryRepository,
	publisher *events.InventoryEventPublisher,
	cfg *config.PharmacyConfig,
	log *logger.Logger,
) *InventoryService {
	return &InventoryService{
		db:        db,
		medicines: medicines,
		history:   history,
		publisher: publisher,
		cfg:       cfg,
		logger:    log.WithComponent("inventory-service"),
	}
}

// CreateMedicineInput is the payload for manual medicine intake
type CreateMedicineInput struct {
	Name          string          `json:"name" validate:"required"`
	Category      string          `json:"category" validate:"required"`
	BatchNumber   string          `json:"batch_number" validate:"required"`
	ExpiryDate    time.Time       `json:"expiry_date" validate:"required"`
	Quantity      int             `json:"quantity" validate:"gte=0"`
	ReorderLevel  int             `json:"reorder_level" validate:"omitempty,gt=0"`
	PurchasePrice decimal.Decimal `json:"purchase_price" validate:"required"`
	SellingPrice  decimal.Decimal `json:"selling_price" validate:"required"`
	RackNumber    string          `json:"rack_number" validate:"required"`
	Supplier      string          `json:"supplier"`
}

// UpdateMedicineInput is the payload for editing a medicine's descriptive fields
type UpdateMedicineInput struct {
	Name          string          `json:"name" validate:"required"`
	Category      string          `json:"category" validate:"required"`
	BatchNumber   string          `json:"batch_number" validate:"required"`
	ExpiryDate    time.Time       `json:"expiry_date" validate:"required"`
	ReorderLevel  int             `json:"reorder_level" validate:"gt=0"`
	PurchasePrice decimal.Decimal `json:"purchase_price" validate:"required"`
	SellingPrice  decimal.Decimal `json:"selling_price" validate:"required"`
	RackNumber    string          `json:"rack_number" validate:"required"`
	Supplier      string          `json:"supplier"`
}

// CreateMedicine records a new batch, applying configured defaults and
// computing the initial stock status. The initial quantity is written as an
// "add" history entry.
func (s *InventoryService) CreateMedicine(ctx context.Context, input CreateMedicineInput, actorID string) (*repository.Medicine, error) {
	reorderLevel := input.ReorderLevel
	if reorderLevel <= 0 {
		reorderLevel = s.cfg.DefaultReorderLevel
	}
	supplier := input.Supplier
	if supplier == "" {
		supplier = s.cfg.DefaultSupplier
	}

	m := &repository.Medicine{
		Name:          input.Name,
		Category:      input.Category,
		BatchNumber:   input.BatchNumber,
		ExpiryDate:    input.ExpiryDate,
		Quantity:      input.Quantity,
		ReorderLevel:  reorderLevel,
		PurchasePrice: input.PurchasePrice,
		SellingPrice:  input.SellingPrice,
		RackNumber:    input.RackNumber,
		StockStatus:   string(stock.Classify(input.Quantity, reorderLevel)),
		Supplier:      supplier,
	}

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.createMedicineTx(ctx, tx, m, actorID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("medicine_id", m.ID).Str("name", m.Name).Int("quantity", m.Quantity).Msg("medicine created")
	s.publisher.PublishStockAdjusted(ctx, m, repository.ActionAdd, m.Quantity, actorID)
	return m, nil
}

// createMedicineTx inserts the medicine and its intake history entry inside tx.
// Shared with the bulk importer.
func (s *InventoryService) createMedicineTx(ctx context.Context, tx *sqlx.Tx, m *repository.Medicine, actorID string) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	query := `
		INSERT INTO medicines (id, name, category, batch_number, expiry_date, quantity, reorder_level,
		                       purchase_price, selling_price, rack_number, stock_status, supplier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRowxContext(ctx, query,
		m.ID, m.Name, m.Category, m.BatchNumber, m.ExpiryDate, m.Quantity, m.ReorderLevel,
		m.PurchasePrice, m.SellingPrice, m.RackNumber, m.StockStatus, m.Supplier,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	reason := "initial intake"
	entry := &repository.HistoryEntry{
		MedicineID:       m.ID,
		MedicineName:     m.Name,
		Action:           repository.ActionAdd,
		QuantityChanged:  m.Quantity,
		PreviousQuantity: 0,
		NewQuantity:      m.Quantity,
		Reason:           &reason,
		PerformedBy:      actorPtr(actorID),
	}
	return s.history.CreateTx(ctx, tx, entry)
}

// UpdateMedicine edits descriptive fields and resynchronizes stock status
// against the (possibly changed) reorder level. The row stays locked from
// read to write so a concurrent sale cannot leave a stale status behind.
func (s *InventoryService) UpdateMedicine(ctx context.Context, id string, input UpdateMedicineInput) (*repository.Medicine, error) {
	var updated *repository.Medicine

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		m, err := s.medicines.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}

		m.Name = input.Name
		m.Category = input.Category
		m.BatchNumber = input.BatchNumber
		m.ExpiryDate = input.ExpiryDate
		m.ReorderLevel = input.ReorderLevel
		m.PurchasePrice = input.PurchasePrice
		m.SellingPrice = input.SellingPrice
		m.RackNumber = input.RackNumber
		if input.Supplier != "" {
			m.Supplier = input.Supplier
		}
		m.StockStatus = string(stock.Classify(m.Quantity, m.ReorderLevel))

		if err := s.medicines.UpdateTx(ctx, tx, m); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteMedicine removes a batch
func (s *InventoryService) DeleteMedicine(ctx context.Context, id string) error {
	return s.medicines.Delete(ctx, id)
}

// GetMedicine returns one batch by ID
func (s *InventoryService) GetMedicine(ctx context.Context, id string) (*repository.Medicine, error) {
	return s.medicines.GetByID(ctx, id)
}

// ListMedicines returns all batches in FEFO order
func (s *InventoryService) ListMedicines(ctx context.Context) ([]repository.Medicine, error) {
	medicines, err := s.medicines.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return stock.SortFEFO(medicines), nil
}

// SearchMedicines matches name, category, or batch number, FEFO-ordered
func (s *InventoryService) SearchMedicines(ctx context.Context, text string) ([]repository.Medicine, error) {
	medicines, err := s.medicines.Search(ctx, text)
	if err != nil {
		return nil, err
	}
	return stock.SortFEFO(medicines), nil
}

// ListLowStock returns batches at or below their reorder level
func (s *InventoryService) ListLowStock(ctx context.Context) ([]repository.Medicine, error) {
	return s.medicines.ListLowStock(ctx)
}

// ListNearExpiry returns batches expiring within the configured window
func (s *InventoryService) ListNearExpiry(ctx context.Context, thresholdDays int) ([]repository.Medicine, error) {
	if thresholdDays <= 0 {
		thresholdDays = s.cfg.NearExpiryDays
	}
	return s.medicines.ListNearExpiry(ctx, thresholdDays)
}

// ListExpired returns batches past their expiry date
func (s *InventoryService) ListExpired(ctx context.Context) ([]repository.Medicine, error) {
	return s.medicines.ListExpired(ctx)
}

// AdjustQuantity applies a signed delta to one batch under a row lock,
// recomputes the stock status, and appends a history entry in the same
// transaction. Fails with InsufficientStock if the delta would drive the
// quantity negative.
func (s *InventoryService) AdjustQuantity(ctx context.Context, medicineID string, delta int, reason string, actorID string) (*repository.Medicine, error) {
	var updated *repository.Medicine

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		m, err := s.medicines.GetForUpdateTx(ctx, tx, medicineID)
		if err != nil {
			return err
		}

		newQuantity := m.Quantity + delta
		if newQuantity < 0 {
			return errors.InsufficientStock(m.Name, m.Quantity)
		}

		status := string(stock.Classify(newQuantity, m.ReorderLevel))
		updatedAt, err := s.medicines.UpdateQuantityTx(ctx, tx, m.ID, newQuantity, status)
		if err != nil {
			return err
		}

		entry := &repository.HistoryEntry{
			MedicineID:       m.ID,
			MedicineName:     m.Name,
			Action:           repository.ActionAdjustment,
			QuantityChanged:  delta,
			PreviousQuantity: m.Quantity,
			NewQuantity:      newQuantity,
			Reason:           &reason,
			PerformedBy:      actorPtr(actorID),
		}
		if err := s.history.CreateTx(ctx, tx, entry); err != nil {
			return err
		}

		m.Quantity = newQuantity
		m.StockStatus = status
		m.UpdatedAt = updatedAt
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("medicine_id", updated.ID).
		Int("delta", delta).
		Int("new_quantity", updated.Quantity).
		Str("stock_status", updated.StockStatus).
		Msg("stock adjusted")
	s.publisher.PublishStockAdjusted(ctx, updated, repository.ActionAdjustment, delta, actorID)
	return updated, nil
}

// DeductForSale removes sold units from one batch. Same locking discipline
// as AdjustQuantity with a fixed sale reason and action.
func (s *InventoryService) DeductForSale(ctx context.Context, medicineID string, quantity int, actorID string) (*repository.Medicine, error) {
	if quantity <= 0 {
		return nil, errors.Validation(map[string]string{"quantity": "must be positive"})
	}

	var updated *repository.Medicine
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		m, err := s.DeductForSaleTx(ctx, tx, medicineID, quantity, actorID)
		if err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishStockAdjusted(ctx, updated, repository.ActionSale, -quantity, actorID)
	return updated, nil
}

// DeductForSaleTx performs the locked read, validation, deduction, and
// history append inside the caller's transaction. The billing engine uses it
// so a multi-line bill commits all deductions atomically.
func (s *InventoryService) DeductForSaleTx(ctx context.Context, tx *sqlx.Tx, medicineID string, quantity int, actorID string) (*repository.Medicine, error) {
	m, err := s.medicines.GetForUpdateTx(ctx, tx, medicineID)
	if err != nil {
		return nil, err
	}

	if quantity > m.Quantity {
		return nil, errors.InsufficientStock(m.Name, m.Quantity)
	}

	newQuantity := m.Quantity - quantity
	status := string(stock.Classify(newQuantity, m.ReorderLevel))
	updatedAt, err := s.medicines.UpdateQuantityTx(ctx, tx, m.ID, newQuantity, status)
	if err != nil {
		return nil, err
	}

	reason := "sold via billing"
	entry := &repository.HistoryEntry{
		MedicineID:       m.ID,
		MedicineName:     m.Name,
		Action:           repository.ActionSale,
		QuantityChanged:  -quantity,
		PreviousQuantity: m.Quantity,
		NewQuantity:      newQuantity,
		Reason:           &reason,
		PerformedBy:      actorPtr(actorID),
	}
	if err := s.history.CreateTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	m.Quantity = newQuantity
	m.StockStatus = status
	m.UpdatedAt = updatedAt
	return m, nil
}

// GetHistory returns history entries for one medicine, newest first
func (s *InventoryService) GetHistory(ctx context.Context, medicineID string, limit int) ([]repository.HistoryEntry, error) {
	if _, err := s.medicines.GetByID(ctx, medicineID); err != nil {
		return nil, err
	}
	return s.history.ListByMedicine(ctx, medicineID, limit)
}

// GetRecentHistory returns the latest history entries across all medicines
func (s *InventoryService) GetRecentHistory(ctx context.Context, limit int) ([]repository.HistoryEntry, error) {
	return s.history.ListRecent(ctx, limit)
}

func actorPtr(actorID string) *string {
	if actorID == "" {
		return nil
	}
	return &actorID
}
