// Package repository handles persistence for medicines, inventory history,
// alerts, and bulk upload logs.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/medistock/medistock-backend/pkg/database"
	"github.com/medistock/medistock-backend/pkg/errors"
)

// Medicine represents one batch of a medicine in stock
type Medicine struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Category      string          `db:"category" json:"category"`
	BatchNumber   string          `db:"batch_number" json:"batch_number"`
	ExpiryDate    time.Time       `db:"expiry_date" json:"expiry_date"`
	Quantity      int             `db:"quantity" json:"quantity"`
	ReorderLevel  int             `db:"reorder_level" json:"reorder_level"`
	PurchasePrice decimal.Decimal `db:"purchase_price" json:"purchase_price"`
	SellingPrice  decimal.Decimal `db:"selling_price" json:"selling_price"`
	RackNumber    string          `db:"rack_number" json:"rack_number"`
	StockStatus   string          `db:"stock_status" json:"stock_status"`
	Supplier      string          `db:"supplier" json:"supplier"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// ExpiresAt returns the batch expiry instant for dispensing order.
func (m Medicine) ExpiresAt() time.Time { return m.ExpiryDate }

const medicineColumns = `id, name, category, batch_number, expiry_date, quantity, reorder_level,
	       purchase_price, selling_price, rack_number, stock_status, supplier, created_at, updated_at`

// MedicineRepository handles medicine persistence
type MedicineRepository struct {
	db *database.DB
}

// NewMedicineRepository creates a new medicine repository
func NewMedicineRepository(db *database.DB) *MedicineRepository {
	return &MedicineRepository{db: db}
}

// Create inserts a new medicine batch
func (r *MedicineRepository) Create(ctx context.Context, m *Medicine) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	query := `
		INSERT INTO medicines (id, name, category, batch_number, expiry_date, quantity, reorder_level,
		                       purchase_price, selling_price, rack_number, stock_status, supplier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		m.ID, m.Name, m.Category, m.BatchNumber, m.ExpiryDate, m.Quantity, m.ReorderLevel,
		m.PurchasePrice, m.SellingPrice, m.RackNumber, m.StockStatus, m.Supplier,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a medicine by ID
func (r *MedicineRepository) GetByID(ctx context.Context, id string) (*Medicine, error) {
	var m Medicine
	query := fmt.Sprintf(`SELECT %s FROM medicines WHERE id = $1`, medicineColumns)
	err := r.db.GetContext(ctx, &m, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("medicine")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateTx updates the descriptive fields of a medicine batch inside the
// caller's transaction. The row must already be locked via GetForUpdateTx so
// the stock_status written here was classified from the current quantity.
// Quantity itself is mutated only through the locked adjustment path.
func (r *MedicineRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, m *Medicine) error {
	query := `
		UPDATE medicines
		SET name = $2, category = $3, batch_number = $4, expiry_date = $5, reorder_level = $6,
		    purchase_price = $7, selling_price = $8, rack_number = $9, stock_status = $10,
		    supplier = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := tx.QueryRowxContext(ctx, query,
		m.ID, m.Name, m.Category, m.BatchNumber, m.ExpiryDate, m.ReorderLevel,
		m.PurchasePrice, m.SellingPrice, m.RackNumber, m.StockStatus, m.Supplier,
	).Scan(&m.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("medicine")
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// Delete removes a medicine batch
func (r *MedicineRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("medicine")
	}
	return nil
}

// ListAll returns every medicine batch ordered by name then batch number
func (r *MedicineRepository) ListAll(ctx context.Context) ([]Medicine, error) {
	var medicines []Medicine
	query := fmt.Sprintf(`SELECT %s FROM medicines ORDER BY name, batch_number`, medicineColumns)
	if err := r.db.SelectContext(ctx, &medicines, query); err != nil {
		return nil, err
	}
	return medicines, nil
}

// Search matches name, category, or batch number case-insensitively
func (r *MedicineRepository) Search(ctx context.Context, text string) ([]Medicine, error) {
	var medicines []Medicine
	query := fmt.Sprintf(`
		SELECT %s FROM medicines
		WHERE name ILIKE $1 OR category ILIKE $1 OR batch_number ILIKE $1
		ORDER BY name, batch_number
	`, medicineColumns)
	if err := r.db.SelectContext(ctx, &medicines, query, "%"+text+"%"); err != nil {
		return nil, err
	}
	return medicines, nil
}

// ListLowStock returns batches at or below their reorder level
func (r *MedicineRepository) ListLowStock(ctx context.Context) ([]Medicine, error) {
	var medicines []Medicine
	query := fmt.Sprintf(`
		SELECT %s FROM medicines
		WHERE quantity <= reorder_level
		ORDER BY quantity ASC
	`, medicineColumns)
	if err := r.db.SelectContext(ctx, &medicines, query); err != nil {
		return nil, err
	}
	return medicines, nil
}

// ListNearExpiry returns unexpired batches expiring within thresholdDays
func (r *MedicineRepository) ListNearExpiry(ctx context.Context, thresholdDays int) ([]Medicine, error) {
	var medicines []Medicine
	query := fmt.Sprintf(`
		SELECT %s FROM medicines
		WHERE expiry_date > NOW()
		  AND expiry_date <= NOW() + ($1 * INTERVAL '1 day')
		ORDER BY expiry_date ASC
	`, medicineColumns)
	if err := r.db.SelectContext(ctx, &medicines, query, thresholdDays); err != nil {
		return nil, err
	}
	return medicines, nil
}

// ListExpired returns batches whose expiry date has passed
func (r *MedicineRepository) ListExpired(ctx context.Context) ([]Medicine, error) {
	var medicines []Medicine
	query := fmt.Sprintf(`
		SELECT %s FROM medicines
		WHERE expiry_date <= NOW()
		ORDER BY expiry_date ASC
	`, medicineColumns)
	if err := r.db.SelectContext(ctx, &medicines, query); err != nil {
		return nil, err
	}
	return medicines, nil
}

// FindByNameAndBatch returns the batch matching both keys, or NotFound.
// Used by the bulk importer to merge repeated uploads.
func (r *MedicineRepository) FindByNameAndBatch(ctx context.Context, name, batchNumber string) (*Medicine, error) {
	var m Medicine
	query := fmt.Sprintf(`
		SELECT %s FROM medicines
		WHERE LOWER(name) = LOWER($1) AND LOWER(batch_number) = LOWER($2)
	`, medicineColumns)
	err := r.db.GetContext(ctx, &m, query, name, batchNumber)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("medicine")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetForUpdateTx reads a medicine inside tx holding a row lock, serializing
// concurrent quantity mutations on the same batch.
func (r *MedicineRepository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*Medicine, error) {
	var m Medicine
	query := fmt.Sprintf(`SELECT %s FROM medicines WHERE id = $1 FOR UPDATE`, medicineColumns)
	err := tx.GetContext(ctx, &m, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("medicine")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateQuantityTx writes the new quantity and recomputed stock status inside
// tx. The caller must hold the row lock from GetForUpdateTx.
func (r *MedicineRepository) UpdateQuantityTx(ctx context.Context, tx *sqlx.Tx, id string, quantity int, status string) (time.Time, error) {
	var updatedAt time.Time
	query := `
		UPDATE medicines
		SET quantity = $2, stock_status = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := tx.QueryRowxContext(ctx, query, id, quantity, status).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, errors.NotFound("medicine")
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return time.Time{}, appErr
		}
		return time.Time{}, err
	}
	return updatedAt, nil
}

// InventoryValuation holds the aggregate stock valuations used by reports
type InventoryValuation struct {
	TotalBatches  int             `db:"total_batches" json:"total_batches"`
	TotalUnits    int             `db:"total_units" json:"total_units"`
	SellingValue  decimal.Decimal `db:"selling_value" json:"selling_value"`
	PurchaseValue decimal.Decimal `db:"purchase_value" json:"purchase_value"`
}

// Valuation folds current stock into selling and purchase valuations
func (r *MedicineRepository) Valuation(ctx context.Context) (*InventoryValuation, error) {
	var v InventoryValuation
	query := `
		SELECT COUNT(*) AS total_batches,
		       COALESCE(SUM(quantity), 0) AS total_units,
		       COALESCE(SUM(selling_price * quantity), 0) AS selling_value,
		       COALESCE(SUM(purchase_price * quantity), 0) AS purchase_value
		FROM medicines
	`
	if err := r.db.GetContext(ctx, &v, query); err != nil {
		return nil, err
	}
	return &v, nil
}
