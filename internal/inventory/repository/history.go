package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medistock/medistock-backend/pkg/database"
)

// History actions. One entry is appended per quantity mutation, in the same
// transaction as the mutation itself.
const (
	ActionAdd        = "add"
	ActionRemove     = "remove"
	ActionSale       = "sale"
	ActionAdjustment = "adjustment"
	ActionReturn     = "return"
)

// HistoryEntry is an immutable record of one quantity change
type HistoryEntry struct {
	ID               string    `db:"id" json:"id"`
	MedicineID       string    `db:"medicine_id" json:"medicine_id"`
	MedicineName     string    `db:"medicine_name" json:"medicine_name"`
	Action           string    `db:"action" json:"action"`
	QuantityChanged  int       `db:"quantity_changed" json:"quantity_changed"`
	PreviousQuantity int       `db:"previous_quantity" json:"previous_quantity"`
	NewQuantity      int       `db:"new_quantity" json:"new_quantity"`
	Reason           *string   `db:"reason" json:"reason,omitempty"`
	PerformedBy      *string   `db:"performed_by" json:"performed_by,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// HistoryRepository handles inventory history persistence
type HistoryRepository struct {
	db *database.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// CreateTx appends a history entry inside the caller's transaction so the
// entry commits together with the quantity change it records.
func (r *HistoryRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, entry *HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO inventory_history (id, medicine_id, medicine_name, action, quantity_changed,
		                               previous_quantity, new_quantity, reason, performed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	return tx.QueryRowxContext(ctx, query,
		entry.ID, entry.MedicineID, entry.MedicineName, entry.Action, entry.QuantityChanged,
		entry.PreviousQuantity, entry.NewQuantity, entry.Reason, entry.PerformedBy,
	).Scan(&entry.CreatedAt)
}

// ListByMedicine returns the history of one medicine, newest first
func (r *HistoryRepository) ListByMedicine(ctx context.Context, medicineID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []HistoryEntry
	query := `
		SELECT id, medicine_id, medicine_name, action, quantity_changed,
		       previous_quantity, new_quantity, reason, performed_by, created_at
		FROM inventory_history
		WHERE medicine_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &entries, query, medicineID, limit); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListRecent returns the latest history entries across all medicines
func (r *HistoryRepository) ListRecent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []HistoryEntry
	query := `
		SELECT id, medicine_id, medicine_name, action, quantity_changed,
		       previous_quantity, new_quantity, reason, performed_by, created_at
		FROM inventory_history
		ORDER BY created_at DESC
		LIMIT $1
	`
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, err
	}
	return entries, nil
}

// SoldQuantity holds cumulative units sold for one medicine
type SoldQuantity struct {
	MedicineID   string `db:"medicine_id" json:"medicine_id"`
	MedicineName string `db:"medicine_name" json:"medicine_name"`
	TotalSold    int    `db:"total_sold" json:"total_sold"`
}

// SoldTotals sums sale quantities per medicine since the given time.
// A zero time means all history.
func (r *HistoryRepository) SoldTotals(ctx context.Context, since time.Time) ([]SoldQuantity, error) {
	var totals []SoldQuantity
	query := `
		SELECT medicine_id, medicine_name, COALESCE(SUM(-quantity_changed), 0) AS total_sold
		FROM inventory_history
		WHERE action = 'sale' AND created_at >= $1
		GROUP BY medicine_id, medicine_name
		ORDER BY total_sold DESC
	`
	if err := r.db.SelectContext(ctx, &totals, query, since); err != nil {
		return nil, err
	}
	return totals, nil
}

// DailySales holds units sold per day for one medicine, used by the forecast
type DailySales struct {
	Day       time.Time `db:"day" json:"day"`
	UnitsSold int       `db:"units_sold" json:"units_sold"`
}

// DailySoldQuantities returns per-day sale quantities for a medicine over
// the trailing window of days.
func (r *HistoryRepository) DailySoldQuantities(ctx context.Context, medicineID string, days int) ([]DailySales, error) {
	var sales []DailySales
	query := `
		SELECT DATE_TRUNC('day', created_at) AS day,
		       COALESCE(SUM(-quantity_changed), 0) AS units_sold
		FROM inventory_history
		WHERE medicine_id = $1
		  AND action = 'sale'
		  AND created_at >= NOW() - ($2 * INTERVAL '1 day')
		GROUP BY day
		ORDER BY day
	`
	if err := r.db.SelectContext(ctx, &sales, query, medicineID, days); err != nil {
		return nil, err
	}
	return sales, nil
}
