package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/medistock/medistock-backend/pkg/database"
	"github.com/medistock/medistock-backend/pkg/errors"
)

// Payment methods and statuses
const (
	PaymentCash           = "cash"
	PaymentCard           = "card"
	PaymentUPI            = "upi"
	PaymentWalletTransfer = "wallet_transfer"

	PaymentCompleted = "completed"
	PaymentPending   = "pending"
	PaymentFailed    = "failed"
)

// Bill represents one completed sale
type Bill struct {
	ID            string          `db:"id" json:"id"`
	BillNumber    string          `db:"bill_number" json:"bill_number"`
	CustomerID    *string         `db:"customer_id" json:"customer_id,omitempty"`
	CustomerName  string          `db:"customer_name" json:"customer_name"`
	CustomerType  string          `db:"customer_type" json:"customer_type"`
	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	Tax           decimal.Decimal `db:"tax" json:"tax"`
	GrandTotal    decimal.Decimal `db:"grand_total" json:"grand_total"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	PaymentStatus string          `db:"payment_status" json:"payment_status"`
	StaffID       *string         `db:"staff_id" json:"staff_id,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
	Items         []BillItem      `db:"-" json:"items"`
}

// BillItem is one snapshotted sale line. Name, batch, and price are frozen
// at sale time, decoupled from later medicine edits.
type BillItem struct {
	ID          string          `db:"id" json:"id"`
	BillID      string          `db:"bill_id" json:"-"`
	LineNo      int             `db:"line_no" json:"line_no"`
	MedicineID  string          `db:"medicine_id" json:"medicine_id"`
	Name        string          `db:"name" json:"name"`
	BatchNumber string          `db:"batch_number" json:"batch_number"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Total       decimal.Decimal `db:"total" json:"total"`
}

// BillRepository handles bill persistence
type BillRepository struct {
	db *database.DB
}

// NewBillRepository creates a new bill repository
func NewBillRepository(db *database.DB) *BillRepository {
	return &BillRepository{db: db}
}

// CreateTx inserts the bill and its line items inside the caller's
// transaction, so a failed line aborts the whole bill.
func (r *BillRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, bill *Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}

	query := `
		INSERT INTO bills (id, bill_number, customer_id, customer_name, customer_type,
		                   subtotal, tax, grand_total, payment_method, payment_status, staff_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRowxContext(ctx, query,
		bill.ID, bill.BillNumber, bill.CustomerID, bill.CustomerName, bill.CustomerType,
		bill.Subtotal, bill.Tax, bill.GrandTotal, bill.PaymentMethod, bill.PaymentStatus, bill.StaffID,
	).Scan(&bill.CreatedAt, &bill.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	itemQuery := `
		INSERT INTO bill_items (id, bill_id, line_no, medicine_id, name, batch_number, quantity, price, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for i := range bill.Items {
		item := &bill.Items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.BillID = bill.ID
		item.LineNo = i + 1

		if _, err := tx.ExecContext(ctx, itemQuery,
			item.ID, item.BillID, item.LineNo, item.MedicineID, item.Name,
			item.BatchNumber, item.Quantity, item.Price, item.Total,
		); err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
	}
	return nil
}

const billColumns = `id, bill_number, customer_id, customer_name, customer_type,
	       subtotal, tax, grand_total, payment_method, payment_status, staff_id, created_at, updated_at`

// GetByID gets a bill with its line items
func (r *BillRepository) GetByID(ctx context.Context, id string) (*Bill, error) {
	var bill Bill
	err := r.db.GetContext(ctx, &bill, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("bill")
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, &bill); err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *BillRepository) loadItems(ctx context.Context, bill *Bill) error {
	query := `
		SELECT id, bill_id, line_no, medicine_id, name, batch_number, quantity, price, total
		FROM bill_items
		WHERE bill_id = $1
		ORDER BY line_no
	`
	return r.db.SelectContext(ctx, &bill.Items, query, bill.ID)
}

// List returns bills newest first, without line items
func (r *BillRepository) List(ctx context.Context, limit int) ([]Bill, error) {
	if limit <= 0 {
		limit = 100
	}
	var bills []Bill
	query := `SELECT ` + billColumns + ` FROM bills ORDER BY created_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &bills, query, limit); err != nil {
		return nil, err
	}
	return bills, nil
}

// ListByCustomer returns a customer's bills newest first, without line items
func (r *BillRepository) ListByCustomer(ctx context.Context, customerID string) ([]Bill, error) {
	var bills []Bill
	query := `SELECT ` + billColumns + ` FROM bills WHERE customer_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &bills, query, customerID); err != nil {
		return nil, err
	}
	return bills, nil
}

// ListByDateRange returns bills created in [from, to), without line items
func (r *BillRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]Bill, error) {
	var bills []Bill
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &bills, query, from, to); err != nil {
		return nil, err
	}
	return bills, nil
}

// UpdatePaymentStatus transitions a bill's payment status
func (r *BillRepository) UpdatePaymentStatus(ctx context.Context, id, status string) (*Bill, error) {
	var bill Bill
	query := `
		UPDATE bills
		SET payment_status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + billColumns + `
	`
	err := r.db.GetContext(ctx, &bill, query, id, status)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("bill")
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}

	if err := r.loadItems(ctx, &bill); err != nil {
		return nil, err
	}
	return &bill, nil
}

// SalesSummary aggregates bills over a time window
type SalesSummary struct {
	TotalSales decimal.Decimal `db:"total_sales" json:"total_sales"`
	TotalBills int             `db:"total_bills" json:"total_bills"`
}

// Summarize sums grand totals and counts bills created in [from, to)
func (r *BillRepository) Summarize(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	var summary SalesSummary
	query := `
		SELECT COALESCE(SUM(grand_total), 0) AS total_sales,
		       COUNT(*) AS total_bills
		FROM bills
		WHERE created_at >= $1 AND created_at < $2
	`
	if err := r.db.GetContext(ctx, &summary, query, from, to); err != nil {
		return nil, err
	}
	return &summary, nil
}

// DailySales is one day of the sales report breakdown
type DailySales struct {
	Day        time.Time       `db:"day" json:"day"`
	TotalSales decimal.Decimal `db:"total_sales" json:"total_sales"`
	TotalBills int             `db:"total_bills" json:"total_bills"`
}

// SalesByDay breaks the window down per calendar day
func (r *BillRepository) SalesByDay(ctx context.Context, from, to time.Time) ([]DailySales, error) {
	var days []DailySales
	query := `
		SELECT DATE_TRUNC('day', created_at) AS day,
		       COALESCE(SUM(grand_total), 0) AS total_sales,
		       COUNT(*) AS total_bills
		FROM bills
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY day
		ORDER BY day
	`
	if err := r.db.SelectContext(ctx, &days, query, from, to); err != nil {
		return nil, err
	}
	return days, nil
}
