// Package service implements the billing engine: atomic multi-line bill
// creation against current stock, payment confirmation, and sales summaries.
package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/medistock/medistock-backend/internal/billing/events"
	"github.com/medistock/medistock-backend/internal/billing/repository"
	invrepo "github.com/medistock/medistock-backend/internal/inventory/repository"
	invservice "github.com/medistock/medistock-backend/internal/inventory/service"
	"github.com/medistock/medistock-backend/pkg/database"
	"github.com/medistock/medistock-backend/pkg/errors"
	"github.com/medistock/medistock-backend/pkg/logger"
)

// taxRate is the fixed GST applied to every bill
var taxRate = decimal.NewFromFloat(0.12)

// BillingService validates multi-line orders against stock and produces bills
type BillingService struct {
	db        *database.DB
	bills     *repository.BillRepository
	customers *repository.CustomerRepository
	medicines *invrepo.MedicineRepository
	inventory *invservice.InventoryService
	publisher *events.BillingEventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewBillingService creates a new billing service
func NewBillingService(
	db *database.DB,
	bills *repository.BillRepository,
	customers *repository.CustomerRepository,
	medicines *invrepo.MedicineRepository,
	inventory *invservice.InventoryService,
	publisher *events.BillingEventPublisher,
	log *logger.Logger,
) *BillingService {
	return &BillingService{
		db:        db,
		bills:     bills,
		customers: customers,
		medicines: medicines,
		inventory: inventory,
		publisher: publisher,
		logger:    log.WithComponent("billing-service"),
		now:       time.Now,
	}
}

// BillLine is one requested sale line
type BillLine struct {
	MedicineID string `json:"medicine_id" validate:"required,uuid"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

// CreateBillInput is the payload for creating a bill
type CreateBillInput struct {
	CustomerID    *string    `json:"customer_id" validate:"omitempty,uuid"`
	CustomerName  string     `json:"customer_name"`
	CustomerType  string     `json:"customer_type" validate:"omitempty,oneof=regular walking"`
	Lines         []BillLine `json:"lines" validate:"required,min=1,dive"`
	PaymentMethod string     `json:"payment_method" validate:"required,oneof=cash card upi wallet_transfer"`
}

// CreateBill runs the whole-bill-or-nothing sale. All medicines named by the
// lines are locked in ascending ID order and every line is validated before
// any stock moves; the deductions, history entries, bill, and customer stats
// then commit in one transaction. The bill created event goes out only after
// the commit, so a notification failure can never undo a sale.
func (s *BillingService) CreateBill(ctx context.Context, input CreateBillInput, staffID string) (*repository.Bill, error) {
	var customer *repository.Customer
	if input.CustomerID != nil {
		var err error
		customer, err = s.customers.GetByID(ctx, *input.CustomerID)
		if err != nil {
			return nil, err
		}
	}

	customerName := input.CustomerName
	customerType := input.CustomerType
	if customer != nil {
		customerName = customer.Name
		customerType = customer.CustomerType
	}
	if customerName == "" {
		customerName = "Walk-in Customer"
	}
	if customerType == "" {
		customerType = repository.CustomerWalking
	}

	bill := &repository.Bill{
		BillNumber:    s.generateBillNumber(),
		CustomerID:    input.CustomerID,
		CustomerName:  customerName,
		CustomerType:  customerType,
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: repository.PaymentCompleted,
	}
	if staffID != "" {
		bill.StaffID = &staffID
	}

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		// Phase 1: lock every referenced medicine in ascending ID order
		// (stable lock order avoids deadlocks between concurrent bills) and
		// validate all lines before touching any quantity.
		requested := make(map[string]int, len(input.Lines))
		for _, line := range input.Lines {
			requested[line.MedicineID] += line.Quantity
		}

		ids := make([]string, 0, len(requested))
		for id := range requested {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		locked := make(map[string]*invrepo.Medicine, len(ids))
		for _, id := range ids {
			m, err := s.medicines.GetForUpdateTx(ctx, tx, id)
			if err != nil {
				return err
			}
			if requested[id] > m.Quantity {
				return errors.InsufficientStock(m.Name, m.Quantity)
			}
			locked[id] = m
		}

		// Phase 2: compute snapshotted lines and deduct stock per line.
		subtotal := decimal.Zero
		bill.Items = make([]repository.BillItem, 0, len(input.Lines))
		for _, line := range input.Lines {
			m := locked[line.MedicineID]
			lineTotal := m.SellingPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			subtotal = subtotal.Add(lineTotal)

			bill.Items = append(bill.Items, repository.BillItem{
				MedicineID:  m.ID,
				Name:        m.Name,
				BatchNumber: m.BatchNumber,
				Quantity:    line.Quantity,
				Price:       m.SellingPrice,
				Total:       lineTotal,
			})

			if _, err := s.inventory.DeductForSaleTx(ctx, tx, line.MedicineID, line.Quantity, staffID); err != nil {
				return err
			}
		}

		bill.Subtotal = subtotal
		bill.Tax = subtotal.Mul(taxRate).Round(2)
		bill.GrandTotal = subtotal.Add(bill.Tax)

		if err := s.bills.CreateTx(ctx, tx, bill); err != nil {
			return err
		}

		if customer != nil {
			if err := s.customers.IncrementPurchaseStatsTx(ctx, tx, customer.ID, bill.GrandTotal); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("bill_id", bill.ID).
		Str("bill_number", bill.BillNumber).
		Str("grand_total", bill.GrandTotal.StringFixed(2)).
		Int("lines", len(bill.Items)).
		Msg("bill created")
	s.publisher.PublishBillCreated(ctx, bill, customer)
	return bill, nil
}

// ConfirmPayment affirms a bill's payment as completed and returns a
// transaction identifier, generated when the caller supplies none. There is
// no pending-payment gateway flow; this is a synchronous affirmation.
func (s *BillingService) ConfirmPayment(ctx context.Context, billID, transactionID string) (*repository.Bill, string, error) {
	bill, err := s.bills.UpdatePaymentStatus(ctx, billID, repository.PaymentCompleted)
	if err != nil {
		return nil, "", err
	}

	if transactionID == "" {
		transactionID = fmt.Sprintf("TXN-%d", s.now().UnixMilli())
	}

	s.publisher.PublishPaymentConfirmed(ctx, bill, transactionID)
	return bill, transactionID, nil
}

// GetBill returns a bill with its line items
func (s *BillingService) GetBill(ctx context.Context, id string) (*repository.Bill, error) {
	return s.bills.GetByID(ctx, id)
}

// ListBills returns recent bills
func (s *BillingService) ListBills(ctx context.Context, limit int) ([]repository.Bill, error) {
	return s.bills.List(ctx, limit)
}

// ListBillsByCustomer returns one customer's bills
func (s *BillingService) ListBillsByCustomer(ctx context.Context, customerID string) ([]repository.Bill, error) {
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		return nil, err
	}
	return s.bills.ListByCustomer(ctx, customerID)
}

// ListBillsByDateRange returns bills created in [from, to)
func (s *BillingService) ListBillsByDateRange(ctx context.Context, from, to time.Time) ([]repository.Bill, error) {
	if !to.After(from) {
		return nil, errors.Validation(map[string]string{"to": "must be after from"})
	}
	return s.bills.ListByDateRange(ctx, from, to)
}

// SalesSummaryResult is the aggregated sales view for a trailing window
type SalesSummaryResult struct {
	Period       string          `json:"period"`
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	TotalSales   decimal.Decimal `json:"total_sales"`
	TotalBills   int             `json:"total_bills"`
	AvgBillValue decimal.Decimal `json:"avg_bill_value"`
}

// GetSalesSummary aggregates bills over a named trailing window:
// daily (24h), weekly (7d), or monthly (30d).
func (s *BillingService) GetSalesSummary(ctx context.Context, period string) (*SalesSummaryResult, error) {
	now := s.now()
	var window time.Duration
	switch period {
	case "", "daily":
		period = "daily"
		window = 24 * time.Hour
	case "weekly":
		window = 7 * 24 * time.Hour
	case "monthly":
		window = 30 * 24 * time.Hour
	default:
		return nil, errors.Validation(map[string]string{"period": "must be one of: daily, weekly, monthly"})
	}

	from := now.Add(-window)
	summary, err := s.bills.Summarize(ctx, from, now)
	if err != nil {
		return nil, err
	}

	avg := decimal.Zero
	if summary.TotalBills > 0 {
		avg = summary.TotalSales.Div(decimal.NewFromInt(int64(summary.TotalBills))).Round(2)
	}

	return &SalesSummaryResult{
		Period:       period,
		From:         from,
		To:           now,
		TotalSales:   summary.TotalSales,
		TotalBills:   summary.TotalBills,
		AvgBillValue: avg,
	}, nil
}

// SalesReport is the per-day breakdown over an explicit range
type SalesReport struct {
	From       time.Time               `json:"from"`
	To         time.Time               `json:"to"`
	TotalSales decimal.Decimal         `json:"total_sales"`
	TotalBills int                     `json:"total_bills"`
	Days       []repository.DailySales `json:"days"`
}

// GetSalesReport breaks down bills per day over [from, to)
func (s *BillingService) GetSalesReport(ctx context.Context, from, to time.Time) (*SalesReport, error) {
	if !to.After(from) {
		return nil, errors.Validation(map[string]string{"to": "must be after from"})
	}

	summary, err := s.bills.Summarize(ctx, from, to)
	if err != nil {
		return nil, err
	}
	days, err := s.bills.SalesByDay(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return &SalesReport{
		From:       from,
		To:         to,
		TotalSales: summary.TotalSales,
		TotalBills: summary.TotalBills,
		Days:       days,
	}, nil
}

// generateBillNumber produces BILL-<millis>-<9 char base36 suffix>; the
// timestamp keeps numbers sortable, the suffix keeps same-millisecond bills
// distinct. The top-level rand source is safe for concurrent bill creations.
func (s *BillingService) generateBillNumber() string {
	suffix := strings.ToUpper(fmt.Sprintf("%09s", strconv.FormatInt(rand.Int63(), 36)))
	if len(suffix) > 9 {
		suffix = suffix[len(suffix)-9:]
	}
	return fmt.Sprintf("BILL-%d-%s", s.now().UnixMilli(), suffix)
}
