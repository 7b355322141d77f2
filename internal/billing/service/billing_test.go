package service_test

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingrepo "github.com/medistock/medistock-backend/internal/billing/repository"
	"github.com/medistock/medistock-backend/internal/billing/service"
	invrepo "github.com/medistock/medistock-backend/internal/inventory/repository"
	invservice "github.com/medistock/medistock-backend/internal/inventory/service"
	"github.com/medistock/medistock-backend/pkg/config"
	"github.com/medistock/medistock-backend/pkg/database"
	"github.com/medistock/medistock-backend/pkg/errors"
	"github.com/medistock/medistock-backend/pkg/logger"
	"github.com/medistock/medistock-backend/pkg/testutil"
)

var billNumberPattern = regexp.MustCompile(`^BILL-\d+-[0-9A-Z]{9}$`)

// newBillingService wires a BillingService against a mock database. Event
// publishers are nil; publishing is a post-commit side effect and nil
// publishers are no-ops.
func newBillingService(mockDB *testutil.MockDB) *service.BillingService {
	log := logger.New("billing-test", "test")
	db := database.Wrap(mockDB.DB, log)

	medicines := invrepo.NewMedicineRepository(db)
	history := invrepo.NewHistoryRepository(db)
	cfg := &config.PharmacyConfig{NearExpiryDays: 7, DefaultReorderLevel: 50, DefaultSupplier: "Default Supplier"}
	inventory := invservice.NewInventoryService(db, medicines, history, nil, cfg, log)

	bills := billingrepo.NewBillRepository(db)
	customers := billingrepo.NewCustomerRepository(db)
	return service.NewBillingService(db, bills, customers, medicines, inventory, nil, log)
}

func medicineRows(id, name, batch string, quantity, reorderLevel int, sellingPrice, status string) *sqlmock.Rows {
	return testutil.MockRows(
		"id", "name", "category", "batch_number", "expiry_date", "quantity", "reorder_level",
		"purchase_price", "selling_price", "rack_number", "stock_status", "supplier", "created_at", "updated_at",
	).AddRow(id, name, "Analgesic", batch, time.Now().AddDate(1, 0, 0), quantity, reorderLevel,
		"5.00", sellingPrice, "A1", status, "Default Supplier", time.Now(), time.Now())
}

const lockQuery = "FROM medicines WHERE id = $1 FOR UPDATE"

func TestCreateBill_WholeBillCommits(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newBillingService(mockDB)

	// id1 sorts before id2; the input lines reference them in the opposite
	// order to exercise the ascending lock order.
	id1 := "11111111-1111-1111-1111-111111111111"
	id2 := "22222222-2222-2222-2222-222222222222"

	mockDB.ExpectBegin()

	// Phase 1: both rows locked in ascending ID order.
	mockDB.ExpectQuery(lockQuery).WithArgs(id1).
		WillReturnRows(medicineRows(id1, "Paracetamol 500mg", "B-100", 40, 10, "10.50", "high"))
	mockDB.ExpectQuery(lockQuery).WithArgs(id2).
		WillReturnRows(medicineRows(id2, "Amoxicillin 250mg", "B-200", 12, 50, "7.25", "low"))

	// Phase 2 runs in input line order: id2 first, then id1.
	mockDB.ExpectQuery(lockQuery).WithArgs(id2).
		WillReturnRows(medicineRows(id2, "Amoxicillin 250mg", "B-200", 12, 50, "7.25", "low"))
	mockDB.ExpectQuery("UPDATE medicines").WithArgs(id2, 10, "low").
		WillReturnRows(testutil.MockRows("updated_at").AddRow(time.Now()))
	mockDB.ExpectQuery("INSERT INTO inventory_history").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))

	mockDB.ExpectQuery(lockQuery).WithArgs(id1).
		WillReturnRows(medicineRows(id1, "Paracetamol 500mg", "B-100", 40, 10, "10.50", "high"))
	mockDB.ExpectQuery("UPDATE medicines").WithArgs(id1, 37, "high").
		WillReturnRows(testutil.MockRows("updated_at").AddRow(time.Now()))
	mockDB.ExpectQuery("INSERT INTO inventory_history").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))

	mockDB.ExpectQuery("INSERT INTO bills").
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(time.Now(), time.Now()))
	mockDB.ExpectExec("INSERT INTO bill_items").WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("INSERT INTO bill_items").WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	bill, err := svc.CreateBill(ctx, service.CreateBillInput{
		Lines: []service.BillLine{
			{MedicineID: id2, Quantity: 2},
			{MedicineID: id1, Quantity: 3},
		},
		PaymentMethod: "cash",
	}, "staff-1")
	require.NoError(t, err)

	// 2 * 7.25 + 3 * 10.50 = 46.00, tax 12% = 5.52
	assert.True(t, decimal.RequireFromString("46.00").Equal(bill.Subtotal), "subtotal = %s", bill.Subtotal)
	assert.True(t, decimal.RequireFromString("5.52").Equal(bill.Tax), "tax = %s", bill.Tax)
	assert.True(t, decimal.RequireFromString("51.52").Equal(bill.GrandTotal), "grand total = %s", bill.GrandTotal)

	assert.Regexp(t, billNumberPattern, bill.BillNumber)
	assert.Equal(t, "Walk-in Customer", bill.CustomerName)
	assert.Equal(t, billingrepo.CustomerWalking, bill.CustomerType)
	assert.Equal(t, billingrepo.PaymentCompleted, bill.PaymentStatus)
	require.NotNil(t, bill.StaffID)
	assert.Equal(t, "staff-1", *bill.StaffID)

	require.Len(t, bill.Items, 2)
	assert.Equal(t, "Amoxicillin 250mg", bill.Items[0].Name)
	assert.Equal(t, 1, bill.Items[0].LineNo)
	assert.Equal(t, "B-200", bill.Items[0].BatchNumber)
	assert.True(t, decimal.RequireFromString("14.50").Equal(bill.Items[0].Total))
	assert.Equal(t, "Paracetamol 500mg", bill.Items[1].Name)
	assert.Equal(t, 2, bill.Items[1].LineNo)
	assert.True(t, decimal.RequireFromString("31.50").Equal(bill.Items[1].Total))

	mockDB.ExpectationsWereMet(t)
}

func TestCreateBill_InsufficientStockRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newBillingService(mockDB)

	id1 := "11111111-1111-1111-1111-111111111111"
	id2 := "22222222-2222-2222-2222-222222222222"

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(lockQuery).WithArgs(id1).
		WillReturnRows(medicineRows(id1, "Paracetamol 500mg", "B-100", 40, 10, "10.50", "high"))
	// Second medicine is short; the bill must abort before any UPDATE runs,
	// including the deduction for the first line that would have succeeded.
	mockDB.ExpectQuery(lockQuery).WithArgs(id2).
		WillReturnRows(medicineRows(id2, "Amoxicillin 250mg", "B-200", 1, 50, "7.25", "low"))
	mockDB.ExpectRollback()

	bill, err := svc.CreateBill(ctx, service.CreateBillInput{
		Lines: []service.BillLine{
			{MedicineID: id1, Quantity: 3},
			{MedicineID: id2, Quantity: 2},
		},
		PaymentMethod: "card",
	}, "staff-1")
	require.Error(t, err)
	assert.Nil(t, bill)
	assert.ErrorIs(t, err, errors.ErrInsufficientStock)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Message, "Amoxicillin 250mg")

	mockDB.ExpectationsWereMet(t)
}

func TestCreateBill_AggregatesRepeatedLines(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newBillingService(mockDB)

	id := "11111111-1111-1111-1111-111111111111"

	// Each line alone fits within the 5 units in stock, but together they
	// request 6. The aggregate check must catch this before any deduction.
	mockDB.ExpectBegin()
	mockDB.ExpectQuery(lockQuery).WithArgs(id).
		WillReturnRows(medicineRows(id, "Paracetamol 500mg", "B-100", 5, 10, "10.50", "medium"))
	mockDB.ExpectRollback()

	_, err := svc.CreateBill(ctx, service.CreateBillInput{
		Lines: []service.BillLine{
			{MedicineID: id, Quantity: 3},
			{MedicineID: id, Quantity: 3},
		},
		PaymentMethod: "cash",
	}, "staff-1")
	assert.ErrorIs(t, err, errors.ErrInsufficientStock)

	mockDB.ExpectationsWereMet(t)
}

func TestCreateBill_RegisteredCustomer(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newBillingService(mockDB)

	customerID := "33333333-3333-3333-3333-333333333333"
	medID := "11111111-1111-1111-1111-111111111111"

	mockDB.ExpectQuery("FROM customers WHERE id = $1").WithArgs(customerID).
		WillReturnRows(testutil.MockRows(
			"id", "name", "phone", "email", "customer_type", "address", "city",
			"total_purchases", "total_spent", "created_at", "updated_at",
		).AddRow(customerID, "Asha Patel", "9876543210", nil, "regular", nil, nil, 4, "812.00", time.Now(), time.Now()))

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(lockQuery).WithArgs(medID).
		WillReturnRows(medicineRows(medID, "Paracetamol 500mg", "B-100", 40, 10, "10.00", "high"))
	mockDB.ExpectQuery(lockQuery).WithArgs(medID).
		WillReturnRows(medicineRows(medID, "Paracetamol 500mg", "B-100", 40, 10, "10.00", "high"))
	mockDB.ExpectQuery("UPDATE medicines").WithArgs(medID, 38, "high").
		WillReturnRows(testutil.MockRows("updated_at").AddRow(time.Now()))
	mockDB.ExpectQuery("INSERT INTO inventory_history").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	mockDB.ExpectQuery("INSERT INTO bills").
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(time.Now(), time.Now()))
	mockDB.ExpectExec("INSERT INTO bill_items").WillReturnResult(sqlmock.NewResult(0, 1))
	// Purchase stats update commits with the bill. 10.00 * 2 * 1.12 = 22.40.
	mockDB.ExpectExec("UPDATE customers").
		WithArgs(customerID, decimalArg{"22.40"}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	bill, err := svc.CreateBill(ctx, service.CreateBillInput{
		CustomerID:    &customerID,
		Lines:         []service.BillLine{{MedicineID: medID, Quantity: 2}},
		PaymentMethod: "upi",
	}, "staff-1")
	require.NoError(t, err)

	// Name and type come from the stored customer, not the request.
	assert.Equal(t, "Asha Patel", bill.CustomerName)
	assert.Equal(t, billingrepo.CustomerRegular, bill.CustomerType)
	assert.True(t, decimal.RequireFromString("22.40").Equal(bill.GrandTotal), "grand total = %s", bill.GrandTotal)

	mockDB.ExpectationsWereMet(t)
}

func TestCreateBill_UnknownCustomer(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newBillingService(mockDB)

	customerID := "33333333-3333-3333-3333-333333333333"
	mockDB.ExpectQuery("FROM customers WHERE id = $1").WithArgs(customerID).
		WillReturnRows(testutil.MockRows(
			"id", "name", "phone", "email", "customer_type", "address", "city",
			"total_purchases", "total_spent", "created_at", "updated_at",
		))

	_, err := svc.CreateBill(ctx, service.CreateBillInput{
		CustomerID:    &customerID,
		Lines:         []service.BillLine{{MedicineID: "11111111-1111-1111-1111-111111111111", Quantity: 1}},
		PaymentMethod: "cash",
	}, "staff-1")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	mockDB.ExpectationsWereMet(t)
}

func TestConfirmPayment_GeneratesTransactionID(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newBillingService(mockDB)

	billID := "44444444-4444-4444-4444-444444444444"
	mockDB.ExpectQuery("UPDATE bills").WithArgs(billID, billingrepo.PaymentCompleted).
		WillReturnRows(testutil.MockRows(
			"id", "bill_number", "customer_id", "customer_name", "customer_type",
			"subtotal", "tax", "grand_total", "payment_method", "payment_status",
			"staff_id", "created_at", "updated_at",
		).AddRow(billID, "BILL-1700000000000-000ABC123", nil, "Walk-in Customer", "walking",
			"46.00", "5.52", "51.52", "cash", "completed", nil, time.Now(), time.Now()))
	mockDB.ExpectQuery("FROM bill_items").WithArgs(billID).
		WillReturnRows(testutil.MockRows(
			"id", "bill_id", "line_no", "medicine_id", "name", "batch_number", "quantity", "price", "total",
		))

	bill, txnID, err := svc.ConfirmPayment(ctx, billID, "")
	require.NoError(t, err)
	assert.Equal(t, billingrepo.PaymentCompleted, bill.PaymentStatus)
	assert.Regexp(t, `^TXN-\d+$`, txnID)

	mockDB.ExpectationsWereMet(t)
}

func TestConfirmPayment_KeepsCallerTransactionID(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newBillingService(mockDB)

	billID := "44444444-4444-4444-4444-444444444444"
	mockDB.ExpectQuery("UPDATE bills").WithArgs(billID, billingrepo.PaymentCompleted).
		WillReturnRows(testutil.MockRows(
			"id", "bill_number", "customer_id", "customer_name", "customer_type",
			"subtotal", "tax", "grand_total", "payment_method", "payment_status",
			"staff_id", "created_at", "updated_at",
		).AddRow(billID, "BILL-1700000000000-000ABC123", nil, "Walk-in Customer", "walking",
			"46.00", "5.52", "51.52", "upi", "completed", nil, time.Now(), time.Now()))
	mockDB.ExpectQuery("FROM bill_items").WithArgs(billID).
		WillReturnRows(testutil.MockRows(
			"id", "bill_id", "line_no", "medicine_id", "name", "batch_number", "quantity", "price", "total",
		))

	_, txnID, err := svc.ConfirmPayment(ctx, billID, "TXN-UPI-REF-991")
	require.NoError(t, err)
	assert.Equal(t, "TXN-UPI-REF-991", txnID)

	mockDB.ExpectationsWereMet(t)
}

func TestGetSalesSummary(t *testing.T) {
	t.Run("rejects unknown period", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		svc := newBillingService(mockDB)
		_, err := svc.GetSalesSummary(context.Background(), "quarterly")
		assert.ErrorIs(t, err, errors.ErrValidation)

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("averages over the window", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		svc := newBillingService(mockDB)
		mockDB.ExpectQuery("FROM bills").
			WillReturnRows(testutil.MockRows("total_sales", "total_bills").AddRow("301.00", 3))

		summary, err := svc.GetSalesSummary(context.Background(), "weekly")
		require.NoError(t, err)
		assert.Equal(t, "weekly", summary.Period)
		assert.Equal(t, 3, summary.TotalBills)
		assert.True(t, decimal.RequireFromString("100.33").Equal(summary.AvgBillValue), "avg = %s", summary.AvgBillValue)

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("zero bills means zero average", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		svc := newBillingService(mockDB)
		mockDB.ExpectQuery("FROM bills").
			WillReturnRows(testutil.MockRows("total_sales", "total_bills").AddRow("0", 0))

		summary, err := svc.GetSalesSummary(context.Background(), "daily")
		require.NoError(t, err)
		assert.True(t, summary.AvgBillValue.IsZero())

		mockDB.ExpectationsWereMet(t)
	})
}

// decimalArg matches a decimal-valued query argument by numeric value rather
// than string representation.
type decimalArg struct{ want string }

func (d decimalArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		if b, isBytes := v.([]byte); isBytes {
			s = string(b)
		} else {
			return false
		}
	}
	got, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}
	return got.Equal(decimal.RequireFromString(d.want))
}
