package service_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medistock/medistock-backend/internal/inventory/repository"
	"github.com/medistock/medistock-backend/internal/inventory/service"
	"github.com/medistock/medistock-backend/pkg/config"
	"github.com/medistock/medistock-backend/pkg/database"
	"github.com/medistock/medistock-backend/pkg/logger"
	"github.com/medistock/medistock-backend/pkg/testutil"
)

func newReportService(mockDB *testutil.MockDB) *service.ReportService {
	log := logger.New("report-test", "test")
	db := database.Wrap(mockDB.DB, log)
	cfg := &config.PharmacyConfig{NearExpiryDays: 7, DefaultReorderLevel: 50, DefaultSupplier: "Default Supplier"}
	return service.NewReportService(
		repository.NewMedicineRepository(db),
		repository.NewHistoryRepository(db),
		repository.NewAlertRepository(db),
		cfg, log,
	)
}

func TestGetStockMovement(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newReportService(mockDB)

	mockDB.ExpectQuery("FROM inventory_history").
		WillReturnRows(testutil.MockRows("medicine_id", "medicine_name", "total_sold").
			AddRow("id-1", "Paracetamol 500mg", 250).
			AddRow("id-2", "Metformin 500mg", 100).
			AddRow("id-3", "Cetirizine 10mg", 10).
			AddRow("id-4", "Rare Ointment", 3))

	movements, err := svc.GetStockMovement(ctx)
	require.NoError(t, err)
	require.Len(t, movements, 4)

	// Classification is strict: exactly 100 sold is normal, exactly 10 too.
	assert.Equal(t, "fast_moving", movements[0].Movement)
	assert.Equal(t, "normal", movements[1].Movement)
	assert.Equal(t, "normal", movements[2].Movement)
	assert.Equal(t, "slow_moving", movements[3].Movement)

	mockDB.ExpectationsWereMet(t)
}

func TestGetDemandForecast_StaysWithinJitterBounds(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newReportService(mockDB)

	id := "11111111-1111-1111-1111-111111111111"
	mockDB.ExpectQuery("FROM medicines WHERE id = $1").WithArgs(id).
		WillReturnRows(addMedicineRow(medicineListRows(), id, "Paracetamol 500mg", "B-100",
			time.Now().AddDate(1, 0, 0), 80, 50))
	mockDB.ExpectQuery("FROM inventory_history").WithArgs(id, 7).
		WillReturnRows(testutil.MockRows("day", "units_sold").
			AddRow(time.Now().Add(-48*time.Hour), 30).
			AddRow(time.Now().Add(-24*time.Hour), 40))

	forecast, err := svc.GetDemandForecast(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, 7, forecast.WindowDays)
	assert.Equal(t, 80, forecast.CurrentQuantity)
	assert.InDelta(t, 10.0, forecast.AvgDailySales, 0.0001)

	// The projection jitters the 7-day average by up to ±20%.
	low := int(math.Ceil(forecast.AvgDailySales * 0.8))
	high := int(math.Ceil(forecast.AvgDailySales * 1.2))
	assert.GreaterOrEqual(t, forecast.ForecastPerDay, low)
	assert.LessOrEqual(t, forecast.ForecastPerDay, high)

	mockDB.ExpectationsWereMet(t)
}

func TestGetDemandForecast_NoSalesHistory(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newReportService(mockDB)

	id := "11111111-1111-1111-1111-111111111111"
	mockDB.ExpectQuery("FROM medicines WHERE id = $1").WithArgs(id).
		WillReturnRows(addMedicineRow(medicineListRows(), id, "Rare Ointment", "B-9",
			time.Now().AddDate(1, 0, 0), 15, 10))
	mockDB.ExpectQuery("FROM inventory_history").WithArgs(id, 7).
		WillReturnRows(testutil.MockRows("day", "units_sold"))

	forecast, err := svc.GetDemandForecast(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, forecast.AvgDailySales)
	assert.Zero(t, forecast.ForecastPerDay)

	mockDB.ExpectationsWereMet(t)
}

func TestGetReorderRecommendations(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newReportService(mockDB)

	expiry := time.Now().AddDate(1, 0, 0)
	rows := medicineListRows()
	addMedicineRow(rows, "id-1", "Paracetamol 500mg", "B-100", expiry, 5, 50)
	addMedicineRow(rows, "id-2", "Metformin 500mg", "B-200", expiry, 50, 50)

	mockDB.ExpectQuery("quantity <= reorder_level").WillReturnRows(rows)

	recs, err := svc.GetReorderRecommendations(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// Target is twice the reorder level.
	assert.Equal(t, 95, recs[0].RecommendedQuantity)
	assert.Equal(t, 50, recs[1].RecommendedQuantity)

	mockDB.ExpectationsWereMet(t)
}

func TestGetInventoryReport(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newReportService(mockDB)

	expiry := time.Now().AddDate(1, 0, 0)

	mockDB.ExpectQuery("COUNT(*) AS total_batches").
		WillReturnRows(testutil.MockRows("total_batches", "total_units", "selling_value", "purchase_value").
			AddRow(3, 500, "4000.00", "2500.00"))
	mockDB.ExpectQuery("quantity <= reorder_level").
		WillReturnRows(addMedicineRow(medicineListRows(), "id-1", "Paracetamol 500mg", "B-100", expiry, 5, 50))
	mockDB.ExpectQuery("INTERVAL '1 day'").WithArgs(7).
		WillReturnRows(medicineListRows())
	mockDB.ExpectQuery("expiry_date <= NOW()").
		WillReturnRows(medicineListRows())

	report, err := svc.GetInventoryReport(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalBatches)
	assert.Equal(t, 500, report.TotalUnits)
	assert.Equal(t, "1500", report.PotentialProfit.String())
	assert.Equal(t, 1, report.LowStockCount)
	assert.Zero(t, report.NearExpiryCount)
	assert.Zero(t, report.ExpiredCount)

	mockDB.ExpectationsWereMet(t)
}
