package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medistock/medistock-backend/internal/inventory/repository"
	"github.com/medistock/medistock-backend/internal/inventory/service"
	"github.com/medistock/medistock-backend/pkg/config"
	"github.com/medistock/medistock-backend/pkg/database"
	"github.com/medistock/medistock-backend/pkg/errors"
	"github.com/medistock/medistock-backend/pkg/logger"
	"github.com/medistock/medistock-backend/pkg/testutil"
)

func newAlertService(mockDB *testutil.MockDB) *service.AlertService {
	log := logger.New("alert-test", "test")
	db := database.Wrap(mockDB.DB, log)
	cfg := &config.PharmacyConfig{NearExpiryDays: 7, DefaultReorderLevel: 50, DefaultSupplier: "Default Supplier"}
	return service.NewAlertService(repository.NewMedicineRepository(db), repository.NewAlertRepository(db), nil, cfg, log)
}

func medicineListRows() *sqlmock.Rows {
	return testutil.MockRows(
		"id", "name", "category", "batch_number", "expiry_date", "quantity", "reorder_level",
		"purchase_price", "selling_price", "rack_number", "stock_status", "supplier", "created_at", "updated_at",
	)
}

func addMedicineRow(rows *sqlmock.Rows, id, name, batch string, expiry time.Time, quantity, reorderLevel int) *sqlmock.Rows {
	return rows.AddRow(id, name, "General", batch, expiry, quantity, reorderLevel,
		"5.00", "8.00", "A1", "high", "Default Supplier", time.Now(), time.Now())
}

func newAlertRow(created time.Time) *sqlmock.Rows {
	return testutil.MockRows("created_at").AddRow(created)
}

func expectNoUnresolved(mockDB *testutil.MockDB, medicineID, alertType string, exists bool) {
	mockDB.ExpectQuery("SELECT EXISTS").WithArgs(medicineID, alertType).
		WillReturnRows(testutil.MockRows("exists").AddRow(exists))
}

func TestGenerateAlerts_AllRules(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newAlertService(mockDB)

	farFuture := time.Now().AddDate(1, 0, 0)
	expired := time.Now().Add(-48 * time.Hour)
	soon := time.Now().Add(72*time.Hour + 30*time.Minute)

	id1 := "11111111-1111-1111-1111-111111111111"
	id2 := "22222222-2222-2222-2222-222222222222"
	id3 := "33333333-3333-3333-3333-333333333333"

	rows := medicineListRows()
	addMedicineRow(rows, id1, "Atorvastatin 10mg", "B-1", farFuture, 5, 50)   // low stock
	addMedicineRow(rows, id2, "Cetirizine 10mg", "B-2", expired, 60, 50)      // expired
	addMedicineRow(rows, id3, "Metformin 500mg", "B-3", soon, 400, 100)       // near expiry + overstock

	mockDB.ExpectExec("DELETE FROM alerts").WillReturnResult(sqlmock.NewResult(0, 2))
	mockDB.ExpectQuery("FROM medicines ORDER BY name, batch_number").WillReturnRows(rows)

	expectNoUnresolved(mockDB, id1, repository.AlertLowStock, false)
	mockDB.ExpectQuery("INSERT INTO alerts").WillReturnRows(newAlertRow(time.Now()))

	expectNoUnresolved(mockDB, id2, repository.AlertExpired, false)
	mockDB.ExpectQuery("INSERT INTO alerts").WillReturnRows(newAlertRow(time.Now()))

	expectNoUnresolved(mockDB, id3, repository.AlertNearExpiry, false)
	mockDB.ExpectQuery("INSERT INTO alerts").WillReturnRows(newAlertRow(time.Now()))
	expectNoUnresolved(mockDB, id3, repository.AlertOverstock, false)
	mockDB.ExpectQuery("INSERT INTO alerts").WillReturnRows(newAlertRow(time.Now()))

	created, err := svc.GenerateAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, created, 4)

	assert.Equal(t, repository.AlertLowStock, created[0].AlertType)
	assert.Equal(t, repository.SeverityCritical, created[0].Severity)
	assert.Contains(t, created[0].Message, "only 5 units left")

	assert.Equal(t, repository.AlertExpired, created[1].AlertType)
	assert.Equal(t, repository.SeverityCritical, created[1].Severity)
	assert.Contains(t, created[1].Message, expired.Format("2006-01-02"))

	assert.Equal(t, repository.AlertNearExpiry, created[2].AlertType)
	assert.Equal(t, repository.SeverityWarning, created[2].Severity)

	assert.Equal(t, repository.AlertOverstock, created[3].AlertType)
	assert.Equal(t, repository.SeverityInfo, created[3].Severity)
	assert.Contains(t, created[3].Message, "more than 3x reorder level 100")

	mockDB.ExpectationsWereMet(t)
}

func TestGenerateAlerts_ExpiredSuppressesNearExpiry(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newAlertService(mockDB)

	id := "11111111-1111-1111-1111-111111111111"
	rows := medicineListRows()
	// Expired an hour ago: within the 7-day window but already expired, so
	// only the expired alert fires.
	addMedicineRow(rows, id, "Ibuprofen 400mg", "B-9", time.Now().Add(-time.Hour), 60, 50)

	mockDB.ExpectExec("DELETE FROM alerts").WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery("FROM medicines ORDER BY name, batch_number").WillReturnRows(rows)
	expectNoUnresolved(mockDB, id, repository.AlertExpired, false)
	mockDB.ExpectQuery("INSERT INTO alerts").WillReturnRows(newAlertRow(time.Now()))

	created, err := svc.GenerateAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, repository.AlertExpired, created[0].AlertType)

	mockDB.ExpectationsWereMet(t)
}

func TestGenerateAlerts_SkipsExistingUnresolved(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newAlertService(mockDB)

	id := "11111111-1111-1111-1111-111111111111"
	rows := medicineListRows()
	addMedicineRow(rows, id, "Atorvastatin 10mg", "B-1", time.Now().AddDate(1, 0, 0), 5, 50)

	mockDB.ExpectExec("DELETE FROM alerts").WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery("FROM medicines ORDER BY name, batch_number").WillReturnRows(rows)
	// An unresolved low stock alert already exists, so the sweep must not
	// insert another one.
	expectNoUnresolved(mockDB, id, repository.AlertLowStock, true)

	created, err := svc.GenerateAlerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, created)

	mockDB.ExpectationsWereMet(t)
}

func TestGenerateAlerts_HealthyStockIsQuiet(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newAlertService(mockDB)

	rows := medicineListRows()
	// 60 units against reorder level 50: medium stock, within 3x, far from
	// expiry. No rule fires.
	addMedicineRow(rows, "11111111-1111-1111-1111-111111111111", "Atorvastatin 10mg", "B-1",
		time.Now().AddDate(1, 0, 0), 60, 50)

	mockDB.ExpectExec("DELETE FROM alerts").WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery("FROM medicines ORDER BY name, batch_number").WillReturnRows(rows)

	created, err := svc.GenerateAlerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, created)

	mockDB.ExpectationsWereMet(t)
}

func TestResolveAlert(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newAlertService(mockDB)

	alertID := "99999999-9999-9999-9999-999999999999"
	mockDB.ExpectQuery("UPDATE alerts").WithArgs(alertID).
		WillReturnRows(testutil.MockRows(
			"id", "medicine_id", "medicine_name", "alert_type", "message", "severity", "is_resolved", "created_at",
		).AddRow(alertID, "11111111-1111-1111-1111-111111111111", "Atorvastatin 10mg",
			repository.AlertLowStock, "Low stock: Atorvastatin 10mg has only 5 units left (reorder level 50)",
			repository.SeverityCritical, true, time.Now()))

	alert, err := svc.ResolveAlert(ctx, alertID)
	require.NoError(t, err)
	assert.True(t, alert.IsResolved)

	mockDB.ExpectationsWereMet(t)
}

func TestResolveAlert_NotFound(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	svc := newAlertService(mockDB)

	alertID := "99999999-9999-9999-9999-999999999999"
	mockDB.ExpectQuery("UPDATE alerts").WithArgs(alertID).
		WillReturnRows(testutil.MockRows(
			"id", "medicine_id", "medicine_name", "alert_type", "message", "severity", "is_resolved", "created_at",
		))

	_, err := svc.ResolveAlert(ctx, alertID)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	mockDB.ExpectationsWereMet(t)
}
