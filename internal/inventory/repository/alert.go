package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/medistock/medistock-backend/pkg/database"
	"github.com/medistock/medistock-backend/pkg/errors"
)

// Alert types and severities
const (
	AlertLowStock   = "low_stock"
	AlertNearExpiry = "near_expiry"
	AlertExpired    = "expired"
	AlertOverstock  = "overstock"

	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert represents an operational stock alert
type Alert struct {
	ID           string    `db:"id" json:"id"`
	MedicineID   string    `db:"medicine_id" json:"medicine_id"`
	MedicineName string    `db:"medicine_name" json:"medicine_name"`
	AlertType    string    `db:"alert_type" json:"alert_type"`
	Message      string    `db:"message" json:"message"`
	Severity     string    `db:"severity" json:"severity"`
	IsResolved   bool      `db:"is_resolved" json:"is_resolved"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AlertRepository handles alert persistence
type AlertRepository struct {
	db *database.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new alert
func (r *AlertRepository) Create(ctx context.Context, a *Alert) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	query := `
		INSERT INTO alerts (id, medicine_id, medicine_name, alert_type, message, severity, is_resolved)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		a.ID, a.MedicineID, a.MedicineName, a.AlertType, a.Message, a.Severity,
	).Scan(&a.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// ExistsUnresolved reports whether an unresolved alert of the given type
// already exists for the medicine. The sweep uses this for deduplication.
func (r *AlertRepository) ExistsUnresolved(ctx context.Context, medicineID, alertType string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE medicine_id = $1 AND alert_type = $2 AND NOT is_resolved
		)
	`
	if err := r.db.GetContext(ctx, &exists, query, medicineID, alertType); err != nil {
		return false, err
	}
	return exists, nil
}

// Resolve marks an alert resolved and returns it
func (r *AlertRepository) Resolve(ctx context.Context, id string) (*Alert, error) {
	var a Alert
	query := `
		UPDATE alerts
		SET is_resolved = TRUE
		WHERE id = $1
		RETURNING id, medicine_id, medicine_name, alert_type, message, severity, is_resolved, created_at
	`
	err := r.db.GetContext(ctx, &a, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("alert")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// PurgeOlderThan deletes alerts created before the cutoff, resolved or not.
// Returns the number of purged rows.
func (r *AlertRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// List returns alerts newest first, optionally filtered by resolution state
func (r *AlertRepository) List(ctx context.Context, resolved *bool) ([]Alert, error) {
	var alerts []Alert
	query := `
		SELECT id, medicine_id, medicine_name, alert_type, message, severity, is_resolved, created_at
		FROM alerts
	`
	args := []interface{}{}
	if resolved != nil {
		query += ` WHERE is_resolved = $1`
		args = append(args, *resolved)
	}
	query += ` ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, err
	}
	return alerts, nil
}

// ListCritical returns unresolved critical alerts, newest first
func (r *AlertRepository) ListCritical(ctx context.Context) ([]Alert, error) {
	var alerts []Alert
	query := `
		SELECT id, medicine_id, medicine_name, alert_type, message, severity, is_resolved, created_at
		FROM alerts
		WHERE severity = 'critical' AND NOT is_resolved
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &alerts, query); err != nil {
		return nil, err
	}
	return alerts, nil
}
