package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/medistock/medistock-backend/pkg/database"
)

// Upload log statuses
const (
	UploadSuccess = "success"
	UploadPartial = "partial"
	UploadFailed  = "failed"
)

// UploadLog records the outcome of one bulk import
type UploadLog struct {
	ID                string          `db:"id" json:"id"`
	FileName          *string         `db:"file_name" json:"file_name,omitempty"`
	RecordsProcessed  int             `db:"records_processed" json:"records_processed"`
	RecordsSuccessful int             `db:"records_successful" json:"records_successful"`
	RecordsFailed     int             `db:"records_failed" json:"records_failed"`
	Anomalies         json.RawMessage `db:"anomalies" json:"anomalies"`
	UploadedBy        *string         `db:"uploaded_by" json:"uploaded_by,omitempty"`
	Status            string          `db:"status" json:"status"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// UploadLogRepository handles upload log persistence
type UploadLogRepository struct {
	db *database.DB
}

// NewUploadLogRepository creates a new upload log repository
func NewUploadLogRepository(db *database.DB) *UploadLogRepository {
	return &UploadLogRepository{db: db}
}

// Create inserts an upload log record
func (r *UploadLogRepository) Create(ctx context.Context, l *UploadLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if len(l.Anomalies) == 0 {
		l.Anomalies = json.RawMessage("[]")
	}

	query := `
		INSERT INTO upload_logs (id, file_name, records_processed, records_successful,
		                         records_failed, anomalies, uploaded_by, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	return r.db.QueryRowxContext(ctx, query,
		l.ID, l.FileName, l.RecordsProcessed, l.RecordsSuccessful,
		l.RecordsFailed, l.Anomalies, l.UploadedBy, l.Status,
	).Scan(&l.CreatedAt)
}

// ListRecent returns the latest upload logs, newest first
func (r *UploadLogRepository) ListRecent(ctx context.Context, limit int) ([]UploadLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var logs []UploadLog
	query := `
		SELECT id, file_name, records_processed, records_successful,
		       records_failed, anomalies, uploaded_by, status, created_at
		FROM upload_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	if err := r.db.SelectContext(ctx, &logs, query, limit); err != nil {
		return nil, err
	}
	return logs, nil
}
