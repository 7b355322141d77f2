package service

import (
	"context"
	"fmt"
	"time"

	"github.com/medistock/medistock-backend/internal/inventory/events"
	"github.com/medistock/medistock-backend/internal/inventory/repository"
	"github.com/medistock/medistock-backend/internal/inventory/stock"
	"github.com/medistock/medistock-backend/pkg/config"
	"github.com/medistock/medistock-backend/pkg/logger"
)

// alertMaxAge is how long any alert survives before the next sweep purges
// it, resolved or not.
const alertMaxAge = 24 * time.Hour

// AlertService runs the on-demand alert sweep over all medicines
type AlertService struct {
	medicines *repository.MedicineRepository
	alerts    *repository.AlertRepository
	publisher *events.InventoryEventPublisher
	cfg       *config.PharmacyConfig
	logger    *logger.Logger
	now       func() time.Time
}

// NewAlertService creates a new alert service
func NewAlertService(
	medicines *repository.MedicineRepository,
	alerts *repository.AlertRepository,
	publisher *events.InventoryEventPublisher,
	cfg *config.PharmacyConfig,
	log *logger.Logger,
) *AlertService {
	return &AlertService{
		medicines: medicines,
		alerts:    alerts,
		publisher: publisher,
		cfg:       cfg,
		logger:    log.WithComponent("alert-service"),
		now:       time.Now,
	}
}

// GenerateAlerts runs one sweep: purge alerts older than 24 hours, evaluate
// every medicine against the four rules, and create an alert for each rule
// that fires without an existing unresolved alert of the same type. Returns
// only the newly created alerts.
func (s *AlertService) GenerateAlerts(ctx context.Context) ([]repository.Alert, error) {
	now := s.now()

	purged, err := s.alerts.PurgeOlderThan(ctx, now.Add(-alertMaxAge))
	if err != nil {
		return nil, err
	}

	medicines, err := s.medicines.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	created := make([]repository.Alert, 0)
	for i := range medicines {
		m := &medicines[i]
		for _, candidate := range s.evaluate(m, now) {
			exists, err := s.alerts.ExistsUnresolved(ctx, m.ID, candidate.AlertType)
			if err != nil {
				return nil, err
			}
			if exists {
				continue
			}
			if err := s.alerts.Create(ctx, &candidate); err != nil {
				return nil, err
			}
			created = append(created, candidate)
			s.publisher.PublishAlertGenerated(ctx, &candidate)
		}
	}

	s.logger.Info().
		Int64("purged", purged).
		Int("created", len(created)).
		Int("medicines", len(medicines)).
		Msg("alert sweep completed")
	return created, nil
}

// evaluate applies the four alert rules to one medicine. Each rule fires
// independently; an expired batch can also be low on stock.
func (s *AlertService) evaluate(m *repository.Medicine, now time.Time) []repository.Alert {
	var out []repository.Alert

	if stock.Classify(m.Quantity, m.ReorderLevel) == stock.StatusLow {
		out = append(out, repository.Alert{
			MedicineID:   m.ID,
			MedicineName: m.Name,
			AlertType:    repository.AlertLowStock,
			Severity:     repository.SeverityCritical,
			Message: fmt.Sprintf("Low stock: %s has only %d units left (reorder level %d)",
				m.Name, m.Quantity, m.ReorderLevel),
		})
	}

	if stock.IsExpired(m.ExpiryDate, now) {
		out = append(out, repository.Alert{
			MedicineID:   m.ID,
			MedicineName: m.Name,
			AlertType:    repository.AlertExpired,
			Severity:     repository.SeverityCritical,
			Message: fmt.Sprintf("Expired: %s (batch %s) expired on %s",
				m.Name, m.BatchNumber, m.ExpiryDate.Format("2006-01-02")),
		})
	} else if stock.IsNearExpiry(m.ExpiryDate, now, s.cfg.NearExpiryDays) {
		out = append(out, repository.Alert{
			MedicineID:   m.ID,
			MedicineName: m.Name,
			AlertType:    repository.AlertNearExpiry,
			Severity:     repository.SeverityWarning,
			Message: fmt.Sprintf("Near expiry: %s (batch %s) expires in %d days",
				m.Name, m.BatchNumber, stock.DaysUntilExpiry(m.ExpiryDate, now)),
		})
	}

	if stock.IsOverstocked(m.Quantity, m.ReorderLevel) {
		out = append(out, repository.Alert{
			MedicineID:   m.ID,
			MedicineName: m.Name,
			AlertType:    repository.AlertOverstock,
			Severity:     repository.SeverityInfo,
			Message: fmt.Sprintf("Overstock: %s has %d units, more than 3x reorder level %d",
				m.Name, m.Quantity, m.ReorderLevel),
		})
	}

	return out
}

// ResolveAlert marks an alert resolved
func (s *AlertService) ResolveAlert(ctx context.Context, alertID string) (*repository.Alert, error) {
	alert, err := s.alerts.Resolve(ctx, alertID)
	if err != nil {
		return nil, err
	}
	s.publisher.PublishAlertResolved(ctx, alert)
	return alert, nil
}

// ListAlerts returns alerts, optionally filtered by resolution state
func (s *AlertService) ListAlerts(ctx context.Context, resolved *bool) ([]repository.Alert, error) {
	return s.alerts.List(ctx, resolved)
}

// ListCriticalAlerts returns unresolved critical alerts
func (s *AlertService) ListCriticalAlerts(ctx context.Context) ([]repository.Alert, error) {
	return s.alerts.ListCritical(ctx)
}
