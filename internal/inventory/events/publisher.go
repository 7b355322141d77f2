// Package events publishes inventory domain events after their database
// transactions commit.
package events

import (
	"context"

	"github.com/medistock/medistock-backend/internal/inventory/repository"
	"github.com/medistock/medistock-backend/pkg/logger"
	"github.com/medistock/medistock-backend/pkg/messaging"
)

// InventoryEventPublisher publishes inventory-related events
type InventoryEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a new inventory event publisher
func NewInventoryEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*InventoryEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "pharmacy-service", log)
	if err != nil {
		return nil, err
	}

	return &InventoryEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishStockAdjusted publishes a stock adjusted event. Failures are logged
// and swallowed; events never fail the mutation that produced them.
func (p *InventoryEventPublisher) PublishStockAdjusted(ctx context.Context, m *repository.Medicine, action string, delta int, performedBy string) {
	if p == nil {
		return
	}

	data := messaging.StockAdjustedEvent{
		MedicineID:   m.ID,
		MedicineName: m.Name,
		Action:       action,
		Delta:        delta,
		NewQuantity:  m.Quantity,
		StockStatus:  m.StockStatus,
		PerformedBy:  performedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockAdjusted, data); err != nil {
		p.logger.Error().Err(err).Str("medicine_id", m.ID).Msg("failed to publish stock adjusted event")
	}
}

// PublishAlertGenerated publishes an alert generated event
func (p *InventoryEventPublisher) PublishAlertGenerated(ctx context.Context, alert *repository.Alert) {
	if p == nil {
		return
	}

	data := messaging.AlertGeneratedEvent{
		AlertID:      alert.ID,
		AlertType:    alert.AlertType,
		Severity:     alert.Severity,
		MedicineID:   alert.MedicineID,
		MedicineName: alert.MedicineName,
		Message:      alert.Message,
	}

	if err := p.publisher.Publish(ctx, messaging.EventAlertGenerated, data); err != nil {
		p.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to publish alert generated event")
	}
}

// PublishAlertResolved publishes an alert resolved event
func (p *InventoryEventPublisher) PublishAlertResolved(ctx context.Context, alert *repository.Alert) {
	if p == nil {
		return
	}

	data := map[string]string{
		"alert_id":   alert.ID,
		"alert_type": alert.AlertType,
	}

	if err := p.publisher.Publish(ctx, messaging.EventAlertResolved, data); err != nil {
		p.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to publish alert resolved event")
	}
}
