package consumers

import (
	"context"
	"fmt"

	"github.com/medistock/medistock-backend/internal/notification"
	"github.com/medistock/medistock-backend/pkg/config"
	"github.com/medistock/medistock-backend/pkg/logger"
	"github.com/medistock/medistock-backend/pkg/messaging"
)

// AlertEventConsumer consumes inventory alert events and notifies the owner
type AlertEventConsumer struct {
	consumer   *messaging.Consumer
	email      notification.Sender
	ownerEmail string
	logger     *logger.Logger
}

// NewAlertEventConsumer creates a new alert event consumer
func NewAlertEventConsumer(
	rmq *messaging.RabbitMQ,
	email notification.Sender,
	cfg *config.PharmacyConfig,
	log *logger.Logger,
) (*AlertEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "notification-service.inventory-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeInventoryEvents, "inventory.alert.#"); err != nil {
		return nil, err
	}

	c := &AlertEventConsumer{
		consumer:   consumer,
		email:      email,
		ownerEmail: cfg.OwnerEmail,
		logger:     log,
	}

	consumer.RegisterHandler(messaging.EventAlertGenerated, c.handleAlertGenerated)

	return c, nil
}

// Start starts consuming messages
func (c *AlertEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *AlertEventConsumer) handleAlertGenerated(ctx context.Context, event *messaging.Event) error {
	var data messaging.AlertGeneratedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("alert_type", data.AlertType).
		Str("severity", data.Severity).
		Str("medicine", data.MedicineName).
		Msg("received alert generated event")

	// Only critical alerts page the owner; warnings and info stay on the
	// dashboard.
	if data.Severity != "critical" || c.ownerEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("Stock alert: %s", data.MedicineName)
	body := data.Message
	if err := c.email.Send(ctx, c.ownerEmail, subject, body); err != nil {
		c.logger.Error().Err(err).Str("alert_id", data.AlertID).Msg("alert email failed")
	}
	return nil
}
