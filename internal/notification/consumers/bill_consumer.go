// Package consumers wires the notification service to the billing and
// inventory event streams.
package consumers

import (
	"context"

	"github.com/medistock/medistock-backend/internal/notification"
	"github.com/medistock/medistock-backend/pkg/logger"
	"github.com/medistock/medistock-backend/pkg/messaging"
)

// BillEventConsumer consumes billing events and sends customer receipts
type BillEventConsumer struct {
	consumer *messaging.Consumer
	email    notification.Sender
	whatsapp notification.Sender
	logger   *logger.Logger
}

// NewBillEventConsumer creates a new bill event consumer
func NewBillEventConsumer(
	rmq *messaging.RabbitMQ,
	email notification.Sender,
	whatsapp notification.Sender,
	log *logger.Logger,
) (*BillEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "notification-service.billing-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeBillingEvents, "billing.#"); err != nil {
		return nil, err
	}

	c := &BillEventConsumer{
		consumer: consumer,
		email:    email,
		whatsapp: whatsapp,
		logger:   log,
	}

	consumer.RegisterHandler(messaging.EventBillCreated, c.handleBillCreated)
	consumer.RegisterHandler(messaging.EventPaymentConfirmed, c.handlePaymentConfirmed)

	return c, nil
}

// Start starts consuming messages
func (c *BillEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *BillEventConsumer) handleBillCreated(ctx context.Context, event *messaging.Event) error {
	var data messaging.BillCreatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("bill_number", data.BillNumber).
		Str("customer", data.CustomerName).
		Msg("received bill created event")

	subject, body := notification.RenderReceipt(&data)

	// Delivery failures are logged, never retried against the bill itself;
	// the sale already committed.
	if data.CustomerEmail != "" {
		if err := c.email.Send(ctx, data.CustomerEmail, subject, body); err != nil {
			c.logger.Error().Err(err).Str("bill_number", data.BillNumber).Msg("receipt email failed")
		}
	}
	if data.CustomerPhone != "" {
		if err := c.whatsapp.Send(ctx, data.CustomerPhone, subject, body); err != nil {
			c.logger.Error().Err(err).Str("bill_number", data.BillNumber).Msg("receipt whatsapp failed")
		}
	}
	return nil
}

func (c *BillEventConsumer) handlePaymentConfirmed(ctx context.Context, event *messaging.Event) error {
	var data messaging.PaymentConfirmedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("bill_number", data.BillNumber).
		Str("transaction_id", data.TransactionID).
		Msg("payment confirmed")
	return nil
}
