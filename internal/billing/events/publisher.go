// Package events publishes billing domain events after their database
// transactions commit.
package events

import (
	"context"

	"github.com/medistock/medistock-backend/internal/billing/repository"
	"github.com/medistock/medistock-backend/pkg/logger"
	"github.com/medistock/medistock-backend/pkg/messaging"
)

// BillingEventPublisher publishes billing-related events
type BillingEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewBillingEventPublisher creates a new billing event publisher
func NewBillingEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*BillingEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeBillingEvents, "pharmacy-service", log)
	if err != nil {
		return nil, err
	}

	return &BillingEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishBillCreated publishes a bill created event after the billing
// transaction commits. Failures are logged and swallowed; the bill stands
// whether or not the receipt notification goes out.
func (p *BillingEventPublisher) PublishBillCreated(ctx context.Context, bill *repository.Bill, customer *repository.Customer) {
	if p == nil {
		return
	}

	data := messaging.BillCreatedEvent{
		BillID:        bill.ID,
		BillNumber:    bill.BillNumber,
		CustomerName:  bill.CustomerName,
		GrandTotal:    bill.GrandTotal.StringFixed(2),
		PaymentMethod: bill.PaymentMethod,
		CreatedAt:     bill.CreatedAt,
	}
	if customer != nil {
		data.CustomerID = customer.ID
		data.CustomerPhone = customer.Phone
		if customer.Email != nil {
			data.CustomerEmail = *customer.Email
		}
	}

	if err := p.publisher.Publish(ctx, messaging.EventBillCreated, data); err != nil {
		p.logger.Error().Err(err).Str("bill_id", bill.ID).Msg("failed to publish bill created event")
	}
}

// PublishPaymentConfirmed publishes a payment confirmed event
func (p *BillingEventPublisher) PublishPaymentConfirmed(ctx context.Context, bill *repository.Bill, transactionID string) {
	if p == nil {
		return
	}

	data := messaging.PaymentConfirmedEvent{
		BillID:        bill.ID,
		BillNumber:    bill.BillNumber,
		TransactionID: transactionID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventPaymentConfirmed, data); err != nil {
		p.logger.Error().Err(err).Str("bill_id", bill.ID).Msg("failed to publish payment confirmed event")
	}
}
