// Package notification delivers customer-facing messages for billing and
// inventory events. Delivery is mocked: senders log the rendered message
// instead of calling a provider, but the consumer wiring and payloads are
// the real integration surface.
package notification

import (
	"context"
	"fmt"

	"github.com/medistock/medistock-backend/pkg/logger"
	"github.com/medistock/medistock-backend/pkg/messaging"
)

// Sender delivers one rendered message to one recipient
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// MockEmailSender logs the email instead of dispatching it
type MockEmailSender struct {
	logger *logger.Logger
}

// NewMockEmailSender creates a mock email sender
func NewMockEmailSender(log *logger.Logger) *MockEmailSender {
	return &MockEmailSender{logger: log.WithComponent("email-sender")}
}

// Send logs the email payload
func (s *MockEmailSender) Send(ctx context.Context, recipient, subject, body string) error {
	s.logger.Info().
		Str("recipient", recipient).
		Str("subject", subject).
		Str("body", body).
		Msg("email dispatched (mock)")
	return nil
}

// MockWhatsAppSender logs the message instead of dispatching it
type MockWhatsAppSender struct {
	logger *logger.Logger
}

// NewMockWhatsAppSender creates a mock WhatsApp sender
func NewMockWhatsAppSender(log *logger.Logger) *MockWhatsAppSender {
	return &MockWhatsAppSender{logger: log.WithComponent("whatsapp-sender")}
}

// Send logs the message payload
func (s *MockWhatsAppSender) Send(ctx context.Context, recipient, subject, body string) error {
	s.logger.Info().
		Str("recipient", recipient).
		Str("message", fmt.Sprintf("%s: %s", subject, body)).
		Msg("whatsapp message dispatched (mock)")
	return nil
}

// RenderReceipt formats the customer receipt for a bill created event
func RenderReceipt(e *messaging.BillCreatedEvent) (subject, body string) {
	subject = fmt.Sprintf("Receipt %s", e.BillNumber)
	body = fmt.Sprintf("Dear %s, thank you for your purchase. Bill %s, total %s, paid by %s.",
		e.CustomerName, e.BillNumber, e.GrandTotal, e.PaymentMethod)
	return subject, body
}
