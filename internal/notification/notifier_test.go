package notification_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medistock/medistock-backend/internal/notification"
	"github.com/medistock/medistock-backend/pkg/messaging"
)

func TestRenderReceipt(t *testing.T) {
	subject, body := notification.RenderReceipt(&messaging.BillCreatedEvent{
		BillNumber:    "BILL-1700000000000-000ABC123",
		CustomerName:  "Asha Patel",
		GrandTotal:    "51.52",
		PaymentMethod: "upi",
	})

	assert.Equal(t, "Receipt BILL-1700000000000-000ABC123", subject)
	assert.Contains(t, body, "Dear Asha Patel")
	assert.Contains(t, body, "total 51.52")
	assert.Contains(t, body, "paid by upi")
}
