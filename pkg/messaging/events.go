package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Inventory events
	EventStockAdjusted  = "inventory.stock.adjusted"
	EventAlertGenerated = "inventory.alert.generated"
	EventAlertResolved  = "inventory.alert.resolved"

	// Billing events
	EventBillCreated      = "billing.bill.created"
	EventPaymentConfirmed = "billing.payment.confirmed"
)

// Exchange names
const (
	ExchangeInventoryEvents = "inventory.events"
	ExchangeBillingEvents   = "billing.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Inventory events

// StockAdjustedEvent is published after a quantity mutation commits
type StockAdjustedEvent struct {
	MedicineID   string `json:"medicine_id"`
	MedicineName string `json:"medicine_name"`
	Action       string `json:"action"`
	Delta        int    `json:"delta"`
	NewQuantity  int    `json:"new_quantity"`
	StockStatus  string `json:"stock_status"`
	PerformedBy  string `json:"performed_by"`
}

// AlertGeneratedEvent is published when the sweep materializes a new alert
type AlertGeneratedEvent struct {
	AlertID      string `json:"alert_id"`
	AlertType    string `json:"alert_type"`
	Severity     string `json:"severity"`
	MedicineID   string `json:"medicine_id"`
	MedicineName string `json:"medicine_name"`
	Message      string `json:"message"`
}

// Billing events

// BillCreatedEvent is published after the billing transaction commits.
// The notification service consumes it to dispatch the customer receipt.
type BillCreatedEvent struct {
	BillID        string    `json:"bill_id"`
	BillNumber    string    `json:"bill_number"`
	CustomerID    string    `json:"customer_id,omitempty"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	GrandTotal    string    `json:"grand_total"`
	PaymentMethod string    `json:"payment_method"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaymentConfirmedEvent is published when a bill's payment is confirmed
type PaymentConfirmedEvent struct {
	BillID        string `json:"bill_id"`
	BillNumber    string `json:"bill_number"`
	TransactionID string `json:"transaction_id"`
}
