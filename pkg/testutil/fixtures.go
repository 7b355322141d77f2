package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// MedicineFixture represents test medicine batch data
type MedicineFixture struct {
	ID            string
	Name          string
	Category      string
	BatchNumber   string
	ExpiryDate    time.Time
	Quantity      int
	ReorderLevel  int
	PurchasePrice decimal.Decimal
	SellingPrice  decimal.Decimal
	RackNumber    string
	StockStatus   string
	Supplier      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewMedicineFixture creates a medicine batch with sensible defaults.
// Override fields after creation as needed per test.
func NewMedicineFixture() MedicineFixture {
	now := time.Now().UTC()
	return MedicineFixture{
		ID:            uuid.NewString(),
		Name:          "Paracetamol 500mg",
		Category:      "Analgesic",
		BatchNumber:   "B-1001",
		ExpiryDate:    now.AddDate(1, 0, 0),
		Quantity:      200,
		ReorderLevel:  50,
		PurchasePrice: decimal.NewFromFloat(2.50),
		SellingPrice:  decimal.NewFromFloat(4.00),
		RackNumber:    "A1",
		StockStatus:   "high",
		Supplier:      "Default Supplier",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CustomerFixture represents test customer data
type CustomerFixture struct {
	ID           string
	Name         string
	Phone        string
	Email        string
	CustomerType string
	CreatedAt    time.Time
}

// NewCustomerFixture creates a customer with sensible defaults
func NewCustomerFixture() CustomerFixture {
	return CustomerFixture{
		ID:           uuid.NewString(),
		Name:         "Ravi Kumar",
		Phone:        "9876543210",
		Email:        "ravi@example.com",
		CustomerType: "regular",
		CreatedAt:    time.Now().UTC(),
	}
}

// UserFixture represents test staff user data
type UserFixture struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

// NewUserFixture creates a staff user with the given plaintext password hashed
func NewUserFixture(password string) UserFixture {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return UserFixture{
		ID:           uuid.NewString(),
		Username:     "pharmacist1",
		Email:        "pharmacist1@example.com",
		PasswordHash: string(hash),
		Role:         "staff",
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
}
