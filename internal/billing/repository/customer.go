// Package repository handles persistence for customers and bills.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/medistock/medistock-backend/pkg/database"
	"github.com/medistock/medistock-backend/pkg/errors"
)

// Customer types
const (
	CustomerRegular = "regular"
	CustomerWalking = "walking"
)

// Customer represents a pharmacy customer
type Customer struct {
	ID             string          `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	Phone          string          `db:"phone" json:"phone"`
	Email          *string         `db:"email" json:"email,omitempty"`
	CustomerType   string          `db:"customer_type" json:"customer_type"`
	Address        *string         `db:"address" json:"address,omitempty"`
	City           *string         `db:"city" json:"city,omitempty"`
	TotalPurchases int             `db:"total_purchases" json:"total_purchases"`
	TotalSpent     decimal.Decimal `db:"total_spent" json:"total_spent"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// CustomerRepository handles customer persistence
type CustomerRepository struct {
	db *database.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *database.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Create inserts a new customer. A repeated phone number maps to Conflict.
func (r *CustomerRepository) Create(ctx context.Context, c *Customer) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CustomerType == "" {
		c.CustomerType = CustomerWalking
	}

	query := `
		INSERT INTO customers (id, name, phone, email, customer_type, address, city)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING total_purchases, total_spent, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		c.ID, c.Name, c.Phone, c.Email, c.CustomerType, c.Address, c.City,
	).Scan(&c.TotalPurchases, &c.TotalSpent, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a customer by ID
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*Customer, error) {
	var c Customer
	query := `
		SELECT id, name, phone, email, customer_type, address, city,
		       total_purchases, total_spent, created_at, updated_at
		FROM customers
		WHERE id = $1
	`
	err := r.db.GetContext(ctx, &c, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("customer")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns all customers ordered by name
func (r *CustomerRepository) List(ctx context.Context) ([]Customer, error) {
	var customers []Customer
	query := `
		SELECT id, name, phone, email, customer_type, address, city,
		       total_purchases, total_spent, created_at, updated_at
		FROM customers
		ORDER BY name
	`
	if err := r.db.SelectContext(ctx, &customers, query); err != nil {
		return nil, err
	}
	return customers, nil
}

// Update edits a customer's contact details
func (r *CustomerRepository) Update(ctx context.Context, c *Customer) error {
	query := `
		UPDATE customers
		SET name = $2, phone = $3, email = $4, customer_type = $5, address = $6, city = $7,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		c.ID, c.Name, c.Phone, c.Email, c.CustomerType, c.Address, c.City,
	).Scan(&c.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("customer")
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// IncrementPurchaseStatsTx bumps the customer's purchase counters inside the
// billing transaction so the stats stay consistent with committed bills.
func (r *CustomerRepository) IncrementPurchaseStatsTx(ctx context.Context, tx *sqlx.Tx, customerID string, amount decimal.Decimal) error {
	query := `
		UPDATE customers
		SET total_purchases = total_purchases + 1,
		    total_spent = total_spent + $2,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := tx.ExecContext(ctx, query, customerID, amount)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("customer")
	}
	return nil
}
