package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/medistock/medistock-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	// quantity >= 0 backstop on medicines
	case strings.Contains(constraint, "quantity_non_negative"):
		return errors.BadRequest("stock quantity cannot go negative")

	case strings.Contains(constraint, "stock_status_valid"):
		return errors.Validation(map[string]string{
			"stock_status": "must be one of: low, medium, high",
		})

	case strings.Contains(constraint, "payment_method_valid"):
		return errors.Validation(map[string]string{
			"payment_method": "must be one of: cash, card, upi, wallet_transfer",
		})

	case strings.Contains(constraint, "payment_status_valid"):
		return errors.Validation(map[string]string{
			"payment_status": "must be one of: completed, pending, failed",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "customers_phone"):
		return "a customer with this phone number already exists"
	case strings.Contains(constraint, "bill_number"):
		return "a bill with this bill number already exists"
	case strings.Contains(constraint, "username"):
		return "a user with this username already exists"
	case strings.Contains(constraint, "email"):
		return "a user with this email already exists"
	default:
		return "a record with these values already exists"
	}
}
