package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medistock/medistock-backend/internal/billing/repository"
	"github.com/medistock/medistock-backend/internal/billing/service"
	"github.com/medistock/medistock-backend/pkg/httputil"
	"github.com/medistock/medistock-backend/pkg/logger"
)

// CustomerHandler handles customer endpoints
type CustomerHandler struct {
	customers *repository.CustomerRepository
	billing   *service.BillingService
	logger    *logger.Logger
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customers *repository.CustomerRepository, billing *service.BillingService, log *logger.Logger) *CustomerHandler {
	return &CustomerHandler{
		customers: customers,
		billing:   billing,
		logger:    log,
	}
}

// CustomerRequest is the payload for creating or updating a customer
type CustomerRequest struct {
	Name         string  `json:"name" validate:"required"`
	Phone        string  `json:"phone" validate:"required,min=7,max=15"`
	Email        *string `json:"email" validate:"omitempty,email"`
	CustomerType string  `json:"customer_type" validate:"omitempty,oneof=regular walking"`
	Address      *string `json:"address"`
	City         *string `json:"city"`
}

// Create handles POST /customers
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	customer := &repository.Customer{
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		CustomerType: req.CustomerType,
		Address:      req.Address,
		City:         req.City,
	}
	if err := h.customers.Create(r.Context(), customer); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, customer)
}

// List handles GET /customers
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customers.List(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, customers)
}

// Get handles GET /customers/{id}
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	customer, err := h.customers.GetByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, customer)
}

// Update handles PUT /customers/{id}
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req CustomerRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	customer, err := h.customers.GetByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	customer.Name = req.Name
	customer.Phone = req.Phone
	customer.Email = req.Email
	if req.CustomerType != "" {
		customer.CustomerType = req.CustomerType
	}
	customer.Address = req.Address
	customer.City = req.City

	if err := h.customers.Update(r.Context(), customer); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, customer)
}

// Bills handles GET /customers/{id}/bills
func (h *CustomerHandler) Bills(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	bills, err := h.billing.ListBillsByCustomer(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, bills)
}
