package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	authhandler "github.com/medistock/medistock-backend/internal/auth/handler"
	authjwt "github.com/medistock/medistock-backend/internal/auth/jwt"
	authrepo "github.com/medistock/medistock-backend/internal/auth/repository"
	authservice "github.com/medistock/medistock-backend/internal/auth/service"
	billingevents "github.com/medistock/medistock-backend/internal/billing/events"
	billinghandler "github.com/medistock/medistock-backend/internal/billing/handler"
	billingrepo "github.com/medistock/medistock-backend/internal/billing/repository"
	billingservice "github.com/medistock/medistock-backend/internal/billing/service"
	"github.com/medistock/medistock-backend/internal/inventory/events"
	"github.com/medistock/medistock-backend/internal/inventory/handler"
	"github.com/medistock/medistock-backend/internal/inventory/repository"
	"github.com/medistock/medistock-backend/internal/inventory/service"
	"github.com/medistock/medistock-backend/pkg/config"
	"github.com/medistock/medistock-backend/pkg/database"
	"github.com/medistock/medistock-backend/pkg/httputil"
	"github.com/medistock/medistock-backend/pkg/logger"
	"github.com/medistock/medistock-backend/pkg/messaging"
)

func main() {
	cfg, err := config.LoadWithValidation("pharmacy-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("pharmacy-service", cfg.Server.Environment)
	log.Info().Msg("starting Pharmacy Service")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	inventoryPublisher, err := events.NewInventoryEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create inventory event publisher")
	}
	billingPublisher, err := billingevents.NewBillingEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create billing event publisher")
	}

	// Repositories
	medicineRepo := repository.NewMedicineRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	uploadRepo := repository.NewUploadLogRepository(db)
	customerRepo := billingrepo.NewCustomerRepository(db)
	billRepo := billingrepo.NewBillRepository(db)
	userRepo := authrepo.NewUserRepository(db)

	// Services
	inventoryService := service.NewInventoryService(db, medicineRepo, historyRepo, inventoryPublisher, &cfg.Pharmacy, log)
	alertService := service.NewAlertService(medicineRepo, alertRepo, inventoryPublisher, &cfg.Pharmacy, log)
	importService := service.NewImportService(db, inventoryService, medicineRepo, historyRepo, uploadRepo, &cfg.Pharmacy, log)
	reportService := service.NewReportService(medicineRepo, historyRepo, alertRepo, &cfg.Pharmacy, log)
	billingService := billingservice.NewBillingService(db, billRepo, customerRepo, medicineRepo, inventoryService, billingPublisher, log)

	tokenManager := authjwt.NewManager(&cfg.JWT)
	authService := authservice.NewAuthService(userRepo, tokenManager, log)

	// Handlers
	medicineHandler := handler.NewMedicineHandler(inventoryService, log)
	alertHandler := handler.NewAlertHandler(alertService, log)
	importHandler := handler.NewImportHandler(importService, log)
	reportHandler := handler.NewReportHandler(reportService, log)
	billHandler := billinghandler.NewBillHandler(billingService, log)
	customerHandler := billinghandler.NewCustomerHandler(customerRepo, billingService, log)
	authHandler := authhandler.NewAuthHandler(authService, log)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "pharmacy-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.With(authjwt.Authenticate(tokenManager)).Get("/me", authHandler.Me)
		})

		// Everything below requires a staff token
		r.Group(func(r chi.Router) {
			r.Use(authjwt.Authenticate(tokenManager))

			r.Route("/medicines", func(r chi.Router) {
				r.Get("/", medicineHandler.List)
				r.Post("/", medicineHandler.Create)
				r.Get("/search", medicineHandler.Search)
				r.Get("/low-stock", medicineHandler.LowStock)
				r.Get("/near-expiry", medicineHandler.NearExpiry)
				r.Get("/expired", medicineHandler.Expired)
				r.Get("/{id}", medicineHandler.Get)
				r.Put("/{id}", medicineHandler.Update)
				r.Delete("/{id}", medicineHandler.Delete)
				r.Post("/{id}/adjust", medicineHandler.Adjust)
				r.Get("/{id}/history", medicineHandler.History)
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/history", medicineHandler.RecentHistory)
				r.Post("/import", importHandler.Import)
				r.Get("/uploads", importHandler.UploadLogs)
			})

			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", alertHandler.List)
				r.Get("/critical", alertHandler.Critical)
				r.Post("/generate", alertHandler.Generate)
				r.Patch("/{id}/resolve", alertHandler.Resolve)
			})

			r.Route("/bills", func(r chi.Router) {
				r.Get("/", billHandler.List)
				r.Post("/", billHandler.Create)
				r.Get("/summary", billHandler.SalesSummary)
				r.Get("/report", billHandler.SalesReport)
				r.Get("/{id}", billHandler.Get)
				r.Post("/{id}/confirm-payment", billHandler.ConfirmPayment)
			})

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", customerHandler.List)
				r.Post("/", customerHandler.Create)
				r.Get("/{id}", customerHandler.Get)
				r.Put("/{id}", customerHandler.Update)
				r.Get("/{id}/bills", customerHandler.Bills)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/inventory", reportHandler.Inventory)
				r.Get("/movement", reportHandler.Movement)
				r.Get("/forecast/{medicineId}", reportHandler.Forecast)
				r.Get("/recommendations", reportHandler.Recommendations)
				r.Get("/dashboard", reportHandler.Dashboard)
			})
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
