package service

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medistock/medistock-backend/internal/inventory/repository"
	"github.com/medistock/medistock-backend/internal/inventory/stock"
	"github.com/medistock/medistock-backend/pkg/config"
	"github.com/medistock/medistock-backend/pkg/logger"
)

// Movement classification thresholds over cumulative sold quantity
const (
	fastMovingThreshold = 100
	slowMovingThreshold = 10
)

// forecastWindowDays is the trailing window for the demand forecast stub
const forecastWindowDays = 7

// ReportService produces read-only rollups over stock and history
type ReportService struct {
	medicines *repository.MedicineRepository
	history   *repository.HistoryRepository
	alerts    *repository.AlertRepository
	cfg       *config.PharmacyConfig
	logger    *logger.Logger
	now       func() time.Time
	jitter    func() float64
}

// NewReportService creates a new report service
func NewReportService(
	medicines *repository.MedicineRepository,
	history *repository.HistoryRepository,
	alerts *repository.AlertRepository,
	cfg *config.PharmacyConfig,
	log *logger.Logger,
) *ReportService {
	return &ReportService{
		medicines: medicines,
		history:   history,
		alerts:    alerts,
		cfg:       cfg,
		logger:    log.WithComponent("report-service"),
		now:       time.Now,
		jitter:    rand.Float64,
	}
}

// InventoryReport summarizes current stock value and risk buckets
type InventoryReport struct {
	TotalBatches    int             `json:"total_batches"`
	TotalUnits      int             `json:"total_units"`
	SellingValue    decimal.Decimal `json:"selling_value"`
	PurchaseValue   decimal.Decimal `json:"purchase_value"`
	PotentialProfit decimal.Decimal `json:"potential_profit"`
	LowStockCount   int             `json:"low_stock_count"`
	NearExpiryCount int             `json:"near_expiry_count"`
	ExpiredCount    int             `json:"expired_count"`
}

// GetInventoryReport folds current stock into valuations and risk counts
func (s *ReportService) GetInventoryReport(ctx context.Context) (*InventoryReport, error) {
	valuation, err := s.medicines.Valuation(ctx)
	if err != nil {
		return nil, err
	}
	lowStock, err := s.medicines.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}
	nearExpiry, err := s.medicines.ListNearExpiry(ctx, s.cfg.NearExpiryDays)
	if err != nil {
		return nil, err
	}
	expired, err := s.medicines.ListExpired(ctx)
	if err != nil {
		return nil, err
	}

	return &InventoryReport{
		TotalBatches:    valuation.TotalBatches,
		TotalUnits:      valuation.TotalUnits,
		SellingValue:    valuation.SellingValue,
		PurchaseValue:   valuation.PurchaseValue,
		PotentialProfit: valuation.SellingValue.Sub(valuation.PurchaseValue),
		LowStockCount:   len(lowStock),
		NearExpiryCount: len(nearExpiry),
		ExpiredCount:    len(expired),
	}, nil
}

// MedicineMovement classifies one medicine by cumulative sold quantity
type MedicineMovement struct {
	MedicineID   string `json:"medicine_id"`
	MedicineName string `json:"medicine_name"`
	TotalSold    int    `json:"total_sold"`
	Movement     string `json:"movement"`
}

// GetStockMovement classifies medicines as fast_moving (> 100 units sold),
// slow_moving (< 10), or normal, over all sale history.
func (s *ReportService) GetStockMovement(ctx context.Context) ([]MedicineMovement, error) {
	totals, err := s.history.SoldTotals(ctx, time.Time{})
	if err != nil {
		return nil, err
	}

	movements := make([]MedicineMovement, 0, len(totals))
	for _, t := range totals {
		movement := "normal"
		switch {
		case t.TotalSold > fastMovingThreshold:
			movement = "fast_moving"
		case t.TotalSold < slowMovingThreshold:
			movement = "slow_moving"
		}
		movements = append(movements, MedicineMovement{
			MedicineID:   t.MedicineID,
			MedicineName: t.MedicineName,
			TotalSold:    t.TotalSold,
			Movement:     movement,
		})
	}
	return movements, nil
}

// DemandForecast is a placeholder projection, not a real model: a trailing
// moving average with random jitter.
type DemandForecast struct {
	MedicineID      string  `json:"medicine_id"`
	MedicineName    string  `json:"medicine_name"`
	WindowDays      int     `json:"window_days"`
	AvgDailySales   float64 `json:"avg_daily_sales"`
	ForecastPerDay  int     `json:"forecast_per_day"`
	CurrentQuantity int     `json:"current_quantity"`
}

// GetDemandForecast averages the medicine's daily sales over the trailing
// week and jitters the result by up to ±20%.
func (s *ReportService) GetDemandForecast(ctx context.Context, medicineID string) (*DemandForecast, error) {
	m, err := s.medicines.GetByID(ctx, medicineID)
	if err != nil {
		return nil, err
	}

	daily, err := s.history.DailySoldQuantities(ctx, medicineID, forecastWindowDays)
	if err != nil {
		return nil, err
	}

	totalSold := 0
	for _, d := range daily {
		totalSold += d.UnitsSold
	}
	avg := float64(totalSold) / float64(forecastWindowDays)
	forecast := int(math.Ceil(avg * (0.8 + s.jitter()*0.4)))

	return &DemandForecast{
		MedicineID:      m.ID,
		MedicineName:    m.Name,
		WindowDays:      forecastWindowDays,
		AvgDailySales:   avg,
		ForecastPerDay:  forecast,
		CurrentQuantity: m.Quantity,
	}, nil
}

// ReorderRecommendation suggests a restock quantity for a low batch
type ReorderRecommendation struct {
	MedicineID          string `json:"medicine_id"`
	MedicineName        string `json:"medicine_name"`
	BatchNumber         string `json:"batch_number"`
	Quantity            int    `json:"quantity"`
	ReorderLevel        int    `json:"reorder_level"`
	RecommendedQuantity int    `json:"recommended_quantity"`
	Supplier            string `json:"supplier"`
}

// GetReorderRecommendations suggests restocking every batch at or below its
// reorder level, targeting twice the reorder level.
func (s *ReportService) GetReorderRecommendations(ctx context.Context) ([]ReorderRecommendation, error) {
	lowStock, err := s.medicines.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}

	recs := make([]ReorderRecommendation, 0, len(lowStock))
	for _, m := range lowStock {
		recs = append(recs, ReorderRecommendation{
			MedicineID:          m.ID,
			MedicineName:        m.Name,
			BatchNumber:         m.BatchNumber,
			Quantity:            m.Quantity,
			ReorderLevel:        m.ReorderLevel,
			RecommendedQuantity: m.ReorderLevel*2 - m.Quantity,
			Supplier:            m.Supplier,
		})
	}
	return recs, nil
}

// Dashboard aggregates the operational overview for the landing screen
type Dashboard struct {
	TotalBatches    int             `json:"total_batches"`
	TotalUnits      int             `json:"total_units"`
	StockValue      decimal.Decimal `json:"stock_value"`
	LowStockCount   int             `json:"low_stock_count"`
	NearExpiryCount int             `json:"near_expiry_count"`
	ExpiredCount    int             `json:"expired_count"`
	CriticalAlerts  int             `json:"critical_alerts"`
	ExpiringSoonest []ExpiringBatch `json:"expiring_soonest"`
}

// ExpiringBatch is one row of the dashboard's expiry watchlist
type ExpiringBatch struct {
	MedicineID   string `json:"medicine_id"`
	MedicineName string `json:"medicine_name"`
	BatchNumber  string `json:"batch_number"`
	DaysLeft     int    `json:"days_left"`
	Quantity     int    `json:"quantity"`
}

// GetDashboard assembles the overview counters and the expiry watchlist
func (s *ReportService) GetDashboard(ctx context.Context) (*Dashboard, error) {
	report, err := s.GetInventoryReport(ctx)
	if err != nil {
		return nil, err
	}

	critical, err := s.alerts.ListCritical(ctx)
	if err != nil {
		return nil, err
	}

	nearExpiry, err := s.medicines.ListNearExpiry(ctx, s.cfg.NearExpiryDays)
	if err != nil {
		return nil, err
	}

	now := s.now()
	watchlist := make([]ExpiringBatch, 0, len(nearExpiry))
	for _, m := range nearExpiry {
		watchlist = append(watchlist, ExpiringBatch{
			MedicineID:   m.ID,
			MedicineName: m.Name,
			BatchNumber:  m.BatchNumber,
			DaysLeft:     stock.DaysUntilExpiry(m.ExpiryDate, now),
			Quantity:     m.Quantity,
		})
	}

	return &Dashboard{
		TotalBatches:    report.TotalBatches,
		TotalUnits:      report.TotalUnits,
		StockValue:      report.SellingValue,
		LowStockCount:   report.LowStockCount,
		NearExpiryCount: report.NearExpiryCount,
		ExpiredCount:    report.ExpiredCount,
		CriticalAlerts:  len(critical),
		ExpiringSoonest: watchlist,
	}, nil
}
