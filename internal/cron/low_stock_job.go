package cron

import (
	"context"
	"fmt"

	"github.com/craftkart/storefront-backend/internal/inventory"
	"github.com/craftkart/storefront-backend/internal/notifications"
	"github.com/craftkart/storefront-backend/pkg/logger"
)

type lowStockSweeper interface {
	SweepLowStock(ctx context.Context) ([]inventory.LowStockHit, error)
}

// NewLowStockJob sweeps inventory alert subscriptions and mails the admin for
// each product at or below its threshold.
func NewLowStockJob(stock lowStockSweeper, dispatcher notifications.Dispatcher, logg *logger.Logger) (Job, error) {
	if stock == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &lowStockJob{stock: stock, dispatcher: dispatcher, logg: logg}, nil
}

type lowStockJob struct {
	stock      lowStockSweeper
	dispatcher notifications.Dispatcher
	logg       *logger.Logger
}

func (j *lowStockJob) Name() string { return "low-stock-alerts" }

func (j *lowStockJob) Run(ctx context.Context) error {
	hits, err := j.stock.SweepLowStock(ctx)
	if err != nil {
		return err
	}
	for _, hit := range hits {
		j.dispatcher.LowStockAdminAlert(ctx, hit.Product, hit.Variant, hit.Stock)
	}
	if len(hits) > 0 {
		j.logg.Info(j.logg.WithField(ctx, "alerts", len(hits)), "low stock alerts dispatched")
	}
	return nil
}
