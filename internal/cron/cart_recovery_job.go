package cron

import (
	"context"
	"fmt"

	"github.com/craftkart/storefront-backend/internal/abandonedcart"
	"github.com/craftkart/storefront-backend/pkg/logger"
)

type cartBatchProcessor interface {
	ProcessAbandonedCarts(ctx context.Context) (*abandonedcart.ProcessReport, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// NewCartRecoveryJob emails recovery links for carts idle past the threshold.
func NewCartRecoveryJob(carts cartBatchProcessor, logg *logger.Logger) (Job, error) {
	if carts == nil {
		return nil, fmt.Errorf("abandoned cart service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &cartRecoveryJob{carts: carts, logg: logg}, nil
}

type cartRecoveryJob struct {
	carts cartBatchProcessor
	logg  *logger.Logger
}

func (j *cartRecoveryJob) Name() string { return "abandoned-cart-recovery" }

func (j *cartRecoveryJob) Run(ctx context.Context) error {
	report, err := j.carts.ProcessAbandonedCarts(ctx)
	if report != nil {
		fields := map[string]any{
			"scanned": report.Scanned,
			"emailed": report.Emailed,
			"failed":  report.Failed,
		}
		j.logg.Info(j.logg.WithFields(ctx, fields), "cart recovery batch done")
	}
	// Per-cart failures are already aggregated; surface them so the run is
	// counted as failed without stopping subsequent jobs.
	return err
}

// NewCartExpiryJob deletes unrecovered carts past their recovery window.
func NewCartExpiryJob(carts cartBatchProcessor, logg *logger.Logger) (Job, error) {
	if carts == nil {
		return nil, fmt.Errorf("abandoned cart service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &cartExpiryJob{carts: carts, logg: logg}, nil
}

type cartExpiryJob struct {
	carts cartBatchProcessor
	logg  *logger.Logger
}

func (j *cartExpiryJob) Name() string { return "abandoned-cart-expiry" }

func (j *cartExpiryJob) Run(ctx context.Context) error {
	deleted, err := j.carts.SweepExpired(ctx)
	if err != nil {
		return err
	}
	j.logg.Info(j.logg.WithField(ctx, "deleted", deleted), "expired carts swept")
	return nil
}
