package worker

import (
	"context"
	"fmt"
	"time"

	"event-ticketing/internal/config"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/metrics"
	"event-ticketing/internal/models"
)

// HoldExpirer is the slice of the order service the sweep drives.
type HoldExpirer interface {
	StalePending(ctx context.Context, holdTimeout time.Duration, limit int) ([]models.Order, error)
	ExpirePending(ctx context.Context, orderID string) (bool, error)
}

// ExpiryWorker cancels pending orders whose hold outlived HoldTimeout, so
// abandoned claims return their units to the class.
type ExpiryWorker struct {
	Orders HoldExpirer
	Config config.ExpiryConfig
	Logger *logger.Logger
}

func NewExpiryWorker(orders HoldExpirer, cfg config.ExpiryConfig, log *logger.Logger) *ExpiryWorker {
	return &ExpiryWorker{Orders: orders, Config: cfg, Logger: log}
}

// Run sweeps every ScanInterval until ctx is cancelled.
func (w *ExpiryWorker) Run(ctx context.Context) {
	w.Logger.LogProcess("EXPIRY", fmt.Sprintf("Hold expiry started: timeout=%s interval=%s", w.Config.HoldTimeout, w.Config.ScanInterval))
	ticker := time.NewTicker(w.Config.ScanInterval)
	defer ticker.Stop()

	for {
		if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
			w.Logger.Error("EXPIRY", fmt.Sprintf("Sweep failed: %v", err))
		}
		select {
		case <-ctx.Done():
			w.Logger.LogProcess("EXPIRY", "Hold expiry stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep runs one pass, working through full batches until the backlog is
// gone. It returns how many orders it cancelled.
func (w *ExpiryWorker) Sweep(ctx context.Context) (int, error) {
	batch := w.Config.BatchSize
	if batch < 1 {
		batch = 100
	}

	expired := 0
	for {
		stale, err := w.Orders.StalePending(ctx, w.Config.HoldTimeout, batch)
		if err != nil {
			return expired, err
		}

		progressed := 0
		for _, o := range stale {
			if ctx.Err() != nil {
				return expired, ctx.Err()
			}
			ok, err := w.Orders.ExpirePending(ctx, o.OrderID)
			if err != nil {
				w.Logger.Warn("EXPIRY", fmt.Sprintf("Could not expire order %s: %v", o.OrderID, err))
				continue
			}
			progressed++
			if ok {
				expired++
			}
		}
		if len(stale) < batch || progressed == 0 {
			break
		}
	}

	metrics.HoldsExpired(expired)
	if expired > 0 {
		w.Logger.Info("EXPIRY", fmt.Sprintf("Expired %d pending holds", expired))
	}
	return expired, nil
}
