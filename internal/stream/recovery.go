package stream

import (
	"context"
	"time"

	"github.com/Benaah/amaniquery-sub002/internal/logger"
	"github.com/Benaah/amaniquery-sub002/internal/metrics"
)

// Recovery periodically reclaims entries that were delivered to a consumer
// but never acknowledged within the idle threshold, and feeds them through
// the same per-entry processing path as the main loop. This is how a crashed
// consumer's in-flight work is eventually completed.
type Recovery struct {
	log      Log
	consumer *Consumer
	reporter *metrics.Reporter
	logger   *logger.Logger
	minIdle  time.Duration
	interval time.Duration
	batch    int64
}

// RecoveryConfig holds configuration for the recovery manager
type RecoveryConfig struct {
	MinIdle  time.Duration
	Interval time.Duration
	Batch    int
}

// NewRecovery creates a new recovery manager
func NewRecovery(log Log, consumer *Consumer, reporter *metrics.Reporter, lg *logger.Logger, cfg *RecoveryConfig) *Recovery {
	minIdle := cfg.MinIdle
	if minIdle <= 0 {
		minIdle = 5 * time.Minute
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	batch := cfg.Batch
	if batch <= 0 {
		batch = 10
	}
	return &Recovery{
		log:      log,
		consumer: consumer,
		reporter: reporter,
		logger:   lg,
		minIdle:  minIdle,
		interval: interval,
		batch:    int64(batch),
	}
}

// Run reclaims once immediately, then on every tick until ctx is cancelled.
func (r *Recovery) Run(ctx context.Context) {
	r.Reclaim(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Recovery manager stopped")
			return
		case <-ticker.C:
			r.Reclaim(ctx)
		}
	}
}

// Reclaim scans the group's pending entries and reassigns those idle longer
// than the threshold to this consumer, processing them through the normal
// dispatch path. It never claims below the idle threshold, to avoid
// competing with a consumer that is merely slow.
func (r *Recovery) Reclaim(ctx context.Context) int {
	claimed := 0
	cursor := "0-0"

	for {
		if ctx.Err() != nil {
			return claimed
		}

		entries, next, err := r.log.AutoClaim(ctx, r.consumer.Name(), r.minIdle, cursor, r.batch)
		if err != nil {
			if ctx.Err() == nil {
				r.logger.WithError(err).Error("Failed to reclaim pending entries")
			}
			return claimed
		}

		if len(entries) > 0 {
			r.reporter.RecordReclaimed(len(entries))
			r.logger.WithFields(logger.Fields{
				logger.FieldCount:    len(entries),
				logger.FieldConsumer: r.consumer.Name(),
			}).Info("Reclaimed idle entries")
			r.consumer.Dispatch(ctx, entries)
			claimed += len(entries)
		}

		// "0-0" signals the scan wrapped around; the pending set is covered
		if next == "" || next == "0-0" {
			return claimed
		}
		cursor = next
	}
}
