package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Benaah/amaniquery-sub002/internal/domain"
	"github.com/Benaah/amaniquery-sub002/internal/logger"
	"github.com/Benaah/amaniquery-sub002/internal/metrics"
	"github.com/Benaah/amaniquery-sub002/internal/service"
)

// Processor runs the analysis pipeline for one entry.
type Processor interface {
	ProcessEntry(ctx context.Context, entry *domain.StreamEntry) error
}

// Consumer reads new stream entries as a member of the consumer group,
// hands each to the pipeline, and acknowledges on success.
type Consumer struct {
	log       Log
	processor Processor
	reporter  *metrics.Reporter
	logger    *logger.Logger
	name      string
	batchSize int64
	blockWait time.Duration
}

// ConsumerConfig holds configuration for the consumer
type ConsumerConfig struct {
	Name      string
	BatchSize int
	BlockWait time.Duration
}

// NewConsumer creates a new consumer
func NewConsumer(log Log, processor Processor, reporter *metrics.Reporter, lg *logger.Logger, cfg *ConsumerConfig) *Consumer {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	blockWait := cfg.BlockWait
	if blockWait <= 0 {
		blockWait = 5 * time.Second
	}
	return &Consumer{
		log:       log,
		processor: processor,
		reporter:  reporter,
		logger:    lg,
		name:      cfg.Name,
		batchSize: int64(batchSize),
		blockWait: blockWait,
	}
}

// Name returns this consumer's identity within the group.
func (c *Consumer) Name() string {
	return c.name
}

// Bootstrap idempotently creates the consumer group at the stream tail.
func (c *Consumer) Bootstrap(ctx context.Context) error {
	return c.log.CreateGroup(ctx, "$")
}

// Run is the main consumption loop. It returns when ctx is cancelled;
// in-flight entries finish (and are acknowledged) before it returns.
func (c *Consumer) Run(ctx context.Context) {
	c.logger.WithFields(logger.Fields{
		logger.FieldConsumer: c.name,
		"batch_size":         c.batchSize,
	}).Info("Consumer started")

	for {
		select {
		case <-ctx.Done():
			c.logger.WithField(logger.FieldConsumer, c.name).Info("Consumer stopped")
			return
		default:
		}

		entries, err := c.log.ReadGroup(ctx, c.name, c.batchSize, c.blockWait)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.WithError(err).Error("Failed to read from stream")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		if len(entries) == 0 {
			continue
		}

		c.Dispatch(ctx, entries)
	}
}

// Dispatch processes a batch of entries concurrently, one pipeline run per
// entry, and waits for all of them. Concurrency is bounded by the batch size.
func (c *Consumer) Dispatch(ctx context.Context, entries []Entry) {
	var wg sync.WaitGroup
	for _, entry := range entries {
		wg.Add(1)
		go func(e Entry) {
			defer wg.Done()
			c.handleEntry(ctx, e)
		}(entry)
	}
	wg.Wait()
}

// handleEntry runs one entry through the pipeline and decides its fate:
// success and unprocessable input are acknowledged; store-level faults leave
// the entry pending for redelivery or recovery.
func (c *Consumer) handleEntry(ctx context.Context, e Entry) {
	ctx = logger.SetEntryID(ctx, e.ID)

	entry, err := parseEntry(e)
	if err != nil {
		// Malformed metadata can never succeed and must not loop forever
		logger.CtxWarn(ctx, "Acknowledging malformed entry: %v", err)
		c.ack(ctx, e.ID)
		c.reporter.RecordRejected()
		return
	}

	err = c.processor.ProcessEntry(ctx, entry)
	switch {
	case err == nil:
		c.ack(ctx, e.ID)
		c.reporter.RecordProcessed()
	case errors.Is(err, service.ErrUnprocessable):
		logger.CtxWarn(ctx, "Acknowledging unprocessable entry: %v", err)
		c.ack(ctx, e.ID)
		c.reporter.RecordRejected()
	default:
		logger.CtxError(ctx, "Entry failed, leaving pending: %v", err)
		c.reporter.RecordFailed()
	}
}

// ack acknowledges an entry. The ack is detached from cancellation: a run
// whose outcome has been persisted must also be acknowledged, even when
// shutdown races it.
func (c *Consumer) ack(ctx context.Context, entryID string) {
	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.log.Ack(ackCtx, entryID); err != nil {
		logger.CtxError(ctx, "Failed to ack entry %s: %v", entryID, err)
	}
}
