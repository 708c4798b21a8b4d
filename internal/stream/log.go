package stream

import (
	"context"
	"errors"
	"time"

	"github.com/Benaah/amaniquery-sub002/internal/domain"
)

// Field names carried by every stream entry.
const (
	FieldObjectKey = "object_key"
	FieldSource    = "source"
	FieldTimestamp = "timestamp"
)

// ErrMissingObjectKey marks an entry whose metadata can never be processed.
var ErrMissingObjectKey = errors.New("stream entry missing object_key")

// Entry is one raw notification as delivered by the log.
type Entry struct {
	ID     string
	Values map[string]interface{}
}

// Log abstracts the durable log's consumer-group primitives. Any log with
// these operations can drive the consumer; the production implementation is
// Redis Streams.
type Log interface {
	// CreateGroup idempotently creates the consumer group at the given
	// start position ("$" for the current tail). A group that already
	// exists is not an error and its cursor is left untouched.
	CreateGroup(ctx context.Context, start string) error

	// ReadGroup blocks up to the given duration for up to count new
	// entries assigned to this consumer.
	ReadGroup(ctx context.Context, consumer string, count int64, block time.Duration) ([]Entry, error)

	// Ack removes an entry from the group's pending set.
	Ack(ctx context.Context, entryID string) error

	// Pending returns the number of delivered-but-unacknowledged entries.
	Pending(ctx context.Context) (int64, error)

	// AutoClaim reassigns entries idle longer than minIdle to the given
	// consumer, starting at cursor, and returns the next cursor.
	AutoClaim(ctx context.Context, consumer string, minIdle time.Duration, cursor string, count int64) ([]Entry, string, error)
}

// parseEntry converts a raw log entry into a StreamEntry. Entries without an
// object key are permanently malformed.
func parseEntry(e Entry) (*domain.StreamEntry, error) {
	key, _ := e.Values[FieldObjectKey].(string)
	if key == "" {
		return nil, ErrMissingObjectKey
	}

	entry := &domain.StreamEntry{
		ID:        e.ID,
		ObjectKey: key,
	}
	entry.Source, _ = e.Values[FieldSource].(string)

	if ts, ok := e.Values[FieldTimestamp].(string); ok && ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			entry.EnqueuedAt = t
		}
	}

	return entry, nil
}
