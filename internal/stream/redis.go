package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}

	return client, nil
}

// RedisLog implements Log over a Redis Stream and consumer group.
type RedisLog struct {
	client *redis.Client
	stream string
	group  string
}

// NewRedisLog creates a RedisLog bound to one stream and group.
func NewRedisLog(client *redis.Client, stream, group string) *RedisLog {
	return &RedisLog{
		client: client,
		stream: stream,
		group:  group,
	}
}

// CreateGroup idempotently creates the consumer group. BUSYGROUP means the
// group already exists; its cursor is left untouched.
func (l *RedisLog) CreateGroup(ctx context.Context, start string) error {
	if start == "" {
		start = "$"
	}
	err := l.client.XGroupCreateMkStream(ctx, l.stream, l.group, start).Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("failed to create consumer group %s: %w", l.group, err)
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

// ReadGroup blocks up to the given duration for new entries assigned to
// this consumer.
func (l *RedisLog) ReadGroup(ctx context.Context, consumer string, count int64, block time.Duration) ([]Entry, error) {
	streams, err := l.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    l.group,
		Consumer: consumer,
		Streams:  []string{l.stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // blocking read timed out with no entries
		}
		return nil, fmt.Errorf("failed to read from stream %s: %w", l.stream, err)
	}

	var entries []Entry
	for _, s := range streams {
		for _, msg := range s.Messages {
			entries = append(entries, Entry{ID: msg.ID, Values: msg.Values})
		}
	}
	return entries, nil
}

// Ack removes an entry from the group's pending set.
func (l *RedisLog) Ack(ctx context.Context, entryID string) error {
	if err := l.client.XAck(ctx, l.stream, l.group, entryID).Err(); err != nil {
		return fmt.Errorf("failed to ack entry %s: %w", entryID, err)
	}
	return nil
}

// Pending returns the count of delivered-but-unacknowledged entries.
func (l *RedisLog) Pending(ctx context.Context) (int64, error) {
	pending, err := l.client.XPending(ctx, l.stream, l.group).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read pending summary: %w", err)
	}
	return pending.Count, nil
}

// AutoClaim reassigns entries idle longer than minIdle to the given consumer.
func (l *RedisLog) AutoClaim(ctx context.Context, consumer string, minIdle time.Duration, cursor string, count int64) ([]Entry, string, error) {
	if cursor == "" {
		cursor = "0-0"
	}
	msgs, next, err := l.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   l.stream,
		Group:    l.group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    cursor,
		Count:    count,
	}).Result()
	if err != nil {
		return nil, "", fmt.Errorf("failed to autoclaim entries: %w", err)
	}

	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		entries = append(entries, Entry{ID: msg.ID, Values: msg.Values})
	}
	return entries, next, nil
}

// Ping verifies the Redis connection is alive.
func (l *RedisLog) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
