package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Benaah/amaniquery-sub002/internal/agent"
	"github.com/Benaah/amaniquery-sub002/internal/domain"
	"github.com/Benaah/amaniquery-sub002/internal/logger"
	"github.com/Benaah/amaniquery-sub002/internal/metrics"
	"github.com/Benaah/amaniquery-sub002/internal/service"
)

// fakeLog is an in-memory Log with per-entry idle times for autoclaim tests.
type fakeLog struct {
	mu         sync.Mutex
	groupCalls int
	pending    map[string]Entry
	idle       map[string]time.Duration
	acked      []string
}

func newFakeLog() *fakeLog {
	return &fakeLog{
		pending: make(map[string]Entry),
		idle:    make(map[string]time.Duration),
	}
}

func (f *fakeLog) addPending(e Entry, idle time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[e.ID] = e
	f.idle[e.ID] = idle
}

func (f *fakeLog) CreateGroup(ctx context.Context, start string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupCalls++
	return nil
}

func (f *fakeLog) ReadGroup(ctx context.Context, consumer string, count int64, block time.Duration) ([]Entry, error) {
	return nil, nil
}

func (f *fakeLog) Ack(ctx context.Context, entryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, entryID)
	delete(f.pending, entryID)
	delete(f.idle, entryID)
	return nil
}

func (f *fakeLog) Pending(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.pending)), nil
}

// AutoClaim mimics XAUTOCLAIM: entries at or past the cursor whose idle time
// meets the threshold, up to count, with "0-0" signalling a full scan.
func (f *fakeLog) AutoClaim(ctx context.Context, consumer string, minIdle time.Duration, cursor string, count int64) ([]Entry, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(f.pending))
	for id := range f.pending {
		if id >= cursor && f.idle[id] >= minIdle {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var claimed []Entry
	for _, id := range ids {
		if int64(len(claimed)) == count {
			return claimed, id, nil
		}
		claimed = append(claimed, f.pending[id])
	}
	return claimed, "0-0", nil
}

func (f *fakeLog) ackedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.acked))
	copy(out, f.acked)
	return out
}

type fakeProcessor struct {
	mu        sync.Mutex
	errs      map[string]error
	processed []string
}

func (f *fakeProcessor) ProcessEntry(ctx context.Context, entry *domain.StreamEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, entry.ID)
	return f.errs[entry.ID]
}

func (f *fakeProcessor) processedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.processed))
	copy(out, f.processed)
	sort.Strings(out)
	return out
}

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "json", Output: io.Discard, ServiceName: "test"})
}

func newTestConsumer(fl *fakeLog, fp *fakeProcessor) (*Consumer, *metrics.Reporter) {
	lg := testLogger()
	logger.SetDefaultLogger(lg) // context logging falls back to the default
	reporter := metrics.NewReporter(agent.NewExecutor(1, 0))
	consumer := NewConsumer(fl, fp, reporter, lg, &ConsumerConfig{Name: "worker-1"})
	return consumer, reporter
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestDispatchOutcomes(t *testing.T) {
	fl := newFakeLog()
	fp := &fakeProcessor{errs: map[string]error{
		"3-0": fmt.Errorf("%w: empty text", service.ErrUnprocessable),
		"4-0": errors.New("database down"),
	}}
	consumer, reporter := newTestConsumer(fl, fp)

	entries := []Entry{
		{ID: "1-0", Values: map[string]interface{}{FieldObjectKey: "bronze/a.json"}},
		{ID: "2-0", Values: map[string]interface{}{FieldSource: "crawler"}}, // no object_key
		{ID: "3-0", Values: map[string]interface{}{FieldObjectKey: "bronze/c.json"}},
		{ID: "4-0", Values: map[string]interface{}{FieldObjectKey: "bronze/d.json"}},
	}
	for _, e := range entries {
		fl.addPending(e, 0)
	}

	consumer.Dispatch(context.Background(), entries)

	acked := fl.ackedIDs()
	for _, id := range []string{"1-0", "2-0", "3-0"} {
		if !contains(acked, id) {
			t.Errorf("expected entry %s to be acked", id)
		}
	}
	if contains(acked, "4-0") {
		t.Error("entry with a retryable failure must stay pending")
	}

	processed := fp.processedIDs()
	if contains(processed, "2-0") {
		t.Error("malformed entry must be acked without processing")
	}
	for _, id := range []string{"1-0", "3-0", "4-0"} {
		if !contains(processed, id) {
			t.Errorf("expected entry %s to reach the processor", id)
		}
	}

	summary := reporter.Snapshot()
	if summary.EntriesProcessed != 1 {
		t.Errorf("expected 1 processed entry, got %d", summary.EntriesProcessed)
	}
	if summary.EntriesRejected != 2 {
		t.Errorf("expected 2 rejected entries, got %d", summary.EntriesRejected)
	}
	if summary.EntriesFailed != 1 {
		t.Errorf("expected 1 failed entry, got %d", summary.EntriesFailed)
	}
}

func TestBootstrapIdempotent(t *testing.T) {
	fl := newFakeLog()
	consumer, _ := newTestConsumer(fl, &fakeProcessor{})

	for i := 0; i < 2; i++ {
		if err := consumer.Bootstrap(context.Background()); err != nil {
			t.Fatalf("bootstrap %d failed: %v", i, err)
		}
	}
	if fl.groupCalls != 2 {
		t.Errorf("expected 2 group creations, got %d", fl.groupCalls)
	}
}

func TestIsBusyGroup(t *testing.T) {
	if !isBusyGroup(errors.New("BUSYGROUP Consumer Group name already exists")) {
		t.Error("expected BUSYGROUP error to be recognized")
	}
	if isBusyGroup(errors.New("connection refused")) {
		t.Error("unrelated error must not be treated as BUSYGROUP")
	}
	if isBusyGroup(nil) {
		t.Error("nil error must not be treated as BUSYGROUP")
	}
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name      string
		entry     Entry
		expectErr bool
		objectKey string
		source    string
	}{
		{
			name: "complete entry",
			entry: Entry{ID: "1-0", Values: map[string]interface{}{
				FieldObjectKey: "bronze/a.json",
				FieldSource:    "crawler",
				FieldTimestamp: "2026-08-30T10:00:00Z",
			}},
			objectKey: "bronze/a.json",
			source:    "crawler",
		},
		{
			name:      "missing object key",
			entry:     Entry{ID: "2-0", Values: map[string]interface{}{FieldSource: "crawler"}},
			expectErr: true,
		},
		{
			name:      "non-string object key",
			entry:     Entry{ID: "3-0", Values: map[string]interface{}{FieldObjectKey: 42}},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := parseEntry(tt.entry)
			if tt.expectErr {
				if !errors.Is(err, ErrMissingObjectKey) {
					t.Fatalf("expected ErrMissingObjectKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if entry.ObjectKey != tt.objectKey {
				t.Errorf("expected object key %s, got %s", tt.objectKey, entry.ObjectKey)
			}
			if entry.Source != tt.source {
				t.Errorf("expected source %s, got %s", tt.source, entry.Source)
			}
			if entry.EnqueuedAt.IsZero() {
				t.Error("expected enqueued timestamp to be parsed")
			}
		})
	}
}

func TestRecoveryReclaimsOnlyIdleEntries(t *testing.T) {
	fl := newFakeLog()
	fp := &fakeProcessor{}
	consumer, reporter := newTestConsumer(fl, fp)

	fl.addPending(Entry{ID: "1-0", Values: map[string]interface{}{FieldObjectKey: "bronze/a.json"}}, 10*time.Minute)
	fl.addPending(Entry{ID: "2-0", Values: map[string]interface{}{FieldObjectKey: "bronze/b.json"}}, time.Minute)

	recovery := NewRecovery(fl, consumer, reporter, testLogger(), &RecoveryConfig{
		MinIdle: 5 * time.Minute,
		Batch:   10,
	})

	claimed := recovery.Reclaim(context.Background())
	if claimed != 1 {
		t.Fatalf("expected 1 reclaimed entry, got %d", claimed)
	}

	if got := fp.processedIDs(); len(got) != 1 || got[0] != "1-0" {
		t.Errorf("expected only the idle entry to be processed, got %v", got)
	}
	if !contains(fl.ackedIDs(), "1-0") {
		t.Error("reclaimed entry must be acked after successful processing")
	}
	if reporter.Snapshot().EntriesReclaimed != 1 {
		t.Errorf("expected reclaimed counter 1, got %d", reporter.Snapshot().EntriesReclaimed)
	}
}

func TestRecoveryFollowsCursor(t *testing.T) {
	fl := newFakeLog()
	fp := &fakeProcessor{}
	consumer, reporter := newTestConsumer(fl, fp)

	for _, id := range []string{"1-0", "2-0", "3-0"} {
		fl.addPending(Entry{ID: id, Values: map[string]interface{}{FieldObjectKey: "bronze/" + id}}, time.Hour)
	}

	recovery := NewRecovery(fl, consumer, reporter, testLogger(), &RecoveryConfig{
		MinIdle: 5 * time.Minute,
		Batch:   1,
	})

	claimed := recovery.Reclaim(context.Background())
	if claimed != 3 {
		t.Fatalf("expected 3 reclaimed entries across cursor pages, got %d", claimed)
	}
	if got := fp.processedIDs(); len(got) != 3 {
		t.Errorf("expected all pending entries processed, got %v", got)
	}
}
