package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/Benaah/amaniquery-sub002/internal/agent"
)

type fakeChecker struct {
	err error
}

func (f *fakeChecker) Ping(ctx context.Context) error { return f.err }

func TestReporterCounters(t *testing.T) {
	r := NewReporter(agent.NewExecutor(1, 0))

	r.RecordProcessed()
	r.RecordProcessed()
	r.RecordRejected()
	r.RecordFailed()
	r.RecordReclaimed(3)

	summary := r.Snapshot()
	if summary.EntriesProcessed != 2 {
		t.Errorf("expected 2 processed, got %d", summary.EntriesProcessed)
	}
	if summary.EntriesRejected != 1 {
		t.Errorf("expected 1 rejected, got %d", summary.EntriesRejected)
	}
	if summary.EntriesFailed != 1 {
		t.Errorf("expected 1 failed, got %d", summary.EntriesFailed)
	}
	if summary.EntriesReclaimed != 3 {
		t.Errorf("expected 3 reclaimed, got %d", summary.EntriesReclaimed)
	}
}

func TestReporterHealth(t *testing.T) {
	r := NewReporter(agent.NewExecutor(1, 0))
	r.Register("database", &fakeChecker{})
	r.Register("redis", &fakeChecker{err: errors.New("connection refused")})

	health := r.Health(context.Background())
	if health["database"] != "ok" {
		t.Errorf("expected database ok, got %q", health["database"])
	}
	if health["redis"] != "connection refused" {
		t.Errorf("expected redis error message, got %q", health["redis"])
	}
	if r.Healthy(context.Background()) {
		t.Error("expected unhealthy with a failing store")
	}
}

func TestReporterHealthyWhenAllStoresRespond(t *testing.T) {
	r := NewReporter(agent.NewExecutor(1, 0))
	r.Register("database", &fakeChecker{})
	r.Register("qdrant", &fakeChecker{})

	if !r.Healthy(context.Background()) {
		t.Error("expected healthy with all stores responding")
	}
}
