package agent

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scriptedAgent fails a fixed number of calls before succeeding.
type scriptedAgent struct {
	id       string
	failures int
	calls    int
	payload  map[string]interface{}
}

func (a *scriptedAgent) ID() string           { return a.id }
func (a *scriptedAgent) ModelVersion() string { return "test-model" }

func (a *scriptedAgent) Process(ctx context.Context, text string, metadata map[string]interface{}) (map[string]interface{}, error) {
	a.calls++
	if a.calls <= a.failures {
		return nil, errors.New("transient failure")
	}
	return a.payload, nil
}

func TestExecutorSuccess(t *testing.T) {
	exec := NewExecutor(3, time.Millisecond)
	a := &scriptedAgent{id: "sentiment", payload: map[string]interface{}{"sentiment": "neutral"}}

	result := exec.Execute(context.Background(), a, "some text", nil)

	if result.Failed() {
		t.Fatalf("unexpected failure: %s", result.Err)
	}
	if result.AgentID != "sentiment" {
		t.Errorf("expected agent ID sentiment, got %s", result.AgentID)
	}
	if result.ModelVersion != "test-model" {
		t.Errorf("expected model version test-model, got %s", result.ModelVersion)
	}
	if a.calls != 1 {
		t.Errorf("expected 1 call, got %d", a.calls)
	}
	if result.String("sentiment") != "neutral" {
		t.Errorf("expected payload sentiment=neutral, got %q", result.String("sentiment"))
	}
}

func TestExecutorRetriesTransientFailure(t *testing.T) {
	exec := NewExecutor(3, time.Millisecond)
	a := &scriptedAgent{id: "topic", failures: 2, payload: map[string]interface{}{"topic": "news"}}

	result := exec.Execute(context.Background(), a, "some text", nil)

	if result.Failed() {
		t.Fatalf("expected retry to recover, got error: %s", result.Err)
	}
	if a.calls != 3 {
		t.Errorf("expected 3 calls, got %d", a.calls)
	}
}

func TestExecutorExhaustsAttempts(t *testing.T) {
	exec := NewExecutor(2, time.Millisecond)
	a := &scriptedAgent{id: "entities", failures: 10}

	result := exec.Execute(context.Background(), a, "some text", nil)

	if !result.Failed() {
		t.Fatal("expected failure after exhausting attempts")
	}
	if result.Err != "transient failure" {
		t.Errorf("expected last error to be captured, got %q", result.Err)
	}
	if result.Payload != nil {
		t.Errorf("expected nil payload on failure, got %v", result.Payload)
	}
	if a.calls != 2 {
		t.Errorf("expected 2 calls, got %d", a.calls)
	}
}

func TestExecutorStopsOnCancelledContext(t *testing.T) {
	exec := NewExecutor(3, 100*time.Millisecond)
	a := &scriptedAgent{id: "emotion", failures: 10}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := exec.Execute(ctx, a, "some text", nil)

	if !result.Failed() {
		t.Fatal("expected failure on cancelled context")
	}
	if a.calls != 1 {
		t.Errorf("expected no retry after cancellation, got %d calls", a.calls)
	}
}

func TestExecutorSnapshot(t *testing.T) {
	exec := NewExecutor(1, 0)

	ok := &scriptedAgent{id: "topic", payload: map[string]interface{}{}}
	failing := &scriptedAgent{id: "bias", failures: 10}

	exec.Execute(context.Background(), ok, "text", nil)
	exec.Execute(context.Background(), ok, "text", nil)
	exec.Execute(context.Background(), failing, "text", nil)

	stats := exec.Snapshot()
	if len(stats) != 2 {
		t.Fatalf("expected 2 agents in snapshot, got %d", len(stats))
	}

	// Sorted by agent ID
	if stats[0].AgentID != "bias" || stats[1].AgentID != "topic" {
		t.Errorf("expected snapshot sorted by agent ID, got %s, %s", stats[0].AgentID, stats[1].AgentID)
	}
	if stats[0].Invocations != 1 || stats[0].Errors != 1 {
		t.Errorf("bias: expected 1 invocation and 1 error, got %d/%d", stats[0].Invocations, stats[0].Errors)
	}
	if stats[1].Invocations != 2 || stats[1].Errors != 0 {
		t.Errorf("topic: expected 2 invocations and 0 errors, got %d/%d", stats[1].Invocations, stats[1].Errors)
	}
}

func TestResultString(t *testing.T) {
	tests := []struct {
		name     string
		result   *Result
		key      string
		expected string
	}{
		{
			name:     "present string",
			result:   &Result{Payload: map[string]interface{}{"language": "sw"}},
			key:      "language",
			expected: "sw",
		},
		{
			name:     "absent key",
			result:   &Result{Payload: map[string]interface{}{"language": "sw"}},
			key:      "summary",
			expected: "",
		},
		{
			name:     "non-string value",
			result:   &Result{Payload: map[string]interface{}{"score": 0.8}},
			key:      "score",
			expected: "",
		},
		{
			name:     "nil payload",
			result:   &Result{},
			key:      "language",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.String(tt.key); got != tt.expected {
				t.Errorf("String(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}
