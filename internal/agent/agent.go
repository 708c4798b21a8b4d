package agent

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Agent is one unit of analysis. Implementations are stateless per call and
// independently retryable; a failing Process must not carry state across calls.
type Agent interface {
	// ID returns the stable agent identifier used as the analysis_results key
	ID() string

	// ModelVersion returns the model identifier behind this agent
	ModelVersion() string

	// Process runs the capability against the given text
	Process(ctx context.Context, text string, metadata map[string]interface{}) (map[string]interface{}, error)
}

// Result is the outcome of one Execute call. Failures are data: an exhausted
// retry surfaces as a non-empty Err, never as a returned error.
type Result struct {
	AgentID         string                 `json:"agent_id"`
	ModelVersion    string                 `json:"model_version"`
	Payload         map[string]interface{} `json:"payload,omitempty"`
	Err             string                 `json:"error,omitempty"`
	ExecutionTimeMs int64                  `json:"execution_time_ms"`
}

// Failed reports whether the agent exhausted its retries without a payload.
func (r *Result) Failed() bool {
	return r.Err != ""
}

// String returns a payload field as a string, or empty if absent.
func (r *Result) String(key string) string {
	if r.Payload == nil {
		return ""
	}
	s, _ := r.Payload[key].(string)
	return s
}

// agentCounters holds per-agent running counters, updated atomically.
type agentCounters struct {
	invocations int64
	errors      int64
	latencyMs   int64
}

// Stats is a point-in-time snapshot of one agent's counters.
type Stats struct {
	AgentID             string `json:"agent_id"`
	Invocations         int64  `json:"invocations"`
	Errors              int64  `json:"errors"`
	CumulativeLatencyMs int64  `json:"cumulative_latency_ms"`
}

// Executor wraps any Agent with timing, bounded retry with exponential
// backoff, and failure capture. Retry and timing logic lives here once
// rather than in each agent.
type Executor struct {
	attempts int
	backoff  time.Duration

	mu       sync.RWMutex
	counters map[string]*agentCounters
}

// NewExecutor creates an Executor with the given retry bounds.
// Parameters:
//   - attempts: maximum attempts per invocation (minimum 1).
//   - backoff: initial backoff between attempts, doubled each retry.
// Returns:
//   - *Executor: executor instance.
func NewExecutor(attempts int, backoff time.Duration) *Executor {
	if attempts < 1 {
		attempts = 1
	}
	return &Executor{
		attempts: attempts,
		backoff:  backoff,
		counters: make(map[string]*agentCounters),
	}
}

// Execute runs the agent with retries and returns a Result in both the
// success and failure case. The pipeline must never abort because one
// agent failed, so errors are captured rather than propagated.
func (e *Executor) Execute(ctx context.Context, a Agent, text string, metadata map[string]interface{}) *Result {
	start := time.Now()
	counters := e.countersFor(a.ID())
	atomic.AddInt64(&counters.invocations, 1)

	payload, err := e.run(ctx, a, text, metadata)

	elapsed := time.Since(start).Milliseconds()
	atomic.AddInt64(&counters.latencyMs, elapsed)

	result := &Result{
		AgentID:         a.ID(),
		ModelVersion:    a.ModelVersion(),
		ExecutionTimeMs: elapsed,
	}

	if err != nil {
		atomic.AddInt64(&counters.errors, 1)
		result.Err = err.Error()
		return result
	}

	result.Payload = payload
	return result
}

func (e *Executor) run(ctx context.Context, a Agent, text string, metadata map[string]interface{}) (map[string]interface{}, error) {
	var lastErr error
	wait := e.backoff

	for attempt := 0; attempt < e.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}

		payload, err := a.Process(ctx, text, metadata)
		if err == nil {
			return payload, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

func (e *Executor) countersFor(agentID string) *agentCounters {
	e.mu.RLock()
	c, ok := e.counters[agentID]
	e.mu.RUnlock()
	if ok {
		return c
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok = e.counters[agentID]; ok {
		return c
	}
	c = &agentCounters{}
	e.counters[agentID] = c
	return c
}

// Snapshot returns the current counters for all agents, sorted by agent ID.
func (e *Executor) Snapshot() []Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := make([]Stats, 0, len(e.counters))
	for id, c := range e.counters {
		stats = append(stats, Stats{
			AgentID:             id,
			Invocations:         atomic.LoadInt64(&c.invocations),
			Errors:              atomic.LoadInt64(&c.errors),
			CumulativeLatencyMs: atomic.LoadInt64(&c.latencyMs),
		})
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].AgentID < stats[j].AgentID })
	return stats
}
