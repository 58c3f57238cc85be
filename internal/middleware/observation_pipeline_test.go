package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"OptionWatch/internal/domain/models"
)

type countingProc struct {
	mu       sync.Mutex
	got      []*models.QuoteObservation
	attempts int
	fail     bool
}

func (p *countingProc) Process(_ context.Context, o *models.QuoteObservation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.fail {
		return errors.New("sink down")
	}
	p.got = append(p.got, o)
	return nil
}

func (p *countingProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.got)
}

func (p *countingProc) attemptCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

type countingMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func (m *countingMetrics) RecordGrade(string, models.SignalGrade) {}
func (m *countingMetrics) RecordObservation(string, string)       {}
func (m *countingMetrics) RecordLastPrice(string, float64)        {}
func (m *countingMetrics) RecordLatency(string, float64)          {}
func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = make(map[string]int)
	}
	m.errors[kind]++
}

func (m *countingMetrics) errCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func obs(contract string, ts int64) *models.QuoteObservation {
	return &models.QuoteObservation{
		Symbol:     "SPY",
		ContractID: contract,
		Bid:        1.00,
		Ask:        1.05,
		Mid:        1.025,
		Spread:     0.0488,
		Underlying: 542,
		Timestamp:  ts,
	}
}

func TestPipelineForwardsValidObservation(t *testing.T) {
	proc := &countingProc{}
	p := NewObservationPipeline(proc, &countingMetrics{})

	require.NoError(t, p.Process(context.Background(), obs("C1", 1700000000)))
	require.Equal(t, 1, proc.count())
}

func TestPipelineRejectsInvalidObservations(t *testing.T) {
	proc := &countingProc{}
	m := &countingMetrics{}
	p := NewObservationPipeline(proc, m)
	ctx := context.Background()

	cases := []*models.QuoteObservation{
		nil,
		{ContractID: "C1", Bid: 1, Ask: 1.05, Timestamp: 1},
		{Symbol: "SPY", ContractID: "C1", Bid: 1, Ask: 1.05},
		{Symbol: "SPY", ContractID: "C1", Bid: 0, Ask: 1.05, Timestamp: 1},
		{Symbol: "SPY", ContractID: "C1", Bid: 1.10, Ask: 1.05, Timestamp: 1},
	}
	for _, o := range cases {
		require.Error(t, p.Process(ctx, o))
	}
	require.Zero(t, proc.count())
	require.Equal(t, len(cases), m.errCount("pipeline_validate"))
}

func TestPipelineThrottlesPerContract(t *testing.T) {
	proc := &countingProc{}
	m := &countingMetrics{}
	p := NewObservationPipeline(proc, m, WithThrottle(time.Hour))
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, obs("C1", 1700000000)))
	require.NoError(t, p.Process(ctx, obs("C1", 1700000001)))
	require.NoError(t, p.Process(ctx, obs("C2", 1700000001)))

	require.Equal(t, 2, proc.count())
	require.Equal(t, 1, m.errCount("pipeline_throttle"))
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &countingProc{fail: true}
	m := &countingMetrics{}
	p := NewObservationPipeline(proc, m, WithThrottle(time.Nanosecond), WithBufferSize(4))

	err := p.Process(context.Background(), obs("C1", 1700000000))
	require.Error(t, err)
	require.Contains(t, err.Error(), "pipeline downstream")
	require.Equal(t, 1, m.errCount("pipeline_process"))

	// The buffered observation is flushed once downstream recovers.
	proc.mu.Lock()
	proc.fail = false
	proc.mu.Unlock()

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return proc.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestPipelineStopInterruptsRetryBackoff(t *testing.T) {
	proc := &countingProc{fail: true}
	p := NewObservationPipeline(proc, &countingMetrics{}, WithThrottle(time.Nanosecond), WithBufferSize(4))

	require.Error(t, p.Process(context.Background(), obs("C1", 1700000000)))

	p.Start(context.Background())
	require.Eventually(t, func() bool { return proc.attemptCount() >= 2 }, 2*time.Second, 10*time.Millisecond)

	// Stop while the flush loop is backing off; retries must cease rather
	// than run out the remaining backoff.
	p.Stop()
	time.Sleep(50 * time.Millisecond)
	settled := proc.attemptCount()
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, settled, proc.attemptCount())
}
