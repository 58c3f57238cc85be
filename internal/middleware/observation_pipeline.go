package middleware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"OptionWatch/internal/domain/models"
	domrepo "OptionWatch/internal/domain/repository"
)

// Proc is the minimal sink interface the pipeline forwards to.
type Proc interface {
	Process(ctx context.Context, o *models.QuoteObservation) error
}

// ObservationPipeline sits between the evaluator and the sink backend.
// It validates, throttles per contract, and buffers when downstream is unavailable.
type ObservationPipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	throttle time.Duration
	bufSize  int
	bufCh    chan *models.QuoteObservation
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-contract last accepted time
}

type PipelineOption func(*ObservationPipeline)

// WithThrottle sets the minimum interval between accepted observations per contract.
func WithThrottle(d time.Duration) PipelineOption {
	return func(p *ObservationPipeline) {
		if d > 0 {
			p.throttle = d
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *ObservationPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewObservationPipeline creates a new pipeline.
func NewObservationPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *ObservationPipeline {
	p := &ObservationPipeline{
		proc:     proc,
		metrics:  metrics,
		throttle: time.Second,
		bufSize:  1000,
		bufCh:    make(chan *models.QuoteObservation, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.QuoteObservation, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered observations.
func (p *ObservationPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case o := <-p.bufCh:
				if o == nil {
					continue
				}
				if err := p.proc.Process(ctx, o); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					select {
					case <-p.stopCh:
						return
					case <-time.After(backoff):
					}
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- o:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *ObservationPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards an observation downstream,
// buffering on errors.
func (p *ObservationPipeline) Process(ctx context.Context, o *models.QuoteObservation) error {
	start := time.Now()
	if err := validateObservation(o); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(o.ContractID, start) {
		// throttled; drop silently
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, o); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- o:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateObservation(o *models.QuoteObservation) error {
	if o == nil {
		return fmt.Errorf("observation nil")
	}
	if o.Symbol == "" || o.ContractID == "" {
		return fmt.Errorf("symbol/contract empty")
	}
	if o.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if o.Bid <= 0 || o.Ask <= 0 || math.IsNaN(o.Bid) || math.IsNaN(o.Ask) {
		return fmt.Errorf("invalid quote")
	}
	if o.Ask < o.Bid {
		return fmt.Errorf("crossed quote")
	}
	return nil
}

func (p *ObservationPipeline) allow(contractID string, now time.Time) bool {
	if p.throttle <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[contractID]
	if !last.IsZero() && now.Sub(last) < p.throttle {
		return false
	}
	p.lastSeen[contractID] = now
	return true
}
