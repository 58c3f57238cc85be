package usecase

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"OptionWatch/internal/domain/models"
	dsvc "OptionWatch/internal/domain/service"
	"OptionWatch/internal/signal/phase"
	pkgcache "OptionWatch/pkg/cache"
	"OptionWatch/pkg/logger"
)

const lastReportKey = "optionwatch:scan:last"

// Scanner grades the whole watchlist. One phase snapshot is taken per scan
// so symbols evaluated near a window boundary stay consistent.
type Scanner struct {
	eval      *Evaluator
	phase     *phase.Gate
	decisions dsvc.DecisionProvider
	cache     pkgcache.Service
	log       *logger.Logger
	symbols   []string
	workers   int

	mu   sync.RWMutex
	last *models.ScanReport
}

// NewScanner creates a Scanner. cache may be nil; the last report is then
// only held in memory.
func NewScanner(
	eval *Evaluator,
	phaseGate *phase.Gate,
	decisions dsvc.DecisionProvider,
	cache pkgcache.Service,
	log *logger.Logger,
	symbols []string,
	workers int,
) *Scanner {
	if workers <= 0 {
		workers = 4
	}
	if workers > len(symbols) && len(symbols) > 0 {
		workers = len(symbols)
	}
	return &Scanner{
		eval:      eval,
		phase:     phaseGate,
		decisions: decisions,
		cache:     cache,
		log:       log,
		symbols:   symbols,
		workers:   workers,
	}
}

type scanResult struct {
	symbol string
	ev     *models.Evaluation
	err    error
}

// Scan evaluates every watchlist symbol under one phase snapshot and returns
// the consolidated report. Per-symbol failures land in report.Errors; the
// scan itself only fails on context cancellation.
func (s *Scanner) Scan(ctx context.Context) (*models.ScanReport, error) {
	start := time.Now()
	ph, th := s.phase.Current(start)

	jobs := make(chan string)
	results := make(chan scanResult, len(s.symbols))

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				decision := s.decisions.Decide(ctx, sym)
				ev, err := s.eval.Evaluate(ctx, sym, ph, th, decision)
				results <- scanResult{symbol: sym, ev: ev, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, sym := range s.symbols {
			select {
			case jobs <- sym:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	report := &models.ScanReport{
		Timestamp:  start,
		Phase:      ph,
		Thresholds: th,
		Errors:     make(map[string]string),
	}
	for r := range results {
		if r.err != nil {
			report.Errors[r.symbol] = r.err.Error()
			continue
		}
		report.Results = append(report.Results, *r.ev)
		switch r.ev.Grade {
		case models.GradeA:
			report.CountA++
		case models.GradeC:
			report.CountC++
		case models.GradeBlock:
			report.CountBlock++
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Actionable first, stable within a grade.
	sort.SliceStable(report.Results, func(i, j int) bool {
		ri, rj := report.Results[i].Grade.Rank(), report.Results[j].Grade.Rank()
		if ri != rj {
			return ri > rj
		}
		return report.Results[i].Symbol < report.Results[j].Symbol
	})

	s.remember(ctx, report)
	s.log.Info("scan complete",
		logger.String("phase", string(ph)),
		logger.Int("a", report.CountA),
		logger.Int("c", report.CountC),
		logger.Int("block", report.CountBlock),
		logger.Int("errors", len(report.Errors)),
		logger.Duration("took", time.Since(start)))
	return report, nil
}

// Last returns the most recent report: the in-memory one if present,
// otherwise the cached copy from a previous process.
func (s *Scanner) Last(ctx context.Context) (*models.ScanReport, bool) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last != nil {
		return last, true
	}
	if s.cache == nil {
		return nil, false
	}

	var raw string
	if err := s.cache.Get(ctx, lastReportKey, &raw); err != nil {
		return nil, false
	}
	var report models.ScanReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, false
	}
	return &report, true
}

// Symbols returns the configured watchlist.
func (s *Scanner) Symbols() []string { return s.symbols }

func (s *Scanner) remember(ctx context.Context, report *models.ScanReport) {
	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	if s.cache == nil {
		return
	}
	b, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, lastReportKey, string(b), 10*time.Minute); err != nil {
		s.log.Debug("report cache write failed", logger.Error(err))
	}
}
