package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"OptionWatch/internal/domain/models"
	drepo "OptionWatch/internal/domain/repository"
	"OptionWatch/internal/signal/liveness"
	"OptionWatch/internal/signal/structure"
	"OptionWatch/pkg/logger"
)

type fakeMarket struct {
	bars      map[string][]models.Bar
	barsErr   map[string]error
	price     map[string]float64
	chain     map[string]*models.OptionChain
	chainErr  map[string]error
	chainHits int
}

func (m *fakeMarket) GetPrice(_ context.Context, symbol string) (float64, error) {
	p, ok := m.price[symbol]
	if !ok {
		return 0, errors.New("no price")
	}
	return p, nil
}

func (m *fakeMarket) GetBars(_ context.Context, symbol string, _ drepo.Interval, _ string) ([]models.Bar, error) {
	if err := m.barsErr[symbol]; err != nil {
		return nil, err
	}
	return m.bars[symbol], nil
}

func (m *fakeMarket) GetOptionChain(_ context.Context, symbol string) (*models.OptionChain, error) {
	m.chainHits++
	if err := m.chainErr[symbol]; err != nil {
		return nil, err
	}
	return m.chain[symbol], nil
}

type recordingSink struct {
	got []*models.QuoteObservation
}

func (s *recordingSink) Process(_ context.Context, o *models.QuoteObservation) error {
	s.got = append(s.got, o)
	return nil
}

type noopMetrics struct{}

func (noopMetrics) RecordGrade(string, models.SignalGrade) {}
func (noopMetrics) RecordObservation(string, string)       {}
func (noopMetrics) RecordError(string)                     {}
func (noopMetrics) RecordLastPrice(string, float64)        {}
func (noopMetrics) RecordLatency(string, float64)          {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	require.NoError(t, err)
	return log
}

// climbingBars qualifies the structural gate: a quiet base followed by a
// strong trending leg.
func climbingBars() []models.Bar {
	bars := make([]models.Bar, 0, 42)
	for i := 0; i < 30; i++ {
		bars = append(bars, models.Bar{High: 500.2, Low: 499.8, Close: 500})
	}
	for k := 1; k <= 12; k++ {
		c := 500 + 3.5*float64(k)
		bars = append(bars, models.Bar{High: c + 0.2, Low: c - 0.2, Close: c})
	}
	return bars
}

var midDay = models.Thresholds{StockMove: 0.002, SpreadLimit: 0.10, Strict: true}

func TestEvaluateBarsErrorPropagates(t *testing.T) {
	market := &fakeMarket{barsErr: map[string]error{"SPY": errors.New("boom")}}
	eval := NewEvaluator(market, structure.NewGate(), liveness.NewRadar(), nil,
		noopMetrics{}, testLogger(t), drepo.Interval5m, "5d")

	_, err := eval.Evaluate(context.Background(), "SPY", models.PhaseMidDay, midDay, models.DecisionApprove)
	require.Error(t, err)
	require.Contains(t, err.Error(), "SPY")
}

func TestEvaluateBlockedStockSkipsOptionLeg(t *testing.T) {
	market := &fakeMarket{bars: map[string][]models.Bar{"SPY": climbingBars()}}
	eval := NewEvaluator(market, structure.NewGate(), liveness.NewRadar(), nil,
		noopMetrics{}, testLogger(t), drepo.Interval5m, "5d")

	ev, err := eval.Evaluate(context.Background(), "SPY", models.PhaseMidDay, midDay, models.DecisionVeto)
	require.NoError(t, err)
	require.Equal(t, models.GradeBlock, ev.Grade)
	require.False(t, ev.StockPassed)
	require.Equal(t, "not evaluated", ev.OptionReason)
	require.Equal(t, "-", ev.ATMContract)
	require.Zero(t, market.chainHits)
}

func TestEvaluateGradeCOnMissingChain(t *testing.T) {
	market := &fakeMarket{
		bars:     map[string][]models.Bar{"SPY": climbingBars()},
		price:    map[string]float64{"SPY": 542},
		chainErr: map[string]error{"SPY": errors.New("chain down")},
	}
	eval := NewEvaluator(market, structure.NewGate(), liveness.NewRadar(), nil,
		noopMetrics{}, testLogger(t), drepo.Interval5m, "5d")

	ev, err := eval.Evaluate(context.Background(), "SPY", models.PhaseMidDay, midDay, models.DecisionApprove)
	require.NoError(t, err)
	require.Equal(t, models.GradeC, ev.Grade)
	require.True(t, ev.StockPassed)
	require.False(t, ev.OptionPassed)
	require.Equal(t, "no option data", ev.OptionReason)
	require.Contains(t, ev.FinalReason, "option on watch")
}

func TestEvaluateGradeAAfterQuoteHistoryBuilds(t *testing.T) {
	chain := &models.OptionChain{
		Symbol:     "SPY",
		Expiration: time.Now().Add(48 * time.Hour),
		Calls: []models.OptionContract{
			{ContractID: "SPY260918C00540000", Strike: 540, Bid: 1.00, Ask: 1.05, LastPrice: 1.02},
			{ContractID: "SPY260918C00560000", Strike: 560, Bid: 0.40, Ask: 0.45, LastPrice: 0.42},
		},
	}
	market := &fakeMarket{
		bars:  map[string][]models.Bar{"SPY": climbingBars()},
		price: map[string]float64{"SPY": 542},
		chain: map[string]*models.OptionChain{"SPY": chain},
	}
	sink := &recordingSink{}
	eval := NewEvaluator(market, structure.NewGate(), liveness.NewRadar(), sink,
		noopMetrics{}, testLogger(t), drepo.Interval5m, "5d")

	ctx := context.Background()

	// First pass: one recorded mid is not enough to call the quote alive.
	ev, err := eval.Evaluate(ctx, "SPY", models.PhaseMidDay, midDay, models.DecisionApprove)
	require.NoError(t, err)
	require.Equal(t, models.GradeC, ev.Grade)
	require.Contains(t, ev.OptionReason, "ambiguous momentum")
	require.Contains(t, ev.ATMContract, "SPY260918C00540000")

	// Second pass with a moved quote: two distinct mids, spread under the limit.
	chain.Calls[0].Bid, chain.Calls[0].Ask = 1.02, 1.07
	ev, err = eval.Evaluate(ctx, "SPY", models.PhaseMidDay, midDay, models.DecisionApprove)
	require.NoError(t, err)
	require.Equal(t, models.GradeA, ev.Grade)
	require.True(t, ev.OptionPassed)
	require.Contains(t, ev.OptionReason, "quote active")
	require.Equal(t, 542.0, ev.Price)

	require.Len(t, sink.got, 2)
	require.Equal(t, "SPY260918C00540000", sink.got[0].ContractID)
	require.Equal(t, 542.0, sink.got[1].Underlying)
}

func TestEvaluatePriceFallsBackToLastClose(t *testing.T) {
	market := &fakeMarket{
		bars:     map[string][]models.Bar{"SPY": climbingBars()},
		chainErr: map[string]error{"SPY": errors.New("chain down")},
	}
	eval := NewEvaluator(market, structure.NewGate(), liveness.NewRadar(), nil,
		noopMetrics{}, testLogger(t), drepo.Interval5m, "5d")

	ev, err := eval.Evaluate(context.Background(), "SPY", models.PhaseMidDay, midDay, models.DecisionApprove)
	require.NoError(t, err)
	require.Equal(t, 542.0, ev.Price)
}

func TestLastBarMove(t *testing.T) {
	require.Zero(t, lastBarMove(nil))
	require.Zero(t, lastBarMove([]models.Bar{{Close: 100}}))
	require.InDelta(t, 0.01, lastBarMove([]models.Bar{{Close: 100}, {Close: 101}}), 1e-12)
	require.Zero(t, lastBarMove([]models.Bar{{Close: 0}, {Close: 101}}))
}
