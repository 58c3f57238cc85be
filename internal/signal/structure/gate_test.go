package structure

import (
	"testing"

	"github.com/stretchr/testify/require"

	"OptionWatch/internal/domain/models"
)

func rangeBars(closes []float64, width float64) []models.Bar {
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{High: c + width, Low: c - width, Close: c}
	}
	return bars
}

// midRangePullback is a bearish series whose last close sits mid-range
// (position ~0.44) while hugging EMA20 with EMA20 < EMA50, so the mid-range
// veto exemption applies.
var midRangePullback = []models.Bar{
	{High: 100.4, Low: 99.6, Close: 100.0}, {High: 99.49, Low: 98.69, Close: 99.09}, {High: 101.31, Low: 100.51, Close: 100.91},
	{High: 103.83, Low: 103.01, Close: 103.42}, {High: 103.83, Low: 103.01, Close: 103.42}, {High: 105.43, Low: 104.59, Close: 105.01},
	{High: 105.45, Low: 104.61, Close: 105.03}, {High: 105.14, Low: 104.3, Close: 104.72}, {High: 106.53, Low: 105.69, Close: 106.11},
	{High: 104.48, Low: 103.64, Close: 104.06}, {High: 104.03, Low: 103.21, Close: 103.62}, {High: 105.27, Low: 104.43, Close: 104.85},
	{High: 104.74, Low: 103.9, Close: 104.32}, {High: 106.46, Low: 105.62, Close: 106.04}, {High: 107.09, Low: 106.23, Close: 106.66},
	{High: 108.21, Low: 107.35, Close: 107.78}, {High: 109.9, Low: 109.02, Close: 109.46}, {High: 109.53, Low: 108.65, Close: 109.09},
	{High: 107.69, Low: 106.83, Close: 107.26}, {High: 109.77, Low: 108.89, Close: 109.33}, {High: 108.28, Low: 107.42, Close: 107.85},
	{High: 110.81, Low: 109.93, Close: 110.37}, {High: 111.91, Low: 111.01, Close: 111.46}, {High: 111.08, Low: 110.2, Close: 110.64},
	{High: 109.56, Low: 108.68, Close: 109.12}, {High: 109.33, Low: 108.45, Close: 108.89}, {High: 107.78, Low: 106.92, Close: 107.35},
	{High: 105.64, Low: 104.8, Close: 105.22}, {High: 104.33, Low: 103.49, Close: 103.91}, {High: 103.73, Low: 102.91, Close: 103.32},
	{High: 103.4, Low: 102.58, Close: 102.99}, {High: 104.8, Low: 103.96, Close: 104.38}, {High: 105.1, Low: 104.26, Close: 104.68},
	{High: 103.42, Low: 102.6, Close: 103.01}, {High: 104.9, Low: 104.06, Close: 104.48},
}

// steadyClimb is a quiet base at 500 followed by a 12-bar advance: trending,
// near the range top, ATR a fraction of a percent of price.
func steadyClimb() []models.Bar {
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

func TestEvaluateInsufficientData(t *testing.T) {
	g := NewGate()

	out := g.Evaluate(rangeBars([]float64{100, 101, 102, 103}, 1), models.DecisionApprove)
	require.False(t, out.Passed)
	require.Equal(t, "insufficient data", out.Reason)
	require.Equal(t, "F", out.Tier)

	out = g.Evaluate(nil, models.DecisionApprove)
	require.False(t, out.Passed)
	require.Equal(t, "insufficient data", out.Reason)
}

func TestEvaluateDegenerateRange(t *testing.T) {
	g := NewGate()

	out := g.Evaluate(rangeBars([]float64{100, 100, 100, 100, 100, 100}, 0), models.DecisionApprove)
	require.False(t, out.Passed)
	require.Equal(t, "degenerate range", out.Reason)
}

func TestEvaluateBarbWire(t *testing.T) {
	g := NewGate()

	closes := []float64{100, 100.2, 99.8, 100.1, 99.9, 100.3, 99.7, 100, 100.2, 99.8, 100.1, 100}
	out := g.Evaluate(rangeBars(closes, 1), models.DecisionApprove)
	require.False(t, out.Passed)
	require.Contains(t, out.Reason, "Barb Wire")
}

func TestEvaluateMidRangeVeto(t *testing.T) {
	g := NewGate()

	// Oscillating series parked at 50% of its range with no trend alignment.
	closes := []float64{105, 95, 105, 95, 105, 95, 105, 95, 105, 95, 100}
	out := g.Evaluate(rangeBars(closes, 1), models.DecisionApprove)
	require.False(t, out.Passed)
	require.Equal(t, "Middle (50%)", out.Reason)
}

func TestEvaluateMidRangeExemption(t *testing.T) {
	g := NewGate()

	out := g.Evaluate(midRangePullback, models.DecisionApprove)
	require.True(t, out.Passed)
	require.Equal(t, "structure holds (bearish)", out.Reason)
	require.Equal(t, "B", out.Tier)
}

func TestEvaluateDecisionVeto(t *testing.T) {
	g := NewGate()

	out := g.Evaluate(steadyClimb(), models.DecisionVeto)
	require.False(t, out.Passed)
	require.Equal(t, "decision vetoed", out.Reason)

	out = g.Evaluate(steadyClimb(), models.DecisionUnavailable)
	require.False(t, out.Passed)
	require.Equal(t, "decision vetoed", out.Reason)
}

func TestEvaluateLowVolatility(t *testing.T) {
	g := NewGate()

	bars := make([]models.Bar, 0, 72)
	for i := 0; i < 60; i++ {
		bars = append(bars, models.Bar{High: 100.01, Low: 99.99, Close: 100})
	}
	for k := 1; k <= 12; k++ {
		c := 100 + 0.7*float64(k)
		bars = append(bars, models.Bar{High: c + 0.02, Low: c - 0.02, Close: c})
	}
	out := g.Evaluate(bars, models.DecisionApprove)
	require.False(t, out.Passed)
	require.Contains(t, out.Reason, "LowVol")
}

func TestEvaluatePass(t *testing.T) {
	g := NewGate()

	out := g.Evaluate(steadyClimb(), models.DecisionApprove)
	require.True(t, out.Passed)
	require.Equal(t, "structure holds (bullish)", out.Reason)
	require.Equal(t, "B", out.Tier)
}
