// Package structure evaluates an instrument's bar history against
// volatility, trend, and range-position rules.
package structure

import (
	"fmt"

	"OptionWatch/internal/domain/models"
)

const (
	// MinBars is the minimum series length required for evaluation.
	MinBars = 5

	barbWireCV   = 0.02   // CV of recent closes below this is "barb wire" chop
	barbWireBars = 12     // closes considered by the choppiness filter
	midRangeLow  = 0.35   // mid-range veto band, inclusive
	midRangeHigh = 0.65   // inclusive
	emaHugPct    = 0.02   // price within 2% of EMA20 exempts the veto
	atrFloorPct  = 0.0015 // minimum ATR as fraction of last close
	emaShortSpan = 20
	emaLongSpan  = 50
)

// Gate applies the structural rules. Stateless; safe for concurrent use.
type Gate struct{}

func NewGate() *Gate { return &Gate{} }

// Evaluate runs the structural rules in short-circuit order: first failing
// rule wins. It never returns an error; every data condition yields a failed
// outcome with a reason.
func (g *Gate) Evaluate(bars []models.Bar, decision models.Decision) models.GateOutcome {
	if len(bars) < MinBars {
		return fail("insufficient data")
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	lastClose := closes[len(closes)-1]
	if lastClose <= 0 {
		return fail("insufficient data")
	}

	atrPct := averageTrueRange(bars) / lastClose

	ema20 := ewmMean(closes, emaShortSpan)
	ema50 := ewmMean(closes, emaLongSpan)
	trend := "bearish"
	if lastClose > ema20 {
		trend = "bullish"
	}
	trendStrong := (lastClose > ema20 && ema20 > ema50) ||
		(lastClose < ema20 && ema20 < ema50)

	hi, lo := bars[0].High, bars[0].Low
	for _, b := range bars[1:] {
		if b.High > hi {
			hi = b.High
		}
		if b.Low < lo {
			lo = b.Low
		}
	}
	if hi == lo {
		return fail("degenerate range")
	}
	position := (lastClose - lo) / (hi - lo)

	// Choppiness filter: low dispersion of recent closes means no structure
	// to trade, regardless of everything else.
	recent := closes
	if len(recent) > barbWireBars {
		recent = recent[len(recent)-barbWireBars:]
	}
	if cv := coefficientOfVariation(recent); cv < barbWireCV {
		return fail(fmt.Sprintf("Barb Wire (CV=%.4f)", cv))
	}

	if position >= midRangeLow && position <= midRangeHigh {
		hugging := trendStrong && abs(lastClose-ema20)/lastClose < emaHugPct
		if !hugging {
			return fail(fmt.Sprintf("Middle (%.0f%%)", position*100))
		}
	}

	if !decision.Approved() {
		return fail("decision vetoed")
	}

	if atrPct < atrFloorPct {
		return fail(fmt.Sprintf("LowVol (ATR%%=%.3f)", atrPct))
	}

	return models.GateOutcome{
		Passed: true,
		Reason: fmt.Sprintf("structure holds (%s)", trend),
		Tier:   "B",
	}
}

func fail(reason string) models.GateOutcome {
	return models.GateOutcome{Passed: false, Reason: reason, Tier: "F"}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
