// Package phase maps exchange wall-clock time to a market phase and its
// threshold set.
package phase

import (
	"fmt"
	"time"

	"OptionWatch/internal/domain/models"
)

// ExchangeTimezone is the trading timezone every window is evaluated in.
// It is load-bearing: substituting the host's local zone shifts every window.
const ExchangeTimezone = "America/New_York"

// window is a half-open [from, to) minute-of-day range.
type window struct {
	from  int // minutes since midnight, inclusive
	to    int // exclusive
	phase models.MarketPhase
}

// Windows in precedence order. Anything unmatched is CLOSED.
var windows = []window{
	{4 * 60, 9*60 + 30, models.PhasePreMarket},
	{9*60 + 30, 10 * 60, models.PhaseOpeningDrive},
	{10 * 60, 15*60 + 30, models.PhaseMidDay},
	{15*60 + 30, 20 * 60, models.PhasePostMarket},
}

// Gate resolves the current market phase and thresholds. It is a pure
// function of wall-clock time; one Gate is shared by all evaluations.
type Gate struct {
	loc        *time.Location
	thresholds map[models.MarketPhase]models.Thresholds
}

// DefaultThresholds returns the built-in per-phase threshold table.
// CLOSED carries a zero spread limit so every later gate rejects.
func DefaultThresholds() map[models.MarketPhase]models.Thresholds {
	return map[models.MarketPhase]models.Thresholds{
		models.PhasePreMarket:    {StockMove: 0.005, SpreadLimit: 0.05, Strict: true},
		models.PhaseOpeningDrive: {StockMove: 0.003, SpreadLimit: 0.08, Strict: true},
		models.PhaseMidDay:       {StockMove: 0.002, SpreadLimit: 0.10, Strict: false},
		models.PhasePostMarket:   {StockMove: 0.005, SpreadLimit: 0.05, Strict: true},
		models.PhaseClosed:       {StockMove: 9.999, SpreadLimit: 0.00, Strict: true},
	}
}

// NewGate creates a phase gate in the exchange timezone with optional
// per-phase threshold overrides.
func NewGate(overrides map[models.MarketPhase]models.Thresholds) (*Gate, error) {
	loc, err := time.LoadLocation(ExchangeTimezone)
	if err != nil {
		return nil, fmt.Errorf("load exchange timezone: %w", err)
	}
	table := DefaultThresholds()
	for p, t := range overrides {
		table[p] = t
	}
	return &Gate{loc: loc, thresholds: table}, nil
}

// Current returns the phase for now and its threshold set. Total: every
// timestamp maps to exactly one phase.
func (g *Gate) Current(now time.Time) (models.MarketPhase, models.Thresholds) {
	et := now.In(g.loc)
	minute := et.Hour()*60 + et.Minute()
	for _, w := range windows {
		if minute >= w.from && minute < w.to {
			return w.phase, g.thresholds[w.phase]
		}
	}
	return models.PhaseClosed, g.thresholds[models.PhaseClosed]
}

// Location exposes the exchange timezone, mainly for display.
func (g *Gate) Location() *time.Location { return g.loc }
