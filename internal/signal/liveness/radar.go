// Package liveness maintains per-contract quote history and applies the
// anti-spoofing rules: stalled quotes, wide spreads, and momentum divergence.
//
// The radar must be a long-lived, process-wide instance. Re-creating it per
// scan discards the history and makes staleness and liveness detection
// permanently vacuous.
package liveness

import (
	"fmt"
	"math"

	"OptionWatch/internal/domain/models"
)

// divergencePct is the mid-price drop that, against a rising underlying,
// counts as momentum divergence.
const divergencePct = -0.01

// Radar owns the keyed mid-price history and evaluates contract liveness.
type Radar struct {
	store *historyStore
}

func NewRadar() *Radar {
	return &Radar{store: newHistoryStore()}
}

// Check records the contract's current mid-price and evaluates the liveness
// rules under the given thresholds. stockMovePct is the underlying's observed
// fractional move. Invalid quotes (zero, negative, or NaN bid/ask) fail
// closed without touching the history.
func (r *Radar) Check(contract *models.OptionContract, stockMovePct float64, th models.Thresholds) models.GateOutcome {
	if contract == nil {
		return models.GateOutcome{Passed: false, Reason: "no contract data"}
	}
	if !validQuote(contract.Bid) || !validQuote(contract.Ask) {
		return models.GateOutcome{Passed: false, Reason: "invalid quote"}
	}

	mid := (contract.Bid + contract.Ask) / 2
	spread := (contract.Ask - contract.Bid) / mid

	h := r.store.get(contract.ContractID)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.append(mid)
	mids := h.mids
	n := len(mids)

	// A feed that stopped updating is a dead contract, no matter how tight
	// the spread looks.
	if n >= 3 && mids[n-1] == mids[n-2] && mids[n-2] == mids[n-3] {
		return models.GateOutcome{Passed: false, Reason: "quote stalled"}
	}

	if spread > th.SpreadLimit {
		return models.GateOutcome{
			Passed: false,
			Reason: fmt.Sprintf("spread too wide (%.1f%% > %.1f%%)", spread*100, th.SpreadLimit*100),
		}
	}

	if n >= 2 {
		midChange := (mids[n-1] - mids[n-2]) / mids[n-2]
		if stockMovePct > 0 && midChange < divergencePct {
			return models.GateOutcome{Passed: false, Reason: "momentum divergence"}
		}
	}

	// A single low-spread quote proves nothing; require enough distinct
	// observed mids over the rolling window to call the quote alive.
	distinct := h.distinct()
	active := distinct >= 2
	if n >= 3 {
		active = distinct >= 3
	}
	if active {
		return models.GateOutcome{
			Passed: true,
			Reason: fmt.Sprintf("quote active (spread %.1f%%)", spread*100),
		}
	}
	return models.GateOutcome{
		Passed: false,
		Reason: fmt.Sprintf("ambiguous momentum (spread %.1f%%)", spread*100),
	}
}

// Observation builds the sink record for a contract quote; it returns nil
// for invalid quotes.
func (r *Radar) Observation(symbol string, contract *models.OptionContract, underlying float64, ts int64) *models.QuoteObservation {
	if contract == nil || !validQuote(contract.Bid) || !validQuote(contract.Ask) {
		return nil
	}
	mid := (contract.Bid + contract.Ask) / 2
	return &models.QuoteObservation{
		Symbol:     symbol,
		ContractID: contract.ContractID,
		Bid:        contract.Bid,
		Ask:        contract.Ask,
		Mid:        mid,
		Spread:     (contract.Ask - contract.Bid) / mid,
		Underlying: underlying,
		Timestamp:  ts,
	}
}

// History returns a copy of the recorded mids for a contract.
func (r *Radar) History(contractID string) []float64 {
	return r.store.snapshot(contractID)
}

func validQuote(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
