package models

import "time"

// MarketPhase is the trading phase derived from exchange wall-clock time.
type MarketPhase string

const (
	PhasePreMarket    MarketPhase = "PRE_MARKET"
	PhaseOpeningDrive MarketPhase = "OPENING_DRIVE"
	PhaseMidDay       MarketPhase = "MID_DAY"
	PhasePostMarket   MarketPhase = "POST_MARKET"
	PhaseClosed       MarketPhase = "CLOSED"
)

// Thresholds is the per-phase threshold set. All values are fractions
// (0.005 = 0.5%). A SpreadLimit of 0 makes the liveness gate reject everything.
type Thresholds struct {
	StockMove   float64 `json:"stock_move"`
	SpreadLimit float64 `json:"spread_limit"`
	Strict      bool    `json:"strict"`
}

// Decision is the externally adjudicated structural verdict.
type Decision string

const (
	DecisionApprove     Decision = "approve"
	DecisionVeto        Decision = "veto"
	DecisionUnavailable Decision = "unavailable"
)

// Approved reports whether the decision allows the structural gate to pass.
func (d Decision) Approved() bool { return d == DecisionApprove }

// GateOutcome is the result of one gate. A failed outcome always carries a
// non-empty human-readable reason.
type GateOutcome struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason"`
	Tier   string `json:"tier,omitempty"` // display label only ("B" on structural pass), never branched on
}

// SignalGrade is the final actionability tier.
type SignalGrade string

const (
	GradeA     SignalGrade = "A"
	GradeC     SignalGrade = "C"
	GradeBlock SignalGrade = "BLOCK"
)

// Rank orders grades for display sorting only: A > C > BLOCK.
func (g SignalGrade) Rank() int {
	switch g {
	case GradeA:
		return 3
	case GradeC:
		return 2
	case GradeBlock:
		return 1
	default:
		return 0
	}
}

// Evaluation is the full classification result for one symbol.
type Evaluation struct {
	Symbol       string      `json:"symbol"`
	Timestamp    time.Time   `json:"timestamp"`
	Phase        MarketPhase `json:"phase"`
	Grade        SignalGrade `json:"grade"`
	Price        float64     `json:"price"`
	StockPassed  bool        `json:"stock_passed"`
	StockReason  string      `json:"stock_reason"`
	OptionPassed bool        `json:"option_passed"`
	OptionReason string      `json:"option_reason"`
	ATMContract  string      `json:"atm_contract"` // summary of the evaluated ATM call, "-" when none
	FinalReason  string      `json:"final_reason"`
}
