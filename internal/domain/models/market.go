package models

import "time"

// Bar represents one OHLC bar of the underlying instrument.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// OptionContract is a single listed contract quote. A bid or ask of 0 means
// "no quote" and must be treated as invalid, not as a real zero price.
type OptionContract struct {
	ContractID string // unique per strike+expiry+type, stable within a trading day
	Strike     float64
	Bid        float64
	Ask        float64
	LastPrice  float64
	Volume     int64
}

// OptionChain holds the call contracts of one expiration.
type OptionChain struct {
	Symbol     string
	Expiration time.Time
	Calls      []OptionContract
}

// ATMCall returns the call whose strike is nearest to price, or nil for an
// empty chain. Ties go to the lower strike.
func (c *OptionChain) ATMCall(price float64) *OptionContract {
	if c == nil || len(c.Calls) == 0 {
		return nil
	}
	best := 0
	bestDist := abs(c.Calls[0].Strike - price)
	for i := 1; i < len(c.Calls); i++ {
		if d := abs(c.Calls[i].Strike - price); d < bestDist {
			best, bestDist = i, d
		}
	}
	return &c.Calls[best]
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// QuoteObservation is one observed mid-price snapshot of a contract,
// emitted by the liveness radar and routed to the observation sink.
type QuoteObservation struct {
	Symbol     string  `json:"symbol"`
	ContractID string  `json:"contract_id"`
	Bid        float64 `json:"bid"`
	Ask        float64 `json:"ask"`
	Mid        float64 `json:"mid"`
	Spread     float64 `json:"spread"`
	Underlying float64 `json:"underlying"`
	Timestamp  int64   `json:"timestamp"` // unix seconds
}
