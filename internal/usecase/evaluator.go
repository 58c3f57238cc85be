package usecase

import (
	"context"
	"fmt"
	"time"

	"OptionWatch/internal/domain/models"
	drepo "OptionWatch/internal/domain/repository"
	"OptionWatch/internal/signal/liveness"
	"OptionWatch/internal/signal/rating"
	"OptionWatch/internal/signal/structure"
	"OptionWatch/pkg/logger"
)

// ObservationSink receives the quote observation emitted for every valid
// contract quote the radar sees.
type ObservationSink interface {
	Process(ctx context.Context, o *models.QuoteObservation) error
}

// Evaluator classifies one symbol: structural gate on the underlying, then
// liveness gate on the ATM call, then the grade. The phase is injected by the
// caller so a whole scan shares one snapshot.
type Evaluator struct {
	market   drepo.MarketData
	stock    *structure.Gate
	radar    *liveness.Radar
	sink     ObservationSink
	metrics  drepo.Metrics
	log      *logger.Logger
	barSize  drepo.Interval
	barRange string
}

// NewEvaluator creates an Evaluator. sink may be nil when no observation
// backend is configured.
func NewEvaluator(
	market drepo.MarketData,
	stock *structure.Gate,
	radar *liveness.Radar,
	sink ObservationSink,
	metrics drepo.Metrics,
	log *logger.Logger,
	barSize drepo.Interval,
	barRange string,
) *Evaluator {
	if barRange == "" {
		barRange = "5d"
	}
	return &Evaluator{
		market:   market,
		stock:    stock,
		radar:    radar,
		sink:     sink,
		metrics:  metrics,
		log:      log,
		barSize:  barSize,
		barRange: barRange,
	}
}

// Evaluate classifies symbol under the given phase snapshot and decision.
// It returns an error only when no bar data could be fetched at all; every
// other condition is expressed as a graded evaluation.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	symbol string,
	ph models.MarketPhase,
	th models.Thresholds,
	decision models.Decision,
) (*models.Evaluation, error) {
	start := time.Now()

	bars, err := e.market.GetBars(ctx, symbol, e.barSize, e.barRange)
	if err != nil {
		e.metrics.RecordError("evaluate_bars")
		return nil, fmt.Errorf("evaluate %s: %w", symbol, err)
	}

	ev := &models.Evaluation{
		Symbol:       symbol,
		Timestamp:    start,
		Phase:        ph,
		OptionReason: "not evaluated",
		ATMContract:  "-",
	}
	if n := len(bars); n > 0 {
		ev.Price = bars[n-1].Close
	}

	stockOut := e.stock.Evaluate(bars, decision)
	ev.StockPassed = stockOut.Passed
	ev.StockReason = stockOut.Reason

	// The option leg is only consulted when the underlying qualifies; a
	// blocked stock never costs an option-chain request.
	var optionOut models.GateOutcome
	if stockOut.Passed {
		optionOut = e.evaluateOption(ctx, symbol, bars, th, ev)
	}
	ev.OptionPassed = optionOut.Passed
	if optionOut.Reason != "" {
		ev.OptionReason = optionOut.Reason
	}

	ev.Grade, ev.FinalReason = rating.Rate(stockOut, optionOut)

	e.metrics.RecordGrade(symbol, ev.Grade)
	if ev.Price > 0 {
		e.metrics.RecordLastPrice(symbol, ev.Price)
	}
	e.metrics.RecordLatency("evaluate", time.Since(start).Seconds())
	return ev, nil
}

// evaluateOption resolves the ATM call and runs the liveness gate on it.
func (e *Evaluator) evaluateOption(
	ctx context.Context,
	symbol string,
	bars []models.Bar,
	th models.Thresholds,
	ev *models.Evaluation,
) models.GateOutcome {
	price, err := e.market.GetPrice(ctx, symbol)
	if err != nil || price <= 0 {
		price = ev.Price
	} else {
		ev.Price = price
	}

	chain, err := e.market.GetOptionChain(ctx, symbol)
	if err != nil {
		e.metrics.RecordError("evaluate_chain")
		e.log.Warn("option chain unavailable",
			logger.String("symbol", symbol),
			logger.Error(err))
		return models.GateOutcome{Passed: false, Reason: "no option data"}
	}

	atm := chain.ATMCall(price)
	if atm != nil {
		ev.ATMContract = fmt.Sprintf("%s ($%.2f)", atm.ContractID, atm.LastPrice)
	}

	out := e.radar.Check(atm, lastBarMove(bars), th)

	if obs := e.radar.Observation(symbol, atm, price, time.Now().Unix()); obs != nil && e.sink != nil {
		if err := e.sink.Process(ctx, obs); err != nil {
			e.log.Warn("observation sink rejected quote",
				logger.String("contract", obs.ContractID),
				logger.Error(err))
		}
	}
	return out
}

// lastBarMove is the fractional close-to-close move of the final bar, used
// as the underlying momentum input of the divergence rule.
func lastBarMove(bars []models.Bar) float64 {
	n := len(bars)
	if n < 2 || bars[n-2].Close == 0 {
		return 0
	}
	return (bars[n-1].Close - bars[n-2].Close) / bars[n-2].Close
}
