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
	"OptionWatch/internal/signal/phase"
	"OptionWatch/internal/signal/structure"
)

type mapDecisions struct {
	verdicts map[string]models.Decision
}

func (d *mapDecisions) Decide(_ context.Context, symbol string) models.Decision {
	if v, ok := d.verdicts[symbol]; ok {
		return v
	}
	return models.DecisionApprove
}

func scanFixture(t *testing.T) (*Scanner, *fakeMarket) {
	t.Helper()

	chain := &models.OptionChain{
		Symbol:     "GOOD",
		Expiration: time.Now().Add(48 * time.Hour),
		Calls: []models.OptionContract{
			{ContractID: "GOOD260918C00540000", Strike: 540, Bid: 1.00, Ask: 1.05},
		},
	}
	market := &fakeMarket{
		bars: map[string][]models.Bar{
			"GOOD": climbingBars(),
			"BLK":  climbingBars(),
		},
		barsErr: map[string]error{"ERR": errors.New("provider down")},
		price:   map[string]float64{"GOOD": 542},
		chain:   map[string]*models.OptionChain{"GOOD": chain},
	}

	log := testLogger(t)
	eval := NewEvaluator(market, structure.NewGate(), liveness.NewRadar(), nil,
		noopMetrics{}, log, drepo.Interval5m, "5d")

	gate, err := phase.NewGate(nil)
	require.NoError(t, err)

	decisions := &mapDecisions{verdicts: map[string]models.Decision{"BLK": models.DecisionVeto}}
	return NewScanner(eval, gate, decisions, nil, log, []string{"GOOD", "BLK", "ERR"}, 2), market
}

func TestScanReport(t *testing.T) {
	scanner, _ := scanFixture(t)

	report, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	require.Len(t, report.Errors, 1)
	require.Contains(t, report.Errors["ERR"], "provider down")

	// Actionable grades sort first.
	require.Equal(t, "GOOD", report.Results[0].Symbol)
	require.Equal(t, models.GradeC, report.Results[0].Grade)
	require.Equal(t, "BLK", report.Results[1].Symbol)
	require.Equal(t, models.GradeBlock, report.Results[1].Grade)

	require.Zero(t, report.CountA)
	require.Equal(t, 1, report.CountC)
	require.Equal(t, 1, report.CountBlock)
	require.False(t, report.Timestamp.IsZero())
	require.NotEmpty(t, report.Phase)
}

func TestScanCancelled(t *testing.T) {
	scanner, _ := scanFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scanner.Scan(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLastReturnsMostRecentReport(t *testing.T) {
	scanner, _ := scanFixture(t)

	_, ok := scanner.Last(context.Background())
	require.False(t, ok)

	report, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	got, ok := scanner.Last(context.Background())
	require.True(t, ok)
	require.Equal(t, report, got)
}

func TestScannerWorkerCapping(t *testing.T) {
	scanner, _ := scanFixture(t)
	require.Equal(t, 2, scanner.workers)

	capped := NewScanner(scanner.eval, scanner.phase, scanner.decisions, nil, scanner.log, []string{"A"}, 8)
	require.Equal(t, 1, capped.workers)

	defaulted := NewScanner(scanner.eval, scanner.phase, scanner.decisions, nil, scanner.log, []string{"A", "B", "C", "D", "E"}, 0)
	require.Equal(t, 4, defaulted.workers)
}

func TestScannerSymbols(t *testing.T) {
	scanner, _ := scanFixture(t)
	require.Equal(t, []string{"GOOD", "BLK", "ERR"}, scanner.Symbols())
}
