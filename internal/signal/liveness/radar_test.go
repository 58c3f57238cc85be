package liveness

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"OptionWatch/internal/domain/models"
)

// Wide defaults so individual tests only trip the rule under test.
var loose = models.Thresholds{StockMove: 0.005, SpreadLimit: 0.25, Strict: true}

func contract(id string, bid, ask float64) *models.OptionContract {
	return &models.OptionContract{ContractID: id, Strike: 100, Bid: bid, Ask: ask}
}

func TestCheckNoContract(t *testing.T) {
	r := NewRadar()
	out := r.Check(nil, 0.004, loose)
	require.False(t, out.Passed)
	require.Equal(t, "no contract data", out.Reason)
}

func TestCheckInvalidQuote(t *testing.T) {
	r := NewRadar()

	for _, c := range []*models.OptionContract{
		contract("X1", 0, 1.05),
		contract("X2", 1.0, 0),
		contract("X3", -0.5, 1.05),
		contract("X4", math.NaN(), 1.05),
		contract("X5", 1.0, math.Inf(1)),
	} {
		out := r.Check(c, 0.004, loose)
		require.False(t, out.Passed, c.ContractID)
		require.Equal(t, "invalid quote", out.Reason, c.ContractID)
	}

	// Rejected quotes never enter the history.
	require.Empty(t, r.History("X1"))
}

func TestCheckStalledQuote(t *testing.T) {
	r := NewRadar()

	r.Check(contract("S", 1.0, 1.1), 0.004, loose)
	r.Check(contract("S", 1.0, 1.1), 0.004, loose)
	out := r.Check(contract("S", 1.0, 1.1), 0.004, loose)
	require.False(t, out.Passed)
	require.Equal(t, "quote stalled", out.Reason)
}

func TestCheckSpreadTooWide(t *testing.T) {
	r := NewRadar()

	out := r.Check(contract("W", 1.0, 1.5), 0.004, models.Thresholds{SpreadLimit: 0.10})
	require.False(t, out.Passed)
	require.Contains(t, out.Reason, "spread too wide")
}

func TestCheckSpreadAtLimitPasses(t *testing.T) {
	r := NewRadar()

	// Prime a distinct mid so the liveness count is satisfied.
	r.Check(contract("L", 1.0, 1.5), 0.004, loose)

	// Mid 2.0, spread exactly 0.25: the limit is exclusive.
	out := r.Check(contract("L", 1.75, 2.25), 0.004, loose)
	require.True(t, out.Passed)
	require.Contains(t, out.Reason, "quote active")
}

func TestCheckMomentumDivergence(t *testing.T) {
	r := NewRadar()

	r.Check(contract("D", 1.9, 2.1), 0.004, loose)
	out := r.Check(contract("D", 1.8, 2.0), 0.004, loose)
	require.False(t, out.Passed)
	require.Equal(t, "momentum divergence", out.Reason)
}

func TestCheckNoDivergenceWhenStockFalls(t *testing.T) {
	r := NewRadar()

	r.Check(contract("F", 1.9, 2.1), -0.004, loose)
	out := r.Check(contract("F", 1.8, 2.0), -0.004, loose)
	require.True(t, out.Passed)
}

func TestCheckSingleQuoteIsAmbiguous(t *testing.T) {
	r := NewRadar()

	out := r.Check(contract("A", 1.0, 1.1), 0.004, loose)
	require.False(t, out.Passed)
	require.Contains(t, out.Reason, "ambiguous momentum")
}

func TestCheckTwoDistinctMidsPass(t *testing.T) {
	r := NewRadar()

	r.Check(contract("T", 1.0, 1.1), 0.004, loose)
	out := r.Check(contract("T", 1.1, 1.2), 0.004, loose)
	require.True(t, out.Passed)
}

func TestCheckLongHistoryNeedsThreeDistinctMids(t *testing.T) {
	r := NewRadar()

	// Alternating between two mids never stalls, but after three
	// observations two distinct values are no longer enough. The underlying
	// falls throughout so the divergence rule stays out of play.
	quotes := []*models.OptionContract{
		contract("H", 1.0, 1.1),
		contract("H", 1.1, 1.2),
		contract("H", 1.0, 1.1),
		contract("H", 1.1, 1.2),
		contract("H", 1.0, 1.1),
	}
	var out models.GateOutcome
	for _, q := range quotes {
		out = r.Check(q, -0.004, loose)
	}
	require.False(t, out.Passed)
	require.Contains(t, out.Reason, "ambiguous momentum")

	// A third distinct mid clears it.
	out = r.Check(contract("H", 1.2, 1.3), -0.004, loose)
	require.True(t, out.Passed)
}

func TestCheckTwiceRepeatedMidIsAmbiguousNotStalled(t *testing.T) {
	r := NewRadar()

	// Three observations with the last mid repeated only twice: not enough
	// repetition for a stall, not enough distinct values for liveness.
	r.Check(contract("R", 1.0, 1.1), 0.004, loose)
	r.Check(contract("R", 1.1, 1.2), 0.004, loose)
	out := r.Check(contract("R", 1.1, 1.2), 0.004, loose)

	require.False(t, out.Passed)
	require.Contains(t, out.Reason, "ambiguous momentum")
	require.NotContains(t, out.Reason, "stalled")
}

func TestHistoryCapped(t *testing.T) {
	r := NewRadar()

	for i := 0; i < 8; i++ {
		bid := 1.0 + 0.1*float64(i)
		r.Check(contract("C", bid, bid+0.1), -0.004, loose)
	}
	got := r.History("C")
	require.Len(t, got, 5)
	require.InDelta(t, 1.35, got[0], 1e-9)
	require.InDelta(t, 1.75, got[4], 1e-9)
}

func TestHistoryIsolatedPerContract(t *testing.T) {
	r := NewRadar()

	r.Check(contract("P1", 1.0, 1.1), 0.004, loose)
	r.Check(contract("P2", 2.0, 2.1), 0.004, loose)
	require.Len(t, r.History("P1"), 1)
	require.Len(t, r.History("P2"), 1)
}

func TestObservation(t *testing.T) {
	r := NewRadar()

	obs := r.Observation("SPY", contract("O", 1.0, 1.5), 500.25, 1700000000)
	require.NotNil(t, obs)
	require.Equal(t, "SPY", obs.Symbol)
	require.Equal(t, "O", obs.ContractID)
	require.InDelta(t, 1.25, obs.Mid, 1e-12)
	require.InDelta(t, 0.4, obs.Spread, 1e-12)
	require.Equal(t, 500.25, obs.Underlying)

	require.Nil(t, r.Observation("SPY", nil, 500, 0))
	require.Nil(t, r.Observation("SPY", contract("O2", 0, 1.5), 500, 0))
}

func TestHistoryWindowProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200

	properties := gopter.NewProperties(params)

	properties.Property("window holds the most recent mids, capped", prop.ForAll(
		func(bids []float64) bool {
			r := NewRadar()
			var mids []float64
			for _, bid := range bids {
				ask := bid + 0.05
				r.Check(contract("W", bid, ask), 0, loose)
				mids = append(mids, (bid+ask)/2)
			}
			got := r.History("W")
			if len(got) > historyCap {
				return false
			}
			want := mids
			if len(want) > historyCap {
				want = want[len(want)-historyCap:]
			}
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i] != want[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(0.05, 50)),
	))

	properties.TestingRun(t)
}
