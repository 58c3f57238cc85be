package phase

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"OptionWatch/internal/domain/models"
)

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	g, err := NewGate(nil)
	require.NoError(t, err)
	return g
}

func at(g *Gate, hour, min, sec int) time.Time {
	return time.Date(2026, 1, 15, hour, min, sec, 0, g.Location())
}

func TestCurrentWindows(t *testing.T) {
	g := newTestGate(t)

	cases := []struct {
		hour, min, sec int
		want           models.MarketPhase
	}{
		{3, 59, 59, models.PhaseClosed},
		{4, 0, 0, models.PhasePreMarket},
		{9, 29, 59, models.PhasePreMarket},
		{9, 30, 0, models.PhaseOpeningDrive},
		{9, 59, 59, models.PhaseOpeningDrive},
		{10, 0, 0, models.PhaseMidDay},
		{15, 29, 59, models.PhaseMidDay},
		{15, 30, 0, models.PhasePostMarket},
		{19, 59, 59, models.PhasePostMarket},
		{20, 0, 0, models.PhaseClosed},
		{0, 0, 0, models.PhaseClosed},
	}
	for _, c := range cases {
		got, _ := g.Current(at(g, c.hour, c.min, c.sec))
		require.Equalf(t, c.want, got, "%02d:%02d:%02d", c.hour, c.min, c.sec)
	}
}

func TestCurrentConvertsToExchangeTime(t *testing.T) {
	g := newTestGate(t)

	// 14:30 UTC on a winter date is 09:30 in New York.
	utc := time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC)
	got, _ := g.Current(utc)
	require.Equal(t, models.PhaseOpeningDrive, got)
}

func TestClosedThresholdsRejectEverything(t *testing.T) {
	g := newTestGate(t)

	_, th := g.Current(at(g, 22, 0, 0))
	require.Equal(t, 0.0, th.SpreadLimit)
	require.True(t, th.Strict)
}

func TestThresholdOverrides(t *testing.T) {
	custom := models.Thresholds{StockMove: 0.01, SpreadLimit: 0.2, Strict: false}
	g, err := NewGate(map[models.MarketPhase]models.Thresholds{
		models.PhaseMidDay: custom,
	})
	require.NoError(t, err)

	_, th := g.Current(at(g, 12, 0, 0))
	require.Equal(t, custom, th)

	// Other phases keep the defaults.
	_, th = g.Current(at(g, 9, 45, 0))
	require.Equal(t, DefaultThresholds()[models.PhaseOpeningDrive], th)
}

func TestCurrentIsTotal(t *testing.T) {
	g := newTestGate(t)
	table := DefaultThresholds()

	properties := gopter.NewProperties(nil)
	properties.Property("every minute maps to exactly one phase with its table entry", prop.ForAll(
		func(hour, min int) bool {
			p, th := g.Current(at(g, hour, min, 0))
			want, ok := table[p]
			return ok && th == want
		},
		gen.IntRange(0, 23),
		gen.IntRange(0, 59),
	))
	properties.TestingRun(t)
}
