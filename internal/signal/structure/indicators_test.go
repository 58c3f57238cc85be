package structure

import (
	"testing"

	"github.com/stretchr/testify/require"

	"OptionWatch/internal/domain/models"
)

func TestAverageTrueRange(t *testing.T) {
	bars := []models.Bar{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},
		{High: 14, Low: 11, Close: 12},
	}
	// TRs: max(2,2,0)=2, then max(3,4,1)=4; first bar never contributes.
	require.InDelta(t, 3.0, averageTrueRange(bars), 1e-12)

	require.Equal(t, 0.0, averageTrueRange(bars[:1]))
	require.Equal(t, 0.0, averageTrueRange(nil))
}

func TestEwmMeanConstantSeries(t *testing.T) {
	vals := []float64{5, 5, 5, 5, 5}
	require.InDelta(t, 5.0, ewmMean(vals, 20), 1e-12)
	require.Equal(t, 0.0, ewmMean(nil, 20))
}

func TestEwmMeanWeightsRecent(t *testing.T) {
	rising := ewmMean([]float64{1, 2, 3, 4, 5}, 3)
	require.Greater(t, rising, 3.0)
	require.Less(t, rising, 5.0)
}

func TestCoefficientOfVariation(t *testing.T) {
	require.Equal(t, 0.0, coefficientOfVariation(nil))
	require.Equal(t, 0.0, coefficientOfVariation([]float64{2, 2, 2}))

	// Population stdev of {90,100,110} is sqrt(200/3); mean 100.
	cv := coefficientOfVariation([]float64{90, 100, 110})
	require.InDelta(t, 0.0816496580927726, cv, 1e-12)
}
