package structure

import (
	"math"

	"OptionWatch/internal/domain/models"
)

// averageTrueRange returns the mean true range over all bars except the
// first. True range is max(high-low, |high-prevClose|, |low-prevClose|).
func averageTrueRange(bars []models.Bar) float64 {
	if len(bars) < 2 {
		return 0
	}
	sum := 0.0
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		sum += math.Max(hl, math.Max(hc, lc))
	}
	return sum / float64(len(bars)-1)
}

// ewmMean returns the last value of an exponentially weighted mean with the
// given span, seeded from the full series (weights (1-a)^k over all history,
// a = 2/(span+1)), so early values still contribute on short series.
func ewmMean(values []float64, span int) float64 {
	if len(values) == 0 {
		return 0
	}
	alpha := 2.0 / (float64(span) + 1.0)
	decay := 1.0 - alpha
	var num, den float64
	w := 1.0
	for i := len(values) - 1; i >= 0; i-- {
		num += values[i] * w
		den += w
		w *= decay
	}
	return num / den
}

// coefficientOfVariation returns population stdev divided by mean, or 0 for
// an empty or zero-mean series.
func coefficientOfVariation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss/float64(len(values))) / mean
}
