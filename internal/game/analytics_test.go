package game

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestSimpleMovingAverage(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	got := simpleMovingAverage(series, 5)
	if got == nil || !almostEqual(*got, 8) {
		t.Fatalf("got %v want 8", got)
	}
	if simpleMovingAverage(series, 11) != nil {
		t.Fatalf("short series must yield nil")
	}
	if simpleMovingAverage(series, 0) != nil {
		t.Fatalf("zero period must yield nil")
	}
}

func TestExponentialMovingAverage(t *testing.T) {
	flat := []float64{50, 50, 50, 50, 50, 50, 50}
	got := exponentialMovingAverage(flat, 7)
	if got == nil || !almostEqual(*got, 50) {
		t.Fatalf("flat series EMA: got %v want 50", got)
	}

	rising := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	ema := exponentialMovingAverage(rising, 7)
	sma := simpleMovingAverage(rising, 7)
	if ema == nil || sma == nil {
		t.Fatalf("expected values for rising series")
	}
	if *ema <= *sma {
		t.Fatalf("EMA should track a rising series closer than SMA: ema=%f sma=%f", *ema, *sma)
	}
}

func TestRelativeStrengthIndex(t *testing.T) {
	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = float64(100 + i)
	}
	got := relativeStrengthIndex(rising, 14)
	if got == nil || *got != 100 {
		t.Fatalf("monotonic rise must be RSI 100, got %v", got)
	}

	falling := make([]float64, 20)
	for i := range falling {
		falling[i] = float64(200 - i)
	}
	got = relativeStrengthIndex(falling, 14)
	if got == nil || !almostEqual(*got, 0) {
		t.Fatalf("monotonic fall must be RSI 0, got %v", got)
	}

	if relativeStrengthIndex(rising[:10], 14) != nil {
		t.Fatalf("short series must yield nil")
	}
}

func TestBollingerBands(t *testing.T) {
	series := make([]float64, 25)
	for i := range series {
		series[i] = 100
	}
	upper, middle, lower := bollingerBands(series, 20, 2.0)
	if middle == nil || !almostEqual(*middle, 100) {
		t.Fatalf("middle band: got %v want 100", middle)
	}
	if !almostEqual(*upper, 100) || !almostEqual(*lower, 100) {
		t.Fatalf("zero variance must collapse bands: upper=%v lower=%v", upper, lower)
	}

	series[24] = 200
	upper, middle, lower = bollingerBands(series, 20, 2.0)
	if *upper <= *middle || *lower >= *middle {
		t.Fatalf("bands must straddle the middle: upper=%f middle=%f lower=%f", *upper, *middle, *lower)
	}
}

func TestClassifyTrend(t *testing.T) {
	short, long := 110.0, 100.0
	if got := classifyTrend(&short, &long, nil); got != "rising" {
		t.Fatalf("got %q want rising", got)
	}
	short = 90
	if got := classifyTrend(&short, &long, nil); got != "falling" {
		t.Fatalf("got %q want falling", got)
	}
	short = 100.5
	if got := classifyTrend(&short, &long, nil); got != "flat" {
		t.Fatalf("got %q want flat", got)
	}

	// Falls back to endpoints when the averages are unavailable.
	if got := classifyTrend(nil, nil, []float64{100, 110}); got != "rising" {
		t.Fatalf("endpoint fallback: got %q want rising", got)
	}
	if got := classifyTrend(nil, nil, []float64{100}); got != "flat" {
		t.Fatalf("single point: got %q want flat", got)
	}
}
