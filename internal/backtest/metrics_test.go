package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const tol = 1e-6

func TestMetricsOnKnownSeries(t *testing.T) {
	snaps := []Snapshot{
		{Timestamp: 0, Value: 100_000},
		{Timestamp: 86_400_000, Value: 101_000},
		{Timestamp: 2 * 86_400_000, Value: 99_000},
		{Timestamp: 3 * 86_400_000, Value: 102_000},
	}

	r := ComputeResults(snaps, 100_000, 0.02)

	assert.InDelta(t, 0.02, r.TotalReturn, tol)
	assert.InDelta(t, 2_000, r.TotalReturnDollars, tol)
	assert.InDelta(t, (101_000.0-99_000.0)/101_000.0, r.MaxDrawdown, tol)
	assert.InDelta(t, 2_000, r.MaxDrawdownDollars, tol)
	assert.InDelta(t, 3.0, r.DurationDays, tol)
	assert.Equal(t, int64(0), r.StartTime)
	assert.Equal(t, int64(3*86_400_000), r.EndTime)
}

func TestTotalReturn(t *testing.T) {
	assert.InDelta(t, 0.5, TotalReturn(100, 150), tol)
	assert.InDelta(t, -0.25, TotalReturn(100, 75), tol)
	assert.Equal(t, 0.0, TotalReturn(0, 100), "zero initial value yields zero, not infinity")
}

func TestSharpeRatio(t *testing.T) {
	assert.Equal(t, 0.0, SharpeRatio(nil, 0.02))
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01}, 0.02), "one return has no deviation")
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01, 0.01, 0.01}, 0.02), "constant returns have zero stdev")

	// Hand-computed: returns [0.01, -0.01], rf 0.
	// mean = 0, stdev = sqrt((0.0001+0.0001)/1) -> sharpe = 0.
	assert.InDelta(t, 0.0, SharpeRatio([]float64{0.01, -0.01}, 0.0), tol)

	// returns [0.02, 0.01], rf 0: mean 0.015, stdev (Bessel) ~0.007071.
	want := 0.015 / math.Sqrt(2*0.005*0.005/1.0) * math.Sqrt(252)
	assert.InDelta(t, want, SharpeRatio([]float64{0.02, 0.01}, 0.0), 1e-4)
}

func TestMaxDrawdown(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown(nil))
	assert.Equal(t, 0.0, MaxDrawdown([]float64{100, 110, 120}), "monotone rise never draws down")
	assert.InDelta(t, 0.5, MaxDrawdown([]float64{100, 200, 100, 150}), tol)
	assert.InDelta(t, 0.25, MaxDrawdown([]float64{100, 80, 75, 90}), tol)
}

func TestTradeStatisticsFromRealizedDiffs(t *testing.T) {
	snaps := []Snapshot{
		{Timestamp: 1, Value: 100_000, RealizedPnL: 0},
		{Timestamp: 2, Value: 100_500, RealizedPnL: 500},   // win
		{Timestamp: 3, Value: 100_500, RealizedPnL: 500},   // no trade
		{Timestamp: 4, Value: 100_200, RealizedPnL: 200},   // loss of 300
		{Timestamp: 5, Value: 100_200, RealizedPnL: 200.005}, // below the 1e-2 tolerance
		{Timestamp: 6, Value: 101_200, RealizedPnL: 1_200}, // win of ~1000
	}

	r := ComputeResults(snaps, 100_000, 0.02)

	assert.Equal(t, 3, r.TotalTrades)
	assert.Equal(t, 2, r.WinningTrades)
	assert.Equal(t, 1, r.LosingTrades)
	assert.InDelta(t, 2.0/3.0, r.WinRate, tol)
	assert.InDelta(t, 999.995, r.LargestWin, 1e-2)
	assert.InDelta(t, -300.0, r.LargestLoss, 1e-2, "largest loss is signed")
	assert.InDelta(t, (500+999.995)/2, r.AverageWin, 1e-2)
	assert.InDelta(t, 300.0, r.AverageLoss, 1e-2)
	assert.InDelta(t, (500+999.995)/300.0, r.ProfitFactor, 1e-3)
}

func TestProfitFactorZeroWhenNoLosses(t *testing.T) {
	snaps := []Snapshot{
		{Timestamp: 1, Value: 100_000, RealizedPnL: 0},
		{Timestamp: 2, Value: 100_500, RealizedPnL: 500},
	}
	r := ComputeResults(snaps, 100_000, 0.02)
	assert.Equal(t, 0.0, r.ProfitFactor)
	assert.Equal(t, 0.0, r.AverageLoss)
}

func TestEmptySnapshots(t *testing.T) {
	r := ComputeResults(nil, 100_000, 0.02)
	assert.Zero(t, r.TotalReturn)
	assert.Zero(t, r.TotalTrades)
}

func TestStepReturnsSkipZeroBase(t *testing.T) {
	got := stepReturns([]float64{100, 0, 50})
	assert.Equal(t, []float64{-1}, got, "the step off a zero value is skipped")
}
