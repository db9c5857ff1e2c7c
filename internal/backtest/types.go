package backtest

import (
	"fmt"
	"strings"
)

// TradeRecord is one row of the historical trade log. Timestamps are
// Unix milliseconds.
type TradeRecord struct {
	Timestamp int64
	Symbol    string
	Price     float64
	Volume    int64
}

// Snapshot captures portfolio state at one replay step.
type Snapshot struct {
	Timestamp     int64
	Value         float64
	Cash          float64
	RealizedPnL   float64
	UnrealizedPnL float64
}

// Results aggregates the performance metrics of one run.
type Results struct {
	TotalReturn        float64
	TotalReturnDollars float64
	TotalTrades        int
	WinningTrades      int
	LosingTrades       int

	SharpeRatio        float64
	MaxDrawdown        float64
	MaxDrawdownDollars float64

	WinRate      float64
	AverageWin   float64
	AverageLoss  float64
	ProfitFactor float64
	LargestWin   float64
	LargestLoss  float64

	StartTime    int64
	EndTime      int64
	DurationDays float64
}

func (r Results) String() string {
	var b strings.Builder
	b.WriteString("\n=== Backtest Results ===\n")
	fmt.Fprintf(&b, "Total Return: %.2f%%\n", r.TotalReturn*100)
	fmt.Fprintf(&b, "Total Return ($): $%.2f\n", r.TotalReturnDollars)
	fmt.Fprintf(&b, "Sharpe Ratio: %.4f\n", r.SharpeRatio)
	fmt.Fprintf(&b, "Max Drawdown: %.2f%%\n", r.MaxDrawdown*100)
	fmt.Fprintf(&b, "Max Drawdown ($): $%.2f\n", r.MaxDrawdownDollars)
	b.WriteString("\nTrade Statistics:\n")
	fmt.Fprintf(&b, "Total Trades: %d\n", r.TotalTrades)
	fmt.Fprintf(&b, "Winning Trades: %d\n", r.WinningTrades)
	fmt.Fprintf(&b, "Losing Trades: %d\n", r.LosingTrades)
	fmt.Fprintf(&b, "Win Rate: %.2f%%\n", r.WinRate*100)
	fmt.Fprintf(&b, "Average Win: $%.2f\n", r.AverageWin)
	fmt.Fprintf(&b, "Average Loss: $%.2f\n", r.AverageLoss)
	fmt.Fprintf(&b, "Profit Factor: %.2f\n", r.ProfitFactor)
	fmt.Fprintf(&b, "Largest Win: $%.2f\n", r.LargestWin)
	fmt.Fprintf(&b, "Largest Loss: $%.2f\n", r.LargestLoss)
	fmt.Fprintf(&b, "\nDuration: %.2f days\n", r.DurationDays)
	return b.String()
}
