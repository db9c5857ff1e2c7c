package backtest

import (
	"fmt"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteReport renders the equity curve and drawdown of a run to a
// standalone HTML file.
func WriteReport(path, title string, snapshots []Snapshot, results Results) error {
	if len(snapshots) == 0 {
		return fmt.Errorf("report: no snapshots to render")
	}

	xAxis := make([]string, 0, len(snapshots))
	equity := make([]opts.LineData, 0, len(snapshots))
	drawdown := make([]opts.LineData, 0, len(snapshots))

	peak := snapshots[0].Value
	for _, s := range snapshots {
		xAxis = append(xAxis, time.UnixMilli(s.Timestamp).UTC().Format("2006-01-02 15:04:05"))
		equity = append(equity, opts.LineData{Value: s.Value})
		if s.Value > peak {
			peak = s.Value
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - s.Value) / peak * 100
		}
		drawdown = append(drawdown, opts.LineData{Value: dd})
	}

	equityLine := charts.NewLine()
	equityLine.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("return %.2f%% · sharpe %.2f · maxDD %.2f%% · trades %d", results.TotalReturn*100, results.SharpeRatio, results.MaxDrawdown*100, results.TotalTrades),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	equityLine.SetXAxis(xAxis).AddSeries("equity", equity,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	ddLine := charts.NewLine()
	ddLine.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Drawdown %"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	ddLine.SetXAxis(xAxis).AddSeries("drawdown", drawdown,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	page := components.NewPage()
	page.AddCharts(equityLine, ddLine)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}
