package generators

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/thebunny221/smartcms-export/internal/models"
)

// RenderTrendChart renders the monthly submitted/resolved trend as a PNG for
// embedding in the PDF report. Two series: submitted (blue solid) and
// resolved (green dashed). Returns raw PNG bytes.
func RenderTrendChart(trend []models.TrendPoint) ([]byte, error) {
	if len(trend) < 2 {
		return nil, fmt.Errorf("need at least 2 trend points, got %d", len(trend))
	}

	xValues := make([]time.Time, len(trend))
	submittedY := make([]float64, len(trend))
	resolvedY := make([]float64, len(trend))

	for i, tp := range trend {
		month, err := time.Parse("2006-01", tp.Month)
		if err != nil {
			return nil, fmt.Errorf("bad trend month '%s': %w", tp.Month, err)
		}
		xValues[i] = month
		submittedY[i] = float64(tp.Submitted)
		resolvedY[i] = float64(tp.Resolved)
	}

	submittedSeries := chart.TimeSeries{
		Name: "Submitted",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: submittedY,
	}

	resolvedSeries := chart.TimeSeries{
		Name: "Resolved",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("16a34a"), // green-600
			StrokeWidth:     2.0,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: resolvedY,
	}

	graph := chart.Chart{
		Title:  "Complaint Trend",
		Width:  900,
		Height: 360,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			submittedSeries,
			resolvedSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
