package cell_views

import (
	"bytes"
	"html/template"
	"math"
	"sort"
	"strings"

	"brheatmap/models"
	"brheatmap/server/fastview"

	"github.com/rs/zerolog"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	LineChartId = "line-chart"

	chartWidth  = 640
	chartHeight = 320
	// Date labels drawn on the x axis at most.
	maxDateTicks = 8
)

// SeriesSource provides the history of the selected cells.
type SeriesSource interface {
	Series() []models.Series
}

// LineChart plots the selected cells over time. Update pulls the series from the bound
// source on the caller's goroutine and publishes the rendered svg.
type LineChart struct {
	done    <-chan struct{}
	updates chan []fastview.EleUpdate
	source  SeriesSource
	log     zerolog.Logger
}

func NewLineChart(done <-chan struct{}, logger zerolog.Logger) *LineChart {
	return &LineChart{
		done:    done,
		updates: make(chan []fastview.EleUpdate),
		log:     logger.With().Str("component", "line_chart").Logger(),
	}
}

// Bind sets the series source. It must be called before the first Update.
func (lc *LineChart) Bind(source SeriesSource) {
	lc.source = source
}

func (lc *LineChart) Updates() <-chan []fastview.EleUpdate {
	return lc.updates
}

// Init shows the (empty) chart container.
func (lc *LineChart) Init() {
	lc.publish([]fastview.EleUpdate{{
		EleId: LineChartId,
		Ops: []fastview.Op{
			{Key: "style", Value: "display: block;"},
			{Key: fastview.InnerHTML, Value: ""},
		},
	}})
}

// Update redraws the chart from the current series; no selection clears it.
func (lc *LineChart) Update() {
	if lc.source == nil {
		return
	}
	markup, err := renderLineChart(lc.source.Series())
	if err != nil {
		lc.log.Error().Err(err).Msg("line chart render failed")
		return
	}
	lc.publish([]fastview.EleUpdate{{
		EleId: LineChartId,
		Ops:   []fastview.Op{{Key: fastview.InnerHTML, Value: markup}},
	}})
}

// renderLineChart returns the svg markup of series, or "" when there is nothing to plot.
// Dates are placed by rank in the union of all series' dates, so the x axis needs no
// particular date format.
func renderLineChart(series []models.Series) (string, error) {
	dates := dateUnion(series)
	if len(dates) == 0 {
		return "", nil
	}
	rank := make(map[string]int, len(dates))
	for i, d := range dates {
		rank[d] = i
	}

	minY, maxY := math.MaxFloat64, -math.MaxFloat64
	plotted := []chart.Series{}
	for _, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		xs := make([]float64, 0, len(s.Points))
		ys := make([]float64, 0, len(s.Points))
		for _, p := range s.Points {
			xs = append(xs, float64(rank[p.Date]))
			ys = append(ys, p.Value)
			minY = math.Min(minY, p.Value)
			maxY = math.Max(maxY, p.Value)
		}
		// go-chart needs two points to draw a series.
		if len(xs) == 1 {
			xs = append(xs, xs[0])
			ys = append(ys, ys[0])
		}

		color := drawing.ColorFromHex(strings.TrimPrefix(s.Color, "#"))
		plotted = append(plotted, chart.ContinuousSeries{
			Name:    s.Key.Nation + " " + s.Key.Bracket,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    3,
			},
		})
	}

	if minY == maxY {
		pad := math.Max(math.Abs(minY)*0.1, 0.5)
		minY, maxY = minY-pad, maxY+pad
	}

	graph := chart.Chart{
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: math.Max(float64(len(dates)-1), 1)},
			Ticks: dateTicks(dates),
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: minY, Max: maxY},
		},
		Series: plotted,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func dateUnion(series []models.Series) []string {
	seen := map[string]bool{}
	dates := []string{}
	for _, s := range series {
		for _, p := range s.Points {
			if !seen[p.Date] {
				seen[p.Date] = true
				dates = append(dates, p.Date)
			}
		}
	}
	sort.Strings(dates)
	return dates
}

// dateTicks labels at most maxDateTicks evenly spaced dates, always including the last.
func dateTicks(dates []string) (ticks []chart.Tick) {
	step := (len(dates) + maxDateTicks - 1) / maxDateTicks
	if step < 1 {
		step = 1
	}
	for i := 0; i < len(dates); i += step {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: dates[i]})
	}
	if last := len(dates) - 1; last%step != 0 {
		ticks = append(ticks, chart.Tick{Value: float64(last), Label: dates[last]})
	}
	return
}

func (lc *LineChart) publish(ops []fastview.EleUpdate) {
	select {
	case lc.updates <- ops:
	case <-lc.done:
	}
}

// Parse defines the chart container, hidden until the first rows arrive.
func (lc *LineChart) Parse(t *template.Template) (name string, err error) {
	name = "linechart"
	_, err = t.Parse(`{{ define "` + name + `" }}
	<div id="` + LineChartId + `" style="display: none;"></div>
	{{ end }}`)
	return
}
