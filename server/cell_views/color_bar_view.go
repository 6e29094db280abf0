package cell_views

import (
	"html/template"
	"math"
	"strconv"
	"strings"

	"brheatmap/server/fastview"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	ColorBarId         = "color-bar"
	ColorBarGradientId = "color-bar-gradient"
	ColorBarMinId      = "color-bar-min"
	ColorBarMaxId      = "color-bar-max"

	// Gradient stops sampled across the domain.
	colorBarSamples = 32
	// Domains spanning more than this ratio are sampled geometrically.
	geometricRatio = 100.0
)

// ColorBar is the legend of the active mapping. The controller drives it directly: Init once
// the first rows arrive, Update on every mapping it builds.
type ColorBar struct {
	done    <-chan struct{}
	updates chan []fastview.EleUpdate
}

func NewColorBar(done <-chan struct{}) *ColorBar {
	return &ColorBar{
		done:    done,
		updates: make(chan []fastview.EleUpdate),
	}
}

func (bar *ColorBar) Updates() <-chan []fastview.EleUpdate {
	return bar.updates
}

// Init reveals the legend.
func (bar *ColorBar) Init() {
	bar.publish([]fastview.EleUpdate{{
		EleId: ColorBarId,
		Ops:   []fastview.Op{{Key: "visibility", Value: "visible"}},
	}})
}

// Update redraws the gradient for the domain [min,max].
func (bar *ColorBar) Update(min, max float64, toColor func(float64) colorful.Color) {
	bar.publish(colorBarOps(min, max, toColor))
}

func colorBarOps(min, max float64, toColor func(float64) colorful.Color) []fastview.EleUpdate {
	var stops strings.Builder
	for _, v := range samples(min, max, colorBarSamples) {
		stops.WriteString(`<stop offset="` + num(100*v.at) + `%" stop-color="` + toColor(v.value).Hex() + `"></stop>`)
	}

	return []fastview.EleUpdate{
		{
			EleId: ColorBarGradientId,
			Ops:   []fastview.Op{{Key: fastview.InnerHTML, Value: stops.String()}},
		},
		{
			EleId: ColorBarMinId,
			Ops:   []fastview.Op{{Key: fastview.TextContent, Value: label(min)}},
		},
		{
			EleId: ColorBarMaxId,
			Ops:   []fastview.Op{{Key: fastview.TextContent, Value: label(max)}},
		},
	}
}

type sample struct {
	// Position along the bar in [0,1].
	at    float64
	value float64
}

// samples spreads n values over [min,max], evenly along the bar. Wide positive domains are
// spaced geometrically so the low end of a log mapping is not a single stop.
func samples(min, max float64, n int) []sample {
	geometric := min > 0 && max/min > geometricRatio
	out := make([]sample, n)
	for i := range out {
		t := float64(i) / float64(n-1)
		v := min + t*(max-min)
		if geometric {
			v = min * math.Pow(max/min, t)
		}
		out[i] = sample{at: t, value: v}
	}
	return out
}

func label(v float64) string {
	return strconv.FormatFloat(v, 'g', 3, 64)
}

func (bar *ColorBar) publish(ops []fastview.EleUpdate) {
	select {
	case bar.updates <- ops:
	case <-bar.done:
	}
}

// Parse defines the hidden legend skeleton.
func (bar *ColorBar) Parse(t *template.Template) (name string, err error) {
	name = "colorbar"
	_, err = t.Parse(`{{ define "` + name + `" }}
	<svg id="` + ColorBarId + `" xmlns="http://www.w3.org/2000/svg" width="320" height="44" visibility="hidden">
		<defs>
			<linearGradient id="` + ColorBarGradientId + `" x1="0%" y1="0%" x2="100%" y2="0%"></linearGradient>
		</defs>
		<rect x="10" y="4" width="300" height="18" fill="url(#` + ColorBarGradientId + `)" stroke="black"></rect>
		<text id="` + ColorBarMinId + `" x="10" y="38" text-anchor="start"></text>
		<text id="` + ColorBarMaxId + `" x="310" y="38" text-anchor="end"></text>
	</svg>
	{{ end }}`)
	return
}
