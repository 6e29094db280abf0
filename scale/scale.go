// scale converts raw measurements into colors in two stages: a normalizer maps the value
// into [0,1], then a class/measurement specific ramp maps that position to a color.
package scale

import (
	"errors"
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Class is a vehicle class as it appears in the data.
type Class string

// Measurement is the suffix of a mode-prefixed measurement column.
type Measurement string

const (
	GroundVehicles Class = "Ground_vehicles"
	Aviation       Class = "Aviation"

	WinRate     Measurement = "win_rate"
	BattleCount Measurement = "battles_sum"
)

var (
	White    = colorful.Color{R: 1, G: 1, B: 1}
	Black    = colorful.Color{}
	Red      = colorful.Color{R: 1}
	Yellow   = colorful.Color{R: 1, G: 1}
	Green    = colorful.Color{G: 1}
	Blank    = colorful.Color{R: 0xe0 / 255.0, G: 0xe0 / 255.0, B: 0xe0 / 255.0}
	Selected = colorful.Color{R: 0x1e / 255.0, G: 0x90 / 255.0, B: 1}
)

// Win rates span 0-100%. Battle counts are plotted on a log axis whose ends saturate.
var (
	winRateMin     = 0.0
	winRateMax     = 100.0
	battleCountMin = math.Pow(10, 2.5)
	battleCountMax = math.Pow(10, 5.5)
)

var (
	extremeColors     = []colorful.Color{White, Black, Red, Yellow, Green, Black, Black}
	battleCountColors = []colorful.Color{White, Black, Red, Yellow, Green, Black}

	groundWinRateRamp   = NewRamp([]float64{0, 0.05, 0.4, 0.5, 0.6, 0.95, 1.0}, extremeColors)
	aviationWinRateRamp = NewRamp([]float64{0, 0.01, 0.5, 0.6, 0.7, 0.99, 1.0}, extremeColors)
	battleCountRamp     = NewRamp([]float64{0, 0.01, 0.4, 0.5, 0.6, 0.99, 1.0}, battleCountColors)
)

// ErrUnconfiguredScale is returned for a class/measurement pair with no ramp.
// It is a configuration error, never a data error.
var ErrUnconfiguredScale error = errors.New("no color scale configured")

// Legend receives the domain and color function of every built mapping.
type Legend interface {
	Update(domainMin, domainMax float64, toColor func(float64) colorful.Color)
}

// Normalizer maps a raw value into [0,1].
type Normalizer func(float64) float64

// Linear returns a normalizer over [min,max], clamped.
func Linear(min, max float64) Normalizer {
	return func(val float64) float64 {
		return clamp((val - min) / (max - min))
	}
}

// Log returns a base-10 logarithmic normalizer over [min,max], clamped.
// Non-positive values saturate to the low end.
func Log(min, max float64) Normalizer {
	lmin, lmax := math.Log10(min), math.Log10(max)
	return func(val float64) float64 {
		if val <= 0 {
			return 0
		}
		return clamp((math.Log10(val) - lmin) / (lmax - lmin))
	}
}

func clamp(t float64) float64 {
	return math.Max(0, math.Min(1, t))
}

// Mapping is the active value to color function and the domain driving the legend.
type Mapping struct {
	DomainMin, DomainMax float64
	Logarithmic          bool
	normalize            Normalizer
	ramp                 Ramp
}

// Build returns the mapping for class and measurement and pushes it to the legend, if any.
func Build(class Class, measurement Measurement, legend Legend) (*Mapping, error) {
	mapping := &Mapping{}

	switch measurement {
	case WinRate:
		mapping.DomainMin, mapping.DomainMax = winRateMin, winRateMax
		mapping.normalize = Linear(winRateMin, winRateMax)
		switch class {
		case GroundVehicles:
			mapping.ramp = groundWinRateRamp
		case Aviation:
			mapping.ramp = aviationWinRateRamp
		}
	case BattleCount:
		mapping.DomainMin, mapping.DomainMax = battleCountMin, battleCountMax
		mapping.Logarithmic = true
		mapping.normalize = Log(battleCountMin, battleCountMax)
		mapping.ramp = battleCountRamp
	}

	if mapping.ramp == nil {
		return nil, fmt.Errorf("%w: class=%q measurement=%q", ErrUnconfiguredScale, class, measurement)
	}

	if legend != nil {
		legend.Update(mapping.DomainMin, mapping.DomainMax, mapping.RampColor)
	}
	return mapping, nil
}

// RampColor runs val through both stages, without the no-data rule.
func (m *Mapping) RampColor(val float64) colorful.Color {
	return m.ramp.At(m.normalize(val))
}

// ToColor is the cell color of val. Zero means nothing was recorded and is always Blank.
func (m *Mapping) ToColor(val float64) colorful.Color {
	if val == 0 {
		return Blank
	}
	return m.RampColor(val)
}

// Hex is ToColor as an svg fill.
func (m *Mapping) Hex(val float64) string {
	return m.ToColor(val).Hex()
}
