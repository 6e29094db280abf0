package scale

import (
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// Stop is a ramp breakpoint in [0,1] and its color.
type Stop struct {
	At    float64
	Color colorful.Color
}

// Ramp is a piecewise color gradient. Stops are sorted by At in ascending order.
type Ramp []Stop

// NewRamp pairs breakpoints with colors. When the lists differ in length only the
// shorter prefix is used, so a trailing breakpoint without a color is ignored.
func NewRamp(breaks []float64, colors []colorful.Color) Ramp {
	n := len(breaks)
	if len(colors) < n {
		n = len(colors)
	}
	ramp := make(Ramp, n)
	for i := 0; i < n; i++ {
		ramp[i] = Stop{At: breaks[i], Color: colors[i]}
	}
	sort.SliceStable(ramp, func(i, j int) bool { return ramp[i].At < ramp[j].At })
	return ramp
}

// achromatic is the chroma below which a color's hue is meaningless.
const achromatic = 1e-3

// At returns the color at t, blending the two surrounding stops in HCL space.
// Values outside the outermost stops take the color of the nearest end.
func (r Ramp) At(t float64) colorful.Color {
	idx := sort.Search(len(r), func(i int) bool {
		return r[i].At >= t
	})
	if idx == len(r) {
		return r[idx-1].Color
	}
	if idx == 0 || r[idx].At == t {
		return r[idx].Color
	}
	lo, hi := r[idx-1], r[idx]
	ratio := (t - lo.At) / (hi.At - lo.At)
	return blendHcl(lo.Color, hi.Color, ratio)
}

// blendHcl interpolates hue along the shorter arc, chroma and luminance linearly. A gray,
// black or white end has no hue of its own and takes the other end's, so fading to black
// darkens along one hue instead of sweeping through the wheel.
func blendHcl(from, to colorful.Color, t float64) colorful.Color {
	h1, c1, l1 := from.Hcl()
	h2, c2, l2 := to.Hcl()
	if c1 < achromatic {
		h1 = h2
	} else if c2 < achromatic {
		h2 = h1
	}

	delta := math.Mod(h2-h1+540, 360) - 180
	h := math.Mod(h1+t*delta+360, 360)
	return colorful.Hcl(h, c1+t*(c2-c1), l1+t*(l2-l1)).Clamped()
}
