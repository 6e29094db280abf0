// color_pool assigns categorical colors to selected cells for the line chart.
package color_pool

import (
	"errors"

	"brheatmap/models"

	"github.com/lucasb-eyer/go-colorful"
)

// Category10 is the d3 categorical palette.
var Category10 = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

type binding struct {
	key   models.CellKey
	color colorful.Color
}

// Pool hands out palette colors round-robin and remembers every binding for
// its lifetime. Once the palette is exhausted colors are reused.
type Pool struct {
	values   []colorful.Color
	i        int
	bindings []binding
}

var ErrEmptyPalette error = errors.New("color pool requires at least one color")

// New parses the hex palette into a pool.
func New(palette []string) (*Pool, error) {
	if len(palette) == 0 {
		return nil, ErrEmptyPalette
	}
	values := make([]colorful.Color, 0, len(palette))
	for _, hex := range palette {
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, err
		}
		values = append(values, c)
	}
	return &Pool{values: values}, nil
}

// Get returns the color bound to key, binding the next palette color on first sight.
func (pool *Pool) Get(key models.CellKey) colorful.Color {
	for _, b := range pool.bindings {
		if b.key == key {
			return b.color
		}
	}

	out := pool.values[pool.i]
	pool.i = (pool.i + 1) % len(pool.values)
	pool.bindings = append(pool.bindings, binding{key: key, color: out})
	return out
}

// Len is the number of bindings made so far.
func (pool *Pool) Len() int {
	return len(pool.bindings)
}
