package heatmap

// band is a categorical scale dividing [start,end] into equal bands, one per domain value.
// A reversed range (start > end) puts the first value at the end of the axis.
type band struct {
	index      map[string]int
	domain     []string
	start, end float64
}

func newBand(domain []string, start, end float64) *band {
	index := make(map[string]int, len(domain))
	for i, d := range domain {
		index[d] = i
	}
	return &band{index: index, domain: domain, start: start, end: end}
}

// Bandwidth is the absolute size of one band.
func (b *band) Bandwidth() float64 {
	if len(b.domain) == 0 {
		return 0
	}
	w := (b.end - b.start) / float64(len(b.domain))
	if w < 0 {
		return -w
	}
	return w
}

// Pos returns the low coordinate of the band for value.
func (b *band) Pos(value string) (float64, bool) {
	i, ok := b.index[value]
	if !ok {
		return 0, false
	}
	if b.start <= b.end {
		return b.start + float64(i)*b.Bandwidth(), true
	}
	return b.start - float64(i+1)*b.Bandwidth(), true
}

// Tick is an axis label centered on its band.
type Tick struct {
	Label string
	Pos   float64
}

func (b *band) Ticks() []Tick {
	ticks := make([]Tick, 0, len(b.domain))
	for _, d := range b.domain {
		pos, _ := b.Pos(d)
		ticks = append(ticks, Tick{Label: d, Pos: pos + b.Bandwidth()/2})
	}
	return ticks
}
