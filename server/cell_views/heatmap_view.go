// cell_views contains the views of the heatmap page: the cell grid and the captions
// driven by controller frames, and the color bar and line chart driven by the controller's
// collaborator calls.
package cell_views

import (
	"bytes"
	"html/template"
	"strconv"

	"brheatmap/heatmap"
	"brheatmap/scale"
	"brheatmap/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// Element ids of the grid view; the page script and the tests look them up.
const (
	GridId   = "br-heatmap"
	CellsId  = "heatmap-cells"
	XAxisId  = "br-heatmap-x"
	YAxisId  = "br-heatmap-y"
	animated = "animated"
)

// Margins around the cell area, reserved for the axis labels.
const (
	marginLeft   = 50.0
	marginTop    = 10.0
	marginRight  = 10.0
	marginBottom = 40.0
)

var viewFuncs = template.FuncMap{"num": num}

// num prints svg coordinates without float noise.
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

var cellsTemplate = template.Must(template.New("cells").Funcs(viewFuncs).Parse(
	`{{ range . }}<rect id="{{ .Id }}" class="cell" data-nation="{{ .Nation }}" data-br="{{ .Bracket }}"` +
		` x="{{ num .X }}" y="{{ num .Y }}" width="{{ num .Width }}" height="{{ num .Height }}"` +
		` fill="{{ .Fill }}"><title>{{ .Nation }} {{ .Bracket }}: {{ .Value }}</title></rect>{{ end }}`))

var xAxisTemplate = template.Must(template.New("xaxis").Funcs(viewFuncs).Parse(
	`{{ $y := .Y }}{{ range .Ticks }}<text x="{{ num .Pos }}" y="{{ num $y }}" text-anchor="end"` +
		` transform="rotate(-35 {{ num .Pos }} {{ num $y }})">{{ .Label }}</text>{{ end }}`))

var yAxisTemplate = template.Must(template.New("yaxis").Funcs(viewFuncs).Parse(
	`{{ range .Ticks }}<text x="-6" y="{{ num .Pos }}" text-anchor="end" dominant-baseline="middle">{{ .Label }}</text>{{ end }}`))

// HeatmapGrid draws the cells and both axes. It remembers which cell ids are in the page so
// an update frame can patch fills in place, and falls back to a rebuild when it cannot.
type HeatmapGrid struct {
	updates <-chan []fastview.EleUpdate
	// Owned by the conversion goroutine.
	known map[string]bool
}

// NewHeatmapGrid returns a grid publishing the element updates for each frame.
func NewHeatmapGrid(
	done <-chan struct{},
	frames <-chan heatmap.Frame,
) *HeatmapGrid {
	grid := &HeatmapGrid{known: map[string]bool{}}
	grid.updates = channerics.Convert(done, frames, grid.onFrame)
	return grid
}

func (grid *HeatmapGrid) Updates() <-chan []fastview.EleUpdate {
	return grid.updates
}

func (grid *HeatmapGrid) onFrame(frame heatmap.Frame) (ops []fastview.EleUpdate) {
	switch frame.Kind {
	case heatmap.FrameBuild:
		ops = append(ops, grid.size(frame))
		ops = append(ops, grid.axes(frame)...)
		ops = append(ops, grid.rebuild(frame))
	case heatmap.FrameUpdate:
		ops = append(ops, grid.size(frame))
		ops = append(ops, grid.axes(frame)...)
		ops = append(ops, grid.recolor(frame)...)
	case heatmap.FrameToggle:
		for _, cell := range frame.Cells {
			if !grid.known[cell.Id()] {
				continue
			}
			ops = append(ops, fastview.EleUpdate{
				EleId: cell.Id(),
				Ops: []fastview.Op{
					{Key: "fill", Value: cell.Fill},
					{Key: "data-selected", Value: strconv.FormatBool(cell.Selected)},
				},
			})
		}
	}
	return
}

func (grid *HeatmapGrid) size(frame heatmap.Frame) fastview.EleUpdate {
	width, height := GridSize(frame.Width, frame.Height)
	return fastview.EleUpdate{
		EleId: GridId,
		Ops: []fastview.Op{
			{Key: "width", Value: num(width)},
			{Key: "height", Value: num(height)},
		},
	}
}

// rebuild replaces every rect of the cell group.
func (grid *HeatmapGrid) rebuild(frame heatmap.Frame) fastview.EleUpdate {
	grid.known = make(map[string]bool, len(frame.Cells))
	for _, cell := range frame.Cells {
		grid.known[cell.Id()] = true
	}
	return fastview.EleUpdate{
		EleId: CellsId,
		Ops: []fastview.Op{
			{Key: "class", Value: ""},
			{Key: fastview.InnerHTML, Value: render(cellsTemplate, frame.Cells)},
		},
	}
}

// recolor patches the rects in place. Rects absent from the frame are blanked; a frame
// carrying a cell the page does not have yet is rebuilt instead.
func (grid *HeatmapGrid) recolor(frame heatmap.Frame) (ops []fastview.EleUpdate) {
	present := make(map[string]bool, len(frame.Cells))
	for _, cell := range frame.Cells {
		if !grid.known[cell.Id()] {
			return []fastview.EleUpdate{grid.rebuild(frame)}
		}
		present[cell.Id()] = true
	}

	class := ""
	if frame.Transition {
		class = animated
	}
	ops = append(ops, fastview.EleUpdate{
		EleId: CellsId,
		Ops:   []fastview.Op{{Key: "class", Value: class}},
	})
	for _, cell := range frame.Cells {
		ops = append(ops, fastview.EleUpdate{
			EleId: cell.Id(),
			Ops: []fastview.Op{
				{Key: "fill", Value: cell.Fill},
				{Key: "data-selected", Value: strconv.FormatBool(cell.Selected)},
			},
		})
	}
	for id := range grid.known {
		if !present[id] {
			ops = append(ops, fastview.EleUpdate{
				EleId: id,
				Ops: []fastview.Op{
					{Key: "fill", Value: scale.Blank.Hex()},
					{Key: "data-selected", Value: "false"},
				},
			})
		}
	}
	return
}

func (grid *HeatmapGrid) axes(frame heatmap.Frame) []fastview.EleUpdate {
	return []fastview.EleUpdate{
		{
			EleId: XAxisId,
			Ops: []fastview.Op{{
				Key: fastview.InnerHTML,
				Value: render(xAxisTemplate, struct {
					Y     float64
					Ticks []heatmap.Tick
				}{Y: frame.Height + 14, Ticks: frame.XTicks}),
			}},
		},
		{
			EleId: YAxisId,
			Ops: []fastview.Op{{
				Key: fastview.InnerHTML,
				Value: render(yAxisTemplate, struct {
					Ticks []heatmap.Tick
				}{Ticks: frame.YTicks}),
			}},
		},
	}
}

// render executes a fragment template. The fragments only range over plain fields,
// so execution cannot fail on well-formed data.
func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}

// Parse defines the grid's svg skeleton; its groups are filled by the first build frame.
func (grid *HeatmapGrid) Parse(t *template.Template) (name string, err error) {
	name = "heatmapgrid"
	_, err = t.Parse(`{{ define "` + name + `" }}
	<svg id="` + GridId + `" xmlns="http://www.w3.org/2000/svg"
		width="{{ .GridWidth }}" height="{{ .GridHeight }}">
		<g transform="translate(` + num(marginLeft) + ` ` + num(marginTop) + `)">
			<g id="` + CellsId + `"></g>
			<g id="` + XAxisId + `" class="axis"></g>
			<g id="` + YAxisId + `" class="axis"></g>
		</g>
	</svg>
	{{ end }}`)
	return
}

// GridSize returns the size of the grid's svg for a cell area of width by height.
func GridSize(width, height float64) (float64, float64) {
	return width + marginLeft + marginRight, height + marginTop + marginBottom
}
