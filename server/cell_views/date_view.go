package cell_views

import (
	"html/template"
	"slices"
	"strconv"

	"brheatmap/heatmap"
	"brheatmap/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

const (
	DateSelectId = "date-selection"
	CaptionId    = "heatmap-caption"
)

// LatestLabel is the label of the empty date option, which draws the latest date of the class.
const LatestLabel = "latest"

var optionsTemplate = template.Must(template.New("options").Parse(
	`<option value=""{{ if .Latest }} selected{{ end }}>` + LatestLabel + `</option>` +
		`{{ $date := .Date }}{{ $latest := .Latest }}{{ range .Dates }}` +
		`<option value="{{ . }}"{{ if and (not $latest) (eq . $date) }} selected{{ end }}>{{ . }}</option>{{ end }}`))

// DateOptions keeps the date selector in step with the dates of the drawn class, and
// captions the grid with the date actually drawn.
type DateOptions struct {
	updates <-chan []fastview.EleUpdate
	// Owned by the conversion goroutine.
	dates []string
}

func NewDateOptions(
	done <-chan struct{},
	frames <-chan heatmap.Frame,
) *DateOptions {
	view := &DateOptions{}
	view.updates = channerics.Convert(done, frames, view.onFrame)
	return view
}

func (view *DateOptions) Updates() <-chan []fastview.EleUpdate {
	return view.updates
}

// onFrame replaces the options only when the date list changes, so an unchanged list never
// disturbs the user's current choice. Expects only frames that redraw; toggles carry no dates.
func (view *DateOptions) onFrame(frame heatmap.Frame) (ops []fastview.EleUpdate) {
	ops = append(ops, fastview.EleUpdate{
		EleId: CaptionId,
		Ops: []fastview.Op{{
			Key:   fastview.TextContent,
			Value: frame.Date + " (" + strconv.Itoa(len(frame.Cells)) + " cells)",
		}},
	})

	if slices.Equal(view.dates, frame.Dates) {
		return
	}
	view.dates = slices.Clone(frame.Dates)

	// Newest first, as the selector lists them.
	dates := slices.Clone(frame.Dates)
	slices.Reverse(dates)
	latest := len(dates) == 0 || dates[0] == frame.Date
	ops = append(ops, fastview.EleUpdate{
		EleId: DateSelectId,
		Ops: []fastview.Op{{
			Key: fastview.InnerHTML,
			Value: render(optionsTemplate, struct {
				Dates  []string
				Date   string
				Latest bool
			}{Dates: dates, Date: frame.Date, Latest: latest}),
		}},
	})
	return
}

// Parse defines the caption; the date selector itself belongs to the page.
func (view *DateOptions) Parse(t *template.Template) (name string, err error) {
	name = "dateoptions"
	_, err = t.Parse(`{{ define "` + name + `" }}
	<p id="` + CaptionId + `" class="caption"></p>
	{{ end }}`)
	return
}
