package root_view

import (
	"context"
	"html/template"
	"time"

	"brheatmap/heatmap"
	"brheatmap/server/cell_views"
	"brheatmap/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// batchRate is the window within which updates for the same element are collapsed.
const batchRate = 20 * time.Millisecond

// Option is a selector choice.
type Option struct {
	Value string
	Label string
}

// Page is the data the page template is executed with.
type Page struct {
	Title        string
	Classes      []Option
	Modes        []Option
	Measurements []Option
	BRRanges     []Option
	GridWidth    float64
	GridHeight   float64
}

// RootView is the main page's index.html, which is the container for all the
// view components, the wiring for their channels, etc.
type RootView struct {
	views   []fastview.ViewComponent
	updates <-chan []fastview.EleUpdate
}

// NewRootView builds the frame-driven views over frames and aggregates them with the
// extra views, which the controller drives directly (color bar, line chart).
func NewRootView(
	ctx context.Context,
	frames <-chan heatmap.Frame,
	extra ...fastview.ViewComponent,
) (*RootView, error) {
	views, err := fastview.NewViewBuilder[heatmap.Frame, heatmap.Frame]().
		WithContext(ctx).
		WithModel(frames, func(frame heatmap.Frame) heatmap.Frame { return frame }).
		WithView(func(
			done <-chan struct{},
			frames <-chan heatmap.Frame) fastview.ViewComponent {
			return cell_views.NewHeatmapGrid(done, frames)
		}).
		WithFilteredView(heatmap.Frame.Redraws, func(
			done <-chan struct{},
			frames <-chan heatmap.Frame) fastview.ViewComponent {
			return cell_views.NewDateOptions(done, frames)
		}).
		Build()
	if err != nil {
		return nil, err
	}
	views = append(views, extra...)

	return &RootView{
		views:   views,
		updates: fanIn(ctx.Done(), views),
	}, nil
}

// Updates returns the main ele-update channel for all the views.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// Parse builds the main page's template, with websocket bootstrap code, and returns its name.
// The selectors live here: the controller reads them through the session, not through a view.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	viewTemplates := []string{}
	for _, vc := range rv.views {
		tname, parseErr := vc.Parse(parent)
		if parseErr != nil {
			err = parseErr
			return
		}
		viewTemplates = append(viewTemplates, tname)
	}

	var bodySpec string
	for _, tname := range viewTemplates {
		bodySpec += (`{{ template "` + tname + `" . }}`)
	}

	name = "mainpage"
	indexTemplate := `
	{{ define "selector" }}
		<label>{{ .Label }}
			<select id="{{ .Id }}" class="selector">
			{{ range .Options }}<option value="{{ .Value }}">{{ .Label }}</option>{{ end }}
			</select>
		</label>
	{{ end }}
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<title>{{ .Title }}</title>
			<link rel="icon" href="data:,">
			<style>
				#heatmap-cells rect { stroke: black; stroke-width: 1; }
				#heatmap-cells rect:hover { stroke: white; stroke-width: 2; }
				#heatmap-cells.animated rect { transition: fill 0.5s; }
				.axis text { font: 11px sans-serif; }
			</style>
			<!--This is the client bootstrap code by which the server pushes new data to the view via websocket.-->
			<script>
				const scheme = location.protocol === "https:" ? "wss://" : "ws://";
				const ws = new WebSocket(scheme + location.host + "/ws");
				const selectorIds = {
					date: "date-selection",
					class: "class-selection",
					mode: "mode-selection",
					measurement: "measurement-selection",
					br_range: "br-range-selection",
				};

				function sendSelectors() {
					const msg = { kind: "selectors" };
					for (const [key, id] of Object.entries(selectorIds)) {
						msg[key] = document.getElementById(id).value;
					}
					ws.send(JSON.stringify(msg));
				}

				ws.onopen = function (event) {
					console.log("Web socket opened");
					for (const id of Object.values(selectorIds)) {
						document.getElementById(id).addEventListener("change", sendSelectors);
					}
					document.getElementById("heatmap-cells").addEventListener("click", function (event) {
						const cell = event.target.closest("rect.cell");
						if (cell) {
							ws.send(JSON.stringify({ kind: "click", nation: cell.dataset.nation, br: cell.dataset.br }));
						}
					});
					sendSelectors();
				};

				// Listen for errors
				ws.onerror = function (event) {
					console.log('WebSocket error: ', event);
				};

				// The meat: when the server pushes view updates, find these eles and update them.
				ws.onmessage = function (event) {
					const items = JSON.parse(event.data);
					for (const update of items) {
						const ele = document.getElementById(update.EleId);
						if (!ele) {
							continue;
						}
						for (const op of update.Ops) {
							if (op.Key === "textContent") {
								ele.textContent = op.Value;
							} else if (op.Key === "innerHTML") {
								ele.innerHTML = op.Value;
							} else {
								ele.setAttribute(op.Key, op.Value);
							}
						}
					}
				};
			</script>
		</head>
		<body>
			<h3>{{ .Title }}</h3>
			<div id="selectors">
				<label>date
					<select id="date-selection" class="selector"><option value="">` + cell_views.LatestLabel + `</option></select>
				</label>
				{{ template "selector" (selector "class" "class-selection" .Classes) }}
				{{ template "selector" (selector "mode" "mode-selection" .Modes) }}
				{{ template "selector" (selector "measurement" "measurement-selection" .Measurements) }}
				{{ template "selector" (selector "bracket range" "br-range-selection" .BRRanges) }}
			</div>
		` + bodySpec + `
		</body></html>
	{{ end }}
	`

	_, err = parent.Funcs(template.FuncMap{"selector": selector}).Parse(indexTemplate)
	return
}

type selectorModel struct {
	Label   string
	Id      string
	Options []Option
}

func selector(label, id string, options []Option) selectorModel {
	return selectorModel{Label: label, Id: id, Options: options}
}

// fanIn aggregates the views' ele-update channels into a single, batched channel.
func fanIn(
	done <-chan struct{},
	views []fastview.ViewComponent,
) <-chan []fastview.EleUpdate {
	inputs := make([]<-chan []fastview.EleUpdate, len(views))
	for i, view := range views {
		inputs[i] = view.Updates()
	}
	return batchify(
		done,
		channerics.Merge(done, inputs...),
		batchRate)
}

// batchify collects updates for up to rate before sending them as one batch. Ops for the
// same ele-id are merged, later values winning, and the batch keeps arrival order for
// everything a merge could reorder (see orderedBatch). A batch left over when the source
// goes quiet is flushed on the next tick.
func batchify(
	done <-chan struct{},
	source <-chan []fastview.EleUpdate,
	rate time.Duration,
) <-chan []fastview.EleUpdate {
	output := make(chan []fastview.EleUpdate)

	go func() {
		defer close(output)

		var batch orderedBatch
		ticker := channerics.NewTicker(done, rate)
		flush := func() bool {
			if batch.Len() == 0 {
				return true
			}
			select {
			case output <- batch.Drain():
				return true
			case <-done:
				return false
			}
		}

		input := channerics.OrDone(done, source)
		for {
			select {
			case updates, ok := <-input:
				if !ok {
					flush()
					return
				}
				for _, update := range updates {
					batch.Add(update)
				}
			case <-ticker:
				if !flush() {
					return
				}
			case <-done:
				return
			}
		}
	}()

	return output
}

// orderedBatch merges updates by ele-id in first-seen order. An innerHTML op may replace
// elements patched elsewhere in the batch, so it is never merged backwards, and nothing
// that arrives after it is merged into an entry before it.
type orderedBatch struct {
	index   map[string]int
	updates []fastview.EleUpdate
	// Position of the last entry carrying an innerHTML op, or -1.
	barrier int
}

func (b *orderedBatch) Add(update fastview.EleUpdate) {
	if b.index == nil {
		b.index = map[string]int{}
		b.barrier = -1
	}
	rebuild := hasInnerHTML(update)
	if i, ok := b.index[update.EleId]; ok && !rebuild && i > b.barrier {
		b.updates[i].Merge(update)
		return
	}

	b.index[update.EleId] = len(b.updates)
	if rebuild {
		b.barrier = len(b.updates)
	}
	b.updates = append(b.updates, fastview.EleUpdate{
		EleId: update.EleId,
		Ops:   append([]fastview.Op(nil), update.Ops...),
	})
}

func hasInnerHTML(update fastview.EleUpdate) bool {
	for _, op := range update.Ops {
		if op.Key == fastview.InnerHTML {
			return true
		}
	}
	return false
}

func (b *orderedBatch) Len() int {
	return len(b.updates)
}

// Drain returns the batch and resets it.
func (b *orderedBatch) Drain() []fastview.EleUpdate {
	out := b.updates
	b.updates = nil
	b.index = nil
	return out
}
