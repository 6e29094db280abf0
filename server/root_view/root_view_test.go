package root_view

import (
	"context"
	"html/template"
	"strings"
	"testing"
	"time"

	"brheatmap/heatmap"
	"brheatmap/server/fastview"

	. "github.com/smartystreets/goconvey/convey"
)

func op(id, key, value string) fastview.EleUpdate {
	return fastview.EleUpdate{EleId: id, Ops: []fastview.Op{{Key: key, Value: value}}}
}

func TestOrderedBatch(t *testing.T) {
	Convey("Given an ordered batch", t, func() {
		var batch orderedBatch

		Convey("Updates for the same id are merged in first-seen order", func() {
			batch.Add(op("a", "fill", "red"))
			batch.Add(op("b", "fill", "red"))
			batch.Add(op("a", "fill", "blue"))
			batch.Add(op("a", "stroke", "black"))

			out := batch.Drain()
			So(out, ShouldResemble, []fastview.EleUpdate{
				{EleId: "a", Ops: []fastview.Op{{Key: "fill", Value: "blue"}, {Key: "stroke", Value: "black"}}},
				{EleId: "b", Ops: []fastview.Op{{Key: "fill", Value: "red"}}},
			})
			So(batch.Len(), ShouldEqual, 0)
		})

		Convey("Nothing is merged back across an innerHTML rebuild", func() {
			batch.Add(op("cell", "fill", "red"))
			batch.Add(op("cells", fastview.InnerHTML, "<rect id='cell'/>"))
			batch.Add(op("cell", "fill", "blue"))

			out := batch.Drain()
			So(out, ShouldHaveLength, 3)
			So(out[1].EleId, ShouldEqual, "cells")
			So(out[2], ShouldResemble, op("cell", "fill", "blue"))
		})

		Convey("A later rebuild is not merged into an earlier entry", func() {
			batch.Add(op("cells", fastview.InnerHTML, "old"))
			batch.Add(op("cell", "fill", "red"))
			batch.Add(op("cells", fastview.InnerHTML, "new"))

			out := batch.Drain()
			So(out, ShouldHaveLength, 3)
			So(out[2], ShouldResemble, op("cells", fastview.InnerHTML, "new"))
		})

		Convey("Added ops do not alias the caller's slice", func() {
			update := op("a", "fill", "red")
			batch.Add(update)
			batch.Add(op("a", "fill", "blue"))
			So(update.Ops[0].Value, ShouldEqual, "red")
		})
	})
}

func TestBatchify(t *testing.T) {
	Convey("Given a batching pipeline", t, func() {
		done := make(chan struct{})
		defer close(done)
		source := make(chan []fastview.EleUpdate)
		output := batchify(done, source, 10*time.Millisecond)

		Convey("Updates sent together within the window come out as one batch", func() {
			go func() {
				source <- []fastview.EleUpdate{op("a", "fill", "red")}
				source <- []fastview.EleUpdate{op("a", "fill", "blue"), op("b", "fill", "red")}
			}()

			received := []fastview.EleUpdate{}
			deadline := time.After(time.Second)
			for len(received) < 2 {
				select {
				case updates := <-output:
					received = append(received, updates...)
				case <-deadline:
					So("batch was not flushed", ShouldBeEmpty)
					return
				}
			}
			last := map[string]string{}
			for _, update := range received {
				last[update.EleId] = update.Ops[len(update.Ops)-1].Value
			}
			So(last, ShouldResemble, map[string]string{"a": "blue", "b": "red"})
		})

		Convey("A trailing update is flushed without further input", func() {
			go func() { source <- []fastview.EleUpdate{op("a", "fill", "red")} }()
			select {
			case updates := <-output:
				So(updates, ShouldResemble, []fastview.EleUpdate{op("a", "fill", "red")})
			case <-time.After(time.Second):
				So("trailing update was stranded", ShouldBeEmpty)
			}
		})
	})
}

func TestRootView(t *testing.T) {
	Convey("Given a root view", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		frames := make(chan heatmap.Frame)
		root, err := NewRootView(ctx, frames)
		So(err, ShouldBeNil)

		Convey("The page carries the selectors and the view skeletons", func() {
			t := template.New("index.html")
			name, err := root.Parse(t)
			So(err, ShouldBeNil)

			var sb strings.Builder
			err = t.ExecuteTemplate(&sb, name, Page{
				Title:        "BR heatmap",
				Classes:      []Option{{Value: "Ground_vehicles", Label: "Ground vehicles"}},
				Modes:        []Option{{Value: "RB", Label: "RB"}},
				Measurements: []Option{{Value: "win_rate", Label: "win rate"}},
				BRRanges:     []Option{{Value: "0", Label: "1.0 - 12.0"}},
				GridWidth:    360,
				GridHeight:   350,
			})
			So(err, ShouldBeNil)

			page := sb.String()
			for _, id := range []string{
				"date-selection", "class-selection", "mode-selection",
				"measurement-selection", "br-range-selection",
				"heatmap-cells", "br-heatmap-x", "br-heatmap-y", "heatmap-caption",
			} {
				So(page, ShouldContainSubstring, `id="`+id+`"`)
			}
			So(page, ShouldContainSubstring, `<option value="Ground_vehicles">Ground vehicles</option>`)
		})

		Convey("Frames are published as batched element updates", func() {
			go func() {
				frames <- heatmap.Frame{
					Kind:  heatmap.FrameBuild,
					Date:  "2024-01",
					Dates: []string{"2024-01"},
				}
			}()

			seen := map[string]bool{}
			deadline := time.After(time.Second)
			for !seen["heatmap-cells"] || !seen["date-selection"] {
				select {
				case updates := <-root.Updates():
					for _, update := range updates {
						seen[update.EleId] = true
					}
				case <-deadline:
					So(seen, ShouldContainKey, "heatmap-cells")
					return
				}
			}
			So(seen, ShouldContainKey, "heatmap-caption")
		})
	})
}
