package cell_views

import (
	"strings"
	"testing"
	"time"

	"brheatmap/models"
	"brheatmap/scale"
	"brheatmap/server/fastview"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDateOptions(t *testing.T) {
	Convey("Given the date view", t, func() {
		view := &DateOptions{}

		Convey("The first frame lists the dates newest first and captions the drawn date", func() {
			ops := opsById(view.onFrame(buildFrame()))
			options := ops[DateSelectId][fastview.InnerHTML]
			So(strings.Index(options, "2024-02"), ShouldBeLessThan, strings.Index(options, "2024-01"))
			So(options, ShouldContainSubstring, `<option value="" selected>`+LatestLabel)
			So(ops[CaptionId][fastview.TextContent], ShouldEqual, "2024-02 (2 cells)")
		})

		Convey("An older drawn date is the selected option", func() {
			frame := buildFrame()
			frame.Date = "2024-01"
			options := opsById(view.onFrame(frame))[DateSelectId][fastview.InnerHTML]
			So(options, ShouldContainSubstring, `<option value="2024-01" selected>`)
			So(options, ShouldNotContainSubstring, `<option value="" selected>`)
		})

		Convey("An unchanged date list leaves the selector alone", func() {
			view.onFrame(buildFrame())
			ops := opsById(view.onFrame(buildFrame()))
			So(ops, ShouldNotContainKey, DateSelectId)
			So(ops, ShouldContainKey, CaptionId)
		})

		Convey("A class with other dates falls back to the latest option", func() {
			view.onFrame(buildFrame())
			frame := buildFrame()
			frame.Dates = []string{"2023-11", "2023-12"}
			frame.Date = "2023-12"
			options := opsById(view.onFrame(frame))[DateSelectId][fastview.InnerHTML]
			So(options, ShouldContainSubstring, `<option value="" selected>`)
			So(options, ShouldNotContainSubstring, `"2023-12" selected`)
		})
	})
}

func TestColorBar(t *testing.T) {
	Convey("Given a color bar", t, func() {
		done := make(chan struct{})
		defer close(done)
		bar := NewColorBar(done)
		next := func() map[string]map[string]string {
			select {
			case updates := <-bar.Updates():
				return opsById(updates)
			case <-time.After(time.Second):
				return nil
			}
		}

		Convey("Init reveals it", func() {
			go bar.Init()
			So(next()[ColorBarId]["visibility"], ShouldEqual, "visible")
		})

		Convey("Update publishes the gradient and the domain labels", func() {
			mapping, err := scale.Build(scale.GroundVehicles, scale.WinRate, nil)
			So(err, ShouldBeNil)
			go bar.Update(mapping.DomainMin, mapping.DomainMax, mapping.RampColor)

			ops := next()
			gradient := ops[ColorBarGradientId][fastview.InnerHTML]
			So(strings.Count(gradient, "<stop"), ShouldEqual, colorBarSamples)
			So(gradient, ShouldContainSubstring, `offset="0.00%" stop-color="`+scale.White.Hex()+`"`)
			So(gradient, ShouldContainSubstring, `offset="100.00%" stop-color="`+scale.Black.Hex()+`"`)
			So(ops[ColorBarMinId][fastview.TextContent], ShouldEqual, "0")
			So(ops[ColorBarMaxId][fastview.TextContent], ShouldEqual, "100")
		})

		Convey("Update returns once done is closed", func() {
			closed := make(chan struct{})
			close(closed)
			idle := NewColorBar(closed)
			returned := make(chan struct{})
			go func() {
				idle.Update(0, 1, func(float64) colorful.Color { return scale.Black })
				close(returned)
			}()
			select {
			case <-returned:
			case <-time.After(time.Second):
				So("update blocked", ShouldBeEmpty)
			}
		})
	})

	Convey("Wide positive domains are sampled geometrically", t, func() {
		s := samples(1, 1e6, 7)
		So(s[0].value, ShouldAlmostEqual, 1)
		So(s[3].value, ShouldAlmostEqual, 1000, 1e-6)
		So(s[6].value, ShouldAlmostEqual, 1e6, 1e-3)

		linear := samples(0, 1, 3)
		So(linear[1].value, ShouldAlmostEqual, 0.5)
		So(linear[1].at, ShouldAlmostEqual, 0.5)
	})
}

type seriesStub []models.Series

func (s seriesStub) Series() []models.Series { return s }

func TestLineChart(t *testing.T) {
	Convey("Given a line chart", t, func() {
		done := make(chan struct{})
		defer close(done)
		chart := NewLineChart(done, zerolog.Nop())
		next := func() map[string]map[string]string {
			select {
			case updates := <-chart.Updates():
				return opsById(updates)
			case <-time.After(time.Second):
				return nil
			}
		}

		Convey("Update without a source does nothing", func() {
			chart.Update()
			So(chart.source, ShouldBeNil)
		})

		Convey("An empty selection clears the chart", func() {
			chart.Bind(seriesStub{})
			go chart.Update()
			ops := next()
			So(ops[LineChartId], ShouldContainKey, fastview.InnerHTML)
			So(ops[LineChartId][fastview.InnerHTML], ShouldBeEmpty)
		})

		Convey("Selected series are rendered as svg", func() {
			chart.Bind(seriesStub{
				{
					Key:   models.CellKey{Nation: "USA", Bracket: "1.0"},
					Color: "#1f77b4",
					Points: []models.Point{
						{Date: "2024-01", Value: 0.4},
						{Date: "2024-02", Value: 0.6},
					},
				},
				{
					Key:    models.CellKey{Nation: "Germany", Bracket: "1.0"},
					Color:  "#ff7f0e",
					Points: []models.Point{{Date: "2024-02", Value: 0.5}},
				},
			})
			go chart.Update()
			markup := next()[LineChartId][fastview.InnerHTML]
			So(markup, ShouldContainSubstring, "<svg")
			So(markup, ShouldContainSubstring, "USA 1.0")
			So(markup, ShouldContainSubstring, "2024-02")
		})
	})

	Convey("Date ticks are thinned but keep the last date", t, func() {
		dates := []string{}
		for i := 0; i < 20; i++ {
			dates = append(dates, string(rune('a'+i)))
		}
		ticks := dateTicks(dates)
		So(len(ticks), ShouldBeLessThanOrEqualTo, maxDateTicks+1)
		So(ticks[len(ticks)-1].Label, ShouldEqual, "t")
		So(ticks[0].Label, ShouldEqual, "a")
	})
}
