package server

import (
	"errors"
	"testing"

	"brheatmap/heatmap"
	"brheatmap/models"
	"brheatmap/scale"

	. "github.com/smartystreets/goconvey/convey"
)

const selectors = `{"kind":"selectors","date":"","class":"Aviation","mode":"RB","measurement":"win_rate","br_range":"0"}`

func TestDecode(t *testing.T) {
	Convey("Given fresh controls", t, func() {
		controls := &Controls{}

		Convey("The first selector report initializes", func() {
			ev, err := Decode([]byte(selectors), controls)
			So(err, ShouldBeNil)
			So(ev, ShouldResemble, heatmap.InitEvent{})
			So(controls.Class(), ShouldEqual, scale.Aviation)
			So(controls.Mode(), ShouldEqual, "RB")
			So(controls.Measurement(), ShouldEqual, scale.WinRate)
			So(controls.BRRange(), ShouldEqual, "0")
			So(controls.Date(), ShouldBeEmpty)

			Convey("A date or class change redraws from the cache", func() {
				ev, err := Decode([]byte(`{"kind":"selectors","date":"2024-01","class":"Ground_vehicles","mode":"RB","measurement":"battles_sum","br_range":"0"}`), controls)
				So(err, ShouldBeNil)
				So(ev, ShouldResemble, heatmap.UpdateEvent{ReDownload: false})
				So(controls.Date(), ShouldEqual, "2024-01")
				So(controls.Measurement(), ShouldEqual, scale.BattleCount)
			})

			Convey("A mode change re-downloads", func() {
				ev, _ := Decode([]byte(`{"kind":"selectors","date":"","class":"Aviation","mode":"AB","measurement":"win_rate","br_range":"0"}`), controls)
				So(ev, ShouldResemble, heatmap.UpdateEvent{ReDownload: true})
			})

			Convey("A bracket range change re-downloads", func() {
				ev, _ := Decode([]byte(`{"kind":"selectors","date":"","class":"Aviation","mode":"RB","measurement":"win_rate","br_range":"1"}`), controls)
				So(ev, ShouldResemble, heatmap.UpdateEvent{ReDownload: true})
			})
		})

		Convey("A click names its cell", func() {
			ev, err := Decode([]byte(`{"kind":"click","nation":"USA","br":"1.0"}`), controls)
			So(err, ShouldBeNil)
			So(ev, ShouldResemble, heatmap.ClickEvent{Key: models.CellKey{Nation: "USA", Bracket: "1.0"}})
		})

		Convey("Unknown kinds and bad json are errors", func() {
			_, err := Decode([]byte(`{"kind":"hover"}`), controls)
			So(errors.Is(err, ErrUnknownMessage), ShouldBeTrue)

			_, err = Decode([]byte(`{`), controls)
			So(err, ShouldNotBeNil)
		})
	})
}
