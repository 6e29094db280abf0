package models

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAccessor(t *testing.T) {
	Convey("When resolving an accessor", t, func() {
		rows := &RowSet{
			Header: []string{"nation", "cls", "date", "RB_br", "RB_win_rate", "RB_battles_sum"},
			Records: [][]string{
				{"USA", "Aviation", "2024-01", "1.0", "55", "1200"},
				{"Germany", "Aviation", "2024-01", "2.0", "", "0"},
			},
		}

		Convey("When all columns exist", func() {
			acc, err := rows.Accessor("RB", "win_rate")
			So(err, ShouldBeNil)
			So(acc.Date(rows.Records[0]), ShouldEqual, "2024-01")
			So(acc.Class(rows.Records[0]), ShouldEqual, "Aviation")
			So(acc.Key(rows.Records[0]), ShouldResemble, CellKey{Bracket: "1.0", Nation: "USA"})

			val, err := acc.Value(rows.Records[0])
			So(err, ShouldBeNil)
			So(val, ShouldEqual, 55)
		})

		Convey("When the value field is empty it reads as no data", func() {
			acc, err := rows.Accessor("RB", "win_rate")
			So(err, ShouldBeNil)
			val, err := acc.Value(rows.Records[1])
			So(err, ShouldBeNil)
			So(val, ShouldEqual, 0)
		})

		Convey("When the mode has no columns", func() {
			acc, err := rows.Accessor("SB", "win_rate")
			So(acc, ShouldBeNil)
			So(errors.Is(err, ErrMissingColumn), ShouldBeTrue)
		})

		Convey("When the class column uses the long name", func() {
			alt := &RowSet{Header: []string{"date", "class", "nation", "AB_br", "AB_win_rate"}}
			_, err := alt.Accessor("AB", "win_rate")
			So(err, ShouldBeNil)
		})

		Convey("When the value is not a number", func() {
			acc, _ := rows.Accessor("RB", "win_rate")
			_, err := acc.Value([]string{"USA", "Aviation", "2024-01", "1.0", "n/a"})
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Cell ids are usable as element ids", t, func() {
		So(CellKey{Bracket: "10.3", Nation: "Great Britain"}.Id(), ShouldEqual, "cell-Great_Britain-10_3")
	})
}
