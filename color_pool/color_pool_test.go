package color_pool

import (
	"fmt"
	"testing"

	"brheatmap/models"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPool(t *testing.T) {
	Convey("When getting colors", t, func() {
		pool, err := New(Category10)
		So(err, ShouldBeNil)

		usa := models.CellKey{Bracket: "1.0", Nation: "USA"}
		ger := models.CellKey{Bracket: "1.0", Nation: "Germany"}

		Convey("The same key always gets the same color", func() {
			first := pool.Get(usa)
			pool.Get(ger)
			So(pool.Get(usa), ShouldResemble, first)
			So(pool.Len(), ShouldEqual, 2)
		})

		Convey("The color does not depend on lookup order", func() {
			other, _ := New(Category10)
			a1, g1 := pool.Get(usa), pool.Get(ger)
			g2, a2 := other.Get(ger), other.Get(usa)
			So(pool.Get(ger), ShouldResemble, g1)
			So(other.Get(usa), ShouldResemble, a2)
			So(a1, ShouldNotResemble, g1)
			So(g2, ShouldNotResemble, a2)
		})

		Convey("Keys match on both fields", func() {
			a := pool.Get(usa)
			b := pool.Get(models.CellKey{Bracket: "2.0", Nation: "USA"})
			So(a, ShouldNotResemble, b)
		})

		Convey("The palette wraps after N keys", func() {
			small, err := New([]string{"#000000", "#ffffff", "#ff0000"})
			So(err, ShouldBeNil)
			var colors []string
			for i := 0; i < 4; i++ {
				colors = append(colors, small.Get(models.CellKey{Bracket: fmt.Sprint(i), Nation: "USA"}).Hex())
			}
			So(colors[3], ShouldEqual, colors[0])
			So(colors[1], ShouldNotEqual, colors[0])
		})
	})

	Convey("When the palette is empty", t, func() {
		pool, err := New(nil)
		So(pool, ShouldBeNil)
		So(err, ShouldEqual, ErrEmptyPalette)
	})

	Convey("When the palette has a bad color", t, func() {
		_, err := New([]string{"blue"})
		So(err, ShouldNotBeNil)
	})
}
