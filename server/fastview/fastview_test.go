package fastview

import (
	"context"
	"html/template"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMerge(t *testing.T) {
	Convey("Merging ops keeps the key order and the latest values", t, func() {
		cur := EleUpdate{EleId: "a", Ops: []Op{{Key: "fill", Value: "red"}, {Key: "x", Value: "1"}}}
		cur.Merge(EleUpdate{EleId: "a", Ops: []Op{{Key: "x", Value: "2"}, {Key: TextContent, Value: "hi"}}})
		So(cur.Ops, ShouldResemble, []Op{
			{Key: "fill", Value: "red"},
			{Key: "x", Value: "2"},
			{Key: TextContent, Value: "hi"},
		})
	})
}

// echoView publishes one update per input item.
type echoView struct {
	updates chan []EleUpdate
}

func (v *echoView) Updates() <-chan []EleUpdate { return v.updates }

func (v *echoView) Parse(*template.Template) (string, error) { return "echo", nil }

func TestViewBuilder(t *testing.T) {
	Convey("Given a view builder", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		Convey("Build requires views and a model", func() {
			_, err := NewViewBuilder[int, string]().Build()
			So(err, ShouldEqual, ErrNoViews)

			_, err = NewViewBuilder[int, string]().
				WithView(func(<-chan struct{}, <-chan string) ViewComponent { return &echoView{} }).
				Build()
			So(err, ShouldEqual, ErrNoModel)
		})

		Convey("Every view receives every converted item", func() {
			source := make(chan int)
			received := make(chan string, 4)
			build := func(done <-chan struct{}, items <-chan string) ViewComponent {
				go func() {
					for item := range items {
						received <- item
					}
				}()
				return &echoView{}
			}
			views, err := NewViewBuilder[int, string]().
				WithContext(ctx).
				WithModel(source, func(i int) string { return string(rune('a' + i)) }).
				WithView(build).
				WithView(build).
				Build()
			So(err, ShouldBeNil)
			So(views, ShouldHaveLength, 2)

			source <- 1
			for i := 0; i < 2; i++ {
				select {
				case item := <-received:
					So(item, ShouldEqual, "b")
				case <-time.After(time.Second):
					So("item not broadcast", ShouldBeEmpty)
				}
			}
		})

		Convey("A filtered view only sees the items it keeps", func() {
			source := make(chan int)
			all := make(chan string, 4)
			kept := make(chan string, 4)
			collect := func(into chan<- string) ViewBuilderFunc[string] {
				return func(done <-chan struct{}, items <-chan string) ViewComponent {
					go func() {
						for item := range items {
							into <- item
						}
					}()
					return &echoView{}
				}
			}
			_, err := NewViewBuilder[int, string]().
				WithContext(ctx).
				WithModel(source, func(i int) string { return string(rune('a' + i)) }).
				WithView(collect(all)).
				WithFilteredView(func(item string) bool { return item != "a" }, collect(kept)).
				Build()
			So(err, ShouldBeNil)

			source <- 0
			source <- 1
			next := func(items <-chan string) string {
				select {
				case item := <-items:
					return item
				case <-time.After(time.Second):
					return ""
				}
			}
			So(next(all), ShouldEqual, "a")
			So(next(all), ShouldEqual, "b")
			So(next(kept), ShouldEqual, "b")
			So(kept, ShouldBeEmpty)
		})
	})
}
