package fastview

import (
	"context"
	"errors"

	channerics "github.com/niceyeti/channerics/channels"
)

// ViewBuilder constructs one or more views fed by a common view-model. Build converts
// each item of the source once and broadcasts the result to every view; a view added
// with a filter sees only the items it accepts.
type ViewBuilder[DataModel any, ViewModel any] struct {
	source      <-chan DataModel
	viewModelFn func(DataModel) ViewModel
	views       []viewSpec[ViewModel]
	done        <-chan struct{} // Okay if nil
}

type viewSpec[ViewModel any] struct {
	build ViewBuilderFunc[ViewModel]
	keep  func(ViewModel) bool // nil keeps everything
}

// NewViewBuilder returns a builder for a given data-model and view-model.
func NewViewBuilder[DataModel any, ViewModel any]() *ViewBuilder[DataModel, ViewModel] {
	return &ViewBuilder[DataModel, ViewModel]{}
}

// WithModel sets the source channel and the function converting its items to the view-model.
// Every view must consume its broadcast channel, or the source stalls.
func (vb *ViewBuilder[DataModel, ViewModel]) WithModel(
	input <-chan DataModel,
	convert func(DataModel) ViewModel,
) *ViewBuilder[DataModel, ViewModel] {
	vb.source = input
	vb.viewModelFn = convert
	return vb
}

// ViewBuilderFunc builds a view from an input view-model channel and a 'done' channel for cleanup.
type ViewBuilderFunc[ViewModel any] func(<-chan struct{}, <-chan ViewModel) ViewComponent

// WithView adds a view to the list of views to build.
// They are returned in the same order as built when Build() is called.
func (vb *ViewBuilder[DataModel, ViewModel]) WithView(
	builderFn ViewBuilderFunc[ViewModel],
) *ViewBuilder[DataModel, ViewModel] {
	vb.views = append(vb.views, viewSpec[ViewModel]{build: builderFn})
	return vb
}

// WithFilteredView adds a view that is only sent the view-models keep accepts. Rejected
// items are dropped before the view's channel, so they never stall the broadcast.
func (vb *ViewBuilder[DataModel, ViewModel]) WithFilteredView(
	keep func(ViewModel) bool,
	builderFn ViewBuilderFunc[ViewModel],
) *ViewBuilder[DataModel, ViewModel] {
	vb.views = append(vb.views, viewSpec[ViewModel]{build: builderFn, keep: keep})
	return vb
}

// WithContext stops the conversion and broadcast pipelines when ctx is cancelled.
func (vb *ViewBuilder[DataModel, ViewModel]) WithContext(
	ctx context.Context,
) *ViewBuilder[DataModel, ViewModel] {
	vb.done = ctx.Done()
	return vb
}

// ErrNoViews is returned when Build() is called before the caller has added any views.
var ErrNoViews error = errors.New("no views to build: WithView must be called")

// ErrNoModel is returned when Build() is called before  WithModel() has been called.
var ErrNoModel error = errors.New("no model specified: WithModel must be called")

// Build executes the stored builders, connecting the channels together and returning
// the views in the order they were added.
func (vb *ViewBuilder[DataModel, ViewModel]) Build() (views []ViewComponent, err error) {
	if len(vb.views) == 0 {
		return nil, ErrNoViews
	}
	if vb.viewModelFn == nil {
		return nil, ErrNoModel
	}

	vmChan := channerics.Convert(vb.done, vb.source, vb.viewModelFn)
	vmChans := channerics.Broadcast(vb.done, vmChan, len(vb.views))
	for i, spec := range vb.views {
		input := vmChans[i]
		if spec.keep != nil {
			input = filter(vb.done, input, spec.keep)
		}
		views = append(views, spec.build(vb.done, input))
	}
	return
}

func filter[T any](
	done <-chan struct{},
	input <-chan T,
	keep func(T) bool,
) <-chan T {
	output := make(chan T)
	go func() {
		defer close(output)
		for item := range channerics.OrDone(done, input) {
			if !keep(item) {
				continue
			}
			select {
			case output <- item:
			case <-done:
				return
			}
		}
	}()
	return output
}
