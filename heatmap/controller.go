// heatmap owns the render lifecycle of the nation by battle-rating heatmap: fetching and
// caching row sets, extracting the active slice, coloring cells, and routing clicks to
// the selection. All state is owned by a single loop goroutine; fetches run outside it
// and re-enter as events.
package heatmap

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync/atomic"

	"brheatmap/color_pool"
	"brheatmap/models"
	"brheatmap/row_source"
	"brheatmap/scale"
	"brheatmap/selection"

	"github.com/rs/zerolog"
)

// State is the lifecycle state of the controller.
type State int32

const (
	Uninitialized State = iota
	Loading
	Rendered
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Rendered:
		return "rendered"
	}
	return "uninitialized"
}

// Controls are the page selectors, read at the moment they are needed.
type Controls interface {
	Date() string
	Class() scale.Class
	Mode() string
	Measurement() scale.Measurement
	BRRange() string
}

// ColorBar is the legend. It has no state of its own beyond the last mapping pushed to it.
type ColorBar interface {
	scale.Legend
	Init()
}

// LineChart plots the selected cells. Update pulls the current series.
type LineChart interface {
	Init()
	Update()
}

// Layout is the drawing area and the axis domains.
type Layout struct {
	Nations []string
	// Brackets lists the vertical axis for each bracket range, bottom to top.
	Brackets map[string][]string
	Width    float64
	Height   float64
}

// Config holds the collaborators of a Controller.
type Config struct {
	Source    row_source.Source
	BaseURL   string
	Layout    Layout
	Controls  Controls
	ColorBar  ColorBar
	LineChart LineChart
	Pool      *color_pool.Pool
	Logger    zerolog.Logger
}

var (
	ErrNoCache             error = errors.New("no cached rows: the heatmap has not been loaded")
	ErrStaleCache          error = errors.New("cached rows do not match the current mode and bracket range")
	ErrUnknownCell         error = errors.New("no such cell in the current slice")
	ErrUnknownBracketRange error = errors.New("no brackets configured for range")
)

// Controller renders heatmap frames. Run must be running for Dispatch to make progress.
type Controller struct {
	cfg   Config
	log   zerolog.Logger
	state atomic.Int32

	events chan Event
	frames chan Frame

	// Loop-owned state.
	initialized bool
	cache       *models.RowSet
	cacheURL    string
	mapping     *scale.Mapping
	cells       []Cell
	cellIndex   map[models.CellKey]int
	date        string
	selection   *selection.Set
}

// NewController validates cfg and returns an uninitialized controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Source == nil || cfg.Controls == nil {
		return nil, errors.New("heatmap: source and controls are required")
	}
	if cfg.Pool == nil {
		pool, err := color_pool.New(color_pool.Category10)
		if err != nil {
			return nil, err
		}
		cfg.Pool = pool
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = row_source.DefaultBaseURL
	}

	ctrl := &Controller{
		cfg:       cfg,
		log:       cfg.Logger.With().Str("component", "heatmap").Logger(),
		events:    make(chan Event, 8),
		frames:    make(chan Frame),
		cellIndex: map[models.CellKey]int{},
	}
	ctrl.selection = selection.New(ctrl.refreshLineChart)
	return ctrl, nil
}

// Frames returns the channel of rendered frames, in render order.
func (ctrl *Controller) Frames() <-chan Frame {
	return ctrl.frames
}

// State returns the lifecycle state. Safe to call from any goroutine.
func (ctrl *Controller) State() State {
	return State(ctrl.state.Load())
}

// Selection is the selection set. Only the loop goroutine may use it.
func (ctrl *Controller) Selection() *selection.Set {
	return ctrl.selection
}

// DataURL is the row set location for the current mode and bracket range.
func (ctrl *Controller) DataURL() string {
	return row_source.DataURL(ctrl.cfg.BaseURL, ctrl.cfg.Controls.Mode(), ctrl.cfg.Controls.BRRange())
}

// Dispatch queues ev for the loop.
func (ctrl *Controller) Dispatch(ctx context.Context, ev Event) error {
	select {
	case ctrl.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes events until ctx is done. Event errors are logged; they never stop the loop.
func (ctrl *Controller) Run(ctx context.Context) error {
	defer close(ctrl.frames)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-ctrl.events:
			if err := ctrl.handle(ctx, ev); err != nil {
				ctrl.log.Error().Err(err).Str("event", fmt.Sprintf("%T", ev)).Msg("event failed")
			}
		}
	}
}

func (ctrl *Controller) handle(ctx context.Context, ev Event) error {
	switch ev := ev.(type) {
	case InitEvent:
		ctrl.fetch(ctx, FrameBuild)
	case UpdateEvent:
		if ev.ReDownload {
			ctrl.fetch(ctx, FrameUpdate)
			return nil
		}
		if ctrl.cache == nil {
			return ErrNoCache
		}
		if url := ctrl.DataURL(); url != ctrl.cacheURL {
			return fmt.Errorf("%w: cached %s, selected %s", ErrStaleCache, ctrl.cacheURL, url)
		}
		return ctrl.render(ctx, ctrl.cache, FrameUpdate)
	case ClickEvent:
		return ctrl.toggle(ctx, ev.Key)
	case fetchDone:
		return ctrl.onFetched(ctx, ev)
	}
	return nil
}

// fetch starts an asynchronous download. Outstanding fetches are not cancelled or
// de-duplicated; each completion rebuilds, so the last one to finish wins.
func (ctrl *Controller) fetch(ctx context.Context, kind FrameKind) {
	ctrl.state.Store(int32(Loading))
	url := ctrl.DataURL()
	ctrl.log.Debug().Str("url", url).Msg("fetching rows")

	go func() {
		rows, err := ctrl.cfg.Source.Fetch(ctx, url)
		select {
		case ctrl.events <- fetchDone{url: url, kind: kind, rows: rows, err: err}:
		case <-ctx.Done():
		}
	}()
}

// onFetched caches and renders fetched rows. A failed fetch leaves the controller loading;
// there is no retry.
func (ctrl *Controller) onFetched(ctx context.Context, done fetchDone) error {
	if done.err != nil {
		return fmt.Errorf("fetch %s: %w", done.url, done.err)
	}

	if !ctrl.initialized {
		if ctrl.cfg.ColorBar != nil {
			ctrl.cfg.ColorBar.Init()
		}
		if ctrl.cfg.LineChart != nil {
			ctrl.cfg.LineChart.Init()
		}
		ctrl.initialized = true
	}

	ctrl.cache = done.rows
	ctrl.cacheURL = done.url
	ctrl.log.Info().Str("url", done.url).Int("rows", len(done.rows.Records)).Msg("rows cached")
	return ctrl.render(ctx, done.rows, done.kind)
}

// render rebuilds mapping, axes and cells from rows and emits the frame.
func (ctrl *Controller) render(ctx context.Context, rows *models.RowSet, kind FrameKind) error {
	controls := ctrl.cfg.Controls
	mapping, err := scale.Build(controls.Class(), controls.Measurement(), ctrl.legend())
	if err != nil {
		return err
	}

	brackets, ok := ctrl.cfg.Layout.Brackets[controls.BRRange()]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownBracketRange, controls.BRRange())
	}
	x := newBand(ctrl.cfg.Layout.Nations, 0, ctrl.cfg.Layout.Width)
	y := newBand(brackets, ctrl.cfg.Layout.Height, 0)

	slice, dates, date, err := ctrl.extract(rows)
	if err != nil {
		return err
	}

	cells := make([]Cell, 0, len(slice))
	index := make(map[models.CellKey]int, len(slice))
	for _, tuple := range slice {
		cx, okx := x.Pos(tuple.Nation)
		cy, oky := y.Pos(tuple.Bracket)
		if !okx || !oky {
			ctrl.log.Debug().
				Str("nation", tuple.Nation).
				Str("bracket", tuple.Bracket).
				Msg("cell outside axis domains")
			continue
		}

		cell := Cell{
			CellKey:  tuple.CellKey,
			Value:    tuple.Value,
			X:        cx,
			Y:        cy,
			Width:    x.Bandwidth(),
			Height:   y.Bandwidth(),
			Selected: ctrl.selection.IsSelected(tuple.CellKey),
		}
		cell.Fill = mapping.Hex(cell.Value)
		if cell.Selected {
			cell.Fill = ctrl.selection.Accent().Hex()
		}
		index[cell.CellKey] = len(cells)
		cells = append(cells, cell)
	}

	ctrl.mapping = mapping
	ctrl.cells = cells
	ctrl.cellIndex = index
	ctrl.date = date
	ctrl.state.Store(int32(Rendered))

	return ctrl.emit(ctx, Frame{
		Kind:       kind,
		Cells:      cells,
		XTicks:     x.Ticks(),
		YTicks:     y.Ticks(),
		Width:      ctrl.cfg.Layout.Width,
		Height:     ctrl.cfg.Layout.Height,
		Dates:      dates,
		Date:       date,
		Transition: kind == FrameUpdate,
	})
}

func (ctrl *Controller) legend() scale.Legend {
	if ctrl.cfg.ColorBar == nil {
		return nil
	}
	return ctrl.cfg.ColorBar
}

// extract filters rows to the active date and class. An empty or unknown date means the
// latest date of the class. Duplicate cells keep their first position and last value.
func (ctrl *Controller) extract(rows *models.RowSet) (slice []selection.Entry, dates []string, date string, err error) {
	controls := ctrl.cfg.Controls
	var acc *models.Accessor
	if acc, err = rows.Accessor(controls.Mode(), string(controls.Measurement())); err != nil {
		return
	}

	class := string(controls.Class())
	seen := map[string]bool{}
	for _, rec := range rows.Records {
		if acc.Class(rec) != class {
			continue
		}
		if d := acc.Date(rec); !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)

	// A date the class never reported falls back to the latest, as the date selector does.
	date = controls.Date()
	if len(dates) > 0 && !slices.Contains(dates, date) {
		if date != "" {
			ctrl.log.Debug().Str("date", date).Str("class", class).Msg("date not reported, drawing latest")
		}
		date = dates[len(dates)-1]
	}

	index := map[models.CellKey]int{}
	for _, rec := range rows.Records {
		if acc.Date(rec) != date || acc.Class(rec) != class {
			continue
		}
		val, valErr := acc.Value(rec)
		if valErr != nil {
			ctrl.log.Warn().Err(valErr).Str("date", date).Msg("skipping row")
			continue
		}
		key := acc.Key(rec)
		if i, ok := index[key]; ok {
			slice[i].Value = val
			continue
		}
		index[key] = len(slice)
		slice = append(slice, selection.Entry{CellKey: key, Value: val})
	}
	return
}

func (ctrl *Controller) toggle(ctx context.Context, key models.CellKey) error {
	i, ok := ctrl.cellIndex[key]
	if !ok || ctrl.mapping == nil {
		return fmt.Errorf("%w: %s/%s", ErrUnknownCell, key.Nation, key.Bracket)
	}

	cell := ctrl.cells[i]
	color, added := ctrl.selection.Toggle(
		selection.Entry{CellKey: key, Value: cell.Value},
		ctrl.mapping.ToColor(cell.Value))
	cell.Fill = color.Hex()
	cell.Selected = added
	ctrl.cells[i] = cell

	return ctrl.emit(ctx, Frame{
		Kind:  FrameToggle,
		Cells: []Cell{cell},
	})
}

func (ctrl *Controller) refreshLineChart() {
	if ctrl.cfg.LineChart != nil {
		ctrl.cfg.LineChart.Update()
	}
}

// Series returns the history of every selected cell over the cached rows, for the active
// mode, class and measurement. Only the loop goroutine may call it.
func (ctrl *Controller) Series() []models.Series {
	if ctrl.cache == nil {
		return nil
	}
	controls := ctrl.cfg.Controls
	acc, err := ctrl.cache.Accessor(controls.Mode(), string(controls.Measurement()))
	if err != nil {
		ctrl.log.Warn().Err(err).Msg("no series for current selectors")
		return nil
	}

	class := string(controls.Class())
	entries := ctrl.selection.Entries()
	series := make([]models.Series, 0, len(entries))
	for _, entry := range entries {
		s := models.Series{
			Key:   entry.CellKey,
			Color: ctrl.cfg.Pool.Get(entry.CellKey).Hex(),
		}
		for _, rec := range ctrl.cache.Records {
			if acc.Class(rec) != class || acc.Key(rec) != entry.CellKey {
				continue
			}
			if val, valErr := acc.Value(rec); valErr == nil {
				s.Points = append(s.Points, models.Point{Date: acc.Date(rec), Value: val})
			}
		}
		sort.SliceStable(s.Points, func(i, j int) bool { return s.Points[i].Date < s.Points[j].Date })
		series = append(series, s)
	}
	return series
}

func (ctrl *Controller) emit(ctx context.Context, frame Frame) error {
	select {
	case ctrl.frames <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
