package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"brheatmap/color_pool"
	"brheatmap/config"
	"brheatmap/heatmap"
	"brheatmap/models"
	"brheatmap/row_source"
	"brheatmap/scale"
	"brheatmap/server/cell_views"
	"brheatmap/server/root_view"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Controls holds the page selectors as last reported by the page. The controller reads
// them from its loop while the session writes them from the read pump.
type Controls struct {
	mu          sync.Mutex
	reported    bool
	date        string
	class       scale.Class
	mode        string
	measurement scale.Measurement
	brRange     string
}

func (c *Controls) Date() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.date
}

func (c *Controls) Class() scale.Class {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.class
}

func (c *Controls) Mode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controls) Measurement() scale.Measurement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.measurement
}

func (c *Controls) BRRange() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.brRange
}

// Apply stores the reported selectors and returns the event they call for: Init on the
// first report, then an update that re-downloads iff the mode or bracket range changed.
func (c *Controls) Apply(msg ClientMessage) heatmap.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	first := !c.reported
	reDownload := msg.Mode != c.mode || msg.BRRange != c.brRange
	c.reported = true
	c.date = msg.Date
	c.class = scale.Class(msg.Class)
	c.mode = msg.Mode
	c.measurement = scale.Measurement(msg.Measurement)
	c.brRange = msg.BRRange

	if first {
		return heatmap.InitEvent{}
	}
	return heatmap.UpdateEvent{ReDownload: reDownload}
}

// Message kinds sent by the page.
const (
	SelectorsMessage = "selectors"
	ClickMessage     = "click"
)

// ClientMessage is a message from the page: the selector values, or a clicked cell.
type ClientMessage struct {
	Kind        string `json:"kind"`
	Date        string `json:"date"`
	Class       string `json:"class"`
	Mode        string `json:"mode"`
	Measurement string `json:"measurement"`
	BRRange     string `json:"br_range"`
	Nation      string `json:"nation"`
	Bracket     string `json:"br"`
}

var ErrUnknownMessage error = errors.New("unknown client message")

// Decode turns a raw page message into a controller event, updating controls for selector reports.
func Decode(raw []byte, controls *Controls) (heatmap.Event, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decode client message: %w", err)
	}

	switch msg.Kind {
	case SelectorsMessage:
		return controls.Apply(msg), nil
	case ClickMessage:
		return heatmap.ClickEvent{Key: models.CellKey{Nation: msg.Nation, Bracket: msg.Bracket}}, nil
	}
	return nil, fmt.Errorf("%w: kind %q", ErrUnknownMessage, msg.Kind)
}

// pageClient is the websocket side of a session.
type pageClient interface {
	Messages() <-chan []byte
	Sync(context.Context) error
}

// session is one open page: its controller, selectors, views and colors. Nothing is shared
// between sessions.
type session struct {
	id       string
	ctx      context.Context
	cancel   context.CancelFunc
	log      zerolog.Logger
	controls *Controls
	ctrl     *heatmap.Controller
	root     *root_view.RootView
}

func newSession(
	parent context.Context,
	cfg *config.Config,
	source row_source.Source,
	logger zerolog.Logger,
) (*session, error) {
	id := uuid.New().String()
	log := logger.With().Str("session", id).Logger()
	ctx, cancel := context.WithCancel(parent)

	pool, err := color_pool.New(cfg.Palette)
	if err != nil {
		cancel()
		return nil, err
	}

	controls := &Controls{}
	bar := cell_views.NewColorBar(ctx.Done())
	chart := cell_views.NewLineChart(ctx.Done(), log)
	ctrl, err := heatmap.NewController(heatmap.Config{
		Source:  source,
		BaseURL: cfg.BaseURL,
		Layout: heatmap.Layout{
			Nations:  cfg.Nations,
			Brackets: cfg.Brackets(),
			Width:    cfg.Width,
			Height:   cfg.Height,
		},
		Controls:  controls,
		ColorBar:  bar,
		LineChart: chart,
		Pool:      pool,
		Logger:    log,
	})
	if err != nil {
		cancel()
		return nil, err
	}
	chart.Bind(ctrl)

	root, err := root_view.NewRootView(ctx, ctrl.Frames(), bar, chart)
	if err != nil {
		cancel()
		return nil, err
	}

	return &session{
		id:       id,
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
		controls: controls,
		ctrl:     ctrl,
		root:     root,
	}, nil
}

// run drives the session until the page disconnects or the server stops.
func (sess *session) run(cli pageClient) error {
	defer sess.cancel()
	group, groupCtx := errgroup.WithContext(sess.ctx)

	group.Go(func() error {
		return sess.ctrl.Run(groupCtx)
	})
	group.Go(func() error {
		// The page is gone once Sync returns, for whatever reason.
		defer sess.cancel()
		return cli.Sync(groupCtx)
	})
	group.Go(func() error {
		return sess.dispatch(groupCtx, cli.Messages())
	})

	sess.log.Info().Msg("session started")
	err := group.Wait()
	sess.log.Info().Err(err).Msg("session ended")
	return err
}

// dispatch forwards page messages to the controller. Undecodable messages are logged and skipped.
func (sess *session) dispatch(ctx context.Context, messages <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-messages:
			if !ok {
				return nil
			}
			ev, err := Decode(raw, sess.controls)
			if err != nil {
				sess.log.Warn().Err(err).Msg("dropping client message")
				continue
			}
			if err = sess.ctrl.Dispatch(ctx, ev); err != nil {
				return nil
			}
		}
	}
}
