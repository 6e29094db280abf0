// server serves the heatmap page and one websocket session per open page.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"sync"

	"brheatmap/config"
	"brheatmap/row_source"
	"brheatmap/scale"
	"brheatmap/server/cell_views"
	"brheatmap/server/fastview"
	"brheatmap/server/root_view"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Server serves the page at / and a session per websocket at /ws. Each session owns its
// controller and views; the server only shares the configuration and the row source.
type Server struct {
	cfg    *config.Config
	source row_source.Source
	log    zerolog.Logger
	page   root_view.Page

	httpServer *http.Server
	// Sessions run under ctx, so Stop can end them; hijacked connections are not
	// tracked by http.Server.Shutdown.
	ctx      context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
}

func NewServer(
	cfg *config.Config,
	source row_source.Source,
	logger zerolog.Logger,
) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	server := &Server{
		cfg:    cfg,
		source: source,
		log:    logger.With().Str("component", "server").Logger(),
		page:   newPage(cfg),
		ctx:    ctx,
		cancel: cancel,
	}
	server.httpServer = &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.Handler(),
	}
	return server
}

func newPage(cfg *config.Config) root_view.Page {
	brRanges := make([]root_view.Option, 0, len(cfg.BRRanges))
	for _, r := range cfg.BRRanges {
		brRanges = append(brRanges, root_view.Option{Value: r.Name, Label: r.Label})
	}
	width, height := cell_views.GridSize(cfg.Width, cfg.Height)
	return root_view.Page{
		Title: cfg.Title,
		Classes: []root_view.Option{
			{Value: string(scale.GroundVehicles), Label: "ground vehicles"},
			{Value: string(scale.Aviation), Label: "aviation"},
		},
		Modes: []root_view.Option{
			{Value: "RB", Label: "realistic"},
			{Value: "AB", Label: "arcade"},
			{Value: "SB", Label: "simulator"},
		},
		Measurements: []root_view.Option{
			{Value: string(scale.WinRate), Label: "win rate"},
			{Value: string(scale.BattleCount), Label: "battles"},
		},
		BRRanges:   brRanges,
		GridWidth:  width,
		GridHeight: height,
	}
}

// Handler returns the routed handler with request ids and CORS applied.
func (server *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", server.serveWebsocket).Methods(http.MethodGet)
	router.HandleFunc("/healthz", server.serveHealth).Methods(http.MethodGet)
	router.Use(RequestID(server.log))

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(router)
}

// Start listens on the configured address and serves in the background.
func (server *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", server.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", server.httpServer.Addr, err)
	}

	go func() {
		server.log.Info().Str("addr", ln.Addr().String()).Msg("server starting")
		if err := server.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.log.Error().Err(err).Msg("server failed")
		}
	}()
	return nil
}

// Stop ends all sessions and shuts the http server down, waiting at most until ctx is done.
func (server *Server) Stop(ctx context.Context) error {
	server.log.Info().Msg("shutting down server")
	server.cancel()

	err := server.httpServer.Shutdown(ctx)

	drained := make(chan struct{})
	go func() {
		server.sessions.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		server.log.Warn().Msg("sessions still open at shutdown deadline")
	}

	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	server.log.Info().Msg("server stopped gracefully")
	return nil
}

// serveWebsocket runs one page session over the websocket.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())
	server.sessions.Add(1)
	defer server.sessions.Done()

	sess, err := newSession(server.ctx, server.cfg, server.source, *log)
	if err != nil {
		log.Error().Err(err).Msg("session setup failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cli, err := fastview.NewClient(sess.root.Updates(), w, r)
	if err != nil {
		sess.cancel()
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	if err = sess.run(cli); err != nil {
		log.Warn().Err(err).Msg("session failed")
	}
}

// Serve the index.html main page. The views are built only for their markup; they stop
// with the request.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")

	done := r.Context().Done()
	rootView, err := root_view.NewRootView(
		r.Context(),
		nil,
		cell_views.NewColorBar(done),
		cell_views.NewLineChart(done, server.log))
	if err == nil {
		err = renderTemplate(w, rootView, server.page)
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("page render failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (server *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, "ok")
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}

	err = t.Execute(w, data)
	return
}
