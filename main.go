/*
A single page server rendering an interactive nation by battle-rating heatmap of War Thunder
statistics. The page is drawn server side as svg and kept current over a websocket: selector
changes and cell clicks go up as messages, element updates come back down.
*/

package main

import (
	"context"
	"flag"

	"brheatmap/config"
	"brheatmap/logger"
	"brheatmap/row_source"
	"brheatmap/server"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type options struct {
	configPath string
	debug      bool
}

func parseFlags() options {
	configPath := flag.String("config", "", "path to a config yaml; built-in defaults when empty")
	debug := flag.Bool("debug", false, "debug logging, overriding the configured level")
	flag.Parse()
	return options{configPath: *configPath, debug: *debug}
}

func newConfig(opts options) (*config.Config, error) {
	// Bootstrap logger: the configured level is not known yet.
	return config.Load(opts.configPath, logger.New(zerolog.InfoLevel))
}

func newLogger(opts options, cfg *config.Config) zerolog.Logger {
	if opts.debug {
		return logger.New(zerolog.DebugLevel)
	}
	return logger.New(cfg.Level())
}

// newSource reads ranking files from DataDir when one is configured, else over http.
func newSource(cfg *config.Config, log zerolog.Logger) row_source.Source {
	if cfg.DataDir != "" {
		log.Info().Str("dir", cfg.DataDir).Msg("serving rows from disk")
		return row_source.NewFileSource(cfg.DataDir)
	}
	return row_source.NewHTTPSource(cfg.FetchTimeout)
}

func runServer(lc fx.Lifecycle, srv *server.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return srv.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return srv.Stop(ctx)
		},
	})
}

func main() {
	fx.New(
		fx.Supply(parseFlags()),
		fx.Provide(
			newConfig,
			newLogger,
			newSource,
			server.NewServer,
		),
		fx.Invoke(runServer),
		fx.NopLogger,
	).Run()
}
