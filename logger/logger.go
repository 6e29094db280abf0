// logger builds the process logger: zerolog json lines on stdout, with timestamp and caller.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

func New(level zerolog.Level) zerolog.Logger {
	return NewWriter(os.Stdout, level)
}

// NewWriter is New with an explicit output.
func NewWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(w).
		With().
		Timestamp().
		Caller().
		Logger().
		Level(level)
}
