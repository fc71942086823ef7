package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates a console logger at zerolog.InfoLevel+logLevel, so -1 enables debug
// output and 1 keeps only warnings and above.
func New(logLevel int) zerolog.Logger {
	return NewWithWriter(os.Stdout, logLevel)
}

func NewWithWriter(w io.Writer, logLevel int) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(zerolog.InfoLevel+zerolog.Level(logLevel)).
		With().Timestamp().Int("pid", os.Getpid()).Logger()
}

// Component returns a sub logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
