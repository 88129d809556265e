package logging

import (
	"io"
	"os"

	"github.com/phuslu/log"
)

// CreateLogger builds a console logger at the given level ("debug", "info", ...).
// Unknown levels fall back to info. A nil writer means stderr.
func CreateLogger(level string, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return &log.Logger{
		Level:  log.ParseLevel(level),
		Caller: 0,
		Writer: &log.ConsoleWriter{
			Writer:         w,
			ColorOutput:    false,
			EndWithMessage: true,
		},
	}
}

func CreateDebugLogger() *log.Logger {
	return CreateLogger("debug", os.Stderr)
}

// Nop returns a logger that drops everything below panic level.
func Nop() *log.Logger {
	return &log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}
