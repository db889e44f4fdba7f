package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.uber.org/zap"
)

// Supported values for the log_format setting.
const (
	FormatJSON   = "json"
	FormatText   = "text"
	FormatZap    = "zap"
	FormatZapDev = "zap-dev"
)

var stdout io.Writer = os.Stdout

// New builds a Logger for the given format. An empty format selects JSON
// output through slog.
func New(format string) (Logger, error) {
	switch format {
	case "", FormatJSON:
		return NewSlogLogger(slog.New(slog.NewJSONHandler(stdout, nil))), nil
	case FormatText:
		return NewSlogLogger(slog.New(slog.NewTextHandler(stdout, nil))), nil
	case FormatZap:
		l, err := zap.NewProduction()
		if err != nil {
			return nil, err
		}
		return NewZapLogger(l), nil
	case FormatZapDev:
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		return NewZapLogger(l), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// Sync flushes l when the underlying implementation buffers output.
func Sync(l Logger) error {
	if s, ok := l.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}
