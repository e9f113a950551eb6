// Package logging builds the zap loggers used across linkgraph.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// ErrUnknownFormat is returned for a log format other than json or console.
var ErrUnknownFormat = errors.New("unknown log format")

// Options configures New.
type Options struct {
	Level  string    // debug, info, warn, error; empty means info
	Format string    // json or console; empty means console
	Output io.Writer // defaults to os.Stderr
}

// New builds a logger from opts.
func New(opts Options) (*zap.Logger, error) {
	levelText := opts.Level
	if levelText == "" {
		levelText = "info"
	}
	level, err := zap.ParseAtomicLevel(levelText)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", opts.Level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch opts.Format {
	case FormatJSON:
		enc = zapcore.NewJSONEncoder(encCfg)
	case FormatConsole, "":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, opts.Format)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(out), level)
	return zap.New(core), nil
}
