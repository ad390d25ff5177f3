// Package logging adapts zerolog to the es.Logger interface consumed by the
// coordinator and worker.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/getpup/pupsourcing/es"
	"github.com/rs/zerolog"
)

// Logger implements es.Logger on top of a zerolog.Logger.
// Variadic args are interpreted as alternating key/value pairs.
type Logger struct {
	zl zerolog.Logger
}

var _ es.Logger = (*Logger)(nil)

// New returns a JSON logger writing to w at the given level
// ("debug", "info", "warn", "error"). An empty level means info.
func New(w io.Writer, level string) (*Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &Logger{zl: zl}, nil
}

// NewConsole returns a human-readable logger writing to stderr.
func NewConsole(level string) (*Logger, error) {
	return New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}, level)
}

// With returns a child logger that adds component to every entry.
func (l *Logger) With(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

// Zerolog exposes the underlying logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

// Debug logs msg at debug level with args as key/value fields.
func (l *Logger) Debug(ctx context.Context, msg string, args ...interface{}) {
	l.zl.Debug().Fields(normalize(args)).Msg(msg)
}

// Info logs msg at info level with args as key/value fields.
func (l *Logger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.zl.Info().Fields(normalize(args)).Msg(msg)
}

// Error logs msg at error level with args as key/value fields.
func (l *Logger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.zl.Error().Fields(normalize(args)).Msg(msg)
}

// normalize makes args safe for zerolog's key/value form: keys are
// stringified and a dangling key gets an empty value.
func normalize(args []interface{}) []interface{} {
	if len(args) == 0 {
		return nil
	}
	out := make([]interface{}, 0, len(args)+1)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		var val interface{}
		if i+1 < len(args) {
			val = args[i+1]
		}
		out = append(out, key, val)
	}
	return out
}
