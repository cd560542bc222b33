// Package logger wraps zerolog with fields carried on the request context.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bairdservice/baird-backend/pkg/env"
)

// Options configures New. Level is a zerolog level name; blank or unknown
// values log at info.
type Options struct {
	ServiceName string
	Level       string
	WarnStack   bool
	Output      io.Writer
}

type Logger struct {
	base      zerolog.Logger
	warnStack bool
}

// New builds a JSON logger. BAIRD_LOG_FORMAT=console switches to zerolog's
// human readable writer.
func New(opts Options) *Logger {
	level := parseLevel(opts.Level)
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(env.Get("json", "BAIRD_LOG_FORMAT", "LOG_FORMAT"), "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	base := zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger()
	return &Logger{base: base, warnStack: opts.WarnStack}
}

func parseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) from(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if entry := zerolog.Ctx(ctx); entry.GetLevel() != zerolog.Disabled {
			return entry
		}
	}
	return &l.base
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.WithFields(ctx, map[string]any{key: value})
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	entry := l.from(ctx).With().Fields(fields).Logger()
	return entry.WithContext(ctx)
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithServiceRequestID(ctx context.Context, id string) context.Context {
	return l.WithField(ctx, "service_request_id", id)
}

func (l *Logger) WithTechnicianID(ctx context.Context, id string) context.Context {
	return l.WithField(ctx, "technician_id", id)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.from(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.from(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.from(ctx).Warn()
	if l.warnStack {
		event = event.Str("stack", stack())
	}
	event.Msg(msg)
}

// Error always records the goroutine stack alongside err.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	l.from(ctx).Error().Err(err).Str("stack", stack()).Msg(msg)
}

func stack() string {
	return strings.TrimSpace(string(debug.Stack()))
}
