package logging

import (
	"context"
	"io"
	"log/slog"
)

// SlogLogger is the Logger used by the server and its commands. Records go
// through the handler built by Setup, so each one carries the service name
// and the trace ids found in the ctx passed to the level methods.
type SlogLogger struct {
	l *slog.Logger
}

// New builds a SlogLogger on top of Setup.
func New(service, format, level string, w io.Writer) *SlogLogger {
	return NewSlogLogger(Setup(service, format, level, w))
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelDebug, msg, args)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelInfo, msg, args)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelWarn, msg, args)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelError, msg, args)
}

// With pins component-level attrs such as "component" or "operation".
func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}

func (s *SlogLogger) log(ctx context.Context, level slog.Level, msg string, args []any) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.l.Log(ctx, level, msg, args...)
}
