package region

import (
	"context"
	"log/slog"
	"os"
)

// Logger is the structured logger a Space reports reservations, releases,
// protection changes and queries to. Every record carries the affected
// address range as "addr" and "size".
type Logger struct {
	*slog.Logger
}

// NewLogger wraps handler. A nil handler logs reservation failures and
// out-of-band releases (Info and above) as text to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger logs to stderr as JSON. Successful allocs, frees and
// protects are logged at slog.LevelDebug; failures at slog.LevelError.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger is NewJSONLogger with logfmt-style output.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger drops every record. It is the default of NewSpace.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithAddress returns a Logger that tags every record with addr.
func (l *Logger) WithAddress(addr uintptr) *Logger {
	return &Logger{
		Logger: l.Logger.With("addr", addr),
	}
}

// WithSize returns a Logger that tags every record with size.
func (l *Logger) WithSize(size uintptr) *Logger {
	return &Logger{
		Logger: l.Logger.With("size", size),
	}
}

// LogAlloc logs a reservation.
func (l *Logger) LogAlloc(ctx context.Context, addr, size uintptr, prot Protection, err error) {
	if err != nil {
		l.ErrorContext(ctx, "alloc failed",
			"addr", addr,
			"size", size,
			"prot", prot.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "alloc completed",
			"addr", addr,
			"size", size,
			"prot", prot.String(),
		)
	}
}

// LogFree logs the release of a reservation.
func (l *Logger) LogFree(ctx context.Context, addr, size uintptr) {
	l.DebugContext(ctx, "free completed",
		"addr", addr,
		"size", size,
	)
}

// LogVanished logs a reservation that was released behind the library's back.
// id is the native reservation id; addr and size may be the requested span
// when the OS never reported the actual one.
func (l *Logger) LogVanished(ctx context.Context, id, addr, size uintptr, err error) {
	l.WarnContext(ctx, "reservation released out-of-band",
		"id", id,
		"addr", addr,
		"size", size,
		"error", err,
	)
}

// LogProtect logs a protection change.
func (l *Logger) LogProtect(ctx context.Context, addr, size uintptr, prot Protection, err error) {
	if err != nil {
		l.ErrorContext(ctx, "protect failed",
			"addr", addr,
			"size", size,
			"prot", prot.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "protect completed",
			"addr", addr,
			"size", size,
			"prot", prot.String(),
		)
	}
}

// LogQuery logs the start of a region query.
func (l *Logger) LogQuery(ctx context.Context, addr, size uintptr, err error) {
	if err != nil {
		l.DebugContext(ctx, "query failed",
			"addr", addr,
			"size", size,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query started",
			"addr", addr,
			"size", size,
		)
	}
}
