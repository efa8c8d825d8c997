package logging

import (
	"context"
	"errors"
	"log/slog"
)

// mirrorHandler writes each record to the primary sink and repeats it on the
// mirror, typically the console stream plus the JSON log file. Each sink
// applies its own level check.
type mirrorHandler struct {
	primary slog.Handler
	mirror  slog.Handler
}

func withMirror(primary, mirror slog.Handler) slog.Handler {
	if mirror == nil {
		return primary
	}
	return &mirrorHandler{primary: primary, mirror: mirror}
}

func (m *mirrorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return m.primary.Enabled(ctx, level) || m.mirror.Enabled(ctx, level)
}

func (m *mirrorHandler) Handle(ctx context.Context, record slog.Record) error {
	var primaryErr, mirrorErr error
	if m.primary.Enabled(ctx, record.Level) {
		primaryErr = m.primary.Handle(ctx, record.Clone())
	}
	if m.mirror.Enabled(ctx, record.Level) {
		mirrorErr = m.mirror.Handle(ctx, record)
	}
	return errors.Join(primaryErr, mirrorErr)
}

func (m *mirrorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &mirrorHandler{primary: m.primary.WithAttrs(attrs), mirror: m.mirror.WithAttrs(attrs)}
}

func (m *mirrorHandler) WithGroup(name string) slog.Handler {
	return &mirrorHandler{primary: m.primary.WithGroup(name), mirror: m.mirror.WithGroup(name)}
}
