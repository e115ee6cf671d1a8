package spisim

import (
	"context"
	"log/slog"
)

// levelTrace sits below slog's debug level for per-edge verbosity.
const levelTrace = slog.LevelDebug - 1

func logAttrs(l *slog.Logger, level slog.Level, msg string, attrs ...slog.Attr) {
	if l == nil || !l.Enabled(context.Background(), level) {
		return
	}
	l.LogAttrs(context.Background(), level, msg, attrs...)
}

func (m *Master) debug(msg string, attrs ...slog.Attr) {
	logAttrs(m.logger, slog.LevelDebug, msg, attrs...)
}

func (m *Master) trace(msg string, attrs ...slog.Attr) {
	logAttrs(m.logger, levelTrace, msg, attrs...)
}

func (s *Slave) debug(msg string, attrs ...slog.Attr) {
	logAttrs(s.logger, slog.LevelDebug, msg, attrs...)
}

func (s *Slave) trace(msg string, attrs ...slog.Attr) {
	logAttrs(s.logger, levelTrace, msg, attrs...)
}
