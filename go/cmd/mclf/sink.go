package main

import (
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/lunixbochs/mclf/go/models"
)

func newLogger(w io.Writer, lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = level.NewFilter(logger, level.Allow(level.ParseDefault(lvl, level.InfoValue())))
	return log.With(logger, "ts", log.DefaultTimestampUTC)
}

// logSink forwards load diagnostics to a leveled logger.
type logSink struct {
	logger log.Logger
}

func (s logSink) Diag(sev models.Severity, msg string) {
	var l log.Logger
	switch sev {
	case models.SevError:
		l = level.Error(s.logger)
	case models.SevWarning:
		l = level.Warn(s.logger)
	default:
		l = level.Info(s.logger)
	}
	l.Log("msg", msg)
}
