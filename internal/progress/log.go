package progress

import "go.uber.org/zap"

// LogSink reports progress events through a zap logger, one line per
// identifier as it completes.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink builds a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume writes one structured log line per event.
func (s *LogSink) Consume(evt Event) {
	fields := []zap.Field{
		zap.String("run_id", evt.RunID.String()),
		zap.Int("batch", evt.BatchIndex),
	}
	switch evt.Stage {
	case StageRunStart:
		s.logger.Info("crawl run started", append(fields, zap.String("note", evt.Note))...)
	case StageAppDone:
		s.logger.Info("app crawled", append(fields,
			zap.Int("appid", evt.AppID),
			zap.String("outcome", string(evt.Outcome)),
			zap.Int("rows", evt.Rows),
			zap.Duration("dur", evt.Dur))...)
	case StageRunDone:
		s.logger.Info("crawl run finished", append(fields,
			zap.Duration("dur", evt.Dur),
			zap.String("note", evt.Note))...)
	case StageRunError:
		s.logger.Error("crawl run aborted", append(fields, zap.String("note", evt.Note))...)
	}
}
