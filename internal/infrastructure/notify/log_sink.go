package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/originals/task-api/internal/core/domain"
	"github.com/originals/task-api/internal/pkg/metrics"
)

// LogSink writes notifications to the structured log.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Send(_ context.Context, change domain.StatusChange) error {
	s.log.Info().
		Int64("task_id", change.TaskID).
		Str("status", string(change.Status)).
		Time("changed_at", change.ChangedAt).
		Msg(Message(change))
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	return nil
}
