package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/originals/task-api/internal/core/domain"
	"github.com/originals/task-api/internal/pkg/metrics"
)

// Claimer records a change id and reports whether it is new.
type Claimer interface {
	Claim(ctx context.Context, taskID int64, changeID string) (bool, error)
}

// Deduper forwards a change to the next Sink only the first time its ID is
// seen. Changes without an ID, and changes whose claim fails, are delivered.
type Deduper struct {
	claims Claimer
	next   Sink
	log    zerolog.Logger
}

func NewDeduper(claims Claimer, next Sink, log zerolog.Logger) *Deduper {
	return &Deduper{claims: claims, next: next, log: log}
}

func (d *Deduper) Send(ctx context.Context, change domain.StatusChange) error {
	if change.ID == "" {
		return d.next.Send(ctx, change)
	}
	first, err := d.claims.Claim(ctx, change.TaskID, change.ID)
	if err != nil {
		d.log.Warn().Err(err).Int64("task_id", change.TaskID).Msg("dedup unavailable, delivering")
	} else if !first {
		metrics.NotificationsTotal.WithLabelValues("deduplicated").Inc()
		d.log.Debug().Int64("task_id", change.TaskID).Str("change_id", change.ID).Msg("duplicate notification skipped")
		return nil
	}
	return d.next.Send(ctx, change)
}
