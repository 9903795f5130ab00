package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDedupWindow = time.Hour

// DedupChecker claims notification keys in Redis so a status change that is
// handed to the sink more than once is delivered at most once per window.
// Key format: notify:<task_id>:<change_id>
type DedupChecker struct {
	client *redis.Client
	window time.Duration
}

// NewDedupChecker creates a DedupChecker wrapping the given Redis client.
// A non-positive window falls back to one hour.
func NewDedupChecker(client *redis.Client, window time.Duration) *DedupChecker {
	if window <= 0 {
		window = defaultDedupWindow
	}
	return &DedupChecker{client: client, window: window}
}

// Claim records the change and reports whether this caller was first to do
// so within the window.
func (d *DedupChecker) Claim(ctx context.Context, taskID int64, changeID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, Key(taskID, changeID), "1", d.window).Result()
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}
	return ok, nil
}

// Key builds the dedup key for a status change.
func Key(taskID int64, changeID string) string {
	return fmt.Sprintf("notify:%d:%s", taskID, changeID)
}
