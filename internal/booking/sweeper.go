package booking

import (
	"context"
	"log"
	"time"
)

// StartSweeper launches the periodic expired-hold sweep in its own
// goroutine and returns immediately.  The sweep exists for promptness
// of seat release, not correctness: Hold sweeps eagerly on every
// attempt, so a stalled sweeper never causes double-booking.  The
// goroutine exits when ctx is cancelled.
func (c *Coordinator) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := c.ReleaseExpired(ctx, c.Now().UTC())
				if err != nil {
					log.Printf("sweeper: release expired holds failed: %v", err)
					continue
				}
				if removed > 0 {
					log.Printf("sweeper: released %d expired hold seat(s)", removed)
				}
			}
		}
	}()
}
