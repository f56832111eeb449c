// Package resetscheduler periodically resets a board (every card face
// down and unowned, current values kept), so abandoned games don't leave
// the board permanently stuck mid-match.
package resetscheduler

import (
	"context"
	"log/slog"
	"time"

	"memscramble-server/board"
)

// Scheduler resets a board on a fixed interval until stopped.
type Scheduler struct {
	board    *board.Board
	interval time.Duration
	cancel   chan struct{}
}

// New returns a Scheduler that resets b every interval. A non-positive
// interval makes Run a no-op.
func New(b *board.Board, interval time.Duration) *Scheduler {
	return &Scheduler{board: b, interval: interval, cancel: make(chan struct{})}
}

// Run blocks, resetting the board on each tick, until ctx is cancelled
// or Stop is called. Run should be started in its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.board.Reset()
			slog.Info("board reset", "tag", "resetscheduler")
		case <-s.cancel:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop requests Run to exit. Safe to call once.
func (s *Scheduler) Stop() {
	close(s.cancel)
}
