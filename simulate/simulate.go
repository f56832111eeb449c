// Package simulate drives a board with synthetic players, each
// repeatedly flipping random cards, so the concurrency model can be
// exercised under load without a real client.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"memscramble-server/board"
	"memscramble-server/matcherrors"
)

// Params controls the simulation run.
type Params struct {
	Players    int
	Tries      int
	MaxDelayMS int
}

// Run starts Params.Players goroutines, each attempting Params.Tries
// two-flip turns against b with randomized delays between flips, and
// blocks until they all finish or ctx is cancelled.
func Run(ctx context.Context, b *board.Board, p Params) {
	slog.Info("starting simulation", "tag", "simulate",
		"players", p.Players, "tries", p.Tries, "rows", b.Rows(), "cols", b.Cols())

	var wg sync.WaitGroup
	for i := 0; i < p.Players; i++ {
		playerID := fmt.Sprintf("P%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			simulatePlayer(ctx, b, playerID, p)
		}()
	}
	wg.Wait()

	slog.Info("simulation finished", "tag", "simulate")
}

func simulatePlayer(ctx context.Context, b *board.Board, playerID string, p Params) {
	slog.Info("joined the game", "tag", "simulate", "player", playerID)

	for attempt := 0; attempt < p.Tries; attempt++ {
		if ctx.Err() != nil {
			slog.Warn("interrupted", "tag", "simulate", "player", playerID)
			return
		}

		randomDelay(ctx, p.MaxDelayMS)
		first := randomIndex(b)
		if err := b.Flip(ctx, playerID, first); err != nil {
			logFlipError(playerID, first, err)
			continue
		}

		randomDelay(ctx, p.MaxDelayMS)
		second := randomIndex(b)
		if err := b.Flip(ctx, playerID, second); err != nil {
			logFlipError(playerID, second, err)
			continue
		}
	}

	slog.Info("finished playing", "tag", "simulate", "player", playerID)
}

func logFlipError(playerID string, index int, err error) {
	if errors.Is(err, matcherrors.ErrRestrictedAccess) {
		slog.Info("attempted restricted card access", "tag", "simulate", "player", playerID, "index", index)
		return
	}
	slog.Warn("flip failed", "tag", "simulate", "player", playerID, "index", index, "err", err)
}

func randomIndex(b *board.Board) int {
	return rand.Intn(b.Rows() * b.Cols())
}

func randomDelay(ctx context.Context, maxDelayMS int) {
	if maxDelayMS <= 0 {
		return
	}
	delay := time.Duration(rand.Int63n(int64(maxDelayMS))+1) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}
