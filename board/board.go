// Package board implements the Board entity: an ordered, fixed-length
// sequence of cards, the player-scoped flip protocol, and the global
// map/reset/watch operations that touch every card at once.
package board

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"memscramble-server/card"
	"memscramble-server/matcherrors"
)

// Board owns a fixed rows x columns grid of cards, addressed in row-major
// order, plus a private watch channel (its own mutex + condition
// variable) used only to signal observers of any change.
type Board struct {
	rows, cols int
	cards      []*card.Card

	watchMu   sync.Mutex
	watchCond sync.Cond
}

// New builds a board from the given dimensions and initial card values,
// in row-major order. len(values) must equal rows*cols. Every card's
// change notifier is wired to broadcast the board's watch condition
// variable.
func New(rows, cols int, values []string) (*Board, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("board: rows and columns must be positive, got %dx%d", rows, cols)
	}
	if len(values) != rows*cols {
		return nil, fmt.Errorf("board: expected %d card values, got %d", rows*cols, len(values))
	}

	b := &Board{rows: rows, cols: cols, cards: make([]*card.Card, rows*cols)}
	b.watchCond.L = &b.watchMu

	for i, v := range values {
		c := card.New(v)
		c.SetOnChange(b.notifyWatchers)
		b.cards[i] = c
	}
	b.checkRep()
	return b, nil
}

// Rows returns the number of rows.
func (b *Board) Rows() int { return b.rows }

// Cols returns the number of columns.
func (b *Board) Cols() int { return b.cols }

func (b *Board) notifyWatchers() {
	b.watchMu.Lock()
	b.watchCond.Broadcast()
	b.watchMu.Unlock()
}

// indexAt returns the linear index for (row, column), and whether it is
// in bounds.
func (b *Board) indexAt(row, column int) (int, bool) {
	if row < 0 || row >= b.rows || column < 0 || column >= b.cols {
		return 0, false
	}
	return row*b.cols + column, true
}

// Flip executes the three-step flip protocol for playerID at the given
// linear index: retire any unmatched prior-turn residue, collect a
// completed matched pair, then classify and act on the new flip (first or
// second card). No board-wide lock is held across the steps; each card
// self-synchronizes, and the player's own set of Controlled cards is only
// ever mutated by the player's own calling goroutine (see spec.md §4.2's
// concurrency-honesty argument).
func (b *Board) Flip(ctx context.Context, playerID string, index int) error {
	if index < 0 || index >= len(b.cards) {
		return fmt.Errorf("board: index %d out of range", index)
	}

	// Step 1 — retire unmatched prior turn.
	for _, c := range b.cards {
		if c.WasControlledBy(playerID) {
			c.FlipDown()
		}
	}

	// Step 2 — collect and remove a completed matched pair.
	controlled := b.controlledBy(playerID)
	if len(controlled) == 2 {
		controlled[0].RemoveCard()
		controlled[1].RemoveCard()
	}

	// Step 3 — classify and execute the new flip. A selected card that the
	// player already controls is always a no-op here (mirrors
	// flipUpAsFirst's own "already mine" no-op rule) — this keeps Step 3's
	// second-flip branch from ever being reached with selected == prev,
	// which is the premise the RestrictedAccess-on-same-card open question
	// decision in SPEC_FULL.md relies on.
	selected := b.cards[index]
	if selected.IsControlledBy(playerID) {
		b.checkRep()
		return nil
	}

	prev := b.firstControlledBy(playerID)

	if prev == nil {
		if err := selected.FlipUpAsFirst(ctx, playerID); err != nil {
			return matcherrors.WithIndex(err, index)
		}
		b.checkRep()
		return nil
	}

	if err := selected.FlipUpAsSecond(playerID); err != nil {
		prev.RelinquishControl()
		return matcherrors.WithIndex(err, index)
	}
	if !selected.Matches(prev) {
		selected.RelinquishControl()
		prev.RelinquishControl()
	}
	b.checkRep()
	return nil
}

// controlledBy returns every card currently Controlled by playerID. Per
// spec.md §4.2, this lock-free snapshot is sound because only playerID's
// own goroutine ever puts a card into, or takes a card out of, Controlled
// ownership by playerID.
func (b *Board) controlledBy(playerID string) []*card.Card {
	var out []*card.Card
	for _, c := range b.cards {
		if c.IsControlledBy(playerID) {
			out = append(out, c)
		}
	}
	return out
}

func (b *Board) firstControlledBy(playerID string) *card.Card {
	for _, c := range b.cards {
		if c.IsControlledBy(playerID) {
			return c
		}
	}
	return nil
}

// Map applies f to every card's value, with every card's lock held for
// the whole operation so no per-card operation can interleave a torn
// read. Lock order is each card's fixed position in the board — the same
// order for every caller, so Map can never deadlock against another Map,
// Reset, or a per-card operation (which holds at most one card lock).
func (b *Board) Map(f func(string) string) {
	b.withAllCardsLocked(0, func() {
		for _, c := range b.cards {
			c.SetValueLocked(f(c.ValueLocked()))
		}
	})
	b.notifyWatchers()
	b.checkRep()
}

// Replace is sugar for Map(v -> to if v == from else v), the façade
// operation named in spec.md §6.
func (b *Board) Replace(from, to string) {
	b.Map(func(v string) string {
		if v == from {
			return to
		}
		return v
	})
}

// Reset returns every card to Down with no owner, preserving values, under
// the same full ordered-lock discipline as Map. Each card also broadcasts
// its own condition variable while reset, so any first-flip waiter
// rechecks and observes Down instead of the state it was blocked on.
func (b *Board) Reset() {
	b.withAllCardsLocked(0, func() {
		for _, c := range b.cards {
			c.ResetLocked()
		}
	})
	b.notifyWatchers()
	b.checkRep()
}

// withAllCardsLocked recursively acquires every card's lock, in board
// order starting at index i, then runs fn while all of them are held, and
// unlocks in reverse order as the recursion unwinds. Mirrors the reference
// implementation's recursive-synchronized-block idiom for acquiring a
// fixed-order lock set in Go, where there is no language-level nested
// monitor statement to recurse through.
func (b *Board) withAllCardsLocked(i int, fn func()) {
	if i >= len(b.cards) {
		fn()
		return
	}
	c := b.cards[i]
	c.Lock()
	defer c.Unlock()
	b.withAllCardsLocked(i+1, fn)
}

// Watch blocks until any observable change occurs — any card state
// transition, or the completion of Map or Reset — or ctx is cancelled.
// Spurious wakes are possible; callers must tolerate them by re-reading
// state, as Watch itself does not report what changed.
func (b *Board) Watch(ctx context.Context) error {
	b.watchMu.Lock()
	defer b.watchMu.Unlock()

	if ctx.Err() != nil {
		return matcherrors.Cancelled(ctx.Err())
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			b.watchMu.Lock()
			b.watchCond.Broadcast()
			b.watchMu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	b.watchCond.Wait()
	if ctx.Err() != nil {
		return matcherrors.Cancelled(ctx.Err())
	}
	return nil
}

// Look returns the full textual snapshot for viewerID: a "{rows}x{cols}"
// header followed by one render line per card, row-major. No lock is held
// across the whole snapshot — each card is rendered under its own lock,
// so this is a per-card consistent view, not a globally consistent one.
func (b *Board) Look(viewerID string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%dx%d", b.rows, b.cols)
	for _, c := range b.cards {
		sb.WriteByte('\n')
		sb.WriteString(c.Render(viewerID))
	}
	return sb.String()
}

// checkRep asserts the board's structural invariant: positive dimensions,
// exactly rows*cols cards, no nil entries, and no card shared by two
// positions. Panics on violation, since a violation here means a bug in
// this package, not a caller error.
func (b *Board) checkRep() {
	if b.rows <= 0 || b.cols <= 0 {
		panic(fmt.Sprintf("board: invalid dimensions %dx%d", b.rows, b.cols))
	}
	if len(b.cards) != b.rows*b.cols {
		panic(fmt.Sprintf("board: card count %d does not match %dx%d", len(b.cards), b.rows, b.cols))
	}
	seen := make(map[*card.Card]bool, len(b.cards))
	for i, c := range b.cards {
		if c == nil {
			panic(fmt.Sprintf("board: nil card at index %d", i))
		}
		if seen[c] {
			panic(fmt.Sprintf("board: duplicate card reference at index %d", i))
		}
		seen[c] = true
	}
}

// IndexForRowColumn validates (row, column) against the board's bounds
// and returns the linear index, or matcherrors.ErrInvalidAddress.
func (b *Board) IndexForRowColumn(row, column int) (int, error) {
	idx, ok := b.indexAt(row, column)
	if !ok {
		return 0, matcherrors.InvalidAddress(row, column)
	}
	return idx, nil
}
