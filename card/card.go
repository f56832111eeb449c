// Package card implements the per-slot state machine of the board engine:
// a face-down/face-up/controlled/removed card with its own lock and
// condition variable. A Card does not know about the Board that holds it;
// it only holds an optional callback it invokes after releasing its lock,
// which lets the Board wire up change notification without the two types
// knowing about each other's synchronization.
package card

import (
	"context"
	"fmt"
	"sync"

	"memscramble-server/matcherrors"
)

// State is one of the four card states.
type State int

const (
	// Down is face-down, unowned, value hidden.
	Down State = iota
	// Up is face-up, unowned (left over from a failed match).
	Up
	// Controlled is face-up, owned by exactly one player.
	Controlled
	// Gone is matched and removed; terminal except via Reset.
	Gone
)

// String renders the state name, for logging only (not the player-facing
// render — see Render).
func (s State) String() string {
	switch s {
	case Down:
		return "down"
	case Up:
		return "up"
	case Controlled:
		return "controlled"
	case Gone:
		return "gone"
	default:
		return "unknown"
	}
}

// Card is a single slot on the board. Zero value is not usable; build with
// New. All exported methods are safe for concurrent use.
type Card struct {
	mu   sync.Mutex
	cond sync.Cond

	value string
	state State
	owner string

	// onChange, if set, is invoked after mu is released whenever a
	// transition changes what a viewer can observe (see the comment on
	// each method for exactly when that is).
	onChange func()
}

// New creates a card with the given initial value, face down.
func New(value string) *Card {
	c := &Card{value: value, state: Down}
	c.cond.L = &c.mu
	return c
}

// SetOnChange wires the change-notification callback. Intended to be
// called once, right after New, before the card is shared with any other
// goroutine.
func (c *Card) SetOnChange(f func()) {
	c.onChange = f
}

// Value returns the card's current value under its own lock.
func (c *Card) Value() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// State returns the card's current state under its own lock.
func (c *Card) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsControlledBy reports whether the card is Controlled by playerID.
func (c *Card) IsControlledBy(playerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Controlled && c.owner == playerID
}

// WasControlledBy reports whether the card is Up and was last controlled
// by playerID — i.e. the residue of that player's previous mismatched pair.
func (c *Card) WasControlledBy(playerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Up && c.owner == playerID
}

// Matches reports whether two cards currently have the same value. Each
// card's own lock is taken independently and released before returning;
// callers that already hold both locks (as Map does) must compare
// ValueLocked() instead, since Matches would try to take them again.
func (c *Card) Matches(other *Card) bool {
	return c.Value() == other.Value()
}

// FlipUpAsFirst attempts to take control of the card as the first card of
// a new pair. If the card is Down or Up, it is taken immediately. If it is
// already Controlled by playerID, this is a no-op (no notification). If it
// is Controlled by someone else, the call blocks until the card leaves
// Controlled, rechecking the state in a loop on every wake (spurious or
// real) — this is the only blocking card operation. If ctx is cancelled
// while waiting, FlipUpAsFirst returns matcherrors.ErrCancelled without
// mutating the card. If the card is (or becomes, after waiting) Gone, it
// fails with matcherrors.ErrCardRemoved.
func (c *Card) FlipUpAsFirst(ctx context.Context, playerID string) error {
	c.mu.Lock()

	if c.state == Controlled && c.owner == playerID {
		c.mu.Unlock()
		return nil
	}

	if c.state == Controlled {
		stopWaiting := c.watchContextForWait(ctx)
		for c.state == Controlled {
			if ctx.Err() != nil {
				stopWaiting()
				c.mu.Unlock()
				return matcherrors.Cancelled(ctx.Err())
			}
			c.cond.Wait()
		}
		stopWaiting()
	}

	if c.state == Gone {
		c.mu.Unlock()
		return matcherrors.ErrCardRemoved
	}

	c.state = Controlled
	c.owner = playerID
	c.checkRep()
	c.mu.Unlock()

	c.notify()
	return nil
}

// watchContextForWait spawns a goroutine that broadcasts the card's
// condition variable when ctx is done, so a FlipUpAsFirst blocked in
// cond.Wait() re-wakes to observe the cancellation instead of waiting
// forever for another player to release the card. Must be called with
// c.mu held; the returned stop function must be called (also with c.mu
// held) once waiting is done, to let the goroutine exit.
func (c *Card) watchContextForWait(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.cond.Broadcast()
			c.mu.Unlock()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// FlipUpAsSecond attempts to take control of the card as the second card
// of a pair in progress. Never blocks: Down and Up succeed immediately;
// Controlled (by anyone, including the caller — see SPEC_FULL.md's open
// question decisions) and Gone fail with matcherrors.ErrRestrictedAccess.
func (c *Card) FlipUpAsSecond(playerID string) error {
	c.mu.Lock()
	if c.state == Controlled || c.state == Gone {
		c.mu.Unlock()
		return matcherrors.RestrictedAccess(playerID)
	}
	c.state = Controlled
	c.owner = playerID
	c.checkRep()
	c.mu.Unlock()

	c.notify()
	return nil
}

// RelinquishControl moves a Controlled or Up card to Up, preserving its
// owner so WasControlledBy can still identify this player's mismatched
// residue on their next flip, and broadcasts the condition variable so
// blocked first-flip waiters recheck. Per the change-notification
// contract in spec.md §4.1, this does not itself call onChange — in
// the flip protocol, RelinquishControl is always reached either right
// after a notifying transition on the paired card in the same flip
// call (a mismatch) or right before the caller re-surfaces a
// RestrictedAccess failure, so a dedicated publication here would be
// redundant or moot.
func (c *Card) RelinquishControl() {
	c.mu.Lock()
	c.state = Up
	c.checkRep()
	c.cond.Broadcast()
	c.mu.Unlock()
}

// FlipDown moves an Up or Down card to Down, clearing its owner;
// Controlled and Gone cards are left unchanged. Broadcasts the condition
// variable and calls onChange unconditionally (see SPEC_FULL.md open
// question 2), even when the state does not change.
func (c *Card) FlipDown() {
	c.mu.Lock()
	if c.state != Controlled && c.state != Gone {
		c.state = Down
		c.owner = ""
	}
	c.checkRep()
	c.cond.Broadcast()
	c.mu.Unlock()

	c.notify()
}

// RemoveCard moves any non-Gone card to Gone, clearing its owner, and
// broadcasts so that any first-flip waiter observes the removal instead
// of waiting on a card that can never again be Controlled by anyone else.
func (c *Card) RemoveCard() {
	c.mu.Lock()
	c.state = Gone
	c.owner = ""
	c.checkRep()
	c.cond.Broadcast()
	c.mu.Unlock()

	c.notify()
}

// Reset returns the card to Down with no owner, preserving its value, and
// broadcasts so first-flip waiters recheck and see Down instead of
// whatever state they were waiting on.
func (c *Card) Reset() {
	c.mu.Lock()
	c.state = Down
	c.owner = ""
	c.checkRep()
	c.cond.Broadcast()
	c.mu.Unlock()

	c.notify()
}

// Lock and Unlock expose the card's mutex directly for board.Map and
// board.Reset, which must hold every card's lock at once in a fixed order
// before mutating. No other caller should use these; all single-card
// operations above are already self-synchronizing.
func (c *Card) Lock()   { c.mu.Lock() }
func (c *Card) Unlock() { c.mu.Unlock() }

// SetValueLocked sets the card's value. Caller must hold the card's lock
// (via Lock), used only by board.Map under the ordered full-board
// acquisition.
func (c *Card) SetValueLocked(value string) {
	c.value = value
}

// ValueLocked reads the card's value. Caller must hold the card's lock.
func (c *Card) ValueLocked() string {
	return c.value
}

// ResetLocked returns the card to Down with no owner and broadcasts.
// Caller must already hold the card's lock (via Lock), used only by
// board.Reset under the ordered full-board acquisition — it does not
// call onChange itself because board.Reset calls that once for the whole
// board after releasing every card lock.
func (c *Card) ResetLocked() {
	c.state = Down
	c.owner = ""
	c.checkRep()
	c.cond.Broadcast()
}

// Render returns the short display token for viewerID's perspective of
// this card: "down", "none", "up "+value, or "my "+value.
func (c *Card) Render(viewerID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case Down:
		return "down"
	case Gone:
		return "none"
	case Up:
		return "up " + c.value
	case Controlled:
		if c.owner == viewerID {
			return "my " + c.value
		}
		return "up " + c.value
	default:
		return "unknown"
	}
}

func (c *Card) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

// checkRep asserts the invariant relating state and owner: Controlled
// always has a non-empty owner; Down and Gone always have an empty
// owner; Up may have either (an empty owner from a never-claimed card,
// or a lingering owner left by RelinquishControl for WasControlledBy to
// find). Caller must hold c.mu. Panics on violation, since a violation
// here means a bug in this package, not a caller error.
func (c *Card) checkRep() {
	switch c.state {
	case Controlled:
		if c.owner == "" {
			panic("card: Controlled card has no owner")
		}
	case Down, Gone:
		if c.owner != "" {
			panic(fmt.Sprintf("card: %v card has unexpected owner %q", c.state, c.owner))
		}
	case Up:
		// owner may be empty or residual; either is valid.
	default:
		panic(fmt.Sprintf("card: unknown state %d", c.state))
	}
}
