package board

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"memscramble-server/card"
	"memscramble-server/matcherrors"
)

func twoByTwo(t *testing.T) *Board {
	t.Helper()
	b, err := New(2, 2, []string{"A", "B", "A", "B"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestNewValidatesDimensions(t *testing.T) {
	if _, err := New(0, 2, nil); err == nil {
		t.Fatal("expected error for zero rows")
	}
	if _, err := New(2, 2, []string{"A"}); err == nil {
		t.Fatal("expected error for mismatched value count")
	}
}

func TestLookHeaderAndLineCount(t *testing.T) {
	b := twoByTwo(t)
	snap := b.Look("p1")
	lines := strings.Split(snap, "\n")
	if lines[0] != "2x2" {
		t.Fatalf("expected header 2x2, got %q", lines[0])
	}
	if len(lines) != 5 {
		t.Fatalf("expected 1 header + 4 card lines, got %d", len(lines))
	}
	for _, l := range lines[1:] {
		if l != "down" {
			t.Fatalf("expected all cards down initially, got %q", l)
		}
	}
}

// S1 — successful match.
func TestScenarioSuccessfulMatch(t *testing.T) {
	b := twoByTwo(t)
	ctx := context.Background()

	if err := b.Flip(ctx, "p1", 0); err != nil {
		t.Fatal(err)
	}
	if err := b.Flip(ctx, "p1", 2); err != nil {
		t.Fatal(err)
	}

	want := "2x2\nmy A\ndown\nmy A\ndown"
	if got := b.Look("p1"); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}

	if err := b.Flip(ctx, "p1", 1); err != nil {
		t.Fatal(err)
	}

	want = "2x2\nnone\nmy B\nnone\ndown"
	if got := b.Look("p1"); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

// S2 — failed match.
func TestScenarioFailedMatch(t *testing.T) {
	b := twoByTwo(t)
	ctx := context.Background()

	if err := b.Flip(ctx, "p1", 0); err != nil {
		t.Fatal(err)
	}
	if err := b.Flip(ctx, "p1", 1); err != nil {
		t.Fatal(err)
	}

	want := "2x2\nup A\nup B\ndown\ndown"
	if got := b.Look("p2"); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}

	if err := b.Flip(ctx, "p1", 3); err != nil {
		t.Fatal(err)
	}

	want = "2x2\ndown\ndown\ndown\nup B"
	if got := b.Look("p2"); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

// S3 — contention: a blocked waiter wakes when the controller mismatches
// and relinquishes, and takes over as the new first flip without losing
// the update.
func TestScenarioContention(t *testing.T) {
	b := twoByTwo(t)
	ctx := context.Background()

	if err := b.Flip(ctx, "p1", 0); err != nil {
		t.Fatal(err)
	}

	result := make(chan error, 1)
	go func() { result <- b.Flip(ctx, "p2", 0) }()
	time.Sleep(20 * time.Millisecond)

	if err := b.Flip(ctx, "p1", 1); err != nil { // mismatch, relinquishes both
		t.Fatal(err)
	}

	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("p2 flip failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("p2 never unblocked")
	}

	if !cardControlledBy(b, 0, "p2") {
		t.Fatalf("expected cards[0] controlled by p2")
	}
}

// S4 — removal race: a waiter blocked in first-flip observes a removal
// and fails with CardRemoved.
func TestScenarioRemovalRace(t *testing.T) {
	b := twoByTwo(t)
	ctx := context.Background()

	if err := b.Flip(ctx, "p1", 0); err != nil {
		t.Fatal(err)
	}
	if err := b.Flip(ctx, "p1", 2); err != nil {
		t.Fatal(err)
	}

	result := make(chan error, 1)
	go func() { result <- b.Flip(ctx, "p2", 0) }()
	time.Sleep(20 * time.Millisecond)

	if err := b.Flip(ctx, "p1", 1); err != nil { // retires the match: cards 0,2 -> Gone
		t.Fatal(err)
	}

	select {
	case err := <-result:
		if !errors.Is(err, matcherrors.ErrCardRemoved) {
			t.Fatalf("expected ErrCardRemoved, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("p2 never unblocked")
	}
}

// S5 — map during match: Map cannot observe a torn card state, and the
// transformed value still matches on a subsequent flip.
func TestScenarioMapDuringMatch(t *testing.T) {
	b := twoByTwo(t)
	ctx := context.Background()

	if err := b.Flip(ctx, "p1", 0); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.Map(func(v string) string { return v + "*" })
	}()
	wg.Wait()

	if !cardControlledBy(b, 0, "p1") {
		t.Fatalf("expected cards[0] still controlled by p1 after map")
	}

	if err := b.Flip(ctx, "p1", 2); err != nil {
		t.Fatal(err)
	}
	if !cardControlledBy(b, 2, "p1") {
		t.Fatalf("expected the transformed values to still match")
	}
}

// S6 — reset during wait: a blocked waiter wakes to Down and proceeds to
// take control.
func TestScenarioResetDuringWait(t *testing.T) {
	b := twoByTwo(t)
	ctx := context.Background()

	if err := b.Flip(ctx, "p1", 0); err != nil {
		t.Fatal(err)
	}

	result := make(chan error, 1)
	go func() { result <- b.Flip(ctx, "p2", 0) }()
	time.Sleep(20 * time.Millisecond)

	b.Reset()

	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("p2 flip failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("p2 never unblocked")
	}

	if !cardControlledBy(b, 0, "p2") {
		t.Fatalf("expected cards[0] controlled by p2 after reset+flip")
	}
	for i, c := range b.cards {
		if i == 0 {
			continue
		}
		if c.State() != card.Down {
			t.Fatalf("expected cards[%d] down after reset, got %v", i, c.State())
		}
	}
}

// R1 — flip(p,i); flip(p,i) on a Down card with no other flip by p is a
// no-op on the second call.
func TestRoundTripDoubleFlipSameIndex(t *testing.T) {
	b := twoByTwo(t)
	ctx := context.Background()

	if err := b.Flip(ctx, "p1", 0); err != nil {
		t.Fatal(err)
	}
	if err := b.Flip(ctx, "p1", 0); err != nil {
		t.Fatalf("second flip on same index should be a no-op, got: %v", err)
	}
	if !cardControlledBy(b, 0, "p1") {
		t.Fatalf("expected cards[0] still controlled by p1")
	}
}

// R2 — reset(); reset() equals a single reset().
func TestRoundTripDoubleReset(t *testing.T) {
	b := twoByTwo(t)
	ctx := context.Background()
	b.Flip(ctx, "p1", 0)
	b.Reset()
	b.Reset()
	want := "2x2\ndown\ndown\ndown\ndown"
	if got := b.Look("p1"); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

// R3 — map(id); map(id) equals map(id) equals a no-op on values.
func TestRoundTripDoubleIdentityMap(t *testing.T) {
	b := twoByTwo(t)
	id := func(v string) string { return v }
	before := b.Look("p1")
	b.Map(id)
	b.Map(id)
	after := b.Look("p1")
	if before != after {
		t.Fatalf("identity map should not change the board: before=%q after=%q", before, after)
	}
}

// I6 — map(f) preserves state/owner and only replaces value.
func TestMapPreservesStateAndOwner(t *testing.T) {
	b := twoByTwo(t)
	ctx := context.Background()
	b.Flip(ctx, "p1", 0)

	b.Map(func(v string) string { return strings.ToLower(v) })

	if !cardControlledBy(b, 0, "p1") {
		t.Fatalf("expected ownership preserved across map")
	}
	if b.cards[0].Value() != "a" {
		t.Fatalf("expected value lowercased, got %q", b.cards[0].Value())
	}
}

func TestIndexForRowColumnBounds(t *testing.T) {
	b := twoByTwo(t)
	if idx, err := b.IndexForRowColumn(1, 1); err != nil || idx != 3 {
		t.Fatalf("expected index 3, got %d err=%v", idx, err)
	}
	if _, err := b.IndexForRowColumn(2, 0); !errors.Is(err, matcherrors.ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if _, err := b.IndexForRowColumn(0, -1); !errors.Is(err, matcherrors.ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestWatchUnblocksOnChange(t *testing.T) {
	b := twoByTwo(t)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- b.Watch(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	if err := b.Flip(ctx, "p1", 0); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not unblock after a flip")
	}
}

func TestWatchUnblocksOnContextCancel(t *testing.T) {
	b := twoByTwo(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Watch(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, matcherrors.ErrCancelled) {
			t.Fatalf("expected ErrCancelled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not unblock after cancellation")
	}
}

func cardControlledBy(b *Board, index int, playerID string) bool {
	return b.cards[index].IsControlledBy(playerID)
}
