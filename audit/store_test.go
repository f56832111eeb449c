package audit

import (
	"context"
	"testing"
)

func TestNewPostgresStoreWithEmptyURLIsDisabled(t *testing.T) {
	store, err := NewPostgresStore(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store != nil {
		t.Fatalf("expected a nil store for an empty database URL")
	}
}

func TestNilStoreOperationsAreNoOps(t *testing.T) {
	var store *PostgresStore

	if err := store.RecordEvent(context.Background(), EventFlip, "p1", 0); err != nil {
		t.Fatalf("RecordEvent on nil store should be a no-op, got: %v", err)
	}

	events, err := store.ListByPlayerID(context.Background(), "p1")
	if err != nil || len(events) != 0 {
		t.Fatalf("ListByPlayerID on nil store should return an empty slice, got %v, %v", events, err)
	}

	activity, err := store.Activity(context.Background())
	if err != nil || len(activity) != 0 {
		t.Fatalf("Activity on nil store should return an empty slice, got %v, %v", activity, err)
	}

	store.Close() // must not panic
}
