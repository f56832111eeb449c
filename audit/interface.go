package audit

import "context"

// EventType classifies a recorded board event.
type EventType string

const (
	EventFlip  EventType = "flip"
	EventMatch EventType = "match"
	EventReset EventType = "reset"
)

// Event is one recorded occurrence on the board.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	PlayerID  string    `json:"player_id"`
	Index     int       `json:"index"`
	RecordedAt string   `json:"recorded_at"`
}

// PlayerActivity summarizes one player's recorded event counts.
type PlayerActivity struct {
	PlayerID   string `json:"player_id"`
	FlipCount  int    `json:"flip_count"`
	MatchCount int    `json:"match_count"`
}

// Store abstracts persistence for the board's event history.
// Implementations can be swapped for testing (mocks) or different
// backends.
type Store interface {
	// RecordEvent appends an event to the log. index is -1 for events
	// with no associated card (e.g. reset).
	RecordEvent(ctx context.Context, eventType EventType, playerID string, index int) error

	// ListByPlayerID returns every recorded event for playerID, most
	// recent first.
	ListByPlayerID(ctx context.Context, playerID string) ([]Event, error)

	// Activity returns per-player flip/match counts across all recorded
	// events.
	Activity(ctx context.Context) ([]PlayerActivity, error)

	// Close releases the store's resources.
	Close()
}
