package watchhub

import "encoding/json"

// changedMessage is the single outbound frame type: a watch client
// learns only that something changed, and is expected to call
// board.Look itself (via the HTTP façade) for the new state.
type changedMessage struct {
	Type string `json:"type"`
}

func encodeChanged() []byte {
	data, _ := json.Marshal(changedMessage{Type: "changed"})
	return data
}
