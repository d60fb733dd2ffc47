package live

import "encoding/json"

type Message struct {
	Type     string          `json:"type"`
	CanvasID string          `json:"canvasId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

const (
	TypeWelcome = "welcome"

	// Canvas sync: the payload is the full export record.
	TypeCanvasSync = "canvas.sync"

	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceLeave  = "presence.leave"
)

type WelcomePayload struct {
	ClientID string `json:"clientId"`
}

// PresencePayload is what a viewer shares with the others: where its
// pointer is and which objects it has selected.
type PresencePayload struct {
	Cursor    *CursorPos `json:"cursor,omitempty"`
	Selection []string   `json:"selection,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
}

func newMessage(typ, canvasID string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, CanvasID: canvasID, Payload: data}, nil
}
