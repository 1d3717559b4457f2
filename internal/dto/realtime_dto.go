package dto

import "encoding/json"

// Socket event names.
const (
	EventJoin        = "join"
	EventJoined      = "joined"
	EventSendMessage = "sendMessage"
	EventMessage     = "message"
	EventLeave       = "leave"
	EventLeft        = "left"
	EventError       = "error"
)

// Envelope frames every socket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinPayload struct {
	ChatID   string `json:"chatId"`
	Username string `json:"username,omitempty"`
}

type LeavePayload struct {
	ChatID   string `json:"chatId"`
	Username string `json:"username,omitempty"`
}

type SendMessagePayload struct {
	ChatID   string `json:"chatId"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Content  string `json:"content"`
}

type RoomAck struct {
	ChatID string `json:"chatId"`
}

type SocketError struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// NewEnvelope marshals data under event.
func NewEnvelope(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
