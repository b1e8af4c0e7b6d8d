package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/callwave/callwave/internal/callsession"
	"github.com/callwave/callwave/pkg/domain"
)

type EventType string

const (
	EventSubscribe         EventType = "subscribe"
	EventUnsubscribe       EventType = "unsubscribe"
	EventCallStatusUpdate  EventType = "callStatusUpdate"
	EventCallHistoryUpdate EventType = "callHistoryUpdate"
	EventError             EventType = "error"
)

// Envelope is the frame exchanged in both directions.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SubscribeData selects the session whose events the server should send.
type SubscribeData struct {
	SessionID int64 `json:"sessionId"`
}

// ErrorData is sent by the server when a frame is rejected.
type ErrorData struct {
	Message string `json:"message"`
}

// Encode builds a frame from a typed payload.
func Encode(event EventType, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// Decode turns a server frame into a reducer event. Frames that carry no
// session state (errors, unknown events) return a nil event and no error.
func Decode(raw []byte) (callsession.Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	switch env.Event {
	case EventCallStatusUpdate:
		var u domain.CallStatusUpdate
		if err := json.Unmarshal(env.Data, &u); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", env.Event, err)
		}
		return callsession.StatusUpdated{Update: u}, nil
	case EventCallHistoryUpdate:
		var u domain.CallHistoryUpdate
		if err := json.Unmarshal(env.Data, &u); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", env.Event, err)
		}
		return callsession.HistoryUpdated{Update: u}, nil
	}
	return nil, nil
}
