package agent

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownEvent marks an event shape outside the closed set. Callers
// quarantine these at the boundary instead of passing raw data inward.
var ErrUnknownEvent = errors.New("unknown agent event")

// Event is one decoded runner event. The set is closed: anything the
// decoder does not recognize is rejected, never propagated.
type Event interface {
	event()
}

// Item is a unit of streamed run output (a message, tool call, or system
// notice), identified by the runner's item id.
type Item struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EventRunStarted is emitted once when the run is accepted by the backend.
type EventRunStarted struct {
	RemoteThreadID string `json:"thread_id,omitempty"`
}

// EventItemStarted announces an item now streaming.
type EventItemStarted struct {
	Item Item `json:"item"`
}

// EventItemCompleted carries the final content of an item.
type EventItemCompleted struct {
	Item Item `json:"item"`
}

// EventRunCompleted ends the run successfully.
type EventRunCompleted struct{}

// EventRunFailed ends the run with an error.
type EventRunFailed struct {
	Reason string `json:"reason"`
}

func (EventRunStarted) event()   {}
func (EventItemStarted) event()  {}
func (EventItemCompleted) event() {}
func (EventRunCompleted) event() {}
func (EventRunFailed) event()    {}

type eventEnvelope struct {
	Type string `json:"type"`
}

// DecodeEvent decodes one wire event into the closed tagged set.
func DecodeEvent(data []byte) (Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed agent event: %w", err)
	}

	switch env.Type {
	case "run_started":
		var ev EventRunStarted
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("malformed run_started event: %w", err)
		}
		return ev, nil
	case "item_started":
		var ev EventItemStarted
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("malformed item_started event: %w", err)
		}
		return ev, nil
	case "item_completed":
		var ev EventItemCompleted
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("malformed item_completed event: %w", err)
		}
		return ev, nil
	case "run_completed":
		return EventRunCompleted{}, nil
	case "run_failed":
		var ev EventRunFailed
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("malformed run_failed event: %w", err)
		}
		return ev, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
}
