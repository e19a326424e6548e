// Package streaming implements the Streaming Protocol: the StreamEvent
// grammar, an SSE encoder, text/audio chunkers, and bounded-buffer
// backpressure with slow-consumer termination.
package streaming

import "time"

// EventType tags a StreamEvent per the connection grammar:
// start progress* (intent agent_selected)? (text|audio|progress|warning)* (done|error)
type EventType string

const (
	EventStart         EventType = "start"
	EventProgress      EventType = "progress"
	EventIntent        EventType = "intent"
	EventAgentSelected EventType = "agent_selected"
	EventText          EventType = "text"
	EventAudio         EventType = "audio"
	EventDone          EventType = "done"
	EventError         EventType = "error"
	EventWarning       EventType = "warning"
)

// StreamEvent is one ordered unit of a connection. Data is the
// event-specific payload, serialized as the SSE "data:" field.
type StreamEvent struct {
	Type      EventType              `json:"type"`
	Data      map[string]interface{} `json:"-"`
	Timestamp time.Time              `json:"-"`
}

// MarshalPayload returns the JSON object emitted as the SSE data field:
// {"type": <tag>, ...tag-specific fields}.
func (e StreamEvent) MarshalPayload() map[string]interface{} {
	out := make(map[string]interface{}, len(e.Data)+1)
	for k, v := range e.Data {
		out[k] = v
	}
	out["type"] = string(e.Type)
	return out
}

func NewStart(sessionID string) StreamEvent {
	return StreamEvent{Type: EventStart, Data: map[string]interface{}{"session_id": sessionID}, Timestamp: time.Now()}
}

func NewProgress(value float64, phase string) StreamEvent {
	return StreamEvent{Type: EventProgress, Data: map[string]interface{}{"progress": value, "phase": phase}, Timestamp: time.Now()}
}

func NewIntent(intentType string, confidence float64) StreamEvent {
	return StreamEvent{Type: EventIntent, Data: map[string]interface{}{"intent": intentType, "confidence": confidence}, Timestamp: time.Now()}
}

func NewAgentSelected(agentID string) StreamEvent {
	return StreamEvent{Type: EventAgentSelected, Data: map[string]interface{}{"agent_id": agentID}, Timestamp: time.Now()}
}

func NewText(chunk string) StreamEvent {
	return StreamEvent{Type: EventText, Data: map[string]interface{}{"text": chunk}, Timestamp: time.Now()}
}

func NewAudio(chunk []byte, final bool) StreamEvent {
	return StreamEvent{Type: EventAudio, Data: map[string]interface{}{"audio_base64": encodeAudio(chunk), "final": final}, Timestamp: time.Now()}
}

func NewDone() StreamEvent {
	return StreamEvent{Type: EventDone, Data: map[string]interface{}{"finished": true}, Timestamp: time.Now()}
}

func NewWarning(message string) StreamEvent {
	return StreamEvent{Type: EventWarning, Data: map[string]interface{}{"message": message}, Timestamp: time.Now()}
}

func NewError(reason, message string) StreamEvent {
	return StreamEvent{Type: EventError, Data: map[string]interface{}{"reason": reason, "message": message}, Timestamp: time.Now()}
}
