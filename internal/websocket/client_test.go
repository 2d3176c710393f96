package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDispatchPingAnswersPongWithTimestamp(t *testing.T) {
	c := &Client{
		UserID: uuid.New(),
		Send:   make(chan []byte, 1),
	}

	before := time.Now().UnixMilli()
	c.dispatch([]byte(`{"event":"ping"}`))
	after := time.Now().UnixMilli()

	var envelope Envelope
	if err := json.Unmarshal(<-c.Send, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Event != EventPong {
		t.Fatalf("event = %q, want %q", envelope.Event, EventPong)
	}

	var payload PongPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Timestamp < before || payload.Timestamp > after {
		t.Errorf("timestamp = %d, want between %d and %d", payload.Timestamp, before, after)
	}
}

func TestDispatchUnknownEventRepliesError(t *testing.T) {
	c := &Client{
		UserID: uuid.New(),
		Send:   make(chan []byte, 1),
	}

	c.dispatch([]byte(`{"event":"teleport"}`))

	var envelope Envelope
	if err := json.Unmarshal(<-c.Send, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Event != EventError {
		t.Errorf("event = %q, want %q", envelope.Event, EventError)
	}
}
