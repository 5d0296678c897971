package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedMessage = errors.New("malformed realtime message")

// Message is one inbound frame. The wire format names its fields either
// type/data or kind/payload; both are accepted.
type Message struct {
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

type wireMessage struct {
	Type      string          `json:"type"`
	Kind      string          `json:"kind"`
	Data      json.RawMessage `json:"data"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp json.RawMessage `json:"timestamp"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	m.Kind = w.Kind
	if m.Kind == "" {
		m.Kind = w.Type
	}

	m.Payload = w.Payload
	if len(m.Payload) == 0 {
		m.Payload = w.Data
	}

	m.Timestamp = ""
	if len(w.Timestamp) > 0 {
		var ts string
		if err := json.Unmarshal(w.Timestamp, &ts); err == nil {
			m.Timestamp = ts
		} else {
			m.Timestamp = string(w.Timestamp)
		}
	}
	return nil
}

// ParseMessage decodes a raw frame. Anything that is not a JSON object with a
// non-empty kind is reported as ErrMalformedMessage.
func ParseMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Kind == "" {
		return Message{}, fmt.Errorf("%w: missing kind", ErrMalformedMessage)
	}
	return msg, nil
}
