package bus

import (
	"encoding/json"
	"fmt"
)

// DefaultChannel is the channel name every panel context joins.
const DefaultChannel = "fabrica-cultura-sync"

// Message is one event on a channel. Payload carries a full value, never
// a delta.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessage encodes payload as JSON and wraps it in a Message.
func NewMessage(typ string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("bus: encode %s payload: %w", typ, err)
	}
	return Message{Type: typ, Payload: data}, nil
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("bus: %s message has no payload", m.Type)
	}
	return json.Unmarshal(m.Payload, v)
}

// Handler receives messages delivered to an endpoint.
type Handler func(Message)
