// Package queue moves inbound email events through a Redis list with at-least-once
// delivery: entries are parked on a processing list while a worker handles them.
package queue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spec-kit/contact-center/internal/domain"
)

// ErrUndecodable marks queue entries that are not valid event JSON.
var ErrUndecodable = errors.New("undecodable queue entry")

// Envelope wraps an event with its delivery bookkeeping.
type Envelope struct {
	ID       string          `json:"id"`
	Attempts int             `json:"attempts"`
	Event    json.RawMessage `json:"event"`
}

// Delivery is one entry taken from the queue.
type Delivery struct {
	ID       string
	Attempts int
	Event    domain.InboundEmailEvent
	raw      string
}

// decodeEntry accepts both envelopes and bare event JSON pushed by the connector.
func decodeEntry(raw string) (*Delivery, error) {
	d := &Delivery{raw: raw}

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return d, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	payload := []byte(raw)
	if len(bytes.TrimSpace(env.Event)) > 0 && !bytes.Equal(bytes.TrimSpace(env.Event), []byte("null")) {
		payload = env.Event
		d.ID = env.ID
		d.Attempts = env.Attempts
	}
	if err := json.Unmarshal(payload, &d.Event); err != nil {
		return d, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return d, nil
}

func encodeEnvelope(id string, attempts int, event domain.InboundEmailEvent) (string, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	data, err := json.Marshal(Envelope{ID: id, Attempts: attempts, Event: body})
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	return string(data), nil
}
