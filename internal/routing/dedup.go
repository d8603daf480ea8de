package routing

import (
	"context"
	"fmt"
	"strings"
)

// Deduplicator answers whether an inbound event already produced a ticket message.
type Deduplicator struct {
	lookup Lookup
}

// NewDeduplicator builds a deduplicator over the message header index.
func NewDeduplicator(lookup Lookup) *Deduplicator {
	return &Deduplicator{lookup: lookup}
}

// AlreadyProcessed reports whether a message with the given header id is stored.
func (d *Deduplicator) AlreadyProcessed(ctx context.Context, headerMessageID string) (bool, error) {
	id := NormalizeHeaderID(headerMessageID)
	if id == "" {
		return false, nil
	}
	msg, err := d.lookup.MessageByHeaderID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	return msg != nil, nil
}

// NormalizeHeaderID strips whitespace, angle brackets and quotes from an RFC 5322 id.
func NormalizeHeaderID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = strings.Trim(value, "<>")
	value = strings.Trim(value, "\"")
	return strings.TrimSpace(value)
}
