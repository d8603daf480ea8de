package routing

import (
	"sort"

	"github.com/spec-kit/contact-center/internal/domain"
)

// ThreadEntry is a message together with the message it replies to, when known.
type ThreadEntry struct {
	Message   domain.Message
	RepliedTo *domain.Message
}

// BuildThread reconstructs the reply graph of a ticket's messages in the order they
// were stored. Sender-supplied Date only breaks ties since it can be forged or skewed.
// It never mutates its input and yields the same graph for any ordering of the same
// messages.
func BuildThread(messages []domain.Message) []ThreadEntry {
	ordered := make([]domain.Message, len(messages))
	copy(ordered, messages)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		if ordered[i].HeaderMessageID != ordered[j].HeaderMessageID {
			return ordered[i].HeaderMessageID < ordered[j].HeaderMessageID
		}
		return ordered[i].ID < ordered[j].ID
	})

	byHeader := make(map[string]int, len(ordered))
	for i, msg := range ordered {
		if msg.HeaderMessageID == "" {
			continue
		}
		if _, exists := byHeader[msg.HeaderMessageID]; !exists {
			byHeader[msg.HeaderMessageID] = i
		}
	}

	entries := make([]ThreadEntry, len(ordered))
	for i, msg := range ordered {
		entries[i] = ThreadEntry{Message: msg}
		if msg.InReplyToHeaderID == nil {
			continue
		}
		idx, ok := byHeader[*msg.InReplyToHeaderID]
		if !ok || idx == i {
			continue
		}
		parent := ordered[idx]
		entries[i].RepliedTo = &parent
	}
	return entries
}

// Roots returns the entries that start a branch of the thread.
func Roots(entries []ThreadEntry) []ThreadEntry {
	var roots []ThreadEntry
	for _, entry := range entries {
		if entry.RepliedTo == nil {
			roots = append(roots, entry)
		}
	}
	return roots
}
