package routing

import (
	"regexp"

	"github.com/spec-kit/contact-center/internal/domain"
)

var replyMarkerPattern = regexp.MustCompile(`(?i)^\s*(re|r)\s*:`)

// HasReplyMarker reports whether a subject starts with "Re:" or "R:".
func HasReplyMarker(subject string) bool {
	return replyMarkerPattern.MatchString(subject)
}

// ResolveDeliveryState picks the state a message is stored with. A matched case is
// authoritative; the subject marker only decides between SENT and REPLY for events
// no case claimed.
func ResolveDeliveryState(res Result, subject string) domain.DeliveryState {
	if res.Matched && res.State != "" {
		return res.State
	}
	if HasReplyMarker(subject) {
		return domain.DeliveryReply
	}
	return domain.DeliverySent
}
