package domain

// Channel identifies a contact-center channel advisors can be available on.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
	ChannelSMS   Channel = "sms"
	ChannelCall  Channel = "call"
)

// Advisor is a human agent currently marked available on a channel, together with
// the inbox that receives their email traffic.
type Advisor struct {
	UserID  string
	InboxID string
	Name    string
	Email   string
}
