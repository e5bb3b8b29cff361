package line

// WebhookRequest is the body LINE posts to the callback endpoint.
type WebhookRequest struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

type Event struct {
	Type       string  `json:"type"`
	ReplyToken string  `json:"replyToken"`
	Timestamp  int64   `json:"timestamp"`
	Source     Source  `json:"source"`
	Message    Message `json:"message"`
}

// Source identifies where the event came from. Type is "user", "group"
// or "room"; UserID is present in all three when the sender has agreed
// to be identified.
type Source struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// IsGroupChannel reports whether the message arrived in a shared channel,
// where the bot only answers when addressed.
func (s Source) IsGroupChannel() bool {
	return s.Type != "user"
}

type Message struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}
