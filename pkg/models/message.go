package models

// Message kinds. A message carries exactly one content slot matching its kind.
const (
	KindText  = "text"
	KindImage = "image"
	KindGif   = "gif"
)

// GifRef is a structured reference to an externally hosted GIF.
type GifRef struct {
	ID    string `json:"id,omitempty"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Sender         string `json:"sender"`
	// Recipient is redundant with the conversation lookup but kept for
	// direct delivery addressing.
	Recipient string `json:"recipient"`
	Kind      string `json:"kind"`
	// Content slots; exactly one is populated according to Kind.
	Text string  `json:"text,omitempty"`
	Img  string  `json:"img,omitempty"`
	Gif  *GifRef `json:"gif,omitempty"`
	// Optional reply-to message ID in the same conversation (lookup-only)
	ReplyTo string `json:"reply_to,omitempty"`
	// Reactions maps user id -> set of emoji held by that user. A user may
	// hold several different emojis but at most one of each.
	Reactions map[string]map[string]bool `json:"reactions,omitempty"`
	// Edited is set the first time the text changes post-creation
	Edited bool `json:"edited,omitempty"`
	// Deleted flag; a deleted message stays as a tombstone with content cleared
	Deleted bool `json:"deleted,omitempty"`
	// Created timestamp (ns), primary sort key within a conversation
	CreatedTS int64 `json:"created_ts"`
	// Seq breaks ordering ties between messages created in the same nanosecond
	Seq uint64 `json:"seq,omitempty"`
}

// HasReaction reports whether userID currently holds emoji on the message.
func (m *Message) HasReaction(userID, emoji string) bool {
	return m.Reactions[userID][emoji]
}

// ToggleReaction adds the (userID, emoji) reaction when absent and removes it
// when present. Applying it twice restores the prior state.
func (m *Message) ToggleReaction(userID, emoji string) {
	if m.Reactions == nil {
		m.Reactions = map[string]map[string]bool{}
	}
	set := m.Reactions[userID]
	if set[emoji] {
		delete(set, emoji)
		if len(set) == 0 {
			delete(m.Reactions, userID)
		}
		if len(m.Reactions) == 0 {
			m.Reactions = nil
		}
		return
	}
	if set == nil {
		set = map[string]bool{}
		m.Reactions[userID] = set
	}
	set[emoji] = true
}

// PreviewText renders the conversation-list preview for the message. Text
// messages show their text; other kinds show a short placeholder.
func (m *Message) PreviewText() string {
	switch m.Kind {
	case KindGif:
		return "[GIF]"
	case KindImage:
		return "[Image]"
	default:
		return m.Text
	}
}
