package models

// Conversation is the persistent record of a direct-message exchange
// between exactly two users.
// Participants are stored normalized (lexically sorted) and never change
// after creation; for any unordered pair at most one conversation exists.
type Conversation struct {
	ID           string      `json:"id"`
	Participants []string    `json:"participants"`
	LastMessage  LastMessage `json:"last_message"`
	// Created timestamp (ns), immutable
	CreatedTS int64 `json:"created_ts"`
	// Updated timestamp (ns) - bumped whenever LastMessage changes
	UpdatedTS int64 `json:"updated_ts"`
	// Deleting marks a conversation whose message purge has started; the
	// sweeper finishes the delete if the process died between phases.
	Deleting bool `json:"deleting,omitempty"`
}

// LastMessage is the denormalized preview shown in conversation lists. It is
// rewritten on every send and deliberately left untouched by edit, delete
// and reaction operations.
type LastMessage struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
	Seen   bool   `json:"seen"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID, or empty
// string when userID is not a participant.
func (c *Conversation) OtherParticipant(userID string) string {
	if !c.HasParticipant(userID) {
		return ""
	}
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	// both participants equal userID cannot happen; pairs are two distinct ids
	return ""
}
