package service

import (
	"errors"
	"fmt"
	"sort"

	"chatd/pkg/logger"
	"chatd/pkg/models"
	"chatd/pkg/realtime"
	"chatd/pkg/store"
	"chatd/pkg/users"
	"chatd/pkg/utils"
	"chatd/pkg/validation"
)

// Notifier pushes an event about a message to a user's realtime channel.
// Delivery is best effort; implementations never block and never report
// delivery failure to callers.
type Notifier interface {
	Notify(userID, event string, m models.Message)
}

// Service orchestrates conversation operations on top of the store. The
// directory resolves recipient profiles; the notifier is optional.
type Service struct {
	Dir    users.Directory
	Notify Notifier
}

// New returns a Service using the given directory and notifier.
func New(dir users.Directory, n Notifier) *Service {
	return &Service{Dir: dir, Notify: n}
}

func (s *Service) notify(userID, event string, m models.Message) {
	if s.Notify == nil {
		return
	}
	s.Notify.Notify(userID, event, m)
}

// SendInput carries one outbound message. Exactly one content slot must be
// populated according to Kind.
type SendInput struct {
	Sender    string
	Recipient string
	Kind      string
	Text      string
	Img       string
	Gif       *models.GifRef
	ReplyTo   string
}

// SendMessage persists a message from input.Sender to input.Recipient,
// creating the conversation on first contact, refreshes the conversation's
// preview and notifies the recipient. The returned conversation reflects the
// state after the send.
func (s *Service) SendMessage(in SendInput) (models.Message, models.Conversation, error) {
	var none models.Message
	if err := validation.UserID(in.Sender); err != nil {
		return none, models.Conversation{}, fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}
	if err := validation.UserID(in.Recipient); err != nil {
		return none, models.Conversation{}, fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}
	if in.Sender == in.Recipient {
		return none, models.Conversation{}, fmt.Errorf("%w: cannot message yourself", ErrInvalidRecipient)
	}
	if _, err := s.Dir.Resolve(in.Recipient); err != nil {
		if errors.Is(err, users.ErrUnknownUser) {
			return none, models.Conversation{}, fmt.Errorf("%w: %s", ErrInvalidRecipient, in.Recipient)
		}
		return none, models.Conversation{}, err
	}
	if err := validation.Content(in.Kind, in.Text, in.Img, in.Gif); err != nil {
		return none, models.Conversation{}, fmt.Errorf("%w: %v", ErrEmptyContent, err)
	}

	m := models.Message{
		ID:        utils.GenMessageID(),
		Sender:    in.Sender,
		Recipient: in.Recipient,
		Kind:      in.Kind,
		Text:      in.Text,
		Img:       in.Img,
		Gif:       in.Gif,
		ReplyTo:   in.ReplyTo,
	}
	preview := models.LastMessage{Text: m.PreviewText(), Sender: in.Sender}

	if in.ReplyTo != "" {
		// the parent must already live in this pair's conversation; checking
		// before get-or-create keeps a rejected reply from materializing one
		existing, err := store.FindConversationByPair(in.Sender, in.Recipient)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return none, models.Conversation{}, fmt.Errorf("reply_to: %w", ErrMessageNotFound)
			}
			return none, models.Conversation{}, err
		}
		parent, err := store.GetMessage(in.ReplyTo)
		if err != nil || parent.ConversationID != existing.ID {
			return none, models.Conversation{}, fmt.Errorf("reply_to: %w", ErrMessageNotFound)
		}
	}
	conv, _, err := store.GetOrCreateConversation(in.Sender, in.Recipient, preview)
	if err != nil {
		return none, models.Conversation{}, err
	}
	m.ConversationID = conv.ID
	if err := store.AppendMessage(&m); err != nil {
		return none, models.Conversation{}, err
	}
	if err := store.UpdateConversationPreview(conv.ID, preview, m.CreatedTS); err != nil {
		// the message is durable; surface the preview failure but keep it rare
		logger.Error("preview_update_failed", "conversation", conv.ID, "error", err)
	}
	if m.CreatedTS >= conv.UpdatedTS {
		conv.LastMessage = preview
		conv.UpdatedTS = m.CreatedTS
	}

	s.notify(in.Recipient, realtime.EventNewMessage, m)
	return m, conv, nil
}

// GetMessages returns the full history between the caller and the other user
// in insertion order. A pair with no conversation yet is an error, not an
// empty list.
func (s *Service) GetMessages(callerID, otherID string) ([]models.Message, error) {
	if err := validation.UserID(otherID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}
	conv, err := store.FindConversationByPair(callerID, otherID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return store.ListConversationMessages(conv.ID)
}

// ConversationView is a conversation prepared for listing: the caller is
// removed from the participant list and the remaining participant carries
// their resolved public summary.
type ConversationView struct {
	ID           string               `json:"id"`
	Participants []models.UserSummary `json:"participants"`
	LastMessage  models.LastMessage   `json:"last_message"`
	CreatedTS    int64                `json:"created_ts"`
	UpdatedTS    int64                `json:"updated_ts"`
}

// ListConversations returns every conversation the caller participates in,
// most recently updated first. Participants that cannot be resolved in the
// directory degrade to a bare id rather than dropping the conversation.
func (s *Service) ListConversations(callerID string) ([]ConversationView, error) {
	convs, err := store.ListConversationsFor(callerID)
	if err != nil {
		return nil, err
	}
	views := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		v := ConversationView{
			ID:          c.ID,
			LastMessage: c.LastMessage,
			CreatedTS:   c.CreatedTS,
			UpdatedTS:   c.UpdatedTS,
		}
		for _, p := range c.Participants {
			if p == callerID {
				continue
			}
			u, err := s.Dir.Resolve(p)
			if err != nil {
				u = models.UserSummary{ID: p}
			}
			v.Participants = append(v.Participants, u)
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].UpdatedTS > views[j].UpdatedTS })
	return views, nil
}

// DeleteConversation removes a conversation and all of its messages. Only a
// participant may delete.
func (s *Service) DeleteConversation(callerID, convID string) error {
	conv, err := store.GetConversation(convID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	if !conv.HasParticipant(callerID) {
		return fmt.Errorf("%w: not a participant", ErrForbidden)
	}
	return store.DeleteConversation(convID)
}

// ToggleReaction flips the (caller, emoji) reaction on a message. Both
// participants of the conversation may react; toggling twice restores the
// prior state. The other participant is notified of the updated message.
func (s *Service) ToggleReaction(callerID, msgID, emoji string) (models.Message, error) {
	var none models.Message
	if err := validation.Emoji(emoji); err != nil {
		return none, fmt.Errorf("%w: %v", ErrEmptyContent, err)
	}
	cur, err := store.GetMessage(msgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return none, ErrMessageNotFound
		}
		return none, err
	}
	conv, err := store.GetConversation(cur.ConversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return none, ErrMessageNotFound
		}
		return none, err
	}
	if !conv.HasParticipant(callerID) {
		return none, fmt.Errorf("%w: not a participant", ErrForbidden)
	}
	m, err := store.UpdateMessage(msgID, false, func(m *models.Message) error {
		if m.Deleted {
			return ErrMessageNotFound
		}
		m.ToggleReaction(callerID, emoji)
		return nil
	})
	if err != nil {
		return none, err
	}
	logger.Info("reaction_toggled", "msg_id", msgID, "user", callerID)
	s.notify(conv.OtherParticipant(callerID), realtime.EventReactionUpdated, m)
	return m, nil
}

// EditMessage replaces the text of a text message. Sender-only; identical
// text is rejected as NoChange; the superseded state is kept as a version.
func (s *Service) EditMessage(callerID, msgID, text string) (models.Message, error) {
	var none models.Message
	if text == "" {
		return none, fmt.Errorf("%w: text required", ErrEmptyContent)
	}
	if err := validation.Text(text); err != nil {
		return none, fmt.Errorf("%w: %v", ErrEmptyContent, err)
	}
	m, err := store.UpdateMessage(msgID, true, func(m *models.Message) error {
		if m.Deleted {
			return ErrMessageNotFound
		}
		if m.Sender != callerID {
			return fmt.Errorf("%w: only the sender may edit", ErrForbidden)
		}
		if m.Kind != models.KindText {
			return fmt.Errorf("%w: kind %s", ErrNotEditable, m.Kind)
		}
		if m.Text == text {
			return ErrNoChange
		}
		m.Text = text
		m.Edited = true
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return none, ErrMessageNotFound
		}
		return none, err
	}
	logger.Info("message_edited", "msg_id", msgID)
	s.notify(m.Recipient, realtime.EventMessageEdited, m)
	return m, nil
}

// DeleteMessage soft-deletes a message: content slots are cleared and the
// record stays as a tombstone so history keeps its shape. Sender-only.
func (s *Service) DeleteMessage(callerID, msgID string) (models.Message, error) {
	var none models.Message
	m, err := store.UpdateMessage(msgID, true, func(m *models.Message) error {
		if m.Deleted {
			return ErrMessageNotFound
		}
		if m.Sender != callerID {
			return fmt.Errorf("%w: only the sender may delete", ErrForbidden)
		}
		m.Deleted = true
		m.Text = ""
		m.Img = ""
		m.Gif = nil
		m.Reactions = nil
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return none, ErrMessageNotFound
		}
		return none, err
	}
	logger.Info("message_deleted", "msg_id", msgID)
	s.notify(m.Recipient, realtime.EventMessageDeleted, m)
	return m, nil
}

// MessageVersions returns the superseded states of a message, oldest first.
// Only the two participants may read history.
func (s *Service) MessageVersions(callerID, msgID string) ([]models.Message, error) {
	m, err := store.GetMessage(msgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if m.Sender != callerID && m.Recipient != callerID {
		return nil, fmt.Errorf("%w: not a participant", ErrForbidden)
	}
	return store.ListMessageVersions(msgID)
}
