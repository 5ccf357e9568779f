package service

import "errors"

// Sentinel errors describing why an operation was rejected. The HTTP layer
// maps them to status codes; everything else surfaces as a 500.
var (
	// ErrInvalidRecipient covers malformed ids and self-addressed messages.
	ErrInvalidRecipient = errors.New("invalid recipient")
	// ErrEmptyContent is returned when the content slot for the kind is empty.
	ErrEmptyContent = errors.New("message content is empty")
	// ErrConversationNotFound distinguishes a missing conversation from an
	// existing conversation with no messages.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrMessageNotFound is returned when a message id resolves to nothing.
	ErrMessageNotFound = errors.New("message not found")
	// ErrForbidden is returned when the caller is not allowed to act on the
	// target, e.g. editing someone else's message.
	ErrForbidden = errors.New("not allowed")
	// ErrNoChange is returned when an edit carries text identical to the
	// current text.
	ErrNoChange = errors.New("text unchanged")
	// ErrNotEditable is returned when editing a non-text or deleted message.
	ErrNotEditable = errors.New("message is not editable")
)
