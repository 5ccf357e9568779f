package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"chatd/pkg/models"
)

// Limits are operator-tunable input bounds applied before any store work.
type Limits struct {
	MaxTextBytes  int
	MaxEmojiBytes int
}

var limits = Limits{MaxTextBytes: 8192, MaxEmojiBytes: 64}

// SetLimits installs the effective limits. Zero fields keep the defaults.
func SetLimits(l Limits) {
	if l.MaxTextBytes > 0 {
		limits.MaxTextBytes = l.MaxTextBytes
	}
	if l.MaxEmojiBytes > 0 {
		limits.MaxEmojiBytes = l.MaxEmojiBytes
	}
}

// UserID checks that an id is a well-formed user reference: non-empty,
// bounded, printable, and free of the store's key separators.
func UserID(id string) error {
	if id == "" {
		return errors.New("user id required")
	}
	if len(id) > 128 {
		return errors.New("user id too long")
	}
	if strings.ContainsAny(id, "|:\n\r\t ") {
		return errors.New("user id contains invalid characters")
	}
	return nil
}

// Emoji checks a reaction emoji payload.
func Emoji(e string) error {
	if e == "" {
		return errors.New("emoji required")
	}
	if len(e) > limits.MaxEmojiBytes {
		return errors.New("emoji too long")
	}
	if !utf8.ValidString(e) {
		return errors.New("emoji is not valid UTF-8")
	}
	return nil
}

// Text checks message text content.
func Text(t string) error {
	if len(t) > limits.MaxTextBytes {
		return fmt.Errorf("text exceeds %d bytes", limits.MaxTextBytes)
	}
	if !utf8.ValidString(t) {
		return errors.New("text is not valid UTF-8")
	}
	return nil
}

// Content checks that exactly the content slot matching the kind is
// populated. An unknown kind or an empty matching slot is rejected.
func Content(kind, text, img string, gif *models.GifRef) error {
	switch kind {
	case models.KindText:
		if text == "" {
			return errors.New("text content required")
		}
		return Text(text)
	case models.KindImage:
		if img == "" {
			return errors.New("image reference required")
		}
	case models.KindGif:
		if gif == nil || gif.URL == "" {
			return errors.New("gif reference required")
		}
	default:
		return fmt.Errorf("unknown message kind: %q", kind)
	}
	return nil
}
