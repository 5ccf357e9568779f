package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToggleReaction(t *testing.T) {
	m := &Message{ID: "m1"}

	m.ToggleReaction("alice", "👍")
	require.True(t, m.HasReaction("alice", "👍"))

	// a user may hold several different emojis
	m.ToggleReaction("alice", "❤️")
	require.True(t, m.HasReaction("alice", "👍"))
	require.True(t, m.HasReaction("alice", "❤️"))

	// toggling twice restores the prior state
	m.ToggleReaction("alice", "👍")
	require.False(t, m.HasReaction("alice", "👍"))
	require.True(t, m.HasReaction("alice", "❤️"))

	// removing the last reaction clears the maps entirely
	m.ToggleReaction("alice", "❤️")
	require.Nil(t, m.Reactions)
}

func TestPreviewText(t *testing.T) {
	require.Equal(t, "hello", (&Message{Kind: KindText, Text: "hello"}).PreviewText())
	require.Equal(t, "[Image]", (&Message{Kind: KindImage, Img: "https://cdn/x.png"}).PreviewText())
	require.Equal(t, "[GIF]", (&Message{Kind: KindGif, Gif: &GifRef{URL: "https://giphy/x"}}).PreviewText())
}

func TestConversationParticipants(t *testing.T) {
	c := &Conversation{Participants: []string{"alice", "bob"}}
	require.True(t, c.HasParticipant("alice"))
	require.False(t, c.HasParticipant("carol"))
	require.Equal(t, "bob", c.OtherParticipant("alice"))
	require.Equal(t, "", c.OtherParticipant("carol"))
}
