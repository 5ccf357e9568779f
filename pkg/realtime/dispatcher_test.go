package realtime

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"chatd/pkg/models"
	"chatd/pkg/presence"
)

type captureChannel struct {
	sent    [][]byte
	sendErr error
}

func (c *captureChannel) Send(data []byte) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *captureChannel) Close() {}

func TestDispatcher_DeliversEnvelope(t *testing.T) {
	reg := presence.NewRegistry()
	ch := &captureChannel{}
	reg.Attach("bob", ch)

	d := NewDispatcher(reg)
	m := models.Message{ID: "m1", ConversationID: "c1", Sender: "alice", Recipient: "bob", Kind: models.KindText, Text: "hi"}
	d.Notify("bob", EventNewMessage, m)

	require.Len(t, ch.sent, 1)
	var env Envelope
	require.NoError(t, json.Unmarshal(ch.sent[0], &env))
	require.Equal(t, EventNewMessage, env.Event)
	require.Equal(t, "m1", env.Message.ID)
	require.Equal(t, "hi", env.Message.Text)
}

func TestDispatcher_OfflineIsSilent(t *testing.T) {
	d := NewDispatcher(presence.NewRegistry())
	// must not panic or block
	d.Notify("ghost", EventMessageEdited, models.Message{ID: "m1"})
}

func TestDispatcher_SendFailureIsSwallowed(t *testing.T) {
	reg := presence.NewRegistry()
	ch := &captureChannel{sendErr: errors.New("buffer full")}
	reg.Attach("bob", ch)

	d := NewDispatcher(reg)
	d.Notify("bob", EventReactionUpdated, models.Message{ID: "m1"})
	require.Empty(t, ch.sent)
}
