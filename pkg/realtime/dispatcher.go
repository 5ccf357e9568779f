package realtime

import (
	"encoding/json"

	"chatd/pkg/logger"
	"chatd/pkg/models"
	"chatd/pkg/presence"
)

// Event names pushed to clients. Every event delivers the entire updated
// message so clients replace their local copy wholesale.
const (
	EventNewMessage      = "newMessage"
	EventMessageEdited   = "messageEdited"
	EventMessageDeleted  = "messageDeleted"
	EventReactionUpdated = "reactionUpdated"
)

// Envelope is the wire frame for pushed events.
type Envelope struct {
	Event   string         `json:"event"`
	Message models.Message `json:"message"`
}

// Dispatcher delivers events to the single registered channel of a user.
// Delivery is best effort: an offline user or a failed send is counted and
// logged, never surfaced to the caller.
type Dispatcher struct {
	Registry *presence.Registry
}

func NewDispatcher(reg *presence.Registry) *Dispatcher {
	return &Dispatcher{Registry: reg}
}

// Notify implements service.Notifier.
func (d *Dispatcher) Notify(userID, event string, m models.Message) {
	ch := d.Registry.Lookup(userID)
	if ch == nil {
		notifyDropped.Inc()
		logger.Debug("notify_offline", "user", userID, "event", event)
		return
	}
	data, err := json.Marshal(Envelope{Event: event, Message: m})
	if err != nil {
		notifyDropped.Inc()
		logger.Error("notify_marshal_failed", "event", event, "error", err)
		return
	}
	if err := ch.Send(data); err != nil {
		notifyDropped.Inc()
		logger.Warn("notify_dropped", "user", userID, "event", event, "error", err)
		return
	}
	notifyDelivered.Inc()
}
