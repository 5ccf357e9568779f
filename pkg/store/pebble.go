package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"chatd/pkg/logger"
	"chatd/pkg/models"
	"chatd/pkg/utils"
)

// ErrNotFound is returned when a conversation, message or user does not
// exist in the store.
var ErrNotFound = errors.New("store: not found")

var (
	db     *pebble.DB
	dbPath string
)

// seq reduces key collisions when multiple messages share the same
// nanosecond timestamp and provides a stable tie-break for ordering.
var seq uint64

// Key layout:
//
//	conv:<convID>:meta                  conversation JSON (current)
//	conv:<convID>:msg:<ts20>-<seq6>     ordering index -> message id
//	convpair:<a>|<b>                    normalized pair -> conversation id
//	msg:<msgID>                         message JSON (current, authoritative)
//	version:msg:<msgID>:<ts20>-<seq6>   superseded message states
//	user:<userID>                       user summary JSON
func convMetaKey(id string) []byte   { return []byte("conv:" + id + ":meta") }
func convMsgPrefix(id string) []byte { return []byte("conv:" + id + ":msg:") }
func msgKey(id string) []byte        { return []byte("msg:" + id) }
func userKey(id string) []byte       { return []byte("user:" + id) }

// pairKey normalizes the unordered participant pair into a single index key.
// User ids never contain '|' (enforced by validation).
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "convpair:" + a + "|" + b
}

func versionPrefix(msgID string) []byte {
	return []byte("version:msg:" + msgID + ":")
}

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	dbPath = ""
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

func notOpenErr() error {
	return fmt.Errorf("pebble not opened; call store.Open first")
}

func getJSON(key []byte, v interface{}) error {
	val, closer, err := db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	defer closer.Close()
	return json.Unmarshal(val, v)
}

// --- Conversations ---

// FindConversationByPair returns the conversation for the unordered pair
// {a, b}, or ErrNotFound when no conversation exists yet.
func FindConversationByPair(a, b string) (models.Conversation, error) {
	var c models.Conversation
	if db == nil {
		return c, notOpenErr()
	}
	val, closer, err := db.Get([]byte(pairKey(a, b)))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return c, ErrNotFound
		}
		return c, err
	}
	id := string(val)
	closer.Close()
	if err := getJSON(convMetaKey(id), &c); err != nil {
		return c, err
	}
	return c, nil
}

// GetOrCreateConversation resolves the conversation for the pair {a, b},
// creating it with the given initial preview when absent. The pair lock
// makes first contact from both ends converge on a single conversation.
func GetOrCreateConversation(a, b string, initial models.LastMessage) (models.Conversation, bool, error) {
	var c models.Conversation
	if db == nil {
		return c, false, notOpenErr()
	}
	pk := pairKey(a, b)
	mu := locks.lock(pk)
	defer mu.Unlock()

	c, err := FindConversationByPair(a, b)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return c, false, err
	}

	now := time.Now().UTC().UnixNano()
	parts := []string{a, b}
	sort.Strings(parts)
	c = models.Conversation{
		ID:           utils.GenConversationID(),
		Participants: parts,
		LastMessage:  initial,
		CreatedTS:    now,
		UpdatedTS:    now,
	}
	data, err := json.Marshal(c)
	if err != nil {
		return c, false, fmt.Errorf("failed to marshal conversation: %w", err)
	}
	batch := db.NewBatch()
	_ = batch.Set(convMetaKey(c.ID), data, nil)
	_ = batch.Set([]byte(pk), []byte(c.ID), nil)
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("save_conversation_failed", "conversation", c.ID, "error", err)
		storeErrors.Inc()
		return c, false, err
	}
	conversationsCreated.Inc()
	logger.Info("conversation_created", "conversation", c.ID)
	return c, true, nil
}

// GetConversation returns the conversation by id.
func GetConversation(id string) (models.Conversation, error) {
	var c models.Conversation
	if db == nil {
		return c, notOpenErr()
	}
	if err := getJSON(convMetaKey(id), &c); err != nil {
		return c, err
	}
	return c, nil
}

// UpdateConversationPreview rewrites the denormalized last-message preview
// and bumps the updated timestamp. The RMW is serialized per conversation.
// A stale ts is a no-op: when concurrent sends commit out of order the
// preview must stay with the newest message, never trail UpdatedTS.
func UpdateConversationPreview(id string, lm models.LastMessage, ts int64) error {
	if db == nil {
		return notOpenErr()
	}
	mu := locks.lock("conv:" + id)
	defer mu.Unlock()

	var c models.Conversation
	if err := getJSON(convMetaKey(id), &c); err != nil {
		return err
	}
	if ts < c.UpdatedTS {
		return nil
	}
	c.LastMessage = lm
	c.UpdatedTS = ts
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := db.Set(convMetaKey(id), data, pebble.Sync); err != nil {
		logger.Error("update_conversation_failed", "conversation", id, "error", err)
		storeErrors.Inc()
		return err
	}
	return nil
}

// ListConversationsFor returns all conversations in which userID
// participates. Conversations mid-delete are excluded.
func ListConversationsFor(userID string) ([]models.Conversation, error) {
	if db == nil {
		return nil, notOpenErr()
	}
	prefix := []byte("conv:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Conversation
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if !strings.HasSuffix(string(iter.Key()), ":meta") {
			continue
		}
		var c models.Conversation
		if err := json.Unmarshal(iter.Value(), &c); err != nil {
			continue
		}
		if c.Deleting || !c.HasParticipant(userID) {
			continue
		}
		out = append(out, c)
	}
	return out, iter.Error()
}

// --- Messages ---

// AppendMessage persists a new message and indexes it in its conversation's
// ordering namespace. CreatedTS and Seq are assigned here so that key order
// matches insertion order.
func AppendMessage(m *models.Message) error {
	if db == nil {
		return notOpenErr()
	}
	ts := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&seq, 1)
	m.CreatedTS = ts
	m.Seq = s

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	orderKey := fmt.Sprintf("conv:%s:msg:%020d-%06d", m.ConversationID, ts, s)
	batch := db.NewBatch()
	_ = batch.Set([]byte(orderKey), []byte(m.ID), nil)
	_ = batch.Set(msgKey(m.ID), data, nil)
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("save_message_failed", "conversation", m.ConversationID, "msg_id", m.ID, "error", err)
		storeErrors.Inc()
		return err
	}
	messagesSaved.Inc()
	logger.Info("message_saved", "conversation", m.ConversationID, "msg_id", m.ID)
	return nil
}

// GetMessage returns the current state of a message by id.
func GetMessage(id string) (models.Message, error) {
	var m models.Message
	if db == nil {
		return m, notOpenErr()
	}
	if err := getJSON(msgKey(id), &m); err != nil {
		return m, err
	}
	return m, nil
}

// UpdateMessage applies mutate to the current state of the message as an
// atomic read-modify-write keyed by message id. When snapshot is true the
// superseded state is appended to the version namespace before the new
// state is written. Errors returned by mutate abort the update unchanged.
func UpdateMessage(id string, snapshot bool, mutate func(*models.Message) error) (models.Message, error) {
	var m models.Message
	if db == nil {
		return m, notOpenErr()
	}
	mu := locks.lock("msg:" + id)
	defer mu.Unlock()

	prev, closer, err := db.Get(msgKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return m, ErrNotFound
		}
		return m, err
	}
	prevCopy := append([]byte(nil), prev...)
	closer.Close()
	if err := json.Unmarshal(prevCopy, &m); err != nil {
		return m, fmt.Errorf("invalid stored message: %w", err)
	}
	if err := mutate(&m); err != nil {
		return models.Message{}, err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return m, fmt.Errorf("failed to marshal message: %w", err)
	}
	batch := db.NewBatch()
	if snapshot {
		ts := time.Now().UTC().UnixNano()
		s := atomic.AddUint64(&seq, 1)
		verKey := fmt.Sprintf("version:msg:%s:%020d-%06d", id, ts, s)
		_ = batch.Set([]byte(verKey), prevCopy, nil)
	}
	_ = batch.Set(msgKey(id), data, nil)
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("update_message_failed", "msg_id", id, "error", err)
		storeErrors.Inc()
		return m, err
	}
	return m, nil
}

// ListConversationMessages returns all messages of a conversation in
// insertion order (created-at ascending, ties by sequence).
func ListConversationMessages(convID string) ([]models.Message, error) {
	if db == nil {
		return nil, notOpenErr()
	}
	prefix := convMsgPrefix(convID)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Message
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		id := string(iter.Value())
		m, err := GetMessage(id)
		if err != nil {
			// index entry without a document; skip, the sweeper reconciles
			logger.Warn("message_index_dangling", "conversation", convID, "msg_id", id)
			continue
		}
		out = append(out, m)
	}
	return out, iter.Error()
}

// ListMessageVersions returns the superseded states of a message in
// chronological order. The current state is not included.
func ListMessageVersions(msgID string) ([]models.Message, error) {
	if db == nil {
		return nil, notOpenErr()
	}
	prefix := versionPrefix(msgID)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Message
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, iter.Error()
}

// DeleteConversation removes every message of the conversation, then the
// conversation itself and its pair index. The two phases share no
// transaction: a crash in between leaves a conversation marked deleting,
// which the sweeper (or a retried delete) finishes idempotently.
func DeleteConversation(id string) error {
	if db == nil {
		return notOpenErr()
	}
	var c models.Conversation
	if err := getJSON(convMetaKey(id), &c); err != nil {
		return err
	}
	if !c.Deleting {
		c.Deleting = true
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal conversation: %w", err)
		}
		if err := db.Set(convMetaKey(id), data, pebble.Sync); err != nil {
			storeErrors.Inc()
			return err
		}
	}

	// phase 1: purge messages and their ordering/version entries
	prefix := convMsgPrefix(id)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		msgID := string(iter.Value())
		orderKey := append([]byte(nil), iter.Key()...)
		batch := db.NewBatch()
		_ = batch.DeleteRange(versionPrefix(msgID), []byte("version:msg:"+msgID+";"), nil)
		_ = batch.Delete(msgKey(msgID), nil)
		_ = batch.Delete(orderKey, nil)
		if err := batch.Commit(pebble.Sync); err != nil {
			iter.Close()
			storeErrors.Inc()
			return err
		}
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return err
	}
	iter.Close()

	// phase 2: drop the conversation record and pair index
	if len(c.Participants) == 2 {
		batch := db.NewBatch()
		_ = batch.Delete(convMetaKey(id), nil)
		_ = batch.Delete([]byte(pairKey(c.Participants[0], c.Participants[1])), nil)
		if err := batch.Commit(pebble.Sync); err != nil {
			storeErrors.Inc()
			return err
		}
	} else if err := db.Delete(convMetaKey(id), pebble.Sync); err != nil {
		storeErrors.Inc()
		return err
	}
	logger.Info("conversation_deleted", "conversation", id)
	return nil
}

// --- Users ---

// PutUser upserts a public profile summary mirrored from the profile service.
func PutUser(u models.UserSummary) error {
	if db == nil {
		return notOpenErr()
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := db.Set(userKey(u.ID), data, pebble.Sync); err != nil {
		storeErrors.Inc()
		return err
	}
	logger.Info("user_saved", "user", u.ID)
	return nil
}

// GetUser returns the stored profile summary for a user id.
func GetUser(id string) (models.UserSummary, error) {
	var u models.UserSummary
	if db == nil {
		return u, notOpenErr()
	}
	if err := getJSON(userKey(id), &u); err != nil {
		return u, err
	}
	return u, nil
}
