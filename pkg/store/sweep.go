package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/cockroachdb/pebble"

	"chatd/pkg/models"
)

// SweepResult summarizes one janitor pass over the store.
type SweepResult struct {
	ResumedDeletes   int
	OrphanedMessages int
	DanglingIndexes  int
}

// SweepOrphans reconciles state left behind by interrupted two-phase
// deletes: it finishes conversations stuck mid-delete, removes message
// documents whose conversation is gone, and drops ordering-index entries
// pointing at missing conversations. Every step is idempotent, so the
// sweep is safe to run at any time.
func SweepOrphans() (SweepResult, error) {
	var res SweepResult
	if db == nil {
		return res, notOpenErr()
	}

	// resume interrupted deletes
	convPrefix := []byte("conv:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return res, err
	}
	var resume []string
	for iter.SeekGE(convPrefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), convPrefix) {
			break
		}
		if !strings.HasSuffix(string(iter.Key()), ":meta") {
			continue
		}
		var c models.Conversation
		if json.Unmarshal(iter.Value(), &c) != nil {
			continue
		}
		if c.Deleting {
			resume = append(resume, c.ID)
		}
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return res, err
	}
	iter.Close()
	for _, id := range resume {
		if err := DeleteConversation(id); err != nil && !errors.Is(err, ErrNotFound) {
			return res, err
		}
		res.ResumedDeletes++
	}

	// message documents whose conversation no longer exists
	msgPrefix := []byte("msg:")
	iter, err = db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return res, err
	}
	var orphans []string
	for iter.SeekGE(msgPrefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), msgPrefix) {
			break
		}
		var m models.Message
		if json.Unmarshal(iter.Value(), &m) != nil {
			continue
		}
		if _, err := GetConversation(m.ConversationID); errors.Is(err, ErrNotFound) {
			orphans = append(orphans, m.ID)
		}
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return res, err
	}
	iter.Close()
	for _, id := range orphans {
		batch := db.NewBatch()
		_ = batch.DeleteRange(versionPrefix(id), []byte("version:msg:"+id+";"), nil)
		_ = batch.Delete(msgKey(id), nil)
		if err := batch.Commit(pebble.Sync); err != nil {
			storeErrors.Inc()
			return res, err
		}
		res.OrphanedMessages++
	}

	// ordering-index entries under conversations without a meta record
	iter, err = db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return res, err
	}
	var dangling [][]byte
	for iter.SeekGE(convPrefix); iter.Valid(); iter.Next() {
		key := iter.Key()
		if !bytes.HasPrefix(key, convPrefix) {
			break
		}
		ks := string(key)
		idx := strings.Index(ks, ":msg:")
		if idx < 0 {
			continue
		}
		convID := ks[len("conv:"):idx]
		if _, err := GetConversation(convID); errors.Is(err, ErrNotFound) {
			dangling = append(dangling, append([]byte(nil), key...))
		}
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return res, err
	}
	iter.Close()
	for _, key := range dangling {
		if err := db.Delete(key, pebble.Sync); err != nil {
			storeErrors.Inc()
			return res, err
		}
		res.DanglingIndexes++
	}
	return res, nil
}
