package store

import (
	"hash/fnv"
	"sync"
)

// lockTable serializes read-modify-write cycles per document. Locks are
// striped by key hash; a lock only ever covers a single conversation,
// message or pair key, never two documents at once.
type lockTable struct {
	shards [128]sync.Mutex
}

var locks lockTable

func (t *lockTable) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &t.shards[h.Sum32()%uint32(len(t.shards))]
	m.Lock()
	return m
}
