package utils

import (
	"fmt"
	"sync/atomic"
	"time"
)

var idSeq uint64

// GenMessageID returns a process-unique message id. Nanosecond timestamp plus
// a counter keeps ids unique even when many messages land in the same tick.
func GenMessageID() string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("msg-%d-%d", n, s)
}

// GenConversationID returns a process-unique conversation id.
func GenConversationID() string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("conv-%d-%d", n, s)
}
