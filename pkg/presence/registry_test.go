package presence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (c *fakeChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func TestRegistry_AttachLookupDetach(t *testing.T) {
	r := NewRegistry()
	require.Nil(t, r.Lookup("u1"))
	require.Zero(t, r.Len())

	ch := &fakeChannel{}
	require.Nil(t, r.Attach("u1", ch))
	require.Same(t, Channel(ch), r.Lookup("u1"))
	require.Equal(t, 1, r.Len())

	r.Detach("u1", ch)
	require.Nil(t, r.Lookup("u1"))
	require.Zero(t, r.Len())
}

func TestRegistry_LastWriterWins(t *testing.T) {
	r := NewRegistry()
	first := &fakeChannel{}
	second := &fakeChannel{}

	require.Nil(t, r.Attach("u1", first))
	replaced := r.Attach("u1", second)
	require.Same(t, Channel(first), replaced)
	require.Same(t, Channel(second), r.Lookup("u1"))
	require.Equal(t, 1, r.Len())

	// the replaced connection's detach is a no-op
	r.Detach("u1", first)
	require.Same(t, Channel(second), r.Lookup("u1"))

	r.Detach("u1", second)
	require.Nil(t, r.Lookup("u1"))
}

func TestRegistry_ConcurrentAttach(t *testing.T) {
	r := NewRegistry()
	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if prev := r.Attach("u1", &fakeChannel{}); prev != nil {
				prev.Close()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, r.Len())
	require.NotNil(t, r.Lookup("u1"))
}
