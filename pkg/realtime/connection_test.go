package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// newSocketDialer serves websocket upgrades and returns a dial func yielding
// the server and client sides of a fresh socket pair.
func newSocketDialer(t *testing.T) func() (*websocket.Conn, *websocket.Conn) {
	t.Helper()
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- ws
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return func() (*websocket.Conn, *websocket.Conn) {
		client, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })
		return <-accepted, client
	}
}

func TestConnection_DeliversPayloads(t *testing.T) {
	dial := newSocketDialer(t)
	server, client := dial()

	conn := NewConnection("alice", server, 0, 0)
	conn.Start()
	defer conn.Close()

	require.NoError(t, conn.Send([]byte(`{"event":"newMessage"}`)))
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := client.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"newMessage"}`, string(payload))
}

func TestConnection_SendAfterCloseErrors(t *testing.T) {
	dial := newSocketDialer(t)
	server, _ := dial()
	conn := NewConnection("alice", server, 4, time.Minute)
	conn.Start()

	conn.Close()
	require.Error(t, conn.Send([]byte("late")))
}

// A notify racing a disconnect must never take down the process.
func TestConnection_SendCloseRaceDoesNotPanic(t *testing.T) {
	dial := newSocketDialer(t)

	for i := 0; i < 200; i++ {
		server, _ := dial()
		conn := NewConnection("alice", server, 1, time.Minute)
		conn.Start()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				_ = conn.Send([]byte("payload"))
			}
		}()
		go func() {
			defer wg.Done()
			conn.Close()
		}()
		wg.Wait()
	}
}

func TestConnection_BufferOverflowCloses(t *testing.T) {
	dial := newSocketDialer(t)
	server, _ := dial()
	conn := NewConnection("alice", server, 1, time.Minute)
	// write loop deliberately not started so the buffer cannot drain

	_ = conn.Send([]byte("fits"))
	require.Error(t, conn.Send([]byte("overflow")))
	require.Error(t, conn.Send([]byte("after close")))
}
