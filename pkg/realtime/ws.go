package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"chatd/pkg/auth"
	"chatd/pkg/logger"
	"chatd/pkg/presence"
	"chatd/pkg/utils"
)

const (
	pongWait       = 60 * time.Second
	maxInboundSize = 512
)

// WSHandler upgrades an authenticated request to a websocket and registers
// the connection as the caller's single realtime channel. Attaching while a
// previous socket exists replaces it (the old one is closed with 4001).
type WSHandler struct {
	Registry     *presence.Registry
	SendBuffer   int
	PingInterval time.Duration

	Upgrader websocket.Upgrader
}

func NewWSHandler(reg *presence.Registry, sendBuffer int, ping time.Duration) *WSHandler {
	return &WSHandler{
		Registry:     reg,
		SendBuffer:   sendBuffer,
		PingInterval: ping,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// origin policy is enforced by the gateway middleware
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, status, msg := auth.ResolveUserFromRequest(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}

	ws, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws_upgrade_failed", "user", userID, "error", err)
		return
	}

	conn := NewConnection(userID, ws, h.SendBuffer, h.PingInterval)
	conn.Start()
	if prev := h.Registry.Attach(userID, conn); prev != nil {
		if pc, ok := prev.(*Connection); ok {
			pc.CloseWith(CodeSessionReplaced, "session replaced")
		} else {
			prev.Close()
		}
		logger.Info("ws_session_replaced", "user", userID)
	}
	wsConnections.Inc()
	logger.Info("ws_attached", "user", userID, "conn", conn.ID)

	go h.readLoop(userID, conn, ws)
}

// readLoop drains inbound frames (clients only send pongs and closes) and
// detaches the connection when the socket dies.
func (h *WSHandler) readLoop(userID string, conn *Connection, ws *websocket.Conn) {
	defer func() {
		h.Registry.Detach(userID, conn)
		conn.Close()
		wsConnections.Dec()
		logger.Info("ws_detached", "user", userID, "conn", conn.ID)
	}()

	ws.SetReadLimit(maxInboundSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
