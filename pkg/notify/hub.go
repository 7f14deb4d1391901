package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/valyala/bytebufferpool"

	"github.com/adntgv/gptree/pkg/logger"
	"github.com/adntgv/gptree/pkg/models"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub pushes bus events to connected websocket clients. Each event is
// marshaled once into a pooled buffer and written to every connection;
// connections that fail a write are dropped.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: map[*websocket.Conn]struct{}{}}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away. Inbound frames are discarded; the push channel is
// one-way.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("ws_upgrade_failed", "error", err)
		return
	}
	h.mu.Lock()
	h.conns[ws] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	logger.Info("ws_subscriber_connected", "remote", r.RemoteAddr, "subscribers", n)

	defer func() {
		h.drop(ws)
		logger.Info("ws_subscriber_disconnected", "remote", r.RemoteAddr)
	}()
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(ws *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.conns[ws]; ok {
		delete(h.conns, ws)
		_ = ws.Close()
	}
	h.mu.Unlock()
}

// Broadcast writes ev to every connected client.
func (h *Hub) Broadcast(ev models.Event) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := json.NewEncoder(buf).Encode(ev); err != nil {
		logger.Error("ws_encode_failed", "kind", string(ev.Kind), "error", err)
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for ws := range h.conns {
		conns = append(conns, ws)
	}
	h.mu.Unlock()

	for _, ws := range conns {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, buf.B); err != nil {
			logger.Warn("ws_write_failed", "error", err)
			h.drop(ws)
		}
	}
}

// Run pumps events from the bus to connected clients until ctx is done.
func (h *Hub) Run(ctx context.Context, bus *Bus) {
	ch, cancel := bus.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			h.Broadcast(ev)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for ws := range h.conns {
		_ = ws.Close()
		delete(h.conns, ws)
	}
	h.mu.Unlock()
}
