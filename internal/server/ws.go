package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/thiagokokada/gitgud/internal/session"
)

const (
	clientBuffer = 64
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	// The playground binds to localhost by default and serves no cookies.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type MessageType string

const (
	MessageGraph   MessageType = "graph"
	MessageLayout  MessageType = "layout"
	MessageStatus  MessageType = "status"
	MessageOutput  MessageType = "output"
	MessageHistory MessageType = "history"
)

type UpdateMessage struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan UpdateMessage
}

// hub fans messages out to websocket clients. A client whose buffer is full
// is disconnected rather than allowed to stall the others.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub() *hub {
	return &hub{clients: map[*client]struct{}{}}
}

// add registers c and queues initial ahead of any later broadcast.
func (h *hub) add(c *client, initial []UpdateMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, msg := range initial {
		c.send <- msg
	}
	h.clients[c] = struct{}{}
	slog.Debug("websocket client connected", slog.Int("clients", len(h.clients)))
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	slog.Debug("websocket client disconnected", slog.Int("clients", len(h.clients)))
}

func (h *hub) broadcast(msgs ...UpdateMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		for _, msg := range msgs {
			select {
			case c.send <- msg:
			default:
				slog.Warn("websocket client too slow, dropping")
				h.removeLocked(c)
			}
			if _, ok := h.clients[c]; !ok {
				break
			}
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade", slog.Any("error", err))
		return
	}
	c := &client{conn: conn, send: make(chan UpdateMessage, clientBuffer)}
	s.hub.add(c, s.initialState())

	done := make(chan struct{})
	go func() {
		defer close(done)
		writeLoop(c)
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.remove(c)
	<-done
	conn.Close()
}

func writeLoop(c *client) {
	for msg := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			slog.Debug("websocket deadline", slog.Any("error", err))
		}
		if err := c.conn.WriteJSON(msg); err != nil {
			slog.Debug("websocket write", slog.Any("error", err))
			// Unblock the read loop so the handler can clean up.
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.conn.Close()
}

func (s *Server) initialState() []UpdateMessage {
	return []UpdateMessage{
		{Type: MessageGraph, Data: s.sess.Graph().Snapshot()},
		{Type: MessageLayout, Data: s.geometry()},
		{Type: MessageStatus, Data: s.statusView()},
		{Type: MessageHistory, Data: s.sess.History()},
	}
}

// forward translates session events into websocket messages.
func (s *Server) forward(ev session.Event) {
	switch ev.Type {
	case session.EventGraph:
		s.hub.broadcast(
			UpdateMessage{Type: MessageGraph, Data: ev.Data},
			UpdateMessage{Type: MessageLayout, Data: s.geometry()},
		)
	case session.EventStatus:
		s.hub.broadcast(UpdateMessage{Type: MessageStatus, Data: ev.Data})
	case session.EventOutput:
		s.hub.broadcast(UpdateMessage{Type: MessageOutput, Data: ev.Data})
	}
}
