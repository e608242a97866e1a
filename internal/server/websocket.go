// File: internal/server/websocket.go
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xkilldash9x/handoff/internal/service"
	"github.com/xkilldash9x/handoff/internal/store"
)

// MessageType is the kind of a WebSocket message.
type MessageType string

const (
	// Client to server.
	MsgTypeStart  MessageType = "Start"
	MsgTypeResume MessageType = "Resume"
	MsgTypeReset  MessageType = "Reset"
	// Server to client.
	MsgTypeSnapshot    MessageType = "SessionSnapshot"
	MsgTypeSystemError MessageType = "SystemError"
)

// WSMessage is the envelope of every WebSocket message.
type WSMessage struct {
	Type      MessageType          `json:"type"`
	Session   *store.SessionRecord `json:"session,omitempty"`
	Error     string               `json:"error,omitempty"`
	Timestamp string               `json:"timestamp"`
	RequestID string               `json:"request_id,omitempty"`
}

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMessageSize  = 8192
	sendChannelSize = 64
)

// wsClient is one connection watching one session.
type wsClient struct {
	sessionID string
	sessions  Sessions
	conn      *websocket.Conn
	send      chan WSMessage
	quit      chan struct{}
	logger    *zap.Logger
}

// handleSessionEvents streams snapshots of a session and accepts control
// messages (Start, Resume, Reset) over the same connection.
func (s *Server) handleSessionEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		current, err := s.sessions.Get(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			s.logger.Error("Failed to upgrade connection to WebSocket", zap.Error(err))
			return
		}

		updates, unsubscribe := s.sessions.Subscribe(id)
		client := &wsClient{
			sessionID: id,
			sessions:  s.sessions,
			conn:      conn,
			send:      make(chan WSMessage, sendChannelSize),
			quit:      make(chan struct{}),
			logger:    s.logger.With(zap.String("session_id", id)),
		}
		client.logger.Info("WebSocket connection established.", zap.String("remoteAddr", r.RemoteAddr))

		client.sendSnapshot("", current)
		done := make(chan struct{})
		go client.forward(updates, done)
		go client.writePump()
		client.readPump()

		unsubscribe()
		<-done
		close(client.quit)
	}
}

// forward relays subscription updates until the subscription closes.
func (c *wsClient) forward(updates <-chan store.SessionRecord, done chan<- struct{}) {
	defer close(done)
	for rec := range updates {
		c.sendSnapshot("", rec)
	}
}

// readPump processes control messages until the connection closes.
func (c *wsClient) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("Failed to set initial read deadline", zap.Error(err))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket closed unexpectedly", zap.Error(err))
			} else {
				c.logger.Info("WebSocket connection closed.")
			}
			return
		}
		// Runs can take minutes; the read loop must keep answering pings.
		go c.process(msg)
	}
}

func (c *wsClient) process(msg WSMessage) {
	ctx := context.Background()
	var (
		rec store.SessionRecord
		err error
	)
	switch msg.Type {
	case MsgTypeStart:
		rec, err = c.sessions.Start(ctx, c.sessionID)
	case MsgTypeResume:
		rec, err = c.sessions.Resume(ctx, c.sessionID)
	case MsgTypeReset:
		rec, err = c.sessions.Reset(ctx, c.sessionID)
	default:
		c.logger.Warn("Received unknown message type from client", zap.String("type", string(msg.Type)))
		c.sendError(msg.RequestID, "unsupported message type: "+string(msg.Type))
		return
	}
	// A queued reset lands through the subscription once the running step returns.
	if err != nil && !errors.Is(err, service.ErrResetQueued) {
		c.sendError(msg.RequestID, err.Error())
		return
	}
	c.sendSnapshot(msg.RequestID, rec)
}

// writePump owns every write to the connection and keeps it alive with pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.quit:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Debug("Error writing JSON message to WebSocket", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) enqueue(msg WSMessage) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	select {
	case <-c.quit:
		// Late results arriving after the connection closed are dropped.
	case c.send <- msg:
	default:
		c.logger.Warn("WebSocket send buffer full, dropping message.", zap.String("type", string(msg.Type)))
	}
}

func (c *wsClient) sendSnapshot(requestID string, rec store.SessionRecord) {
	c.enqueue(WSMessage{Type: MsgTypeSnapshot, Session: &rec, RequestID: requestID})
}

func (c *wsClient) sendError(requestID, message string) {
	c.enqueue(WSMessage{Type: MsgTypeSystemError, Error: message, RequestID: requestID})
}
