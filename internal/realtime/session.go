/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"chatsphere/internal/nlog"
	"chatsphere/internal/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxFrameSize   = 65536
	sendBufferSize = 256
)

// Session is a single websocket connection registered in the hub
type Session struct {
	token  string
	conn   *websocket.Conn
	hub    *Hub
	logger nlog.Logger

	lock   sync.Mutex
	send   chan []byte
	closed bool
}

func newSession(conn *websocket.Conn, hub *Hub, logger nlog.Logger) *Session {
	return &Session{
		token:  uuid.NewString(),
		conn:   conn,
		hub:    hub,
		logger: logger,
		send:   make(chan []byte, sendBufferSize),
	}
}

func (s *Session) Token() string {
	return s.token
}

func (s *Session) Send(frame []byte) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// Close stops the write pump, which then closes the connection
func (s *Session) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

func (s *Session) readPump() {
	defer func() {
		if err := s.hub.Unregister(s); err != nil {
			s.Close()
		}
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Logf("Websocket error on {%s} {%v}", s.token, err)
			}
			return
		}
		s.dispatch(frame)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) dispatch(frame []byte) {
	env, err := protocol.ParseEnvelope(frame)
	if err != nil {
		s.reject("Invalid message format")
		return
	}

	switch env.Event {
	case protocol.EventJoinChannel:
		var room string
		if err := json.Unmarshal(env.Data, &room); err != nil || room == "" {
			s.reject("Invalid join_channel")
			return
		}
		s.hub.Join(s, room)

	case protocol.EventSendMessage:
		var msg protocol.SendMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			s.reject("Invalid send_message")
			return
		}
		s.hub.Submit(s, msg)

	default:
		s.reject("Unknown event")
	}
}

func (s *Session) reject(reason string) {
	frame, err := protocol.Encode(protocol.EventMessageError, protocol.ErrorEvent{Error: reason})
	if err != nil {
		return
	}
	s.Send(frame)
}

// WSHandler upgrades requests to websocket sessions on the hub
type WSHandler struct {
	hub      *Hub
	logger   nlog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler accepts connections whose Origin matches allowedOrigin. An empty allowedOrigin accepts any origin.
func NewWSHandler(hub *Hub, allowedOrigin string, logger nlog.Logger) *WSHandler {
	return &WSHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigin),
		},
	}
}

func originChecker(allowedOrigin string) func(*http.Request) bool {
	allowed := strings.TrimRight(allowedOrigin, "/")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if allowed == "" || allowed == "*" || origin == "" {
			return true
		}
		return strings.EqualFold(strings.TrimRight(origin, "/"), allowed)
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Logf("Websocket upgrade failed {%v}", err)
		return
	}

	session := newSession(conn, h.hub, h.logger)
	if err := h.hub.Register(session); err != nil {
		h.logger.Logf("Refusing connection {%v}", err)
		conn.Close()
		return
	}

	go session.writePump()
	session.readPump()
}
