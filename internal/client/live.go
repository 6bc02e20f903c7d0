/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"chatsphere/internal/nlog"
	"chatsphere/internal/protocol"

	"github.com/gorilla/websocket"
)

const (
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = 1 * time.Second
	liveWriteWait            = 10 * time.Second
	liveDialTimeout          = 10 * time.Second
)

// ConnState is the state of a live connection
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed // Reconnection gave up, only an explicit Connect leaves this state
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// LiveConn is the live event channel used by a chat session
type LiveConn interface {
	Connect(ctx context.Context) error
	Disconnect() error
	JoinChannel(channelID string) error
	SendMessage(message protocol.SendMessage) error
	OnReceive(fn func(protocol.Message))
	OnMessageError(fn func(reason string))
	OnConnectionError(fn func(err error))
	State() ConnState
}

type LiveOptions struct {
	ReconnectAttempts int
	ReconnectDelay    time.Duration
}

// LiveConnection is a websocket connection to the hub that reconnects a bounded number of times when dropped
type LiveConnection struct {
	url    string
	dialer *websocket.Dialer
	logger nlog.Logger
	opts   LiveOptions

	lock      sync.Mutex
	conn      *websocket.Conn
	state     ConnState
	room      string
	closing   chan struct{}
	writeLock sync.Mutex

	onReceive      func(protocol.Message)
	onMessageError func(string)
	onConnError    func(error)
}

// LiveURL turns the server base URL into its websocket endpoint
func LiveURL(serverURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func NewLiveConnection(wsURL string, opts LiveOptions, logger nlog.Logger) *LiveConnection {
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = DefaultReconnectAttempts
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	return &LiveConnection{
		url:    wsURL,
		dialer: &websocket.Dialer{HandshakeTimeout: liveDialTimeout},
		logger: logger,
		opts:   opts,
	}
}

func (l *LiveConnection) Logf(format string, v ...any) {
	l.logger.Logf(format, v...)
}

func (l *LiveConnection) OnReceive(fn func(protocol.Message)) {
	l.lock.Lock()
	l.onReceive = fn
	l.lock.Unlock()
}

func (l *LiveConnection) OnMessageError(fn func(string)) {
	l.lock.Lock()
	l.onMessageError = fn
	l.lock.Unlock()
}

func (l *LiveConnection) OnConnectionError(fn func(error)) {
	l.lock.Lock()
	l.onConnError = fn
	l.lock.Unlock()
}

func (l *LiveConnection) State() ConnState {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.state
}

// Connect opens the connection. Calling it while connected does nothing.
func (l *LiveConnection) Connect(ctx context.Context) error {
	l.lock.Lock()
	if l.state == StateConnected || l.state == StateConnecting || l.state == StateReconnecting {
		l.lock.Unlock()
		return nil
	}
	l.state = StateConnecting
	l.closing = make(chan struct{})
	closing := l.closing
	l.lock.Unlock()

	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		l.setState(StateDisconnected)
		l.connectionError(err)
		return fmt.Errorf("failed to connect to %s: %w", l.url, err)
	}

	l.lock.Lock()
	select {
	case <-closing:
		// Disconnect ran during the dial
		l.lock.Unlock()
		conn.Close()
		return ErrNotConnected
	default:
	}
	l.conn = conn
	l.state = StateConnected
	l.lock.Unlock()

	l.Logf("Live connection open {%s}", l.url)
	go l.readLoop(conn, closing)
	return nil
}

// Disconnect closes the connection for good, no reconnection follows
func (l *LiveConnection) Disconnect() error {
	l.lock.Lock()
	conn := l.conn
	l.conn = nil
	if l.closing != nil {
		select {
		case <-l.closing:
		default:
			close(l.closing)
		}
	}
	l.state = StateDisconnected
	l.lock.Unlock()

	if conn == nil {
		return nil
	}
	l.writeLock.Lock()
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(liveWriteWait))
	l.writeLock.Unlock()
	l.Logf("Live connection closed")
	return conn.Close()
}

// JoinChannel moves the connection into the channel room. The room is remembered and joined again after a reconnection.
func (l *LiveConnection) JoinChannel(channelID string) error {
	l.lock.Lock()
	l.room = channelID
	l.lock.Unlock()
	return l.emit(protocol.EventJoinChannel, channelID)
}

func (l *LiveConnection) SendMessage(message protocol.SendMessage) error {
	return l.emit(protocol.EventSendMessage, message)
}

func (l *LiveConnection) emit(event protocol.EventName, data any) error {
	l.lock.Lock()
	conn, state := l.conn, l.state
	l.lock.Unlock()
	if conn == nil || state != StateConnected {
		return ErrNotConnected
	}

	frame, err := protocol.Encode(event, data)
	if err != nil {
		return err
	}

	l.writeLock.Lock()
	defer l.writeLock.Unlock()
	conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (l *LiveConnection) readLoop(conn *websocket.Conn, closing chan struct{}) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-closing:
				return
			default:
			}
			l.Logf("Live connection dropped {%v}", err)
			conn.Close()
			l.connectionError(err)
			l.reconnect(closing)
			return
		}
		l.dispatch(frame)
	}
}

func (l *LiveConnection) dispatch(frame []byte) {
	env, err := protocol.ParseEnvelope(frame)
	if err != nil {
		l.Logf("Ignoring malformed frame {%v}", err)
		return
	}

	l.lock.Lock()
	onReceive, onMessageError := l.onReceive, l.onMessageError
	l.lock.Unlock()

	switch env.Event {
	case protocol.EventReceiveMessage:
		var msg protocol.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			l.Logf("Ignoring malformed relay {%v}", err)
			return
		}
		if onReceive != nil {
			onReceive(msg)
		}
	case protocol.EventMessageError:
		var body protocol.ErrorEvent
		json.Unmarshal(env.Data, &body)
		if onMessageError != nil {
			onMessageError(body.Error)
		}
	default:
		l.Logf("Ignoring unknown event {%s}", env.Event)
	}
}

// reconnect retries with a fixed delay, giving up after the configured attempts
func (l *LiveConnection) reconnect(closing chan struct{}) {
	l.setState(StateReconnecting)

	for attempt := 1; attempt <= l.opts.ReconnectAttempts; attempt++ {
		select {
		case <-closing:
			return
		case <-time.After(l.opts.ReconnectDelay):
		}

		l.Logf("Reconnection attempt %d", attempt)
		ctx, cancel := context.WithTimeout(context.Background(), liveDialTimeout)
		conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
		cancel()
		if err != nil {
			l.connectionError(err)
			continue
		}

		l.lock.Lock()
		select {
		case <-closing:
			l.lock.Unlock()
			conn.Close()
			return
		default:
		}
		l.conn = conn
		l.state = StateConnected
		room := l.room
		l.lock.Unlock()

		l.Logf("Reconnected")
		if room != "" {
			if err := l.emit(protocol.EventJoinChannel, room); err != nil {
				l.Logf("Could not join %s again {%v}", room, err)
			}
		}
		go l.readLoop(conn, closing)
		return
	}

	l.lock.Lock()
	select {
	case <-closing:
		l.lock.Unlock()
		return
	default:
	}
	l.conn = nil
	l.state = StateFailed
	l.lock.Unlock()
	l.connectionError(ErrReconnectExhausted)
}

func (l *LiveConnection) setState(state ConnState) {
	l.lock.Lock()
	l.state = state
	l.lock.Unlock()
}

func (l *LiveConnection) connectionError(err error) {
	l.lock.Lock()
	fn := l.onConnError
	l.lock.Unlock()
	if fn != nil {
		fn(err)
	}
}
