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
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"chatsphere/internal/protocol"
)

type MockLogger struct{}

func (MockLogger) Logf(string, ...any) {}

var errOffline = errors.New("connection refused")

// fakeLive records what the session asks for. With echo set, every sent message comes back as a relay.
type fakeLive struct {
	lock       sync.Mutex
	state      ConnState
	joins      []string
	sent       []protocol.SendMessage
	connects   int
	connectErr error
	echo       bool
	seq        uint64

	onReceive   func(protocol.Message)
	onMsgError  func(string)
	onConnError func(error)
}

func (f *fakeLive) Connect(context.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.state = StateConnected
	return nil
}

func (f *fakeLive) Disconnect() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.state = StateDisconnected
	return nil
}

func (f *fakeLive) JoinChannel(channelID string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.joins = append(f.joins, channelID)
	if f.state != StateConnected {
		return ErrNotConnected
	}
	return nil
}

func (f *fakeLive) SendMessage(message protocol.SendMessage) error {
	f.lock.Lock()
	if f.state != StateConnected {
		f.lock.Unlock()
		return ErrNotConnected
	}
	f.sent = append(f.sent, message)
	f.seq++
	relay := protocol.Message{
		ID:        fmt.Sprintf("server-%d", f.seq),
		Sender:    message.Sender,
		Content:   message.Content,
		ChannelID: message.ChannelID,
		Timestamp: time.Now().UnixMilli(),
		ClientID:  message.ClientID,
		Seq:       f.seq,
	}
	echo, onReceive := f.echo, f.onReceive
	f.lock.Unlock()

	if echo && onReceive != nil {
		go onReceive(relay)
	}
	return nil
}

func (f *fakeLive) OnReceive(fn func(protocol.Message)) {
	f.lock.Lock()
	f.onReceive = fn
	f.lock.Unlock()
}

func (f *fakeLive) OnMessageError(fn func(string)) {
	f.lock.Lock()
	f.onMsgError = fn
	f.lock.Unlock()
}

func (f *fakeLive) OnConnectionError(fn func(error)) {
	f.lock.Lock()
	f.onConnError = fn
	f.lock.Unlock()
}

func (f *fakeLive) State() ConnState {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.state
}

// deliver simulates a relay arriving from the hub
func (f *fakeLive) deliver(m protocol.Message) {
	f.lock.Lock()
	fn := f.onReceive
	f.lock.Unlock()
	fn(m)
}

func (f *fakeLive) joined() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.joins...)
}

func (f *fakeLive) connectCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.connects
}

// fakeGateway is an in-memory gateway, failing every call while offline is set
type fakeGateway struct {
	lock       sync.Mutex
	offline    bool
	failCreate bool
	channels   []Channel
	messages   []protocol.Message
	writes     int
}

func (g *fakeGateway) setOffline(offline bool) {
	g.lock.Lock()
	g.offline = offline
	g.lock.Unlock()
}

func (g *fakeGateway) ListChannels(context.Context) ([]Channel, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.offline {
		return DefaultChannels(), errOffline
	}
	out := append([]Channel{}, g.channels...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (g *fakeGateway) CreateChannel(_ context.Context, name, description string) (Channel, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.offline || g.failCreate {
		return Channel{}, errOffline
	}
	for _, c := range g.channels {
		if c.Name == name {
			return Channel{}, &APIError{Status: 400, Message: "Channel with this name already exists"}
		}
	}
	channel := Channel{ID: fmt.Sprintf("ch-%d", len(g.channels)+1), Name: name, Description: description}
	g.channels = append(g.channels, channel)
	return channel, nil
}

func (g *fakeGateway) ListMessages(_ context.Context, channelID string) ([]protocol.Message, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.offline {
		return []protocol.Message{}, errOffline
	}
	out := []protocol.Message{}
	for _, m := range g.messages {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (g *fakeGateway) CreateMessage(_ context.Context, sender, content, channelID string) (protocol.Message, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.writes++
	if g.offline {
		return protocol.Message{}, errOffline
	}
	m := protocol.Message{ID: fmt.Sprintf("m-%d", len(g.messages)+1), Sender: sender, Content: content, ChannelID: channelID, Timestamp: time.Now().UnixMilli()}
	g.messages = append(g.messages, m)
	return m, nil
}

func (g *fakeGateway) writeCount() int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.writes
}

// noticeRecorder keeps every notice for later inspection
type noticeRecorder struct {
	lock    sync.Mutex
	notices []Notice
}

func (n *noticeRecorder) Notify(notice Notice) {
	n.lock.Lock()
	n.notices = append(n.notices, notice)
	n.lock.Unlock()
}

func (n *noticeRecorder) titles() []string {
	n.lock.Lock()
	defer n.lock.Unlock()
	out := make([]string, 0, len(n.notices))
	for _, notice := range n.notices {
		out = append(out, notice.Title)
	}
	return out
}

func (n *noticeRecorder) has(title string) bool {
	for _, t := range n.titles() {
		if t == title {
			return true
		}
	}
	return false
}

// eventually polls cond until it holds or the deadline passes
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}
