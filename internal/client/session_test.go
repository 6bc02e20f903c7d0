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
	"sync"
	"testing"
	"time"

	"chatsphere/internal/protocol"

	"github.com/go-playground/assert/v2"
)

type sessionFixture struct {
	wallet   *StaticWallet
	identity *IdentityProvider
	live     *fakeLive
	gateway  *fakeGateway
	notices  *noticeRecorder
	session  *ChatSession
}

func newFixture(t *testing.T, opts SessionOptions, accounts ...string) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		wallet:  NewStaticWallet(accounts...),
		live:    &fakeLive{},
		gateway: &fakeGateway{},
		notices: &noticeRecorder{},
	}
	f.identity = NewIdentityProvider(f.wallet, MockLogger{})
	opts.Notifier = f.notices
	f.session = NewChatSession(f.identity, f.live, f.gateway, MockLogger{}, opts)
	t.Cleanup(func() { f.session.Close() })
	return f
}

func (f *sessionFixture) start(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.identity.Connect(ctx); err != nil {
		t.Fatalf("Unexpected error connecting the wallet: %v", err)
	}
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("Unexpected error starting the session: %v", err)
	}
}

func TestScenarioOptimisticAndRelayBothKept(t *testing.T) {
	f := newFixture(t, SessionOptions{}, "0xABC")
	f.live.echo = true
	f.start(t)

	snapshot := f.session.Snapshot()
	assert.Equal(t, len(snapshot.Channels), 1)
	assert.Equal(t, snapshot.Channels[0].Name, "General")
	assert.Equal(t, snapshot.ActiveChannel.ID, snapshot.Channels[0].ID)

	sent, err := f.session.SendMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The optimistic copy is there before any relay could have been handled
	assert.Equal(t, sent.Sender, "0xABC")
	assert.Equal(t, sent.Content, "hello")
	assert.Equal(t, sent.IsMine, true)
	assert.Equal(t, sent.Optimistic, true)

	eventually(t, "the relay", func() bool { return len(f.session.Snapshot().Messages) == 2 })

	messages := f.session.Snapshot().Messages
	var relayed Message
	for _, m := range messages {
		if !m.Optimistic {
			relayed = m
		}
	}
	if relayed.ID == "" || relayed.ID == sent.ID {
		t.Errorf("Expected the relay to carry the server id, GOT[%s]", relayed.ID)
	}
	assert.Equal(t, relayed.Sender, "0xABC")
	assert.Equal(t, relayed.Content, "hello")
	assert.Equal(t, relayed.IsMine, true)

	eventually(t, "the durable write", func() bool { return f.gateway.writeCount() == 1 })
}

func TestReconcileEchoReplacesOptimisticCopy(t *testing.T) {
	f := newFixture(t, SessionOptions{ReconcileEcho: true}, "0xABC")
	f.live.echo = true
	f.start(t)

	sent, err := f.session.SendMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	eventually(t, "the relay", func() bool {
		messages := f.session.Snapshot().Messages
		return len(messages) == 1 && !messages[0].Optimistic
	})
	msg := f.session.Snapshot().Messages[0]
	assert.Equal(t, msg.ClientID, sent.ClientID)
	if msg.ID == sent.ID {
		t.Errorf("Expected the server id to replace the local one")
	}
}

func TestStartRequiresIdentity(t *testing.T) {
	f := newFixture(t, SessionOptions{})
	if err := f.session.Start(context.Background()); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("Expected ErrNoIdentity, GOT[%v]", err)
	}
	assert.Equal(t, f.live.connectCount(), 0)
}

func TestSendMessagePreconditions(t *testing.T) {
	f := newFixture(t, SessionOptions{}, "0xABC")
	ctx := context.Background()

	if _, err := f.session.SendMessage(ctx, "hi"); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("Expected ErrNoIdentity before start, GOT[%v]", err)
	}

	f.gateway.setOffline(true)
	f.identity.Connect(ctx)
	f.session.Start(ctx)

	if _, err := f.session.SendMessage(ctx, "   "); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("Expected ErrEmptyContent, GOT[%v]", err)
	}

	// The gateway is down, so the defaults are shown and the first one is active
	snapshot := f.session.Snapshot()
	assert.Equal(t, len(snapshot.Channels), 3)
	assert.Equal(t, snapshot.ActiveChannel.ID, "general")
	if !f.notices.has("Failed to load channels") {
		t.Errorf("Expected a notice for the failed load, GOT%v", f.notices.titles())
	}
}

func TestSendMessageWithoutActiveChannel(t *testing.T) {
	f := newFixture(t, SessionOptions{}, "0xABC")
	f.gateway.failCreate = true
	f.start(t)

	assert.Equal(t, f.notices.has("Failed to create the default channel"), true)
	assert.Equal(t, f.session.Snapshot().ActiveChannel == nil, true)
	if _, err := f.session.SendMessage(context.Background(), "hi"); !errors.Is(err, ErrNoActiveChannel) {
		t.Errorf("Expected ErrNoActiveChannel, GOT[%v]", err)
	}
}

func TestLoadChannelsSelectsFirstAndJoinsIt(t *testing.T) {
	f := newFixture(t, SessionOptions{}, "0xABC")
	f.gateway.channels = []Channel{{ID: "t", Name: "Tech"}, {ID: "c", Name: "Crypto"}}
	f.gateway.messages = []protocol.Message{
		{ID: "2", Sender: "0xdef", Content: "later", ChannelID: "c", Timestamp: 2000},
		{ID: "1", Sender: "0xabc", Content: "mine", ChannelID: "c", Timestamp: 1000},
		{ID: "3", Sender: "0xabc", Content: "other channel", ChannelID: "t", Timestamp: 1500},
	}
	f.start(t)

	snapshot := f.session.Snapshot()
	assert.Equal(t, snapshot.ActiveChannel.Name, "Crypto")
	assert.Equal(t, f.live.joined(), []string{"c"})
	assert.Equal(t, len(snapshot.Messages), 2)
	assert.Equal(t, snapshot.Messages[0].Content, "mine")
	assert.Equal(t, snapshot.Messages[0].IsMine, true)
	assert.Equal(t, snapshot.Messages[1].IsMine, false)

	// Reloading keeps the active channel
	if err := f.session.SelectChannel(context.Background(), "t"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	f.session.LoadChannels(context.Background())
	assert.Equal(t, f.session.Snapshot().ActiveChannel.ID, "t")
	assert.Equal(t, f.live.joined(), []string{"c", "t", "t"})
}

func TestFailuresKeepPriorState(t *testing.T) {
	f := newFixture(t, SessionOptions{}, "0xABC")
	f.gateway.channels = []Channel{{ID: "c", Name: "Crypto"}}
	f.gateway.messages = []protocol.Message{{ID: "1", Sender: "0xdef", Content: "kept", ChannelID: "c", Timestamp: 1000}}
	f.start(t)

	f.gateway.setOffline(true)
	if err := f.session.LoadChannels(context.Background()); err == nil {
		t.Errorf("Expected the reload to report its failure")
	}
	if err := f.session.SelectChannel(context.Background(), "c"); err == nil {
		t.Errorf("Expected the history fetch to report its failure")
	}

	snapshot := f.session.Snapshot()
	assert.Equal(t, len(snapshot.Channels), 1)
	assert.Equal(t, snapshot.Channels[0].Name, "Crypto")
	assert.Equal(t, len(snapshot.Messages), 1)
	assert.Equal(t, snapshot.Messages[0].Content, "kept")
	assert.Equal(t, f.notices.has("Failed to load messages"), true)

	// A failed durable write is only logged
	if _, err := f.session.SendMessage(context.Background(), "offline"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	eventually(t, "the write attempt", func() bool { return f.gateway.writeCount() == 1 })
	assert.Equal(t, len(f.session.Snapshot().Messages), 2)
}

func TestSnapshotTracksHighestSequence(t *testing.T) {
	f := newFixture(t, SessionOptions{}, "0xABC")
	f.gateway.channels = []Channel{{ID: "c", Name: "Crypto"}}
	f.start(t)
	assert.Equal(t, f.session.Snapshot().LastSeq, uint64(0))

	for _, seq := range []uint64{3, 7, 5} {
		f.live.deliver(protocol.Message{ID: fmt.Sprint(seq), Sender: "0xdef", Content: "x", ChannelID: "c", Timestamp: 1000, Seq: seq})
	}
	assert.Equal(t, f.session.Snapshot().LastSeq, uint64(7))
}

func TestRelaysAreInsertedInTimestampOrder(t *testing.T) {
	f := newFixture(t, SessionOptions{}, "0xABC")
	f.gateway.channels = []Channel{{ID: "c", Name: "Crypto"}}
	f.start(t)

	for _, m := range []protocol.Message{
		{ID: "b", Sender: "0xdef", Content: "b", ChannelID: "c", Timestamp: 2000},
		{ID: "a", Sender: "0xdef", Content: "a", ChannelID: "c", Timestamp: 1000},
		{ID: "c", Sender: "0xdef", Content: "c", ChannelID: "c", Timestamp: 3000},
		{ID: "b2", Sender: "0xabc", Content: "b2", ChannelID: "c", Timestamp: 2000},
	} {
		f.live.deliver(m)
	}

	var order []string
	for _, m := range f.session.Snapshot().Messages {
		order = append(order, m.ID)
	}
	assert.Equal(t, order, []string{"a", "b", "b2", "c"})
	assert.Equal(t, f.session.Messages("c")[2].IsMine, true)
}

func TestCreateChannelBecomesActive(t *testing.T) {
	f := newFixture(t, SessionOptions{}, "0xABC")
	f.start(t)
	ctx := context.Background()

	if _, err := f.session.CreateChannel(ctx, "  ", ""); !errors.Is(err, ErrEmptyChannelName) {
		t.Errorf("Expected ErrEmptyChannelName, GOT[%v]", err)
	}

	channel, err := f.session.CreateChannel(ctx, "Tech", "Technology discussions")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	snapshot := f.session.Snapshot()
	assert.Equal(t, snapshot.ActiveChannel.ID, channel.ID)
	assert.Equal(t, len(snapshot.Channels), 2)

	_, err = f.session.CreateChannel(ctx, "Tech", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected an APIError, GOT[%v]", err)
	}
	assert.Equal(t, apiErr.Status, 400)
	assert.Equal(t, len(f.session.Snapshot().Channels), 2)
}

func TestLiveConnectFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, SessionOptions{}, "0xABC")
	f.live.connectErr = errOffline
	f.start(t)

	assert.Equal(t, f.notices.has("Connection error"), true)
	assert.Equal(t, len(f.session.Snapshot().Channels), 1)

	if _, err := f.session.SendMessage(context.Background(), "still works locally"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	assert.Equal(t, f.notices.has("Message not delivered live"), true)
	assert.Equal(t, len(f.session.Snapshot().Messages), 1)
}

func TestIdentityLossAndReturn(t *testing.T) {
	f := newFixture(t, SessionOptions{}, "0xABC")
	f.start(t)

	f.wallet.SetAccounts()
	assert.Equal(t, f.session.Snapshot().Account, "")
	assert.Equal(t, f.live.State(), StateDisconnected)

	// Late relays after the loss are dropped silently
	active := f.session.Snapshot().ActiveChannel.ID
	f.live.deliver(protocol.Message{ID: "late", Sender: "0xdef", Content: "late", ChannelID: active, Timestamp: 1})
	assert.Equal(t, len(f.session.Snapshot().Messages), 0)

	if _, err := f.session.SendMessage(context.Background(), "hi"); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("Expected ErrNoIdentity, GOT[%v]", err)
	}

	f.wallet.SetAccounts("0xDEF")
	eventually(t, "the restart", func() bool { return f.live.connectCount() == 2 && f.live.State() == StateConnected })
	assert.Equal(t, f.session.Snapshot().Account, "0xDEF")
}

func TestAccountChangeRetagsMessages(t *testing.T) {
	f := newFixture(t, SessionOptions{}, "0xABC")
	f.gateway.channels = []Channel{{ID: "c", Name: "Crypto"}}
	f.gateway.messages = []protocol.Message{
		{ID: "1", Sender: "0xabc", Content: "from abc", ChannelID: "c", Timestamp: 1000},
		{ID: "2", Sender: "0xdef", Content: "from def", ChannelID: "c", Timestamp: 2000},
	}
	f.start(t)

	messages := f.session.Snapshot().Messages
	assert.Equal(t, messages[0].IsMine, true)
	assert.Equal(t, messages[1].IsMine, false)

	f.wallet.SetAccounts("0xDEF")
	messages = f.session.Snapshot().Messages
	assert.Equal(t, messages[0].IsMine, false)
	assert.Equal(t, messages[1].IsMine, true)
	assert.Equal(t, f.live.connectCount(), 1)
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	f := newFixture(t, SessionOptions{}, "0xABC")

	var lock sync.Mutex
	var last Snapshot
	calls := 0
	unsubscribe := f.session.OnChange(func(s Snapshot) {
		lock.Lock()
		last = s
		calls++
		lock.Unlock()
	})
	f.start(t)
	f.session.SendMessage(context.Background(), "hello")

	lock.Lock()
	assert.Equal(t, len(last.Messages), 1)
	assert.Equal(t, last.Messages[0].Content, "hello")
	seen := calls
	lock.Unlock()

	unsubscribe()
	f.session.SendMessage(context.Background(), "unseen")
	lock.Lock()
	assert.Equal(t, calls, seen)
	lock.Unlock()
}

func TestCloseIsTerminal(t *testing.T) {
	f := newFixture(t, SessionOptions{}, "0xABC")
	f.start(t)
	active := f.session.Snapshot().ActiveChannel.ID

	f.session.SendMessage(context.Background(), "before close")
	if err := f.session.Close(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// Close waited for the background write
	assert.Equal(t, f.gateway.writeCount(), 1)

	f.live.deliver(protocol.Message{ID: "late", Sender: "0xdef", Content: "late", ChannelID: active, Timestamp: time.Now().UnixMilli()})
	assert.Equal(t, len(f.session.Snapshot().Messages), 1)

	if _, err := f.session.SendMessage(context.Background(), "after"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, GOT[%v]", err)
	}
	if err := f.session.Start(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, GOT[%v]", err)
	}
	// Closing twice is fine
	assert.Equal(t, f.session.Close(), nil)
}
