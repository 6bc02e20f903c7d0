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
	"crypto/rand"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"chatsphere/internal/clock"
	"chatsphere/internal/nlog"
	"chatsphere/internal/protocol"

	"github.com/oklog/ulid/v2"
)

const (
	defaultChannelName        = "General"
	defaultChannelDescription = "General discussion"
	defaultWriteTimeout       = 10 * time.Second
)

type SessionOptions struct {
	// ReconcileEcho replaces the optimistic copy of a message with its relay, matched by client id.
	// When false both entries are kept.
	ReconcileEcho bool
	Notifier      Notifier
	WriteTimeout  time.Duration // Bound on the background durable write of a sent message
}

// ChatSession holds the channel list, the active channel and the message logs of the local user.
// It merges fetched history, live relays and optimistic local copies into one ordered log per channel.
type ChatSession struct {
	identity *IdentityProvider
	live     LiveConn
	gateway  Gateway
	logger   nlog.Logger
	notifier Notifier
	opts     SessionOptions
	now      func() time.Time
	lastSeq  *clock.LogicalClock // Highest relay sequence received

	lock         sync.Mutex
	account      string
	started      bool // Start succeeded at least once
	running      bool
	closed       bool
	channels     []Channel
	activeID     string
	logs         map[string][]Message
	entropy      *ulid.MonotonicEntropy
	listeners    map[int]func(Snapshot)
	nextListener int

	unsubscribeIdentity func()
	writes              sync.WaitGroup
}

// NewChatSession builds a session on top of an already created identity. Nothing happens until Start.
func NewChatSession(identity *IdentityProvider, live LiveConn, gateway Gateway, logger nlog.Logger, opts SessionOptions) *ChatSession {
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{Logger: logger}
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	c := &ChatSession{
		identity:  identity,
		live:      live,
		gateway:   gateway,
		logger:    logger,
		notifier:  opts.Notifier,
		opts:      opts,
		now:       time.Now,
		lastSeq:   clock.NewLogicalClock(),
		logs:      make(map[string][]Message),
		entropy:   ulid.Monotonic(rand.Reader, 0),
		listeners: make(map[int]func(Snapshot)),
	}
	c.unsubscribeIdentity = identity.OnChange(c.identityChanged)
	return c
}

func (c *ChatSession) Logf(format string, v ...any) {
	c.logger.Logf(format, v...)
}

func (c *ChatSession) notify(level NoticeLevel, title string, err error) {
	notice := Notice{Level: level, Title: title}
	if err != nil {
		notice.Detail = err.Error()
	}
	c.notifier.Notify(notice)
}

// Start opens the live connection and loads the channels. Only a missing identity or a closed session fail it,
// every other failure is reported through the notifier and leaves the session usable.
func (c *ChatSession) Start(ctx context.Context) error {
	account := c.identity.Account()
	if account == "" {
		return ErrNoIdentity
	}

	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return ErrSessionClosed
	}
	c.account = account
	c.started = true
	c.running = true
	c.lock.Unlock()

	c.live.OnReceive(c.handleRelay)
	c.live.OnMessageError(c.handleMessageError)
	c.live.OnConnectionError(c.handleConnectionError)

	if err := c.live.Connect(ctx); err != nil {
		c.Logf("Socket connection error {%v}", err)
		c.notify(NoticeError, "Connection error", err)
	}

	c.LoadChannels(ctx)
	return nil
}

// LoadChannels fetches the channel list, creating the default channel when there is none, and activates a channel.
// On failure the previous list is kept.
func (c *ChatSession) LoadChannels(ctx context.Context) error {
	channels, err := c.gateway.ListChannels(ctx)
	if err != nil {
		c.notify(NoticeError, "Failed to load channels", err)
		c.lock.Lock()
		if len(c.channels) > 0 {
			c.lock.Unlock()
			return err
		}
		c.channels = slices.Clone(channels)
		c.lock.Unlock()
	} else if len(channels) == 0 {
		created, err := c.gateway.CreateChannel(ctx, defaultChannelName, defaultChannelDescription)
		if err != nil {
			c.notify(NoticeError, "Failed to create the default channel", err)
			return err
		}
		c.lock.Lock()
		c.channels = []Channel{created}
		c.lock.Unlock()
	} else {
		c.lock.Lock()
		c.channels = slices.Clone(channels)
		c.lock.Unlock()
	}

	c.lock.Lock()
	if len(c.channels) == 0 {
		c.lock.Unlock()
		c.changed()
		return err
	}
	active := c.activeID
	if c.channelIndex(active) < 0 {
		active = c.channels[0].ID
	}
	c.lock.Unlock()

	if selectErr := c.SelectChannel(ctx, active); selectErr != nil && err == nil {
		err = selectErr
	}
	return err
}

func (c *ChatSession) channelIndex(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(c.channels, func(ch Channel) bool { return ch.ID == id })
}

// SelectChannel makes channelID the active channel, joins its room and fetches its history
func (c *ChatSession) SelectChannel(ctx context.Context, channelID string) error {
	c.lock.Lock()
	if c.channelIndex(channelID) < 0 {
		c.lock.Unlock()
		return ErrUnknownChannel
	}
	c.activeID = channelID
	c.lock.Unlock()
	c.changed()

	if err := c.live.JoinChannel(channelID); err != nil {
		c.Logf("Could not join room %s {%v}", channelID, err)
	}

	history, err := c.gateway.ListMessages(ctx, channelID)
	if err != nil {
		c.notify(NoticeError, "Failed to load messages", err)
		return err
	}

	c.lock.Lock()
	account := c.account
	log := make([]Message, 0, len(history))
	for _, m := range history {
		log = append(log, messageFromWire(m, account))
	}
	slices.SortStableFunc(log, func(a, b Message) int { return a.Timestamp.Compare(b.Timestamp) })
	c.logs[channelID] = log
	c.lock.Unlock()

	c.changed()
	return nil
}

// CreateChannel creates a channel through the gateway, adds it to the list and makes it active
func (c *ChatSession) CreateChannel(ctx context.Context, name, description string) (Channel, error) {
	if strings.TrimSpace(name) == "" {
		return Channel{}, ErrEmptyChannelName
	}

	channel, err := c.gateway.CreateChannel(ctx, name, description)
	if err != nil {
		c.notify(NoticeError, "Failed to create channel", err)
		return Channel{}, err
	}

	c.lock.Lock()
	c.channels = append(c.channels, channel)
	c.lock.Unlock()
	c.notify(NoticeInfo, "Channel created", nil)

	c.SelectChannel(ctx, channel.ID)
	return channel, nil
}

// SendMessage appends an optimistic copy to the active channel, emits it live and stores it in the background.
// Only the preconditions fail it, delivery problems are reported through the notifier.
func (c *ChatSession) SendMessage(ctx context.Context, content string) (Message, error) {
	if strings.TrimSpace(content) == "" {
		return Message{}, ErrEmptyContent
	}

	c.lock.Lock()
	switch {
	case c.closed:
		c.lock.Unlock()
		return Message{}, ErrSessionClosed
	case c.account == "":
		c.lock.Unlock()
		return Message{}, ErrNoIdentity
	case c.activeID == "":
		c.lock.Unlock()
		return Message{}, ErrNoActiveChannel
	}
	now := c.now()
	id := ulid.MustNew(ulid.Timestamp(now), c.entropy).String()
	msg := Message{
		ID:         id,
		Sender:     c.account,
		Content:    content,
		ChannelID:  c.activeID,
		Timestamp:  now,
		IsMine:     true,
		Optimistic: true,
		ClientID:   id,
	}
	c.insert(msg)
	c.lock.Unlock()
	c.changed()

	if err := c.live.SendMessage(protocol.SendMessage{
		Sender:    msg.Sender,
		Content:   msg.Content,
		ChannelID: msg.ChannelID,
		ClientID:  msg.ClientID,
	}); err != nil {
		c.Logf("Live emission failed {%v}", err)
		c.notify(NoticeError, "Message not delivered live", err)
	}

	c.writes.Add(1)
	go func() {
		defer c.writes.Done()
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.WriteTimeout)
		defer cancel()
		if _, err := c.gateway.CreateMessage(writeCtx, msg.Sender, msg.Content, msg.ChannelID); err != nil {
			c.Logf("Error saving message {%v}", err)
		}
	}()

	return msg, nil
}

// insert keeps the channel log ordered by timestamp, equal timestamps stay in arrival order. Caller holds the lock.
func (c *ChatSession) insert(msg Message) {
	log := c.logs[msg.ChannelID]
	at := len(log)
	for at > 0 && log[at-1].Timestamp.After(msg.Timestamp) {
		at--
	}
	c.logs[msg.ChannelID] = slices.Insert(log, at, msg)
}

func (c *ChatSession) handleRelay(relay protocol.Message) {
	c.lock.Lock()
	if c.closed || !c.running {
		c.lock.Unlock()
		return
	}
	c.lastSeq.Observe(relay.Seq)
	msg := messageFromWire(relay, c.account)
	if c.opts.ReconcileEcho && msg.ClientID != "" {
		c.logs[msg.ChannelID] = slices.DeleteFunc(c.logs[msg.ChannelID], func(m Message) bool {
			return m.Optimistic && m.ClientID == msg.ClientID
		})
	}
	c.insert(msg)
	c.lock.Unlock()
	c.changed()
}

func (c *ChatSession) handleMessageError(reason string) {
	c.notify(NoticeError, "Failed to send message", errors.New(reason))
}

func (c *ChatSession) handleConnectionError(err error) {
	if errors.Is(err, ErrReconnectExhausted) {
		c.notify(NoticeError, "Connection lost", err)
		c.changed()
		return
	}
	c.Logf("Socket connection error {%v}", err)
}

// identityChanged follows the wallet: losing the account stops the session, a new account retags the logs
// and restarts a session that was stopped by a previous loss
func (c *ChatSession) identityChanged(account string) {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return
	}

	if account == "" {
		wasRunning := c.running
		c.running = false
		c.account = ""
		c.lock.Unlock()
		if wasRunning {
			c.live.Disconnect()
		}
		c.notify(NoticeInfo, "Wallet disconnected", nil)
		c.changed()
		return
	}

	restart := !c.running && c.started
	c.account = account
	for channelID, log := range c.logs {
		for i := range log {
			log[i].IsMine = isMine(log[i].Sender, account)
		}
		c.logs[channelID] = log
	}
	c.lock.Unlock()

	c.notify(NoticeInfo, "Account changed", nil)
	c.changed()
	if restart {
		go c.Start(context.Background())
	}
}

// OnChange registers fn to receive a snapshot after every state change
func (c *ChatSession) OnChange(fn func(Snapshot)) func() {
	c.lock.Lock()
	defer c.lock.Unlock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	return func() {
		c.lock.Lock()
		delete(c.listeners, id)
		c.lock.Unlock()
	}
}

func (c *ChatSession) changed() {
	c.lock.Lock()
	if len(c.listeners) == 0 {
		c.lock.Unlock()
		return
	}
	listeners := make([]func(Snapshot), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	snapshot := c.snapshotLocked()
	c.lock.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

// Snapshot copies the current state
func (c *ChatSession) Snapshot() Snapshot {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.snapshotLocked()
}

func (c *ChatSession) snapshotLocked() Snapshot {
	snapshot := Snapshot{
		Account:    c.account,
		Channels:   slices.Clone(c.channels),
		Connection: c.live.State(),
		LastSeq:    c.lastSeq.Snapshot(),
	}
	if i := c.channelIndex(c.activeID); i >= 0 {
		active := c.channels[i]
		snapshot.ActiveChannel = &active
		snapshot.Messages = slices.Clone(c.logs[c.activeID])
	}
	if snapshot.Messages == nil {
		snapshot.Messages = []Message{}
	}
	return snapshot
}

// Messages returns a copy of the log of a channel
func (c *ChatSession) Messages(channelID string) []Message {
	c.lock.Lock()
	defer c.lock.Unlock()
	return slices.Clone(c.logs[channelID])
}

// Close disconnects the live connection and waits for pending writes. A closed session can not be started again.
func (c *ChatSession) Close() error {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return nil
	}
	c.closed = true
	c.running = false
	unsubscribe := c.unsubscribeIdentity
	c.lock.Unlock()

	unsubscribe()
	err := c.live.Disconnect()
	c.writes.Wait()
	return err
}
