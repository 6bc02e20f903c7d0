/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package realtime

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"chatsphere/internal/clock"
	"chatsphere/internal/nlog"
	"chatsphere/internal/protocol"
	"chatsphere/internal/service"

	"github.com/oklog/ulid/v2"
)

const (
	DefaultPersistTimeout = 2 * time.Second
	eventQueueSize        = 256
)

var ErrHubStopped = errors.New("hub is not running")

// Peer is a connected party the hub can deliver frames to.
// Send never blocks, it reports false when the frame could not be queued.
// Close is called once, when the hub forgets the peer.
type Peer interface {
	Token() string
	Send(frame []byte) bool
	Close()
}

// DeliveryConstructionError reports a relay that could not be built, it is only ever shown to the sender
type DeliveryConstructionError struct {
	Reason string
	Err    error
}

func (e *DeliveryConstructionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *DeliveryConstructionError) Unwrap() error {
	return e.Err
}

// Stats is a point in time view of the hub
type Stats struct {
	Peers int `json:"peers"`
	Rooms int `json:"rooms"`
}

type eventKind int

const (
	eventRegister eventKind = iota
	eventUnregister
	eventJoin
	eventSubmit
)

type hubEvent struct {
	kind    eventKind
	peer    Peer
	room    string
	message protocol.SendMessage
}

type member struct {
	peer Peer
	room string
}

// pendingRelay is a submitted message on its way through the store of its room
type pendingRelay struct {
	origin Peer
	relay  protocol.Message
}

// roomWorker stores the messages of one room in submission order, off the hub loop.
// The queue is filled by the loop only, pending is only touched by the loop.
type roomWorker struct {
	lock    sync.Mutex
	queue   []pendingRelay
	wake    chan struct{}
	pending int
}

func (w *roomWorker) push(p pendingRelay) {
	w.lock.Lock()
	w.queue = append(w.queue, p)
	w.lock.Unlock()
	w.pending++
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *roomWorker) pop() (pendingRelay, bool) {
	w.lock.Lock()
	defer w.lock.Unlock()
	if len(w.queue) == 0 {
		return pendingRelay{}, false
	}
	p := w.queue[0]
	w.queue = w.queue[1:]
	return p, true
}

// Hub owns the room membership of every connected peer.
// Every change goes through a single queue drained by Run, so events are handled in the order they were accepted.
// Messages are stored by one worker per room and come back to the loop as deliveries, in the order of that room.
type Hub struct {
	logger         nlog.Logger
	messages       service.MessageService
	clock          *clock.LogicalClock
	persistTimeout time.Duration

	now     func() time.Time
	entropy *ulid.MonotonicEntropy // Only touched by the loop

	events     chan hubEvent
	deliveries chan pendingRelay
	stopped    chan struct{}

	members map[string]*member
	rooms   map[string]map[string]Peer
	workers map[string]*roomWorker
	running sync.WaitGroup

	peerCount atomic.Int64
	roomCount atomic.Int64
}

// NewHub creates a hub persisting through messages. A nil service disables persistence.
// Every relay ticks clk, a nil clock gives the hub its own.
func NewHub(messages service.MessageService, logger nlog.Logger, clk *clock.LogicalClock, persistTimeout time.Duration) *Hub {
	if persistTimeout <= 0 {
		persistTimeout = DefaultPersistTimeout
	}
	if clk == nil {
		clk = clock.NewLogicalClock()
	}
	return &Hub{
		logger:         logger,
		messages:       messages,
		clock:          clk,
		persistTimeout: persistTimeout,
		now:            time.Now,
		entropy:        ulid.Monotonic(rand.Reader, 0),
		events:         make(chan hubEvent, eventQueueSize),
		deliveries:     make(chan pendingRelay, eventQueueSize),
		stopped:        make(chan struct{}),
		members:        make(map[string]*member),
		rooms:          make(map[string]map[string]Peer),
		workers:        make(map[string]*roomWorker),
	}
}

func (h *Hub) Logf(format string, v ...any) {
	h.logger.Logf(format, v...)
}

// Run handles events until ctx is done, then closes every peer still registered
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.stopped)
		h.running.Wait()
		clear(h.workers)
		for token, m := range h.members {
			m.peer.Close()
			delete(h.members, token)
		}
		clear(h.rooms)
		h.refreshStats()
		h.Logf("Hub stopped")
	}()

	h.Logf("Hub started")
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.events:
			switch ev.kind {
			case eventRegister:
				h.register(ev.peer)
			case eventUnregister:
				h.unregister(ev.peer)
			case eventJoin:
				h.join(ev.peer, ev.room)
			case eventSubmit:
				h.submit(ctx, ev.peer, ev.message)
			}
			h.refreshStats()
		case p := <-h.deliveries:
			h.deliver(p)
			h.refreshStats()
		}
	}
}

func (h *Hub) enqueue(ev hubEvent) error {
	select {
	case <-h.stopped:
		return ErrHubStopped
	default:
	}
	select {
	case h.events <- ev:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	}
}

// Register adds a peer, connected to no room
func (h *Hub) Register(peer Peer) error {
	return h.enqueue(hubEvent{kind: eventRegister, peer: peer})
}

// Unregister removes a peer from the registry and from its room. Unknown peers are ignored.
func (h *Hub) Unregister(peer Peer) error {
	return h.enqueue(hubEvent{kind: eventUnregister, peer: peer})
}

// Join moves the peer into room, leaving whichever room it was in
func (h *Hub) Join(peer Peer, room string) error {
	return h.enqueue(hubEvent{kind: eventJoin, peer: peer, room: room})
}

// Submit relays a message to the room it names, storing it on the way when possible
func (h *Hub) Submit(peer Peer, message protocol.SendMessage) error {
	return h.enqueue(hubEvent{kind: eventSubmit, peer: peer, message: message})
}

func (h *Hub) Stats() Stats {
	return Stats{
		Peers: int(h.peerCount.Load()),
		Rooms: int(h.roomCount.Load()),
	}
}

func (h *Hub) refreshStats() {
	h.peerCount.Store(int64(len(h.members)))
	h.roomCount.Store(int64(len(h.rooms)))
}

func (h *Hub) register(peer Peer) {
	if _, ok := h.members[peer.Token()]; ok {
		return
	}
	h.members[peer.Token()] = &member{peer: peer}
	h.Logf("Peer connected {%s}", peer.Token())
}

func (h *Hub) unregister(peer Peer) {
	m, ok := h.members[peer.Token()]
	if !ok {
		return
	}
	h.leave(m)
	delete(h.members, peer.Token())
	m.peer.Close()
	h.Logf("Peer disconnected {%s}", peer.Token())
}

func (h *Hub) join(peer Peer, room string) {
	m, ok := h.members[peer.Token()]
	if !ok {
		h.Logf("Join from unknown peer {%s} ignored", peer.Token())
		return
	}
	if m.room == room {
		return
	}
	h.leave(m)
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]Peer)
	}
	h.rooms[room][peer.Token()] = m.peer
	m.room = room
	h.Logf("Peer {%s} joined room {%s}", peer.Token(), room)
}

func (h *Hub) leave(m *member) {
	if m.room == "" {
		return
	}
	if peers, ok := h.rooms[m.room]; ok {
		delete(peers, m.peer.Token())
		if len(peers) == 0 {
			delete(h.rooms, m.room)
		}
	}
	m.room = ""
}

// submit checks the message and hands it to the worker of its room
func (h *Hub) submit(ctx context.Context, origin Peer, msg protocol.SendMessage) {
	if msg.Sender == "" || msg.Content == "" || msg.ChannelID == "" {
		err := &DeliveryConstructionError{Reason: "missing sender, content or channelId"}
		h.Logf("Error sending message from {%s} {%v}", origin.Token(), err)
		h.sendError(origin, "Failed to send message")
		return
	}

	w, ok := h.workers[msg.ChannelID]
	if !ok {
		w = &roomWorker{wake: make(chan struct{}, 1)}
		h.workers[msg.ChannelID] = w
		h.running.Add(1)
		go h.runWorker(ctx, w)
	}
	w.push(pendingRelay{
		origin: origin,
		relay: protocol.Message{
			ID:        h.fallbackID(),
			Sender:    msg.Sender,
			Content:   msg.Content,
			ChannelID: msg.ChannelID,
			Timestamp: protocol.ToMillis(h.now()),
			ClientID:  msg.ClientID,
		},
	})
}

// runWorker stores the queued messages of a room one at a time and posts them back to the loop.
// It returns when the loop closes its wake channel or ctx is done.
func (h *Hub) runWorker(ctx context.Context, w *roomWorker) {
	defer h.running.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-w.wake:
			if !ok {
				return
			}
		}
		for {
			p, ok := w.pop()
			if !ok {
				break
			}
			h.persist(ctx, &p.relay)
			select {
			case h.deliveries <- p:
			case <-ctx.Done():
				return
			}
		}
	}
}

// persist stores the message when it can. A store failure only leaves the fallback id in place.
func (h *Hub) persist(ctx context.Context, relay *protocol.Message) {
	if h.messages == nil {
		return
	}
	persistCtx, cancel := context.WithTimeout(ctx, h.persistTimeout)
	defer cancel()
	stored, err := h.messages.CreateMessage(persistCtx, relay.Sender, relay.Content, relay.ChannelID)
	if err != nil {
		h.Logf("Message not saved to the store, relaying it anyway {%v}", err)
		return
	}
	relay.ID = stored.ID
	relay.Timestamp = protocol.ToMillis(stored.Timestamp)
}

// deliver relays a stored message to whoever is in its room now, and retires the room worker once it is idle
func (h *Hub) deliver(p pendingRelay) {
	room := p.relay.ChannelID
	if w, ok := h.workers[room]; ok {
		w.pending--
		if w.pending == 0 {
			delete(h.workers, room)
			close(w.wake)
		}
	}

	frame, err := h.buildDelivery(p.relay)
	if err != nil {
		h.Logf("Error sending message from {%s} {%v}", p.origin.Token(), err)
		h.sendError(p.origin, "Failed to send message")
		return
	}

	delivered := 0
	for token, peer := range h.rooms[room] {
		if peer.Send(frame) {
			delivered++
			continue
		}
		// Outbound buffer full, the peer is too slow to keep
		h.Logf("Dropping peer {%s}, its buffer is full", token)
		h.unregister(peer)
	}
	h.Logf("Message sent to room {%s}, %d peers", room, delivered)
}

// buildDelivery stamps the relay with the next sequence number and encodes it
func (h *Hub) buildDelivery(relay protocol.Message) ([]byte, error) {
	relay.Seq = h.clock.Tick()
	frame, err := protocol.Encode(protocol.EventReceiveMessage, relay)
	if err != nil {
		return nil, &DeliveryConstructionError{Reason: "could not encode relay", Err: err}
	}
	return frame, nil
}

func (h *Hub) fallbackID() string {
	return ulid.MustNew(ulid.Timestamp(h.now()), h.entropy).String()
}

func (h *Hub) sendError(peer Peer, reason string) {
	frame, err := protocol.Encode(protocol.EventMessageError, protocol.ErrorEvent{Error: reason})
	if err != nil {
		return
	}
	peer.Send(frame)
}
