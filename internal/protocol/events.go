/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package protocol

import (
	"encoding/json"
	"time"

	"chatsphere/internal/entity"
)

// EventName identifies a live event
type EventName string

const (
	// Client -> Server
	EventJoinChannel EventName = "join_channel"
	EventSendMessage EventName = "send_message"

	// Server -> Client
	EventReceiveMessage EventName = "receive_message"
	EventMessageError   EventName = "message_error"
)

// Envelope wraps every websocket frame with the event name
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SendMessage is emitted by a client to post into a channel.
type SendMessage struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	ChannelID string `json:"channelId"`
	ClientID  string `json:"clientId,omitempty"` // Correlation id of the optimistic copy, echoed in the relay
}

// Message is the wire form of a chat message, used by both the HTTP API and the relays.
type Message struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	ChannelID string `json:"channelId"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
	ClientID  string `json:"clientId,omitempty"`
	Seq       uint64 `json:"seq,omitempty"` // Hub relay order, zero outside relays
}

type Channel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorEvent is sent back to the origin of an event that could not be handled
type ErrorEvent struct {
	Error string `json:"error"`
}

// NewEnvelope creates an envelope with the given event and data.
func NewEnvelope(event EventName, data any) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Event: event,
		Data:  raw,
	}, nil
}

// Encode creates the envelope and marshals it in one go
func Encode(event EventName, data any) ([]byte, error) {
	env, err := NewEnvelope(event, data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// ParseEnvelope parses a JSON frame into an envelope.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func MessageFromEntity(m *entity.Message) Message {
	return Message{
		ID:        m.ID,
		Sender:    m.Sender,
		Content:   m.Content,
		ChannelID: m.ChannelID,
		Timestamp: ToMillis(m.Timestamp),
	}
}

func MessagesFromEntities(messages []*entity.Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, MessageFromEntity(m))
	}
	return out
}

func ChannelFromEntity(c *entity.Channel) Channel {
	return Channel{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
	}
}

func ChannelsFromEntities(channels []*entity.Channel) []Channel {
	out := make([]Channel, 0, len(channels))
	for _, c := range channels {
		out = append(out, ChannelFromEntity(c))
	}
	return out
}
