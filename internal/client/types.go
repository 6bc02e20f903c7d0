/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package client

import (
	"time"

	"chatsphere/internal/protocol"
)

type Channel = protocol.Channel

// Message is a chat message as the local user sees it
type Message struct {
	ID         string
	Sender     string
	Content    string
	ChannelID  string
	Timestamp  time.Time
	IsMine     bool
	Optimistic bool   // Inserted locally before any server confirmation
	ClientID   string // Correlates an optimistic entry with its relay
	Seq        uint64
}

func messageFromWire(m protocol.Message, account string) Message {
	return Message{
		ID:        m.ID,
		Sender:    m.Sender,
		Content:   m.Content,
		ChannelID: m.ChannelID,
		Timestamp: protocol.FromMillis(m.Timestamp),
		IsMine:    isMine(m.Sender, account),
		ClientID:  m.ClientID,
		Seq:       m.Seq,
	}
}

// DefaultChannels is what the client shows when the gateway can not be reached
func DefaultChannels() []Channel {
	return []Channel{
		{ID: "general", Name: "General", Description: "General discussion"},
		{ID: "crypto", Name: "Crypto", Description: "Cryptocurrency discussions"},
		{ID: "tech", Name: "Tech", Description: "Technology discussions"},
	}
}

// Snapshot is a copy of the session state, safe to keep and read
type Snapshot struct {
	Account       string
	Channels      []Channel
	ActiveChannel *Channel
	Messages      []Message
	Connection    ConnState
	LastSeq       uint64 // Highest hub sequence seen in a relay
}
