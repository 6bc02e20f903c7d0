/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import "time"

// Message sent by a wallet address into a channel.
type Message struct {
	ID        string    `gorm:"primaryKey" json:"id"`             // Unique identifier, assigned by the store
	Sender    string    `gorm:"not null;index" json:"sender"`     // Wallet address of the author
	Content   string    `gorm:"not null" json:"content"`          // Actual content of the message
	ChannelID string    `gorm:"not null;index" json:"channel-id"` // Channel the message belongs to
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`  // Time of creation, assigned by the server
	IsMine    bool      `gorm:"default:false" json:"is-mine"`     // Always false on the server, computed by clients
}
