/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import "time"

// Channel is a named room that scopes messages and live membership.
type Channel struct {
	ID          string    `gorm:"primaryKey" json:"id"`             // Unique identifier
	Name        string    `gorm:"not null;uniqueIndex" json:"name"` // Display name, unique and case-sensitive
	Description string    `json:"description,omitempty"`            // Optional description
	CreatedAt   time.Time `gorm:"not null" json:"created-at"`       // Time of creation
}

// DefaultChannels is the set served when the store cannot be read, and seeded on request.
func DefaultChannels() []*Channel {
	return []*Channel{
		{ID: "general", Name: "General", Description: "General discussion"},
		{ID: "crypto", Name: "Crypto", Description: "Cryptocurrency discussions"},
		{ID: "tech", Name: "Tech", Description: "Technology discussions"},
	}
}
