/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package client

import (
	"errors"
	"fmt"
)

var (
	ErrNoIdentity         = errors.New("no wallet account connected")
	ErrNoActiveChannel    = errors.New("no active channel")
	ErrEmptyContent       = errors.New("message content is empty")
	ErrNotConnected       = errors.New("live connection is not open")
	ErrReconnectExhausted = errors.New("gave up reconnecting to the live server")
	ErrSessionClosed      = errors.New("chat session is closed")
	ErrEmptyChannelName   = errors.New("channel name is empty")
	ErrUnknownChannel     = errors.New("no such channel")
)

// APIError is a non-2xx answer from the gateway
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway answered %d: %s", e.Status, e.Message)
}
