/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package repository

import (
	"context"

	"chatsphere/internal/entity"
)

// UnavailableChannelRepository stands in for a store that could not be opened.
// Every call fails with ErrStoreUnavailable, so reads degrade and writes surface an error.
type UnavailableChannelRepository struct {
	Cause error
}

func (u *UnavailableChannelRepository) Create(context.Context, *entity.Channel) error {
	return unavailable(u.Cause)
}

func (u *UnavailableChannelRepository) GetAll(context.Context) ([]*entity.Channel, error) {
	return nil, unavailable(u.Cause)
}

func (u *UnavailableChannelRepository) GetByName(context.Context, string) (*entity.Channel, error) {
	return nil, unavailable(u.Cause)
}

func (u *UnavailableChannelRepository) Count(context.Context) (int64, error) {
	return 0, unavailable(u.Cause)
}

// UnavailableMessageRepository is the message side of UnavailableChannelRepository
type UnavailableMessageRepository struct {
	Cause error
}

func (u *UnavailableMessageRepository) Create(context.Context, *entity.Message) error {
	return unavailable(u.Cause)
}

func (u *UnavailableMessageRepository) Get(context.Context, string) ([]*entity.Message, error) {
	return nil, unavailable(u.Cause)
}

func unavailable(cause error) error {
	if cause == nil {
		return ErrStoreUnavailable
	}
	return &unavailableError{cause}
}

// unavailableError matches ErrStoreUnavailable while keeping the original cause
type unavailableError struct {
	cause error
}

func (e *unavailableError) Error() string        { return ErrStoreUnavailable.Error() + ": " + e.cause.Error() }
func (e *unavailableError) Is(target error) bool { return target == ErrStoreUnavailable }
func (e *unavailableError) Unwrap() error        { return e.cause }
