/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package service

import (
	"context"
	"errors"
	"strings"

	"chatsphere/internal/entity"
	"chatsphere/internal/nlog"
	"chatsphere/internal/repository"
)

// Service used to list and create channels
type ChannelService interface {
	ListChannels(ctx context.Context) []*entity.Channel                                   // Channels sorted by name. The default set if the store fails
	CreateChannel(ctx context.Context, name, description string) (*entity.Channel, error) // Creates a channel with a unique, non-empty name
	SeedDefaults(ctx context.Context) error                                               // Inserts the default channels when the store holds none
}

type localChannelService struct {
	logger            nlog.Logger
	channelRepository repository.ChannelRepository
}

func NewChannelService(channelRepo repository.ChannelRepository, logger nlog.Logger) ChannelService {
	return &localChannelService{
		logger:            logger,
		channelRepository: channelRepo,
	}
}

func (c *localChannelService) Logf(format string, v ...any) {
	c.logger.Logf(format, v...)
}

func (c *localChannelService) ListChannels(ctx context.Context) []*entity.Channel {
	channels, err := c.channelRepository.GetAll(ctx)
	if err != nil {
		c.Logf("Error fetching channels, serving defaults {%v}", err)
		return entity.DefaultChannels()
	}
	if channels == nil {
		channels = []*entity.Channel{}
	}
	return channels
}

func (c *localChannelService) CreateChannel(ctx context.Context, name, description string) (*entity.Channel, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Fields: []string{"name"}, Message: "Channel name is required"}
	}

	_, err := c.channelRepository.GetByName(ctx, name)
	if err == nil {
		return nil, &ConflictError{Name: name}
	}
	if !errors.Is(err, repository.ErrNotFound) {
		c.Logf("Error looking up channel {%s} {%v}", name, err)
		return nil, &StoreUnavailableError{Op: "Error creating channel", Err: err}
	}

	channel := &entity.Channel{
		Name:        name,
		Description: description,
	}
	if err := c.channelRepository.Create(ctx, channel); err != nil {
		// Lost a race against another create with the same name
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Name: name}
		}
		c.Logf("Error creating channel {%s} {%v}", name, err)
		return nil, &StoreUnavailableError{Op: "Error creating channel", Err: err}
	}

	c.Logf("Channel created {%s, %s}", channel.ID, channel.Name)
	return channel, nil
}

func (c *localChannelService) SeedDefaults(ctx context.Context) error {
	count, err := c.channelRepository.Count(ctx)
	if err != nil {
		return &StoreUnavailableError{Op: "Error seeding channels", Err: err}
	}
	if count > 0 {
		c.Logf("Store already holds %d channels, nothing to seed", count)
		return nil
	}
	for _, channel := range entity.DefaultChannels() {
		if err := c.channelRepository.Create(ctx, channel); err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return &StoreUnavailableError{Op: "Error seeding channels", Err: err}
		}
	}
	c.Logf("Seeded the default channels")
	return nil
}
