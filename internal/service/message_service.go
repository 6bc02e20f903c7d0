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
	"time"

	"chatsphere/internal/entity"
	"chatsphere/internal/nlog"
	"chatsphere/internal/repository"
)

// Service used to store and read channel messages
type MessageService interface {
	ListMessages(ctx context.Context, channelID string) []*entity.Message                          // Messages of the channel, oldest first. Empty if the store fails
	CreateMessage(ctx context.Context, sender, content, channelID string) (*entity.Message, error) // Stores a message, the server assigns id and timestamp
}

type localMessageService struct {
	logger            nlog.Logger
	messageRepository repository.MessageRepository
	now               func() time.Time
}

func NewMessageService(messageRepo repository.MessageRepository, logger nlog.Logger) MessageService {
	return &localMessageService{
		logger:            logger,
		messageRepository: messageRepo,
		now:               time.Now,
	}
}

func (m *localMessageService) Logf(format string, v ...any) {
	m.logger.Logf(format, v...)
}

func (m *localMessageService) ListMessages(ctx context.Context, channelID string) []*entity.Message {
	messages, err := m.messageRepository.Get(ctx, channelID)
	if err != nil {
		m.Logf("Error fetching messages for channel {%s}, serving none {%v}", channelID, err)
		return []*entity.Message{}
	}
	if messages == nil {
		messages = []*entity.Message{}
	}
	m.Logf("Found %d messages in channel {%s}", len(messages), channelID)
	return messages
}

func (m *localMessageService) CreateMessage(ctx context.Context, sender, content, channelID string) (*entity.Message, error) {
	if missing := missingFields(map[string]string{"sender": sender, "content": content, "channelId": channelID}); len(missing) > 0 {
		return nil, &ValidationError{Fields: missing, Message: "All fields are required"}
	}

	message := &entity.Message{
		Sender:    sender,
		Content:   content,
		ChannelID: channelID,
		Timestamp: m.now().UTC(),
	}
	if err := m.messageRepository.Create(ctx, message); err != nil {
		m.Logf("Error creating message {%v}", err)
		return nil, &StoreUnavailableError{Op: "Server error", Err: err}
	}

	m.Logf("Message created {%s} in channel {%s}", message.ID, channelID)
	return message, nil
}

// missingFields returns the names of the empty values, in a stable order
func missingFields(fields map[string]string) []string {
	var missing []string
	for _, name := range []string{"sender", "content", "channelId"} {
		if value, ok := fields[name]; ok && value == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
