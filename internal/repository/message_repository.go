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

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// This repository is used to manipulate the messages in the system. Only Create and Read are needed.
type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error            // Inserts a message, assigning its ID
	Get(ctx context.Context, channelID string) ([]*entity.Message, error) // Messages of a channel, oldest first
}

// Implementation of the repository using a SQLite DB
type SQLiteMessageRepository struct {
	db *gorm.DB
}

func NewSQLiteMessageRepository(db *gorm.DB) MessageRepository {
	return &SQLiteMessageRepository{db}
}

func (repo *SQLiteMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	return repo.db.WithContext(ctx).Create(message).Error
}

func (repo *SQLiteMessageRepository) Get(ctx context.Context, channelID string) ([]*entity.Message, error) {
	var messages []*entity.Message
	err := repo.db.WithContext(ctx).Where("channel_id = ?", channelID).Order("timestamp ASC").Find(&messages).Error
	return messages, err
}
