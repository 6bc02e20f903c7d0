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
	"errors"
	"time"

	"chatsphere/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// This repository is used to manipulate channels. Channels are never deleted, so only Create and Read are offered.
type ChannelRepository interface {
	Create(ctx context.Context, channel *entity.Channel) error           // Inserts the channel, assigning ID and CreatedAt when missing
	GetAll(ctx context.Context) ([]*entity.Channel, error)               // Every channel, sorted by name ascending
	GetByName(ctx context.Context, name string) (*entity.Channel, error) // Exact, case-sensitive match. ErrNotFound if absent
	Count(ctx context.Context) (int64, error)                            // Number of stored channels
}

// Implementation of the repository using a SQLite DB
type SQLiteChannelRepository struct {
	db *gorm.DB
}

func NewSQLiteChannelRepository(db *gorm.DB) ChannelRepository {
	return &SQLiteChannelRepository{db}
}

func (repo *SQLiteChannelRepository) Create(ctx context.Context, channel *entity.Channel) error {
	if channel.ID == "" {
		channel.ID = uuid.New().String()
	}
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = time.Now().UTC()
	}
	err := repo.db.WithContext(ctx).Create(channel).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (repo *SQLiteChannelRepository) GetAll(ctx context.Context) ([]*entity.Channel, error) {
	var channels []*entity.Channel
	err := repo.db.WithContext(ctx).Order("name ASC").Find(&channels).Error
	return channels, err
}

func (repo *SQLiteChannelRepository) GetByName(ctx context.Context, name string) (*entity.Channel, error) {
	var channel entity.Channel
	err := repo.db.WithContext(ctx).Where("name = ?", name).First(&channel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

func (repo *SQLiteChannelRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&entity.Channel{}).Count(&count).Error
	return count, err
}
