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

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// channelDocument is the stored shape of a channel. The _id is normalized to a hex string id on the way out.
type channelDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

type messageDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Sender    string             `bson:"sender"`
	Content   string             `bson:"content"`
	ChannelID string             `bson:"channelId"`
	Timestamp time.Time          `bson:"timestamp"`
	IsMine    bool               `bson:"isMine"`
}

// Implementation of the channel repository on a MongoDB collection
type MongoChannelRepository struct {
	collection *mongo.Collection
}

func NewMongoChannelRepository(db *mongo.Database) *MongoChannelRepository {
	return &MongoChannelRepository{db.Collection("channels")}
}

// EnsureIndexes makes channel names unique on the collection
func (repo *MongoChannelRepository) EnsureIndexes(ctx context.Context) error {
	_, err := repo.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (repo *MongoChannelRepository) Create(ctx context.Context, channel *entity.Channel) error {
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = time.Now().UTC()
	}
	doc := channelDocument{
		Name:        channel.Name,
		Description: channel.Description,
		CreatedAt:   channel.CreatedAt,
	}
	if channel.ID != "" {
		// Seeded channels carry a fixed id that is not an ObjectID, keep a fresh one in the store.
		if oid, err := primitive.ObjectIDFromHex(channel.ID); err == nil {
			doc.ID = oid
		}
	}
	result, err := repo.collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		channel.ID = oid.Hex()
	}
	return nil
}

func (repo *MongoChannelRepository) GetAll(ctx context.Context) ([]*entity.Channel, error) {
	cursor, err := repo.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []channelDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	channels := make([]*entity.Channel, 0, len(docs))
	for _, doc := range docs {
		channels = append(channels, doc.toEntity())
	}
	return channels, nil
}

func (repo *MongoChannelRepository) GetByName(ctx context.Context, name string) (*entity.Channel, error) {
	var doc channelDocument
	err := repo.collection.FindOne(ctx, bson.D{{Key: "name", Value: name}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toEntity(), nil
}

func (repo *MongoChannelRepository) Count(ctx context.Context) (int64, error) {
	return repo.collection.CountDocuments(ctx, bson.D{})
}

func (d channelDocument) toEntity() *entity.Channel {
	return &entity.Channel{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
	}
}

// Implementation of the message repository on a MongoDB collection
type MongoMessageRepository struct {
	collection *mongo.Collection
}

func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{db.Collection("messages")}
}

// EnsureIndexes indexes messages by channel and time, the only query shape used
func (repo *MongoMessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := repo.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "channelId", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	return err
}

func (repo *MongoMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	result, err := repo.collection.InsertOne(ctx, messageDocument{
		Sender:    message.Sender,
		Content:   message.Content,
		ChannelID: message.ChannelID,
		Timestamp: message.Timestamp,
		IsMine:    false,
	})
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		message.ID = oid.Hex()
	}
	return nil
}

func (repo *MongoMessageRepository) Get(ctx context.Context, channelID string) ([]*entity.Message, error) {
	cursor, err := repo.collection.Find(ctx,
		bson.D{{Key: "channelId", Value: channelID}},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	messages := make([]*entity.Message, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, &entity.Message{
			ID:        doc.ID.Hex(),
			Sender:    doc.Sender,
			Content:   doc.Content,
			ChannelID: doc.ChannelID,
			Timestamp: doc.Timestamp,
		})
	}
	return messages, nil
}
