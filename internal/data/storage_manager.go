/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package data

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"chatsphere/internal/entity"
	"chatsphere/internal/nlog"
	"chatsphere/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Backend names a store implementation
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendMongo  Backend = "mongo"

	defaultMongoDatabase = "crypto-chat-sphere"
	mongoConnectTimeout  = 5 * time.Second
)

// Storage manager gathers all the repositories needed for the chat system in a single container.
// A store that can not be opened is replaced by repositories that always fail, never by a crash.
type StorageManager struct {
	backend Backend
	logger  nlog.Logger

	gormDB      *gorm.DB
	mongoClient *mongo.Client

	channelRepo repository.ChannelRepository
	messageRepo repository.MessageRepository
}

// ParseStoreURI tells which backend a store URI points at, and the address to hand to its driver.
//
//	mongodb://host/db, mongodb+srv://...  -> mongo, the URI itself
//	sqlite://path/to/file.db              -> sqlite, path/to/file.db
//	memory                                -> sqlite, a shared in-memory database
//	anything else                         -> sqlite, taken as a file path
func ParseStoreURI(uri string) (Backend, string) {
	switch {
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		return BackendMongo, uri
	case uri == "memory":
		return BackendSQLite, "file::memory:?cache=shared"
	case strings.HasPrefix(uri, "sqlite://"):
		return BackendSQLite, strings.TrimPrefix(uri, "sqlite://")
	default:
		return BackendSQLite, uri
	}
}

// mongoDatabaseName extracts the database from the URI path, falling back to the default one
func mongoDatabaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultMongoDatabase
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		return defaultMongoDatabase
	}
	return name
}

func NewStorageManager(ctx context.Context, storeURI string, logger nlog.Logger) *StorageManager {
	s := &StorageManager{logger: logger}
	backend, address := ParseStoreURI(storeURI)
	s.backend = backend

	switch backend {
	case BackendMongo:
		s.openMongo(ctx, address)
	default:
		s.openSQLite(address)
	}
	return s
}

func (s *StorageManager) Logf(format string, v ...any) {
	s.logger.Logf(format, v...)
}

func (s *StorageManager) openSQLite(path string) {
	db, err := OpenSQLite(path)
	if err != nil {
		s.Logf("SQLite store at {%s} could not be opened, continuing without it {%v}", path, err)
		s.useUnavailable(err)
		return
	}
	s.gormDB = db
	s.channelRepo = repository.NewSQLiteChannelRepository(db)
	s.messageRepo = repository.NewSQLiteMessageRepository(db)
	s.Logf("Connected to SQLite store {%s}", path)
}

// OpenSQLite opens the database at path and migrates the chat schema
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&entity.Channel{}, &entity.Message{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

func (s *StorageManager) openMongo(ctx context.Context, uri string) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(mongoConnectTimeout))
	if err != nil {
		s.Logf("MongoDB connection error {%v}, continuing without it", err)
		s.useUnavailable(err)
		return
	}
	s.mongoClient = client

	db := client.Database(mongoDatabaseName(uri))
	channels := repository.NewMongoChannelRepository(db)
	messages := repository.NewMongoMessageRepository(db)
	s.channelRepo = channels
	s.messageRepo = messages

	// The driver reconnects on its own, so an unreachable server only costs the indexes for now.
	indexCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()
	if err := channels.EnsureIndexes(indexCtx); err != nil {
		s.Logf("MongoDB not reachable yet, some features will be limited {%v}", err)
		return
	}
	if err := messages.EnsureIndexes(indexCtx); err != nil {
		s.Logf("Could not index messages {%v}", err)
		return
	}
	s.Logf("Connected to MongoDB {%s}", mongoDatabaseName(uri))
}

func (s *StorageManager) useUnavailable(cause error) {
	s.channelRepo = &repository.UnavailableChannelRepository{Cause: cause}
	s.messageRepo = &repository.UnavailableMessageRepository{Cause: cause}
}

func (s *StorageManager) Backend() Backend {
	return s.backend
}

func (s *StorageManager) GetChannelRepository() repository.ChannelRepository {
	return s.channelRepo
}

func (s *StorageManager) GetMessageRepository() repository.MessageRepository {
	return s.messageRepo
}

// Close releases the underlying connections
func (s *StorageManager) Close(ctx context.Context) error {
	if s.mongoClient != nil {
		return s.mongoClient.Disconnect(ctx)
	}
	if s.gormDB != nil {
		sqlDB, err := s.gormDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
