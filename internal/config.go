/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"
)

const (
	DefaultStoreURI       = "sqlite://chat.db"
	DefaultClientURL      = "http://localhost:3000"
	DefaultHTTPServerPort = 5000
	DefaultEnvironment    = "development"
	DefaultReadTimeout    = 15
	DefaultWriteTimeout   = 15
	DefaultPersistTimeout = 2000
)

type Config struct {
	StoreURI            string `json:"store-uri"`
	ClientURL           string `json:"client-url"`
	HTTPServerPort      uint16 `json:"http-server-port"`
	Environment         string `json:"environment"`
	LogFolder           string `json:"log-folder"`
	EnableLogging       bool   `json:"enable-logging"`
	ReadTimeout         int64  `json:"read-timeout"`    // Seconds
	WriteTimeout        int64  `json:"write-timeout"`   // Seconds
	PersistTimeout      int64  `json:"persist-timeout"` // Milliseconds the hub waits for the store before relaying
	SeedDefaultChannels bool   `json:"seed-default-channels"`
}

// DefaultConfig is the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		StoreURI:       DefaultStoreURI,
		ClientURL:      DefaultClientURL,
		HTTPServerPort: DefaultHTTPServerPort,
		Environment:    DefaultEnvironment,
		EnableLogging:  true,
		ReadTimeout:    DefaultReadTimeout,
		WriteTimeout:   DefaultWriteTimeout,
		PersistTimeout: DefaultPersistTimeout,
	}
}

// LoadConfig reads the JSON configuration at path on top of the defaults, then applies the environment overrides.
// A missing file is not an error, an empty path skips the file altogether.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		file, err := os.OpenFile(path, os.O_RDONLY, 0755)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			defer file.Close()
			payload, err := io.ReadAll(file)
			if err != nil {
				return nil, err
			}
			if err = json.Unmarshal(payload, config); err != nil {
				return nil, err
			}
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv overrides the configuration with STORE_URI (or MONGODB_URI), CLIENT_URL, PORT and APP_ENV
func (c *Config) applyEnv() error {
	if uri := os.Getenv("STORE_URI"); uri != "" {
		c.StoreURI = uri
	} else if uri := os.Getenv("MONGODB_URI"); uri != "" {
		c.StoreURI = uri
	}
	if url := os.Getenv("CLIENT_URL"); url != "" {
		c.ClientURL = url
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		c.Environment = env
	}
	if port := os.Getenv("PORT"); port != "" {
		p, err := ParsePort(port)
		if err != nil {
			return fmt.Errorf("PORT %w", err)
		}
		c.HTTPServerPort = p
	}
	return nil
}

// ParsePort reads a TCP port, refusing anything outside 0-65535
func ParsePort(port string) (uint16, error) {
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return 0, errors.New("must be a number between 0 and 65535")
	}
	return uint16(p), nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) PersistTimeoutDuration() time.Duration {
	if c.PersistTimeout <= 0 {
		return DefaultPersistTimeout * time.Millisecond
	}
	return time.Duration(c.PersistTimeout) * time.Millisecond
}
