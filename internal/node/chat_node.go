/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package node

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"chatsphere/internal"
	"chatsphere/internal/clock"
	"chatsphere/internal/data"
	"chatsphere/internal/input"
	"chatsphere/internal/nlog"
	"chatsphere/internal/realtime"
	"chatsphere/internal/service"
)

const shutdownTimeout = 10 * time.Second

// ChatNode puts together every component of a chat server: store, services, hub and HTTP input
type ChatNode struct {
	ready  atomic.Bool
	config *internal.Config

	ctx    context.Context
	cancel context.CancelFunc

	logicalClock *clock.LogicalClock
	logger       *nlog.ServerLogger
	mainLogger   nlog.Logger

	storageMan     *data.StorageManager // Storage manager
	channelService service.ChannelService
	messageService service.MessageService
	hub            *realtime.Hub       // Realtime broadcast hub
	inputMan       *input.InputManager // Input manager

	done chan struct{}
}

// NewChatNode creates a node from cfg, opening the store right away.
// A store that can not be reached does not fail the node, it runs degraded instead.
func NewChatNode(ctx context.Context, cfg *internal.Config) (*ChatNode, error) {
	clk := clock.NewLogicalClock()

	logger, err := nlog.NewServerLogger("chat", cfg.LogFolder, cfg.EnableLogging, clk)
	if err != nil {
		return nil, err
	}

	loggers := make(map[string]nlog.Logger)
	for _, subsystem := range []string{"main", "store", "service", "hub", "http"} {
		l, err := logger.RegisterSubsystem(subsystem)
		if err != nil {
			return nil, err
		}
		loggers[subsystem] = l
	}

	storage := data.NewStorageManager(ctx, cfg.StoreURI, loggers["store"])

	channelService := service.NewChannelService(storage.GetChannelRepository(), loggers["service"])
	messageService := service.NewMessageService(storage.GetMessageRepository(), loggers["service"])
	hub := realtime.NewHub(messageService, loggers["hub"], clk, cfg.PersistTimeoutDuration())

	inputMan := input.NewInputManager()
	inputMan.SetLogger(loggers["http"])
	inputMan.SetChannelService(channelService)
	inputMan.SetMessageService(messageService)
	inputMan.SetHub(hub)

	return &ChatNode{
		config:         cfg,
		logicalClock:   clk,
		logger:         logger,
		mainLogger:     loggers["main"],
		storageMan:     storage,
		channelService: channelService,
		messageService: messageService,
		hub:            hub,
		inputMan:       inputMan,
		done:           make(chan struct{}),
	}, nil
}

// DefaultContext sets a default context.
// If successful, error is nil
func (n *ChatNode) DefaultContext() error {
	if n.ready.Load() {
		return fmt.Errorf("A context was already set...")
	}
	n.ready.Store(true)
	n.ctx, n.cancel = context.WithCancel(context.Background())
	return nil
}

// SetCustomContext injects a custom context with a cancel function.
// If successful, error is nil
func (n *ChatNode) SetCustomContext(ctx context.Context, cancel context.CancelFunc) error {
	if n.ready.Load() {
		return fmt.Errorf("A context was already set...")
	}
	n.ready.Store(true)
	n.ctx, n.cancel = ctx, cancel
	return nil
}

func (n *ChatNode) EnableLogging() {
	n.logger.EnableLogging()
}

func (n *ChatNode) DisableLogging() {
	n.logger.DisableLogging()
}

func (n *ChatNode) logf(format string, a ...any) {
	n.mainLogger.Logf(format, a...)
}

func (n *ChatNode) InputManager() *input.InputManager {
	return n.inputMan
}

func (n *ChatNode) IptConfig() *input.IptConfig {
	return &input.IptConfig{
		ServerPort:   n.config.HTTPServerPort,
		ReadTimeout:  n.config.ReadTimeout,
		WriteTimeout: n.config.WriteTimeout,
		ClientURL:    n.config.ClientURL,
		Environment:  n.config.Environment,
	}
}

// Start runs the logger, seeds the default channels when asked to, then starts the hub and the HTTP server.
// If the node has no context, an error is returned.
func (n *ChatNode) Start() error {
	if !n.ready.Load() {
		return fmt.Errorf("Node is not ready. Either the default or a custom context must be set.")
	}
	if !n.inputMan.IsReady() {
		return fmt.Errorf("Input manager is not ready... Missing components")
	}

	go n.logger.Run(n.ctx)
	n.logf("Node booting up, store backend {%s}", n.storageMan.Backend())

	if n.config.SeedDefaultChannels {
		if err := n.channelService.SeedDefaults(n.ctx); err != nil {
			n.logf("Could not seed the default channels {%v}", err)
		}
	}

	go n.hub.Run(n.ctx)
	go func() {
		defer close(n.done)
		if err := n.inputMan.Run(n.ctx, n.IptConfig()); err != nil {
			n.logf("Input manager stopped {%v}", err)
			n.cancel()
		}
	}()
	return nil
}

// Done is closed once the HTTP server has returned
func (n *ChatNode) Done() <-chan struct{} {
	return n.done
}

// Stop shuts the HTTP server down, stops the hub and the logger, then closes the store
func (n *ChatNode) Stop() error {
	n.logf("Node shutting down...")
	n.inputMan.Stop()
	if n.cancel != nil {
		n.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return n.storageMan.Close(ctx)
}
