/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package input

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"chatsphere/internal/handler"
	"chatsphere/internal/middleware"
	"chatsphere/internal/nlog"
	"chatsphere/internal/realtime"
	"chatsphere/internal/service"

	"github.com/gorilla/mux"
)

type IptConfig struct {
	ServerPort   uint16
	ReadTimeout  int64 // Seconds
	WriteTimeout int64 // Seconds
	ClientURL    string
	Environment  string
}

type InputManager struct { // Manages the HTTP API and the websocket endpoint
	running atomic.Bool
	paused  atomic.Bool

	logger nlog.Logger
	server *http.Server

	stopOnce            sync.Once
	stopFromOutsideChan chan struct{}
	doneFromInsideChan  chan struct{}

	channelService service.ChannelService
	messageService service.MessageService
	hub            *realtime.Hub
}

func NewInputManager() *InputManager {
	return &InputManager{
		running:             atomic.Bool{},
		paused:              atomic.Bool{},
		stopFromOutsideChan: make(chan struct{}),
		doneFromInsideChan:  make(chan struct{}),
	}
}

func (i *InputManager) IsReady() bool {
	return i.logger != nil && i.channelService != nil && i.messageService != nil && i.hub != nil
}

func (i *InputManager) IsRunning() bool {
	return i.running.Load()
}

func (i *InputManager) SetLogger(l nlog.Logger) {
	i.logger = l
}

func (i *InputManager) SetChannelService(cs service.ChannelService) {
	i.channelService = cs
}

func (i *InputManager) SetMessageService(ms service.MessageService) {
	i.messageService = ms
}

func (i *InputManager) SetHub(hub *realtime.Hub) {
	i.hub = hub
}

func (i *InputManager) Logf(format string, a ...any) {
	i.logger.Logf(format, a...)
}

func (i *InputManager) SetPause(paused bool) {
	i.paused.Store(paused)
}

func (i *InputManager) IsPaused() bool {
	return i.paused.Load()
}

// PauseMiddleware rejects requests with 503 while the manager is paused
func (i *InputManager) PauseMiddleware(next http.Handler) http.Handler {
	return middleware.Pause(i.IsPaused, next)
}

// Router builds every route served by the manager
func (i *InputManager) Router(cfg *IptConfig) http.Handler {
	channelHandler := handler.NewChannelHandler(i.channelService, cfg.Environment)
	messageHandler := handler.NewMessageHandler(i.messageService, cfg.Environment)
	healthHandler := handler.NewHealthHandler(i.hub)

	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/channels", channelHandler.GetChannels).Methods("GET")
	api.HandleFunc("/channels", channelHandler.CreateChannel).Methods("POST")
	api.HandleFunc("/messages/{channelId}", messageHandler.GetMessages).Methods("GET")
	api.HandleFunc("/messages", messageHandler.CreateMessage).Methods("POST")
	api.HandleFunc("/health", healthHandler.Health).Methods("GET")

	r.Handle("/ws", realtime.NewWSHandler(i.hub, cfg.ClientURL, i.logger))
	r.HandleFunc("/", healthHandler.Liveness).Methods("GET")

	return i.PauseMiddleware(middleware.CORS(cfg.ClientURL)(r))
}

func (i *InputManager) Run(ctx context.Context, cfg *IptConfig) error {
	i.Logf("Input service started...")

	if !i.IsReady() {
		return fmt.Errorf("The Input manager is not ready... Missing components")
	}

	i.server = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:        i.Router(cfg),
		ReadTimeout:    time.Duration(cfg.ReadTimeout * int64(time.Second)),
		WriteTimeout:   time.Duration(cfg.WriteTimeout * int64(time.Second)),
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		select {
		case <-ctx.Done():
			i.Logf("Received stop signal. Shutting down...")
		case <-i.stopFromOutsideChan:
			i.Logf("Server was asked to stop. Shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := i.server.Shutdown(shutdownCtx); err != nil {
			i.Logf("Error during shutdown... %v", err)
		}
		close(i.doneFromInsideChan)
	}()

	i.running.Store(true)
	i.Logf("Http server starting on port {%d}", cfg.ServerPort)

	if err := i.server.ListenAndServe(); err != http.ErrServerClosed {
		i.Logf("FATAL: HTTP Server error{%v}", err)
		i.running.Store(false)
		return err
	}
	return nil
}

// Stop shuts the server down and waits for it. It does nothing if Run was never called.
func (i *InputManager) Stop() {
	if !i.running.Load() {
		return
	}
	i.stopOnce.Do(func() {
		close(i.stopFromOutsideChan)
	})
	<-i.doneFromInsideChan
	i.running.Store(false)
}
