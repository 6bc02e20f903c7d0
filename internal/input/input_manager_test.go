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
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chatsphere/internal/data"
	"chatsphere/internal/protocol"
	"chatsphere/internal/realtime"
	"chatsphere/internal/service"

	"github.com/go-playground/assert/v2"
)

type MockLogger struct{}

func (m *MockLogger) Logf(format string, v ...any) {}

func TestPauseMiddlewareOn(t *testing.T) {
	i := NewInputManager()

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Called despite being paused!")
	})

	toTest := i.PauseMiddleware(nextHandler)

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()

	i.SetPause(true)

	toTest.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rr.Code)
	}
}

func TestPauseMiddlewareOff(t *testing.T) {
	i := NewInputManager()

	var x int = 10
	y := &x

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*y = 4
	})

	toTest := i.PauseMiddleware(nextHandler)

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()

	toTest.ServeHTTP(rr, req)

	if rr.Code == http.StatusServiceUnavailable {
		t.Errorf("Got 503, expected 200")
	}
	if x != 4 {
		t.Errorf("Pause middleware blocked the request despite not being paused")
	}
}

// newTestManager wires a manager on top of a store at storeURI, with a running hub
func newTestManager(t *testing.T, storeURI string) *InputManager {
	t.Helper()
	logger := &MockLogger{}
	storage := data.NewStorageManager(context.Background(), storeURI, logger)
	t.Cleanup(func() { storage.Close(context.Background()) })

	messageService := service.NewMessageService(storage.GetMessageRepository(), logger)
	hub := realtime.NewHub(messageService, logger, nil, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	i := NewInputManager()
	i.SetLogger(logger)
	i.SetChannelService(service.NewChannelService(storage.GetChannelRepository(), logger))
	i.SetMessageService(messageService)
	i.SetHub(hub)
	return i
}

func tempStore(t *testing.T) string {
	return "sqlite://" + filepath.Join(t.TempDir(), "chat.db")
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("Could not decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestLiveness(t *testing.T) {
	router := newTestManager(t, tempStore(t)).Router(&IptConfig{})

	rr := do(t, router, "GET", "/", "")
	assert.Equal(t, rr.Code, http.StatusOK)
	assert.Equal(t, rr.Body.String(), "Crypto Chat Sphere API is running")
}

func TestChannelLifecycle(t *testing.T) {
	router := newTestManager(t, tempStore(t)).Router(&IptConfig{Environment: "development"})

	rr := do(t, router, "GET", "/api/channels", "")
	assert.Equal(t, rr.Code, http.StatusOK)
	assert.Equal(t, strings.TrimSpace(rr.Body.String()), "[]")

	rr = do(t, router, "POST", "/api/channels", `{"name":"Tech","description":"Technology discussions"}`)
	assert.Equal(t, rr.Code, http.StatusCreated)
	created := decode[protocol.Channel](t, rr)
	if created.ID == "" {
		t.Errorf("Expected an id on the created channel")
	}
	assert.Equal(t, created.Name, "Tech")
	assert.Equal(t, created.Description, "Technology discussions")

	rr = do(t, router, "POST", "/api/channels", `{"name":"General"}`)
	assert.Equal(t, rr.Code, http.StatusCreated)

	rr = do(t, router, "POST", "/api/channels", `{"name":"General","description":"again"}`)
	assert.Equal(t, rr.Code, http.StatusBadRequest)
	body := decode[map[string]any](t, rr)
	assert.Equal(t, body["message"], "Channel with this name already exists")
	assert.Equal(t, body["success"], false)

	rr = do(t, router, "POST", "/api/channels", `{"description":"nameless"}`)
	assert.Equal(t, rr.Code, http.StatusBadRequest)
	assert.Equal(t, decode[map[string]any](t, rr)["message"], "Channel name is required")

	rr = do(t, router, "POST", "/api/channels", `{broken`)
	assert.Equal(t, rr.Code, http.StatusBadRequest)

	channels := decode[[]protocol.Channel](t, do(t, router, "GET", "/api/channels", ""))
	assert.Equal(t, len(channels), 2)
	assert.Equal(t, channels[0].Name, "General")
	assert.Equal(t, channels[1].Name, "Tech")
}

func TestMessagesRoundTrip(t *testing.T) {
	router := newTestManager(t, tempStore(t)).Router(&IptConfig{})

	before := time.Now().UnixMilli()
	for _, body := range []string{
		`{"sender":"0xabc","content":"first","channelId":"c1"}`,
		`{"sender":"0xdef","content":"elsewhere","channelId":"c2"}`,
		`{"sender":"0xabc","content":"second","channelId":"c1"}`,
	} {
		rr := do(t, router, "POST", "/api/messages", body)
		assert.Equal(t, rr.Code, http.StatusCreated)
		created := decode[protocol.Message](t, rr)
		if created.ID == "" || created.Timestamp < before {
			t.Errorf("Expected a server assigned id and timestamp, GOT[%+v]", created)
		}
		time.Sleep(2 * time.Millisecond)
	}

	messages := decode[[]protocol.Message](t, do(t, router, "GET", "/api/messages/c1", ""))
	assert.Equal(t, len(messages), 2)
	assert.Equal(t, messages[0].Content, "first")
	assert.Equal(t, messages[1].Content, "second")
	if messages[0].Timestamp > messages[1].Timestamp {
		t.Errorf("Messages are not sorted by timestamp")
	}

	rr := do(t, router, "GET", "/api/messages/nothing-here", "")
	assert.Equal(t, strings.TrimSpace(rr.Body.String()), "[]")
}

func TestCreateMessageMissingFields(t *testing.T) {
	router := newTestManager(t, tempStore(t)).Router(&IptConfig{})

	rr := do(t, router, "POST", "/api/messages", `{"sender":"0xabc","channelId":"c1"}`)
	assert.Equal(t, rr.Code, http.StatusBadRequest)
	assert.Equal(t, decode[map[string]any](t, rr)["message"], "All fields are required")
}

// unreachableStore points at a file inside a directory that does not exist
func unreachableStore(t *testing.T) string {
	return "sqlite://" + filepath.Join(t.TempDir(), "missing", "dir", "chat.db")
}

func TestStoreDownServesDefaults(t *testing.T) {
	router := newTestManager(t, unreachableStore(t)).Router(&IptConfig{Environment: "development"})

	channels := decode[[]protocol.Channel](t, do(t, router, "GET", "/api/channels", ""))
	assert.Equal(t, len(channels), 3)
	assert.Equal(t, channels[0].ID, "general")

	rr := do(t, router, "GET", "/api/messages/general", "")
	assert.Equal(t, rr.Code, http.StatusOK)
	assert.Equal(t, strings.TrimSpace(rr.Body.String()), "[]")

	rr = do(t, router, "POST", "/api/channels", `{"name":"New"}`)
	assert.Equal(t, rr.Code, http.StatusInternalServerError)
	body := decode[map[string]any](t, rr)
	assert.Equal(t, body["message"], "Error creating channel")
	if _, ok := body["error"]; !ok {
		t.Errorf("Expected the error detail outside production")
	}

	rr = do(t, router, "POST", "/api/messages", `{"sender":"0xabc","content":"hi","channelId":"general"}`)
	assert.Equal(t, rr.Code, http.StatusInternalServerError)
	assert.Equal(t, decode[map[string]any](t, rr)["message"], "Server error")
}

func TestStoreDownHidesDetailInProduction(t *testing.T) {
	router := newTestManager(t, unreachableStore(t)).Router(&IptConfig{Environment: "production"})

	rr := do(t, router, "POST", "/api/channels", `{"name":"New"}`)
	assert.Equal(t, rr.Code, http.StatusInternalServerError)
	if _, ok := decode[map[string]any](t, rr)["error"]; ok {
		t.Errorf("The error detail leaked in production")
	}
}

func TestHealth(t *testing.T) {
	router := newTestManager(t, tempStore(t)).Router(&IptConfig{})

	rr := do(t, router, "GET", "/api/health", "")
	assert.Equal(t, rr.Code, http.StatusOK)
	body := decode[map[string]any](t, rr)
	assert.Equal(t, body["status"], "ok")
	assert.Equal(t, body["peers"], float64(0))
}

func TestCORSHeaders(t *testing.T) {
	router := newTestManager(t, tempStore(t)).Router(&IptConfig{ClientURL: "http://localhost:3000"})

	req := httptest.NewRequest("GET", "/api/channels", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, rr.Header().Get("Access-Control-Allow-Origin"), "http://localhost:3000")
}

func TestRunNotReady(t *testing.T) {
	i := NewInputManager()
	i.SetLogger(&MockLogger{})
	if err := i.Run(context.Background(), &IptConfig{}); err == nil {
		t.Errorf("Expected an error for a manager missing its services")
	}
	// Stop before a successful Run must not block
	i.Stop()
}

func TestRunAndStop(t *testing.T) {
	i := newTestManager(t, tempStore(t))

	errChan := make(chan error, 1)
	go func() {
		errChan <- i.Run(context.Background(), &IptConfig{ServerPort: 0, ReadTimeout: 5, WriteTimeout: 5})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !i.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !i.IsRunning() {
		t.Fatalf("The manager never started")
	}

	i.Stop()
	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Expected a clean shutdown, GOT[%v]", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after Stop")
	}
	assert.Equal(t, i.IsRunning(), false)
}
