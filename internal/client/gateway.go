/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chatsphere/internal/nlog"
	"chatsphere/internal/protocol"
)

const (
	defaultHttpTimeout        = 10 * time.Second
	defaultHttpConnectTimeout = 5 * time.Second
)

// Gateway is the persistence API as seen by the chat session.
// The list calls always return something usable: the default channels, or no messages, along with the error.
type Gateway interface {
	ListChannels(ctx context.Context) ([]Channel, error)
	CreateChannel(ctx context.Context, name, description string) (Channel, error)
	ListMessages(ctx context.Context, channelID string) ([]protocol.Message, error)
	CreateMessage(ctx context.Context, sender, content, channelID string) (protocol.Message, error)
}

func defaultClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext: dialer.DialContext,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHttpTimeout,
	}
}

// GatewayClient calls the HTTP API of the server at baseURL
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
	logger     nlog.Logger
}

func NewGatewayClient(baseURL string, logger nlog.Logger) *GatewayClient {
	return &GatewayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: defaultClient(),
		logger:     logger,
	}
}

func (g *GatewayClient) Logf(format string, v ...any) {
	g.logger.Logf(format, v...)
}

func (g *GatewayClient) ListChannels(ctx context.Context) ([]Channel, error) {
	var channels []Channel
	if err := g.do(ctx, http.MethodGet, "/api/channels", nil, &channels); err != nil {
		g.Logf("Error fetching channels {%v}", err)
		return DefaultChannels(), err
	}
	if channels == nil {
		channels = []Channel{}
	}
	return channels, nil
}

func (g *GatewayClient) CreateChannel(ctx context.Context, name, description string) (Channel, error) {
	var channel Channel
	body := map[string]string{"name": name, "description": description}
	if err := g.do(ctx, http.MethodPost, "/api/channels", body, &channel); err != nil {
		g.Logf("Error creating channel {%v}", err)
		return Channel{}, err
	}
	return channel, nil
}

func (g *GatewayClient) ListMessages(ctx context.Context, channelID string) ([]protocol.Message, error) {
	var messages []protocol.Message
	if err := g.do(ctx, http.MethodGet, "/api/messages/"+url.PathEscape(channelID), nil, &messages); err != nil {
		g.Logf("Error fetching messages for channel %s {%v}", channelID, err)
		return []protocol.Message{}, err
	}
	if messages == nil {
		messages = []protocol.Message{}
	}
	return messages, nil
}

func (g *GatewayClient) CreateMessage(ctx context.Context, sender, content, channelID string) (protocol.Message, error) {
	var message protocol.Message
	body := map[string]string{"sender": sender, "content": content, "channelId": channelID}
	if err := g.do(ctx, http.MethodPost, "/api/messages", body, &message); err != nil {
		g.Logf("Error creating message {%v}", err)
		return protocol.Message{}, err
	}
	return message, nil
}

func (g *GatewayClient) do(ctx context.Context, method, path string, args any, result any) error {
	var reader io.Reader
	if args != nil {
		requestBodyBytes, err := json.Marshal(args)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(requestBodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	if args != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	r, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}

	if r.StatusCode < 200 || r.StatusCode > 299 {
		var body struct {
			Message string `json:"message"`
		}
		message := strings.TrimSpace(string(responseBodyBytes))
		if json.Unmarshal(responseBodyBytes, &body) == nil && body.Message != "" {
			message = body.Message
		}
		return &APIError{Status: r.StatusCode, Message: message}
	}

	if err := json.Unmarshal(responseBodyBytes, result); err != nil {
		return fmt.Errorf("malformed answer from %s: %w", path, err)
	}
	return nil
}
