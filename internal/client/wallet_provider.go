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
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"chatsphere/internal/nlog"
)

// WalletProvider is the capability a wallet offers to the chat: handing out accounts and reporting changes to them
type WalletProvider interface {
	RequestAccounts(ctx context.Context) ([]string, error) // Asks the wallet for its accounts, the first one is the active account
	SubscribeAccounts(fn func(accounts []string)) func()   // fn is called on every change, an empty list means disconnected. Returns the unsubscribe func
}

// StaticWallet hands out a fixed list of accounts, changed only through SetAccounts
type StaticWallet struct {
	lock        sync.Mutex
	accounts    []string
	subscribers map[int]func([]string)
	nextID      int
}

func NewStaticWallet(accounts ...string) *StaticWallet {
	return &StaticWallet{
		accounts:    accounts,
		subscribers: make(map[int]func([]string)),
	}
}

func (s *StaticWallet) RequestAccounts(context.Context) ([]string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return slices.Clone(s.accounts), nil
}

func (s *StaticWallet) SubscribeAccounts(fn func([]string)) func() {
	s.lock.Lock()
	defer s.lock.Unlock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	return func() {
		s.lock.Lock()
		delete(s.subscribers, id)
		s.lock.Unlock()
	}
}

// SetAccounts replaces the accounts and notifies the subscribers
func (s *StaticWallet) SetAccounts(accounts ...string) {
	s.lock.Lock()
	s.accounts = accounts
	subscribers := make([]func([]string), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.lock.Unlock()

	for _, fn := range subscribers {
		fn(slices.Clone(accounts))
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// RPCWallet talks to a wallet exposing the Ethereum JSON-RPC account methods over HTTP.
// Account changes are detected by polling eth_accounts.
type RPCWallet struct {
	endpoint     string
	httpClient   *http.Client
	pollInterval time.Duration
	logger       nlog.Logger
	requestID    atomic.Uint64
}

func NewRPCWallet(endpoint string, pollInterval time.Duration, logger nlog.Logger) *RPCWallet {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &RPCWallet{
		endpoint:     endpoint,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		pollInterval: pollInterval,
		logger:       logger,
	}
}

func (r *RPCWallet) call(ctx context.Context, method string) ([]string, error) {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: r.requestID.Add(1), Method: method, Params: []any{}})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: malformed answer: %w", method, err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("%s failed with code %d: %s", method, out.Error.Code, out.Error.Message)
	}
	var accounts []string
	if err := json.Unmarshal(out.Result, &accounts); err != nil {
		return nil, fmt.Errorf("%s: unexpected result: %w", method, err)
	}
	return accounts, nil
}

func (r *RPCWallet) RequestAccounts(ctx context.Context) ([]string, error) {
	return r.call(ctx, "eth_requestAccounts")
}

func (r *RPCWallet) SubscribeAccounts(fn func([]string)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(r.pollInterval)
		defer ticker.Stop()

		var last []string
		first := true
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			accounts, err := r.call(ctx, "eth_accounts")
			if err != nil {
				if ctx.Err() == nil {
					r.logger.Logf("Polling the wallet failed {%v}", err)
				}
				continue
			}
			if first {
				last, first = accounts, false
				continue
			}
			if !slices.Equal(last, accounts) {
				last = accounts
				fn(slices.Clone(accounts))
			}
		}
	}()
	return cancel
}
