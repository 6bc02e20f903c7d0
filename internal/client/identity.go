/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package client

import (
	"context"
	"sync"

	"chatsphere/internal/nlog"
	"chatsphere/internal/wallet"
)

// IdentityProvider resolves the local account from a wallet and follows its changes.
// It must exist before any ChatSession, which only runs while an account is known.
type IdentityProvider struct {
	wallet WalletProvider
	logger nlog.Logger

	lock        sync.RWMutex
	account     string
	connecting  bool
	unsubscribe func()
	listeners   map[int]func(account string)
	nextID      int
}

func NewIdentityProvider(w WalletProvider, logger nlog.Logger) *IdentityProvider {
	return &IdentityProvider{
		wallet:    w,
		logger:    logger,
		listeners: make(map[int]func(string)),
	}
}

func (p *IdentityProvider) Logf(format string, v ...any) {
	p.logger.Logf(format, v...)
}

// normalizeAccount checksums well formed addresses and leaves anything else untouched
func normalizeAccount(account string) string {
	if normalized, err := wallet.Normalize(account); err == nil {
		return normalized
	}
	return account
}

// isMine compares a sender with the local account, ignoring hex case
func isMine(sender, account string) bool {
	return wallet.Same(sender, account)
}

// Connect asks the wallet for its accounts and takes the first one. ErrNoIdentity if the wallet has none.
func (p *IdentityProvider) Connect(ctx context.Context) (string, error) {
	p.lock.Lock()
	p.connecting = true
	p.lock.Unlock()
	defer func() {
		p.lock.Lock()
		p.connecting = false
		p.lock.Unlock()
	}()

	accounts, err := p.wallet.RequestAccounts(ctx)
	if err != nil {
		p.Logf("Error connecting wallet {%v}", err)
		return "", err
	}
	if len(accounts) == 0 || accounts[0] == "" {
		return "", ErrNoIdentity
	}

	account := normalizeAccount(accounts[0])
	p.lock.Lock()
	if p.unsubscribe == nil {
		p.unsubscribe = p.wallet.SubscribeAccounts(p.accountsChanged)
	}
	p.lock.Unlock()

	p.setAccount(account)
	p.Logf("Wallet connected {%s}", wallet.Short(account))
	return account, nil
}

func (p *IdentityProvider) accountsChanged(accounts []string) {
	if len(accounts) == 0 {
		p.Logf("Wallet disconnected")
		p.setAccount("")
		return
	}
	account := normalizeAccount(accounts[0])
	p.Logf("Account changed {%s}", wallet.Short(account))
	p.setAccount(account)
}

func (p *IdentityProvider) setAccount(account string) {
	p.lock.Lock()
	if p.account == account {
		p.lock.Unlock()
		return
	}
	p.account = account
	listeners := make([]func(string), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.lock.Unlock()

	for _, fn := range listeners {
		fn(account)
	}
}

// Account returns the active account, empty when none is connected
func (p *IdentityProvider) Account() string {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.account
}

func (p *IdentityProvider) IsConnected() bool {
	return p.Account() != ""
}

func (p *IdentityProvider) IsConnecting() bool {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.connecting
}

// OnChange registers fn to be called with the new account on every change. An empty account means it was lost.
func (p *IdentityProvider) OnChange(fn func(account string)) func() {
	p.lock.Lock()
	defer p.lock.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.lock.Lock()
		delete(p.listeners, id)
		p.lock.Unlock()
	}
}

// Close stops following the wallet
func (p *IdentityProvider) Close() {
	p.lock.Lock()
	unsubscribe := p.unsubscribe
	p.unsubscribe = nil
	p.lock.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}
