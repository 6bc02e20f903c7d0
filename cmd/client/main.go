/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"chatsphere/internal/client"
	"chatsphere/internal/nlog"
	"chatsphere/internal/wallet"

	"github.com/docopt/docopt-go"
)

const DefaultServerUrl = "http://localhost:5000"

func main() {
	usage := fmt.Sprintf(
		`Crypto Chat Sphere terminal client.

The default server url is %s

Usage:
    client --account=<address> [--server=<url>] [--reconcile] [--verbose]
    client --wallet_rpc=<url> [--server=<url>] [--reconcile] [--verbose]
    client -h | --help

Options:
    -h --help                Show this screen.
    --server=<url>           Server base url.
    --account=<address>      Chat as this account.
    --wallet_rpc=<url>       Ask a JSON-RPC wallet for the account.
    --reconcile              Replace local copies of sent messages with their relay.
    -v --verbose             Log to stderr.

Commands, once connected:
    /channels                List the channels.
    /join <name>             Switch channel.
    /create <name> [desc]    Create a channel and switch to it.
    /quit                    Leave.
    anything else            Send it to the active channel.`,
		DefaultServerUrl,
	)

	opts, err := docopt.ParseArgs(usage, os.Args[1:], "")
	if err != nil {
		panic(err)
	}

	serverUrl := DefaultServerUrl
	if serverUrlAny := opts["--server"]; serverUrlAny != nil {
		serverUrl = serverUrlAny.(string)
	}
	verbose, _ := opts.Bool("--verbose")
	reconcile, _ := opts.Bool("--reconcile")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverLogger, err := nlog.NewServerLogger("client", "", verbose, nil)
	if err != nil {
		panic(err)
	}
	logger, _ := serverLogger.RegisterSubsystem("session")
	go serverLogger.Run(ctx)

	var provider client.WalletProvider
	if account, err := opts.String("--account"); err == nil && account != "" {
		provider = client.NewStaticWallet(account)
	} else {
		rpcUrl, _ := opts.String("--wallet_rpc")
		provider = client.NewRPCWallet(rpcUrl, 2*time.Second, logger)
	}

	identity := client.NewIdentityProvider(provider, logger)
	account, err := identity.Connect(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connect your wallet to start chatting: %v\n", err)
		os.Exit(1)
	}
	defer identity.Close()

	wsUrl, err := client.LiveURL(serverUrl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad server url: %v\n", err)
		os.Exit(1)
	}

	printer := newPrinter()
	session := client.NewChatSession(
		identity,
		client.NewLiveConnection(wsUrl, client.LiveOptions{}, logger),
		client.NewGatewayClient(serverUrl, logger),
		logger,
		client.SessionOptions{
			ReconcileEcho: reconcile,
			Notifier:      client.NotifierFunc(printer.notice),
		},
	)
	session.OnChange(printer.update)

	fmt.Printf("Connected as %s\n", wallet.Short(account))
	if err := session.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Could not start: %v\n", err)
		os.Exit(1)
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "/quit" {
				break loop
			}
			command(ctx, session, line)
		}
	}

	session.Close()
}

func command(ctx context.Context, session *client.ChatSession, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "/channels":
		snapshot := session.Snapshot()
		for _, c := range snapshot.Channels {
			marker := " "
			if snapshot.ActiveChannel != nil && snapshot.ActiveChannel.ID == c.ID {
				marker = "*"
			}
			fmt.Printf("%s #%s  %s\n", marker, c.Name, c.Description)
		}
	case "/join":
		if len(fields) < 2 {
			fmt.Println("Usage: /join <name>")
			return
		}
		for _, c := range session.Snapshot().Channels {
			if strings.EqualFold(c.Name, fields[1]) || c.ID == fields[1] {
				session.SelectChannel(ctx, c.ID)
				return
			}
		}
		fmt.Printf("No channel named %s\n", fields[1])
	case "/create":
		if len(fields) < 2 {
			fmt.Println("Usage: /create <name> [description]")
			return
		}
		session.CreateChannel(ctx, fields[1], strings.Join(fields[2:], " "))
	default:
		if _, err := session.SendMessage(ctx, line); err != nil {
			fmt.Printf("Not sent: %v\n", err)
		}
	}
}

// printer writes every message of the active channel once
type printer struct {
	lock    sync.Mutex
	channel string
	seen    map[string]bool
}

func newPrinter() *printer {
	return &printer{seen: make(map[string]bool)}
}

func (p *printer) notice(n client.Notice) {
	if n.Detail != "" {
		fmt.Printf("! %s: %s\n", n.Title, n.Detail)
		return
	}
	fmt.Printf("! %s\n", n.Title)
}

func (p *printer) update(s client.Snapshot) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if s.ActiveChannel == nil {
		return
	}
	if s.ActiveChannel.ID != p.channel {
		p.channel = s.ActiveChannel.ID
		clear(p.seen)
		fmt.Printf("-- #%s (%s)\n", s.ActiveChannel.Name, s.Connection)
	}
	for _, m := range s.Messages {
		key := m.ID
		if p.seen[key] {
			continue
		}
		p.seen[key] = true
		who := wallet.Short(m.Sender)
		if m.IsMine {
			who = "you"
		}
		fmt.Printf("[%s] %s: %s\n", m.Timestamp.Local().Format("15:04"), who, m.Content)
	}
}
