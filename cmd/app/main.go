/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chatsphere/internal"
	"chatsphere/internal/node"

	"github.com/docopt/docopt-go"
)

const usage = `Crypto Chat Sphere server.

Usage:
    app [--config=<path>] [--port=<port>] [--store=<uri>] [--seed]
    app -h | --help

Options:
    -h --help              Show this screen.
    -c --config=<path>     JSON configuration file [default: .cfg].
    -p --port=<port>       HTTP port, overrides the file and PORT.
    --store=<uri>          Store URI, mongodb://... or sqlite://path.
    --seed                 Create the default channels on an empty store.`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], "")
	if err != nil {
		panic(err)
	}

	path, _ := opts.String("--config")
	cfg, err := internal.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not load the configuration: %v\n", err)
		os.Exit(1)
	}
	if port, err := opts.String("--port"); err == nil && port != "" {
		p, err := internal.ParsePort(port)
		if err != nil {
			fmt.Fprintf(os.Stderr, "--port %v\n", err)
			os.Exit(1)
		}
		cfg.HTTPServerPort = p
	}
	if store, err := opts.String("--store"); err == nil && store != "" {
		cfg.StoreURI = store
	}
	if seed, _ := opts.Bool("--seed"); seed {
		cfg.SeedDefaultChannels = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := node.NewChatNode(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not create the node: %v\n", err)
		os.Exit(1)
	}
	n.SetCustomContext(ctx, stop)
	if err := n.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Could not start the node: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Server running on port %d\n", cfg.HTTPServerPort)

	select {
	case <-ctx.Done():
	case <-n.Done():
	}
	fmt.Printf("Shutting down...\n")
	if err := n.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing the store: %v\n", err)
	}
}
