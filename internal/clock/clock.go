/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package clock

import "sync"

// LogicalClock is a counter protected by a Mutex.
// The hub stamps every relay with a tick, loggers print the current value as prefix.
type LogicalClock struct {
	counter uint64
	mutex   sync.Mutex
}

// NewLogicalClock creates and returns a new, empty, logical clock
func NewLogicalClock() *LogicalClock {
	return &LogicalClock{}
}

// Tick increments the clock and returns its new value
func (l *LogicalClock) Tick() uint64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.counter++
	return l.counter
}

// Observe moves the clock forward to received, if received is ahead.
// Chat sessions use it to remember the highest relay sequence they received.
func (l *LogicalClock) Observe(received uint64) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if received > l.counter {
		l.counter = received
	}
}

// Snapshot returns the current value of the clock.
func (l *LogicalClock) Snapshot() uint64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.counter
}
