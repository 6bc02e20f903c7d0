/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package nlog

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"chatsphere/internal/clock"
)

// Logger is something that can print, using Logf, a format string
type Logger interface {
	Logf(format string, v ...any)
}

// subsystemLogger is a logger that handles only one output out of all that are opened by its logger
type subsystemLogger struct {
	name   string
	logger *ServerLogger
}

func (s *subsystemLogger) Logf(format string, v ...any) {
	s.logger.Logf(s.name, format, v...)
}

type logEntry struct {
	subsystem string
	formatted string
}

// ServerLogger writes the logs of several subsystems from a single struct.
// With a folder, every subsystem gets its own <folder>/<subsystem>.log file, without one everything goes to stderr.
// It's safe to share amongst goroutines.
type ServerLogger struct {
	name   string
	folder string

	fileMapper map[string]*os.File
	logMapper  map[string]*log.Logger

	lock           sync.RWMutex
	clock          *clock.LogicalClock
	currentLogFunc func(*log.Logger, string, ...any)

	inbox   chan logEntry
	stopped chan struct{} // Closed when Run stops, later lines are dropped
}

// NewServerLogger creates a ServerLogger named name, writing under folder (empty means stderr).
// The clock value is printed in front of every line.
func NewServerLogger(name, folder string, logging bool, clk *clock.LogicalClock) (*ServerLogger, error) {
	if folder != "" {
		if err := os.MkdirAll(folder, 0755); err != nil {
			return nil, err
		}
	}
	if clk == nil {
		clk = clock.NewLogicalClock()
	}
	s := &ServerLogger{
		name:           name,
		folder:         folder,
		fileMapper:     make(map[string]*os.File),
		logMapper:      make(map[string]*log.Logger),
		currentLogFunc: nilLogf,
		inbox:          make(chan logEntry, 600),
		stopped:        make(chan struct{}),
		clock:          clk,
	}
	if logging {
		s.currentLogFunc = defaultLogf
	}
	return s, nil
}

// RegisterSubsystem registers a new subsystem, returning a Logger bound to it.
func (s *ServerLogger) RegisterSubsystem(subsystem string) (Logger, error) {
	var out io.Writer = os.Stderr
	if s.folder != "" {
		file, err := os.OpenFile(filepath.Join(s.folder, subsystem+".log"), os.O_WRONLY|os.O_APPEND|os.O_CREATE|os.O_TRUNC, 0666)
		if err != nil {
			return nil, err
		}
		s.lock.Lock()
		s.fileMapper[subsystem] = file
		s.lock.Unlock()
		out = file
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.logMapper[subsystem] = log.New(out, fmt.Sprintf("[[%s] %s]: ", s.name, subsystem), log.Ldate|log.Ltime)
	return &subsystemLogger{subsystem, s}, nil
}

// GetSubsystemLogger retrieves a subsystem logger, if previously registered.
func (s *ServerLogger) GetSubsystemLogger(subsystem string) (Logger, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if _, ok := s.logMapper[subsystem]; !ok {
		return nil, fmt.Errorf("The subsystem %s was not registered", subsystem)
	}
	return &subsystemLogger{subsystem, s}, nil
}

func (s *ServerLogger) EnableLogging() {
	s.lock.Lock()
	s.currentLogFunc = defaultLogf
	s.lock.Unlock()
}

func (s *ServerLogger) DisableLogging() {
	s.lock.Lock()
	s.currentLogFunc = nilLogf
	s.lock.Unlock()
}

// Logf formats a line and queues it for the subsystem's output. Once Run has stopped the line is dropped.
func (s *ServerLogger) Logf(subsystem, format string, v ...any) {
	select {
	case <-s.stopped:
		return
	default:
	}
	entry := logEntry{subsystem, fmt.Sprintf("{%d}. %s", s.clock.Snapshot(), fmt.Sprintf(format, v...))}
	select {
	case s.inbox <- entry:
	case <-s.stopped:
	}
}

// Run writes queued lines until ctx is done, then flushes what is left and closes every file
func (s *ServerLogger) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(s.stopped)
			s.drain()
			s.CloseAll()
			return
		case entry := <-s.inbox:
			s.actualWrite(entry.subsystem, entry.formatted)
		}
	}
}

func (s *ServerLogger) drain() {
	for {
		select {
		case entry := <-s.inbox:
			s.actualWrite(entry.subsystem, entry.formatted)
		default:
			return
		}
	}
}

func (s *ServerLogger) actualWrite(subsystem, formatted string) error {
	s.lock.RLock()
	logFunc := s.currentLogFunc
	logger, ok := s.logMapper[subsystem]
	s.lock.RUnlock()

	if !ok {
		return fmt.Errorf("Logger is not setup for subsystem %s", subsystem)
	}
	logFunc(logger, "%s", formatted)
	return nil
}

// CloseAll closes all the open files that the loggers are using
func (s *ServerLogger) CloseAll() {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, file := range s.fileMapper {
		file.Sync()
		file.Close()
	}
	clear(s.fileMapper)
	clear(s.logMapper)
}

func defaultLogf(l *log.Logger, format string, a ...any) {
	l.Printf(format, a...)
}

func nilLogf(*log.Logger, string, ...any) {}
