/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package client

import "chatsphere/internal/nlog"

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// Notice is a transient message for the user, the kind a UI shows as a toast
type Notice struct {
	Level  NoticeLevel
	Title  string
	Detail string
}

type Notifier interface {
	Notify(notice Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(notice Notice) {
	f(notice)
}

// LogNotifier writes notices to a logger
type LogNotifier struct {
	Logger nlog.Logger
}

func (n LogNotifier) Notify(notice Notice) {
	level := "info"
	if notice.Level == NoticeError {
		level = "error"
	}
	if notice.Detail == "" {
		n.Logger.Logf("[%s] %s", level, notice.Title)
		return
	}
	n.Logger.Logf("[%s] %s: %s", level, notice.Title, notice.Detail)
}
