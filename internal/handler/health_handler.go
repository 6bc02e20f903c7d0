/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"io"
	"net/http"

	"chatsphere/internal/realtime"
)

const livenessText = "Crypto Chat Sphere API is running"

// StatsSource reports the live state of the broadcast hub
type StatsSource interface {
	Stats() realtime.Stats
}

type HealthHandler struct {
	hub StatsSource
}

func NewHealthHandler(hub StatsSource) *HealthHandler {
	return &HealthHandler{hub: hub}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, livenessText)
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.hub.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"peers":  stats.Peers,
		"rooms":  stats.Rooms,
	})
}
