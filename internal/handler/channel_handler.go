/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"net/http"

	"chatsphere/internal/protocol"
	"chatsphere/internal/service"
)

type channelReqFields struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ChannelHandler struct {
	channelService service.ChannelService
	environment    string
}

func NewChannelHandler(channelService service.ChannelService, environment string) *ChannelHandler {
	return &ChannelHandler{
		channelService: channelService,
		environment:    environment,
	}
}

func (h *ChannelHandler) GetChannels(w http.ResponseWriter, r *http.Request) {
	channels := h.channelService.ListChannels(r.Context())
	writeJSON(w, http.StatusOK, protocol.ChannelsFromEntities(channels))
}

func (h *ChannelHandler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	var request channelReqFields
	if !decodeBody(w, r, &request) {
		return
	}

	channel, err := h.channelService.CreateChannel(r.Context(), request.Name, request.Description)
	if err != nil {
		writeError(w, err, h.environment)
		return
	}
	writeJSON(w, http.StatusCreated, protocol.ChannelFromEntity(channel))
}
