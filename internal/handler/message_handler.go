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

	"github.com/gorilla/mux"
)

type msgReqFields struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	ChannelID string `json:"channelId"`
}

type MessageHandler struct {
	messageService service.MessageService
	environment    string
}

func NewMessageHandler(messageService service.MessageService, environment string) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		environment:    environment,
	}
}

func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["channelId"]
	messages := h.messageService.ListMessages(r.Context(), channelID)
	writeJSON(w, http.StatusOK, protocol.MessagesFromEntities(messages))
}

func (h *MessageHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var request msgReqFields
	if !decodeBody(w, r, &request) {
		return
	}

	message, err := h.messageService.CreateMessage(r.Context(), request.Sender, request.Content, request.ChannelID)
	if err != nil {
		writeError(w, err, h.environment)
		return
	}
	writeJSON(w, http.StatusCreated, protocol.MessageFromEntity(message))
}
