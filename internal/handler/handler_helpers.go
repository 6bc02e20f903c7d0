/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"chatsphere/internal/service"
)

const productionEnvironment = "production"

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"` // Internal detail, never sent in production
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to status codes: bad input and conflicts are 400, everything else is 500
func writeError(w http.ResponseWriter, err error, environment string) {
	var (
		validation  *service.ValidationError
		conflict    *service.ConflictError
		unavailable *service.StoreUnavailableError
	)

	switch {
	case errors.As(err, &validation), errors.As(err, &conflict):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: err.Error()})
		return
	}

	body := errorBody{Message: "Server error"}
	if errors.As(err, &unavailable) {
		body.Message = unavailable.Op
		if unavailable.Err != nil && environment != productionEnvironment {
			body.Error = unavailable.Err.Error()
		}
	} else if environment != productionEnvironment {
		body.Error = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, body)
}

// decodeBody reads a JSON request body into v, reporting a 400 when it is not valid JSON
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid request body"})
		return false
	}
	return true
}
