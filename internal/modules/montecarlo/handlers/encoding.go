package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"
)

// wantsMsgpack reports whether the client asked for a msgpack body.
func wantsMsgpack(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if mediaType == contentTypeMsgpack || mediaType == "application/x-msgpack" {
			return true
		}
	}
	return false
}

// writeResponse encodes data as msgpack when the client accepts it, JSON otherwise.
// msgpack reuses the json struct tags so both encodings carry the same field names.
func (h *Handler) writeResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if !wantsMsgpack(r) {
		h.writeJSON(w, status, data)
		return
	}

	w.Header().Set("Content-Type", contentTypeMsgpack)
	w.WriteHeader(status)

	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode msgpack response")
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
