package httpserver

import (
	"encoding/json"
	"net/http"
)

// respondError writes a short plain-text diagnostic and status code, per §7
// ("the handler emits a status code and a short plain-text diagnostic"),
// mirroring the teacher's respondJSON/respondError wrapper pair but in the
// plain-text shape this endpoint family's error taxonomy calls for.
func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(message))
}

// respondJSON writes v as a JSON document with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeImage writes raw image bytes with the given content type and a
// public, long-lived cache hint (§4.7 "Cache hint: this endpoint is declared
// Cache-Output").
func writeImage(w http.ResponseWriter, data []byte, contentType string) {
	writeImageEncoded(w, data, contentType, "")
}

// writeImageEncoded is writeImage plus an explicit Content-Encoding, used by
// the data-tile endpoint when the body carries gzip'd bytes directly through
// (§7 "Gzip state machine for data tiles").
func writeImageEncoded(w http.ResponseWriter, data []byte, contentType, encoding string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if encoding != "" {
		w.Header().Set("Content-Encoding", encoding)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
