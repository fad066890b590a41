package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) styleEntry(w http.ResponseWriter, r *http.Request) (id string, ok bool) {
	id = mux.Vars(r)["id"]
	if _, found := s.catalog.Styles[id]; !found {
		respondError(w, http.StatusNotFound, "unknown style: "+id)
		return id, false
	}
	return id, true
}

// handleStyleJSON implements `GET /styles/<id>/style.json` (§6.1): the
// style document with every `local://` placeholder rewritten to this
// request's public base URL.
func (s *Server) handleStyleJSON(w http.ResponseWriter, r *http.Request) {
	id, ok := s.styleEntry(w, r)
	if !ok {
		return
	}
	entry := s.catalog.Styles[id]
	doc := s.catalog.ResolveForClient(entry, publicBaseURL(r))
	respondJSON(w, http.StatusOK, doc)
}

// handleStyleTileJSON implements `GET /styles/<id>.json`: TileJSON for the
// rendered raster set, `tiles` patched with the current public URL.
func (s *Server) handleStyleTileJSON(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	entry, ok := s.catalog.Styles[id]
	if !ok {
		respondError(w, http.StatusNotFound, "unknown style: "+id)
		return
	}
	if !entry.ServeRendered {
		respondError(w, http.StatusNotFound, "style not served as rendered tiles: "+id)
		return
	}

	base := publicBaseURL(r)
	tj := make(map[string]any, len(entry.TileJSON))
	for k, v := range entry.TileJSON {
		tj[k] = v
	}
	tj["tiles"] = []string{base + "/styles/" + id + "/{z}/{x}/{y}.png"}
	respondJSON(w, http.StatusOK, tj)
}

// handleSprite implements `GET /styles/<id>/sprite[@Nx].{json|png}` (§6.1,
// §6.2): the sprite sheet pair is read straight off disk through the
// catalog's cached reader.
func (s *Server) handleSprite(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	entry, ok := s.catalog.Styles[id]
	if !ok {
		respondError(w, http.StatusNotFound, "unknown style: "+id)
		return
	}
	if entry.SpritePath == "" {
		respondError(w, http.StatusNotFound, "style has no sprite: "+id)
		return
	}

	relPath := entry.SpritePath + vars["suffix"] + "." + vars["ext"]
	data, err := s.catalog.SpriteBytes(relPath)
	if err != nil {
		respondError(w, http.StatusNotFound, "sprite not found: "+relPath)
		return
	}

	contentType := "application/json"
	if vars["ext"] == "png" {
		contentType = "image/png"
	}
	writeImage(w, data, contentType)
}

// handleFont implements `GET /fonts/<fontstack>/<range>.pbf` (§6.1, §6.2).
func (s *Server) handleFont(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	data, err := s.catalog.FontRange(vars["fontstack"], vars["rng"])
	if err != nil {
		respondError(w, http.StatusNotFound, "glyph range not found")
		return
	}
	writeImage(w, data, "application/x-protobuf")
}
