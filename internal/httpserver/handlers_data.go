package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kartoza/tileserve/internal/filesource"
)

// handleDataTile implements `GET /data/<id>/<z>/<x>/<y>.<fmt>` (§6.1, §4.4):
// reads the stored tile through the shared file-source pool, rejects a
// format mismatch unless it is the one allowed geojson-over-pbf transform,
// and transcodes as needed.
func (s *Server) handleDataTile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	entry, ok := s.catalog.Data[id]
	if !ok {
		respondError(w, http.StatusNotFound, "unknown data source: "+id)
		return
	}

	z, zErr := strconv.Atoi(vars["z"])
	x, xErr := strconv.Atoi(vars["x"])
	y, yErr := strconv.Atoi(vars["y"])
	if zErr != nil || xErr != nil || yErr != nil || z < 0 || z > 22 || x < 0 || y < 0 {
		respondError(w, http.StatusBadRequest, "invalid tile index")
		return
	}
	if !tileInBounds(z, x, y, s.cfg.Options.ServeBounds) {
		respondError(w, http.StatusBadRequest, "Out of bounds")
		return
	}

	requestedFormat := vars["ext"]
	storedFormat, _ := entry.TileJSON["format"].(string)
	if err := filesource.RejectFormatMismatch(requestedFormat, storedFormat); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.src.FetchTile(r.Context(), entry.MBTilesPath, z, x, y)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if resp.Error != nil {
		respondError(w, http.StatusInternalServerError, resp.Error.Message)
		return
	}
	if resp.NoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	data := resp.Data
	gzipped := false
	switch requestedFormat {
	case "geojson":
		data, err = filesource.MVTToGeoJSON(z, x, y, data)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		data, err = filesource.Gzip(data)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		gzipped = true
	case "pbf":
		data, err = filesource.Gzip(data)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		gzipped = true
	}

	encoding := ""
	if gzipped {
		encoding = "gzip"
	}
	writeImageEncoded(w, data, filesource.ContentType(requestedFormat), encoding)
}

// handleDataTileJSON implements `GET /data/<id>.json`.
func (s *Server) handleDataTileJSON(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	entry, ok := s.catalog.Data[id]
	if !ok {
		respondError(w, http.StatusNotFound, "unknown data source: "+id)
		return
	}

	base := publicBaseURL(r)
	tj := make(map[string]any, len(entry.TileJSON))
	for k, v := range entry.TileJSON {
		tj[k] = v
	}
	format, _ := tj["format"].(string)
	if format == "" {
		format = "pbf"
	}
	tj["tiles"] = []string{base + "/data/" + id + "/{z}/{x}/{y}." + format}
	respondJSON(w, http.StatusOK, tj)
}
