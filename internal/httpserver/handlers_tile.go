package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kartoza/tileserve/internal/config"
	"github.com/kartoza/tileserve/internal/render"
)

// handleTile implements `GET /styles/<id>/<z>/<x>/<y>[@Nx].<fmt>` (§6.1,
// §4.6): validates the tile index against serveBounds, renders (or reuses
// a pooled worker's render), clips/resizes, and encodes to the requested
// format.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	entry, ok := s.catalog.Styles[id]
	if !ok {
		respondError(w, http.StatusNotFound, "unknown style: "+id)
		return
	}
	if !entry.ServeRendered {
		respondError(w, http.StatusNotFound, "style not served as rendered tiles: "+id)
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

	scale, err := parseScaleSuffix(vars["suffix"], s.cfg.Options.MaxScaleFactor)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	format := vars["ext"]

	pool, err := s.getRendererPool(r.Context(), id, scale)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	margin := s.cfg.Options.TileMargin
	img, err := render.RenderTile(r.Context(), pool, render.TileParams{
		Z: z, X: x, Y: y,
		TileSize:   s.cfg.Options.TileSize,
		Scale:      float64(scale),
		MarginPx:   margin,
		InternalSz: config.InternalTileSize,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "render: "+err.Error())
		return
	}

	quality := qualityFor(format, s.cfg.Options.FormatQuality)
	data, err := render.EncodeImage(img, format, quality)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "encode: "+err.Error())
		return
	}
	writeImage(w, data, contentTypeForImageFormat(format))
}

// parseScaleSuffix parses an optional "@Nx" suffix, defaulting to 1 and
// rejecting anything outside [1, min(maxScaleFactor, 9)] (§6.1).
func parseScaleSuffix(suffix string, maxScaleFactor int) (int, error) {
	if suffix == "" {
		return 1, nil
	}
	trimmed := suffix
	if len(trimmed) > 2 && trimmed[0] == '@' {
		trimmed = trimmed[1 : len(trimmed)-1] // strip '@' and trailing 'x'
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, errInvalidScale
	}
	limit := maxScaleFactor
	if limit <= 0 || limit > 9 {
		limit = 9
	}
	if n < 1 || n > limit {
		return 0, errInvalidScale
	}
	return n, nil
}

var errInvalidScale = errStr("invalid scale factor")

type errStr string

func (e errStr) Error() string { return string(e) }

func qualityFor(format string, fq config.FormatQuality) int {
	switch format {
	case "jpg", "jpeg":
		if fq.JPEG > 0 {
			return fq.JPEG
		}
		return 80
	case "webp":
		if fq.WebP > 0 {
			return fq.WebP
		}
		return 80
	default:
		if fq.PNG > 0 {
			return fq.PNG
		}
		return 100
	}
}

func contentTypeForImageFormat(format string) string {
	switch format {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
