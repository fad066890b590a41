package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kartoza/tileserve/internal/overlay"
	"github.com/kartoza/tileserve/internal/render"
)

// handleStatic implements `GET /styles/<id>/static/...` (§6.1, §4.7): parses
// the path-family viewport spec, the overlay query grammar, resolves a
// viewport, renders the basemap, composites paths/markers, and encodes the
// result.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
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
	if !s.cfg.Options.ServeStaticMaps {
		respondError(w, http.StatusNotFound, "static maps not enabled")
		return
	}

	spec, err := parseStaticPath(vars["spec"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if spec.Width > s.cfg.Options.MaxSize || spec.Height > s.cfg.Options.MaxSize {
		respondError(w, http.StatusBadRequest, "requested size exceeds maxSize")
		return
	}
	if spec.Scale < 1 || spec.Scale > s.cfg.Options.MaxScaleFactor {
		respondError(w, http.StatusBadRequest, "invalid scale factor")
		return
	}

	defaults, paths, markers, err := parseOverlayQuery(r, s.cfg.Options.AllowRemoteMarkerIcons)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	spec.reprojectIfRaw(paths, markers)

	req := render.StaticRequest{
		Mode:    spec.Mode,
		Lon:     spec.Lon, Lat: spec.Lat, Zoom: spec.Zoom, Bearing: spec.Bearing, Pitch: spec.Pitch,
		MinX: spec.MinX, MinY: spec.MinY, MaxX: spec.MaxX, MaxY: spec.MaxY,
		Paths: paths, Markers: markers,
		Width: spec.Width, Height: spec.Height, Scale: float64(spec.Scale),
		Defaults: defaults,
	}

	viewport, err := render.SelectViewport(req, s.cfg.Options.ServeBounds)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	pool, err := s.getRendererPool(r.Context(), id, spec.Scale)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	img, err := render.RenderStaticAt(r.Context(), pool, req, viewport, s.icons)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "render: "+err.Error())
		return
	}

	quality := qualityFor(spec.Format, s.cfg.Options.FormatQuality)
	data, err := render.EncodeImage(img, spec.Format, quality)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "encode: "+err.Error())
		return
	}
	writeImage(w, data, contentTypeForImageFormat(spec.Format))
}

// parseOverlayQuery reads the top-level defaults plus the repeated
// `path=`/`marker=` query parameters (§4.7).
func parseOverlayQuery(r *http.Request, allowRemoteIcons bool) (overlay.Defaults, []overlay.Path, []overlay.Marker, error) {
	q := r.URL.Query()
	defaults := overlay.DefaultDefaults()

	if v := q.Get("fill"); v != "" {
		defaults.Fill = v
	}
	if v := q.Get("stroke"); v != "" {
		defaults.Stroke = v
	}
	if v := q.Get("width"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return defaults, nil, nil, errStr("invalid width")
		}
		defaults.Width = f
	}
	if v := q.Get("linecap"); v != "" {
		defaults.LineCap = v
	}
	if v := q.Get("linejoin"); v != "" {
		defaults.LineJoin = v
	}
	if v := q.Get("border"); v != "" {
		defaults.Border = v
	}
	if v := q.Get("borderwidth"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return defaults, nil, nil, errStr("invalid borderwidth")
		}
		defaults.BorderWidth = f
	}
	if v := q.Get("padding"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return defaults, nil, nil, errStr("invalid padding")
		}
		defaults.Padding = f
	}
	if v := q.Get("maxzoom"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return defaults, nil, nil, errStr("invalid maxzoom")
		}
		defaults.MaxZoom = f
	}

	var paths []overlay.Path
	for _, raw := range q["path"] {
		p, err := overlay.ParsePath(raw)
		if err != nil {
			return defaults, nil, nil, err
		}
		paths = append(paths, p)
	}

	var markers []overlay.Marker
	for _, raw := range q["marker"] {
		m, ok, err := overlay.ParseMarker(raw, allowRemoteIcons)
		if err != nil {
			return defaults, nil, nil, err
		}
		if ok {
			markers = append(markers, m)
		}
	}

	return defaults, paths, markers, nil
}
