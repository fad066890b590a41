package httpserver

import (
	"encoding/xml"
	"net/http"

	"github.com/gorilla/mux"
)

// wmtsCapabilities is a minimal OGC WMTS 1.0.0 Capabilities document: one
// Layer for the requested style, advertising the GoogleMapsCompatible tile
// matrix set by identifier only (§5.1).
type wmtsCapabilities struct {
	XMLName xml.Name   `xml:"Capabilities"`
	Xmlns   string     `xml:"xmlns,attr"`
	Version string     `xml:"version,attr"`
	Layers  []wmtsLayer `xml:"Contents>Layer"`
	Sets    []wmtsTileMatrixSet `xml:"Contents>TileMatrixSet"`
}

type wmtsLayer struct {
	Title        string `xml:"ows:Title"`
	Identifier   string `xml:"ows:Identifier"`
	Format       string `xml:"Format"`
	TileMatrixSetLink struct {
		TileMatrixSet string `xml:"TileMatrixSet"`
	} `xml:"TileMatrixSetLink"`
	ResourceURL struct {
		Format       string `xml:"format,attr"`
		ResourceType string `xml:"resourceType,attr"`
		Template     string `xml:"template,attr"`
	} `xml:"ResourceURL"`
}

type wmtsTileMatrixSet struct {
	Identifier string `xml:"ows:Identifier"`
}

// handleWMTS implements `GET /styles/<id>/wmts.xml` (§6.1, §5.1).
func (s *Server) handleWMTS(w http.ResponseWriter, r *http.Request) {
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
	layer := wmtsLayer{
		Title:      id,
		Identifier: id,
		Format:     "image/png",
	}
	layer.TileMatrixSetLink.TileMatrixSet = "GoogleMapsCompatible"
	layer.ResourceURL.Format = "image/png"
	layer.ResourceURL.ResourceType = "tile"
	layer.ResourceURL.Template = base + "/styles/" + id + "/{TileMatrix}/{TileCol}/{TileRow}.png"

	doc := wmtsCapabilities{
		Xmlns:   "http://www.opengis.net/wmts/1.0",
		Version: "1.0.0",
		Layers:  []wmtsLayer{layer},
		Sets:    []wmtsTileMatrixSet{{Identifier: "GoogleMapsCompatible"}},
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	enc.Encode(doc)
}
