package httpserver

import (
	"embed"
	"html/template"
	"log"
	"net/http"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var landingTemplate = template.Must(template.ParseFS(templatesFS, "templates/landing.html.tmpl"))

type landingStyleRow struct {
	ID            string
	ServeRendered bool
	ServeData     bool
}

type landingDataRow struct {
	ID string
}

type landingPageData struct {
	Styles []landingStyleRow
	Data   []landingDataRow
}

// handleLanding implements `GET /` (§6.1): an HTML page listing configured
// styles and data, rendered through an embedded html/template the way the
// teacher embeds its static assets.
func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	data := landingPageData{}
	for _, id := range s.catalog.StyleOrder {
		e := s.catalog.Styles[id]
		data.Styles = append(data.Styles, landingStyleRow{ID: e.ID, ServeRendered: e.ServeRendered, ServeData: e.ServeData})
	}
	for _, id := range s.catalog.DataOrder {
		data.Data = append(data.Data, landingDataRow{ID: id})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := landingTemplate.Execute(w, data); err != nil {
		log.Printf("httpserver: landing page render: %v", err)
	}
}
