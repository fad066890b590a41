package httpserver

import "net/http"

// publicBaseURL derives the externally-visible base URL for this request,
// used to patch `local://` placeholders and TileJSON `tiles` arrays to a
// concrete, client-dereferenceable URL (§9: "local:// rewritten to public
// URL" at response time).
func publicBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	return scheme + "://" + host
}
