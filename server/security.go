package server

import "net/http"

// securityHeaders adds response headers that stop browsers from sniffing or
// framing API responses.
type securityHeaders struct {
	handler http.Handler
	devMode bool
}

func newSecurityHeaders(handler http.Handler, devMode bool) http.Handler {
	return &securityHeaders{handler: handler, devMode: devMode}
}

func (s *securityHeaders) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "no-referrer")

	// Query results change with every write, so never cache them. In dev
	// mode the schema pages are not cached either.
	if s.devMode || r.Method == http.MethodPost {
		h.Set("Cache-Control", "no-store")
	}

	s.handler.ServeHTTP(w, r)
}
