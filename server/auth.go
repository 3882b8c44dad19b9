package server

import (
	"net/http"
	"strings"
)

// requireAPIKey rejects requests without an accepted key when auth is
// enabled. The key is read from "Authorization: Bearer <key>" or X-API-Key.
func (s *Server) requireAPIKey(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.authenticate(r); !ok {
			unauthorized(w)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// authenticate returns the accepted key of r. With auth disabled every
// request passes and no key is returned.
func (s *Server) authenticate(r *http.Request) (string, bool) {
	auth := s.Config().Auth
	if !auth.Enabled {
		return "", true
	}
	key := apiKey(r)
	if !auth.Accepts(key) {
		return "", false
	}
	return key, true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="tabula"`)
	writeJSONError(w, http.StatusUnauthorized, "missing or invalid API key")
}

// apiKey returns the key sent with r, preferring a bearer token.
func apiKey(r *http.Request) string {
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(bearer)
	}
	return r.Header.Get("X-API-Key")
}
