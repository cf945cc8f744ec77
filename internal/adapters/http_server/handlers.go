package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"travi_content/internal/app"
	"travi_content/internal/domain"
	"travi_content/internal/i18n"
)

// SiteHandlers serve the public read API. Locale routing happens in middleware.
type SiteHandlers struct{ Q *app.SiteQueryService }

type siteResponse struct {
	Locale string `json:"locale"`
	Dir    string `json:"dir"`
	Data   any    `json:"data"`
}

func (s *Server) MountSite(h *SiteHandlers) {
	s.mux.Get("/{locale}", h.listDestinations)
	s.mux.Get("/{locale}/destinations", h.listDestinations)
	s.mux.Get("/{locale}/destinations/{id}", h.getDestination)
	s.mux.Get("/{locale}/attractions/{slug}", h.getAttraction)
}

// locale returns the locale set by the routing middleware, falling back to the path
// segment when the middleware is not installed. Unknown prefixes are not pages.
func locale(w http.ResponseWriter, r *http.Request) (string, bool) {
	if loc, ok := i18n.FromContext(r.Context()); ok {
		return loc, true
	}
	loc := chi.URLParam(r, "locale")
	if !i18n.Supported(loc) {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown locale")
		return "", false
	}
	return loc, true
}

func (h *SiteHandlers) listDestinations(w http.ResponseWriter, r *http.Request) {
	loc, ok := locale(w, r)
	if !ok {
		return
	}
	out, err := h.Q.Destinations(r.Context())
	if err != nil {
		siteFailure(w, r, err, "destinations not found")
		return
	}
	writePage(w, r, loc, out)
}

func (h *SiteHandlers) getDestination(w http.ResponseWriter, r *http.Request) {
	loc, ok := locale(w, r)
	if !ok {
		return
	}
	page, err := h.Q.Destination(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		siteFailure(w, r, err, "destination not found")
		return
	}
	writePage(w, r, loc, page)
}

func (h *SiteHandlers) getAttraction(w http.ResponseWriter, r *http.Request) {
	loc, ok := locale(w, r)
	if !ok {
		return
	}
	page, err := h.Q.Attraction(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		siteFailure(w, r, err, "attraction not found")
		return
	}
	writePage(w, r, loc, page)
}

func siteFailure(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", notFound)
		return
	}
	log.Error().Err(err).Str("path", r.URL.Path).Msg("site query failed")
	writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
}

// writePage wraps data in the locale envelope and honors If-None-Match.
func writePage(w http.ResponseWriter, r *http.Request, loc string, data any) {
	etag, body := calcETagAndBody(siteResponse{Locale: loc, Dir: i18n.Direction(loc), Data: data})
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Language", loc)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write site page body")
	}
}
