package httpserver

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"travi_content/internal/adapters/uploads"
	"travi_content/internal/app"
	"travi_content/internal/domain"
)

// maxJSONBody bounds admin request bodies.
const maxJSONBody = 10 << 20

// AdminHandlers serve the CMS JSON API over the flat-file store.
type AdminHandlers struct {
	Content *app.ContentService
	Uploads *uploads.Store
}

// MountAdmin registers /api routes for every resource and the upload endpoints.
func (s *Server) MountAdmin(h *AdminHandlers) {
	s.mux.Route("/api", func(r chi.Router) {
		for res, kind := range domain.Resources {
			switch kind {
			case domain.KindSingleton, domain.KindList:
				r.Get("/"+res, h.getDocument(res))
				r.Put("/"+res, h.putDocument(res))
			case domain.KindCollection:
				r.Get("/"+res, h.getDocument(res))
				r.Post("/"+res, h.createRecord(res))
				r.Get("/"+res+"/{id}", h.getRecord(res))
				r.Put("/"+res+"/{id}", h.updateRecord(res))
				r.Delete("/"+res+"/{id}", h.deleteRecord(res))
			case domain.KindDictionary:
				if res != domain.ResPages {
					r.Get("/"+res, h.getDocument(res))
				}
				r.Get("/"+res+"/{key}", h.getEntry(res))
				r.Put("/"+res+"/{key}", h.putEntry(res))
			}
		}
		if h.Uploads != nil {
			r.Post("/upload", h.upload)
		}
	})

	if h.Uploads != nil {
		prefix := h.Uploads.URLPrefix()
		files := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(h.Uploads.Dir())))
		s.mux.Get(prefix+"/*", func(w http.ResponseWriter, r *http.Request) {
			// no directory listings
			if strings.HasSuffix(r.URL.Path, "/") {
				writeError(w, http.StatusNotFound, "Not found")
				return
			}
			w.Header().Set("X-Content-Type-Options", "nosniff")
			files.ServeHTTP(w, r)
		})
	}
}

// fail maps service errors onto the admin API's status codes.
func fail(w http.ResponseWriter, r *http.Request, resource string, err error) {
	var perr *domain.ParseError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrInvalidBody):
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
	case errors.As(err, &perr):
		log.Error().Err(err).Str("resource", resource).Str("path", r.URL.Path).Msg("stored document unreadable")
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	default:
		log.Error().Err(err).Str("resource", resource).Str("path", r.URL.Path).Msg("admin request failed")
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func readBody(w http.ResponseWriter, r *http.Request, dst any) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		return errors.Join(domain.ErrInvalidBody, err)
	}
	return app.DecodeBody(raw, dst)
}

func (h *AdminHandlers) getDocument(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := h.Content.Document(r.Context(), res)
		if err != nil {
			fail(w, r, res, err)
			return
		}
		writeRaw(w, http.StatusOK, raw)
	}
}

func (h *AdminHandlers) putDocument(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body any
		if err := readBody(w, r, &body); err != nil {
			fail(w, r, res, err)
			return
		}
		out, err := h.Content.ReplaceDocument(r.Context(), res, body)
		if err != nil {
			fail(w, r, res, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (h *AdminHandlers) getRecord(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := h.Content.Find(r.Context(), res, chi.URLParam(r, "id"))
		if err != nil {
			fail(w, r, res, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (h *AdminHandlers) createRecord(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body domain.Record
		if err := readBody(w, r, &body); err != nil {
			fail(w, r, res, err)
			return
		}
		rec, err := h.Content.Create(r.Context(), res, body)
		if err != nil {
			fail(w, r, res, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (h *AdminHandlers) updateRecord(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch domain.Record
		if err := readBody(w, r, &patch); err != nil {
			fail(w, r, res, err)
			return
		}
		rec, err := h.Content.Update(r.Context(), res, chi.URLParam(r, "id"), patch)
		if err != nil {
			fail(w, r, res, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (h *AdminHandlers) deleteRecord(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.Content.Delete(r.Context(), res, chi.URLParam(r, "id")); err != nil {
			fail(w, r, res, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func (h *AdminHandlers) getEntry(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := h.Content.Entry(r.Context(), res, chi.URLParam(r, "key"))
		if err != nil {
			fail(w, r, res, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (h *AdminHandlers) putEntry(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body any
		if err := readBody(w, r, &body); err != nil {
			fail(w, r, res, err)
			return
		}
		v, err := h.Content.PutEntry(r.Context(), res, chi.URLParam(r, "key"), body)
		if err != nil {
			fail(w, r, res, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// upload streams the multipart "file" field into the upload store.
func (h *AdminHandlers) upload(w http.ResponseWriter, r *http.Request) {
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "multipart/form-data" {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	// room for the multipart envelope around the file
	r.Body = http.MaxBytesReader(w, r.Body, h.Uploads.MaxBytes()+1<<20)
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		if err != nil {
			uploadFailed(w, err)
			return
		}
		if part.FormName() != "file" || part.FileName() == "" {
			_ = part.Close()
			continue
		}
		up, err := h.Uploads.Save(r.Context(), part.FileName(), part)
		_ = part.Close()
		if err != nil {
			uploadFailed(w, err)
			return
		}
		writeJSON(w, http.StatusOK, up)
		return
	}
}

func uploadFailed(w http.ResponseWriter, err error) {
	var mbe *http.MaxBytesError
	switch {
	case errors.Is(err, uploads.ErrTooLarge), errors.As(err, &mbe):
		writeError(w, http.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, uploads.ErrNotImage):
		writeError(w, http.StatusBadRequest, "Only image files are allowed")
	default:
		log.Error().Err(err).Msg("upload failed")
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
