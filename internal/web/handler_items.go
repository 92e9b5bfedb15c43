package web

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/peoplegallery/internal/photostore"
	"github.com/vbonduro/peoplegallery/internal/service"
)

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Error("failed to remove multipart temp files", "error", err)
		}
	}()

	in := service.NewItem{Title: r.FormValue("title")}

	file, header, err := r.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// Left empty; the service reports the missing photo.
	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid photo field")
		return
	default:
		defer closeWithLog(file, "upload file", s.logger)
		in.Filename = header.Filename
		in.Photo, err = io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read photo")
			return
		}
	}

	item, err := s.gallery.Create(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, "create item", err)
		return
	}
	s.metrics.ItemsCreated.Inc()
	s.metrics.UploadBytes.Add(float64(len(in.Photo)))
	writeJSON(w, http.StatusCreated, item)
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	// multipart does not always wrap the reader error.
	return strings.Contains(err.Error(), "request body too large")
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.gallery.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "list items", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.gallery.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, r, "search items", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	reader, mimeType, err := s.photos.Get(r.Context(), name)
	if err != nil {
		if !errors.Is(err, photostore.ErrNotFound) && !errors.Is(err, photostore.ErrInvalidKey) {
			s.logger.Error("get photo failed", "name", name, "error", err)
		}
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	defer closeWithLog(reader, "photo reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write photo failed", "name", name, "error", err)
	}
}
