package web

import (
	"net/http"
	"path"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/peoplegallery/internal/photostore"
)

type route struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

type uploadsResponse struct {
	Count int                 `json:"count"`
	Files []photostore.Object `json:"files"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDebugUploads(w http.ResponseWriter, r *http.Request) {
	objects, err := s.gallery.Uploads(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "list uploads", err)
		return
	}
	writeJSON(w, http.StatusOK, uploadsResponse{Count: len(objects), Files: objects})
}

// handleRoutes lists every registered method and pattern, sorted by path.
func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	routes := []route{}
	err := chi.Walk(s.router, func(method, pattern string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, route{Method: method, Path: pattern})
		return nil
	})
	if err != nil {
		s.writeServiceError(w, r, "walk routes", err)
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	writeJSON(w, http.StatusOK, routes)
}

// handleStatic serves PUBLIC_DIR. Missing files and directories without an
// index.html get the JSON 404 instead of a listing.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if !s.staticExists(name) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	http.FileServer(s.static).ServeHTTP(w, r)
}

func (s *Server) staticExists(name string) bool {
	f, err := s.static.Open(name)
	if err != nil {
		return false
	}
	info, err := f.Stat()
	closeWithLog(f, "static file", s.logger)
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return true
	}
	idx, err := s.static.Open(path.Join(name, "index.html"))
	if err != nil {
		return false
	}
	closeWithLog(idx, "static index", s.logger)
	return true
}
