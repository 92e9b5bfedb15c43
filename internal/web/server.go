package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vbonduro/peoplegallery/internal/metrics"
	"github.com/vbonduro/peoplegallery/internal/photostore"
	"github.com/vbonduro/peoplegallery/internal/service"
)

// maxJSONBody caps POST /people bodies.
const maxJSONBody = 1 << 20

// multipartMemory is how much of an upload ParseMultipartForm keeps in memory
// before spilling to a temp file.
const multipartMemory = 1 << 20

type Options struct {
	PublicDir      string
	MaxUploadBytes int64
	CORSOrigins    []string
}

type Server struct {
	people  *service.PeopleService
	gallery *service.GalleryService
	photos  photostore.PhotoStore
	metrics *metrics.Collector
	opts    Options
	router  *chi.Mux
	static  http.FileSystem
	logger  *slog.Logger
}

func NewServer(
	people *service.PeopleService,
	gallery *service.GalleryService,
	photos photostore.PhotoStore,
	m *metrics.Collector,
	opts Options,
	logger *slog.Logger,
) *Server {
	s := &Server{
		people:  people,
		gallery: gallery,
		photos:  photos,
		metrics: m,
		opts:    opts,
		static:  http.Dir(opts.PublicDir),
		logger:  logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(instrument(s.metrics))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.GetHead)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Post("/people", s.handleCreatePerson)
	r.Get("/people", s.handleListPeople)
	r.Get("/people/search", s.handleSearchPeople)

	r.Post("/items", s.handleCreateItem)
	r.Get("/items", s.handleListItems)
	r.Get("/items/search", s.handleSearchItems)

	r.Get("/uploads/{name}", s.handleGetUpload)
	r.Get("/debug/uploads", s.handleDebugUploads)
	r.Get("/__routes", s.handleRoutes)

	r.Get("/*", s.handleStatic)

	return r
}

// Router exposes the chi router, e.g. for the Lambda adapter.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer returns an http.Server for addr. The write timeout leaves room
// for a slow upload followed by a caption request.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
