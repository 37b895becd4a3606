package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/studypal/pkg/usecase"
	"github.com/secmon-lab/studypal/pkg/utils/metrics"
)

// maxUploadSize bounds the multipart body accepted by /api/upload
const maxUploadSize = 32 << 20

type Server struct {
	router  *chi.Mux
	uc      *usecase.UseCases
	metrics *metrics.Collector
}

type Options func(*Server)

// WithMetrics records HTTP metrics and serves them on /metrics
func WithMetrics(m *metrics.Collector) Options {
	return func(s *Server) {
		s.metrics = m
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)
	r.Use(httpMetrics(s.metrics))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler)

		r.Post("/chat", s.routeHandler("chat"))
		r.Post("/quiz", s.routeHandler("quiz"))

		r.Post("/notes", s.createNoteHandler)
		r.Delete("/notes/{id}", s.deleteNoteHandler)
		r.Get("/files", s.listFilesHandler)
		r.Post("/upload", s.uploadHandler)
		r.Post("/reprocess", s.reprocessHandler)

		r.Post("/summarize", s.summarizeHandler)
		r.Post("/evidence", s.evidenceHandler)

		r.Get("/tasks", s.listTasksHandler)
		r.Get("/tasks/{id}", s.taskHandler)
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Backend is running!",
	})
}
