package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/kmnkit/vietnamese-word-cards/internal/remote"
)

const requestTimeout = 30 * time.Second

func (s *Server) Routes() http.Handler {
	origins := s.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", remote.UserHeader, requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}).Handler)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(userMiddleware)
		r.Use(timeoutMiddleware(requestTimeout))

		r.Get("/progress/sync", s.handleGetSync)
		r.Post("/progress/sync", s.handlePostSync)
		r.Patch("/progress/words", s.handlePatchWords)
		r.Patch("/progress/xp", s.handlePatchXP)

		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handlePostSession)
	})
	return r
}
