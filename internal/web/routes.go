package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-roster/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	identifyHandler := handlers.NewIdentifyHandler(s.identifier)
	identitiesHandler := handlers.NewIdentitiesHandler(s.store)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Identification
		r.Post("/identify", identifyHandler.Identify)
		r.Post("/events", identifyHandler.Events)

		// Identities
		r.Get("/identities", identitiesHandler.List)
		r.Get("/identities/{uuid}", identitiesHandler.Get)
		r.Put("/identities/{uuid}/registration", identitiesHandler.Register)
	})
}
