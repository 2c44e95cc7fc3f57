package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all simulation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/simulations", func(r chi.Router) {
		r.Post("/", h.HandleCreateSimulation)
		r.Get("/", h.HandleListSimulations)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetSimulation)
			r.Get("/portfolios", h.HandleGetPortfolios)
			r.Get("/trials", h.HandleGetTrials)
			r.Get("/progress", h.HandleProgress)
		})
	})
}
