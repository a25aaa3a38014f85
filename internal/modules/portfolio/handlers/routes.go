package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/accounts/{accountID}/portfolio", h.HandleGetPortfolio)         // Holdings at current quotes plus cash
	r.Get("/accounts/{accountID}/positions", h.HandleGetPositions)         // Stored positions, unpriced
	r.Get("/accounts/{accountID}/positions/{symbol}", h.HandleGetPosition) // Single position
}
