package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all account routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/accounts", h.HandleOpen)
	r.Get("/accounts/{accountID}", h.HandleGet)
	r.Post("/accounts/{accountID}/deposit", h.HandleDeposit)
}
