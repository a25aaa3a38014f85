package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all trading routes
func (h *TradingHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/accounts/{accountID}/buy", h.HandleBuy)         // Execute buy at the current quote
	r.Post("/accounts/{accountID}/sell", h.HandleSell)       // Execute sell at the current quote
	r.Get("/accounts/{accountID}/orders", h.HandleGetOrders) // Order history, oldest first
	r.Get("/accounts/{accountID}/verify", h.HandleVerify)    // Replay history against positions

	r.Get("/quotes/{symbol}", h.HandleGetQuote)
}
