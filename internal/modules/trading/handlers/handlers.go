// Package handlers provides HTTP handlers for order execution and history.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/paperledger/internal/domain"
	"github.com/aristath/paperledger/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// TradingService is the subset of trading.TradingService used by the handlers
type TradingService interface {
	ExecuteBuy(ctx context.Context, accountID int64, symbol string, shares int64) (*domain.Order, error)
	ExecuteSell(ctx context.Context, accountID int64, symbol string, shares int64) (*domain.Order, error)
	Quote(ctx context.Context, symbol string) (*domain.Quote, error)
	ListOrders(ctx context.Context, accountID int64) ([]domain.Order, error)
	VerifyAccount(ctx context.Context, accountID int64) (map[string]int64, error)
}

// TradingHandlers contains HTTP handlers for trading API
type TradingHandlers struct {
	service TradingService
	log     zerolog.Logger
}

// NewTradingHandlers creates a new trading handlers instance
func NewTradingHandlers(service TradingService, log zerolog.Logger) *TradingHandlers {
	return &TradingHandlers{
		service: service,
		log:     log.With().Str("handler", "trading").Logger(),
	}
}

// OrderRequest is the body of buy and sell requests.
// Shares may be a JSON number or a string of digits.
type OrderRequest struct {
	Symbol string          `json:"symbol"`
	Shares json.RawMessage `json:"shares"`
}

// OrderResponse is an executed order with display strings
type OrderResponse struct {
	ExecutedAt   time.Time `json:"executed_at"`
	Ref          string    `json:"ref"`
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"`
	Price        string    `json:"price"`
	PriceDisplay string    `json:"price_display"`
	Value        string    `json:"value"`
	ValueDisplay string    `json:"value_display"`
	ID           int64     `json:"id"`
	AccountID    int64     `json:"account_id"`
	Shares       int64     `json:"shares"`
}

func toOrderResponse(o domain.Order) OrderResponse {
	return OrderResponse{
		ID:           o.ID,
		Ref:          o.Ref,
		AccountID:    o.AccountID,
		Symbol:       o.Symbol,
		Side:         string(o.Side),
		Shares:       o.Shares,
		Price:        o.Price.String(),
		PriceDisplay: utils.FormatUSD(o.Price),
		Value:        o.Value().String(),
		ValueDisplay: utils.FormatUSD(o.Value()),
		ExecutedAt:   o.ExecutedAt,
	}
}

// HandleBuy executes a buy order
func (h *TradingHandlers) HandleBuy(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, h.service.ExecuteBuy)
}

// HandleSell executes a sell order
func (h *TradingHandlers) HandleSell(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, h.service.ExecuteSell)
}

type executeFunc func(ctx context.Context, accountID int64, symbol string, shares int64) (*domain.Order, error)

func (h *TradingHandlers) handleOrder(w http.ResponseWriter, r *http.Request, execute executeFunc) {
	accountID, err := utils.ParseID(chi.URLParam(r, "accountID"))
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, h.log, http.StatusBadRequest, utils.ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	shares, err := utils.ParseShares(req.Shares)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	order, err := execute(r.Context(), accountID, req.Symbol, shares)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	utils.WriteJSON(w, h.log, http.StatusCreated, toOrderResponse(*order))
}

// HandleGetOrders returns the account's order history, oldest first
func (h *TradingHandlers) HandleGetOrders(w http.ResponseWriter, r *http.Request) {
	accountID, err := utils.ParseID(chi.URLParam(r, "accountID"))
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	orders, err := h.service.ListOrders(r.Context(), accountID)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	result := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		result = append(result, toOrderResponse(o))
	}

	utils.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"account_id": accountID,
		"orders":     result,
		"count":      len(result),
	})
}

// HandleVerify replays the order history against the stored positions
func (h *TradingHandlers) HandleVerify(w http.ResponseWriter, r *http.Request) {
	accountID, err := utils.ParseID(chi.URLParam(r, "accountID"))
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	holdings, err := h.service.VerifyAccount(r.Context(), accountID)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	utils.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"account_id": accountID,
		"verified":   true,
		"positions":  holdings,
	})
}

// HandleGetQuote looks up the current price of a symbol
func (h *TradingHandlers) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.service.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	utils.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"symbol":        q.Symbol,
		"name":          q.Name,
		"price":         q.Price.String(),
		"price_display": utils.FormatUSD(q.Price),
	})
}
