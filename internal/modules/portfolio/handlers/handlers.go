// Package handlers provides HTTP handlers for positions and portfolio valuation.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/aristath/paperledger/internal/domain"
	"github.com/aristath/paperledger/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// PortfolioService is the subset of portfolio.PortfolioService used by the handlers
type PortfolioService interface {
	GetPosition(ctx context.Context, accountID int64, symbol string) (*domain.Position, error)
	ListPositions(ctx context.Context, accountID int64) ([]domain.Position, error)
	BuildView(ctx context.Context, accountID int64) (*domain.PortfolioView, error)
}

// Handler handles portfolio HTTP requests
type Handler struct {
	service PortfolioService
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service PortfolioService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HoldingResponse is one valued holding with display strings
type HoldingResponse struct {
	Symbol              string `json:"symbol"`
	CurrentPrice        string `json:"current_price"`
	CurrentPriceDisplay string `json:"current_price_display"`
	MarketValue         string `json:"market_value"`
	MarketValueDisplay  string `json:"market_value_display"`
	Shares              int64  `json:"shares"`
}

// PortfolioResponse is the valuation of an account
type PortfolioResponse struct {
	Holdings          []HoldingResponse `json:"holdings"`
	Cash              string            `json:"cash"`
	CashDisplay       string            `json:"cash_display"`
	TotalValue        string            `json:"total_value"`
	TotalValueDisplay string            `json:"total_value_display"`
	AccountID         int64             `json:"account_id"`
}

// PositionResponse is one stored position
type PositionResponse struct {
	UpdatedAt time.Time `json:"updated_at"`
	Symbol    string    `json:"symbol"`
	Shares    int64     `json:"shares"`
}

// HandleGetPortfolio returns holdings valued at current quotes plus cash
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	accountID, err := utils.ParseID(chi.URLParam(r, "accountID"))
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	view, err := h.service.BuildView(r.Context(), accountID)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	holdings := make([]HoldingResponse, 0, len(view.Holdings))
	for _, hd := range view.Holdings {
		holdings = append(holdings, HoldingResponse{
			Symbol:              hd.Symbol,
			Shares:              hd.Shares,
			CurrentPrice:        hd.CurrentPrice.String(),
			CurrentPriceDisplay: utils.FormatUSD(hd.CurrentPrice),
			MarketValue:         hd.MarketValue.String(),
			MarketValueDisplay:  utils.FormatUSD(hd.MarketValue),
		})
	}

	utils.WriteJSON(w, h.log, http.StatusOK, PortfolioResponse{
		AccountID:         view.AccountID,
		Holdings:          holdings,
		Cash:              view.Cash.String(),
		CashDisplay:       utils.FormatUSD(view.Cash),
		TotalValue:        view.TotalValue.String(),
		TotalValueDisplay: utils.FormatUSD(view.TotalValue),
	})
}

// HandleGetPositions lists the account's positions without pricing them
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	accountID, err := utils.ParseID(chi.URLParam(r, "accountID"))
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	positions, err := h.service.ListPositions(r.Context(), accountID)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	result := make([]PositionResponse, 0, len(positions))
	for _, p := range positions {
		result = append(result, PositionResponse{Symbol: p.Symbol, Shares: p.Shares, UpdatedAt: p.UpdatedAt})
	}

	utils.WriteJSON(w, h.log, http.StatusOK, result)
}

// HandleGetPosition returns one position, 404 when the symbol is not held
func (h *Handler) HandleGetPosition(w http.ResponseWriter, r *http.Request) {
	accountID, err := utils.ParseID(chi.URLParam(r, "accountID"))
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	symbol := chi.URLParam(r, "symbol")
	pos, err := h.service.GetPosition(r.Context(), accountID, symbol)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}
	if pos == nil {
		utils.WriteJSON(w, h.log, http.StatusNotFound, utils.ErrorResponse{Error: "no position in " + symbol, Kind: "no_position"})
		return
	}

	utils.WriteJSON(w, h.log, http.StatusOK, PositionResponse{Symbol: pos.Symbol, Shares: pos.Shares, UpdatedAt: pos.UpdatedAt})
}
