// Package handlers provides HTTP handlers for account registration and deposits.
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
	"github.com/shopspring/decimal"
)

// AccountService is the subset of accounts.AccountService used by the handlers
type AccountService interface {
	Open(ctx context.Context, username string, startingCash decimal.Decimal) (*domain.Account, error)
	Get(ctx context.Context, accountID int64) (*domain.Account, error)
	Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.Account, error)
}

// Handler handles account HTTP requests
type Handler struct {
	service      AccountService
	startingCash decimal.Decimal
	log          zerolog.Logger
}

// NewHandler creates a new account handler.
// startingCash funds accounts opened without an explicit cash amount.
func NewHandler(service AccountService, startingCash decimal.Decimal, log zerolog.Logger) *Handler {
	return &Handler{
		service:      service,
		startingCash: startingCash,
		log:          log.With().Str("handler", "accounts").Logger(),
	}
}

// OpenRequest is the body of POST /accounts
type OpenRequest struct {
	Cash     *decimal.Decimal `json:"cash,omitempty"`
	Username string           `json:"username"`
}

// DepositRequest is the body of POST /accounts/{accountID}/deposit
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// AccountResponse is an account with a display balance
type AccountResponse struct {
	CreatedAt   time.Time `json:"created_at"`
	Username    string    `json:"username"`
	Cash        string    `json:"cash"`
	CashDisplay string    `json:"cash_display"`
	ID          int64     `json:"id"`
}

func toAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID,
		Username:    a.Username,
		Cash:        a.Cash.String(),
		CashDisplay: utils.FormatUSD(a.Cash),
		CreatedAt:   a.CreatedAt,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.WriteJSON(w, h.log, http.StatusBadRequest, utils.ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

// HandleOpen registers a new account
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if !h.decode(w, r, &req) {
		return
	}

	cash := h.startingCash
	if req.Cash != nil {
		cash = *req.Cash
	}

	account, err := h.service.Open(r.Context(), req.Username, cash)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	utils.WriteJSON(w, h.log, http.StatusCreated, toAccountResponse(account))
}

// HandleGet returns one account
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	accountID, err := utils.ParseID(chi.URLParam(r, "accountID"))
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	account, err := h.service.Get(r.Context(), accountID)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	utils.WriteJSON(w, h.log, http.StatusOK, toAccountResponse(account))
}

// HandleDeposit adds cash to an account
func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	accountID, err := utils.ParseID(chi.URLParam(r, "accountID"))
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	var req DepositRequest
	if !h.decode(w, r, &req) {
		return
	}

	account, err := h.service.Deposit(r.Context(), accountID, req.Amount)
	if err != nil {
		utils.WriteError(w, h.log, err)
		return
	}

	utils.WriteJSON(w, h.log, http.StatusOK, toAccountResponse(account))
}
