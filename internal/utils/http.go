package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/aristath/paperledger/internal/domain"
	"github.com/rs/zerolog"
)

// ErrorResponse is the JSON body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// errorStatus maps ledger error kinds to HTTP status codes
var errorStatus = []struct {
	kind   error
	status int
	name   string
}{
	{domain.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{domain.ErrInvalidUsername, http.StatusBadRequest, "invalid_username"},
	{domain.ErrInvalidAccountID, http.StatusBadRequest, "invalid_account_id"},
	{domain.ErrUnknownSymbol, http.StatusNotFound, "unknown_symbol"},
	{domain.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
	{domain.ErrInsufficientFunds, http.StatusConflict, "insufficient_funds"},
	{domain.ErrInsufficientShares, http.StatusConflict, "insufficient_shares"},
	{domain.ErrNoPosition, http.StatusConflict, "no_position"},
	{domain.ErrAccountExists, http.StatusConflict, "account_exists"},
	{domain.ErrReplayMismatch, http.StatusConflict, "replay_mismatch"},
	{domain.ErrQuoteUnavailable, http.StatusServiceUnavailable, "quote_unavailable"},
	{domain.ErrStorage, http.StatusInternalServerError, "storage"},
}

// StatusForError returns the HTTP status and kind name for err.
// Unclassified errors are internal errors.
func StatusForError(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.kind) {
			return e.status, e.name
		}
	}
	return http.StatusInternalServerError, ""
}

// WriteJSON encodes data as the response body
func WriteJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteError writes err with the status of its kind.
// Server-side failures are logged at error and their detail is not sent to the client.
func WriteError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status, kind := StatusForError(err)
	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		log.Error().Err(err).Msg("Request failed")
		message = http.StatusText(status)
	}
	WriteJSON(w, log, status, ErrorResponse{Error: message, Kind: kind})
}

// ParseID parses a positive integer path parameter
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidAccountID, raw)
	}
	return id, nil
}

// ParseShares validates a share count given as a JSON string or number.
// Only plain digit strings >= 1 are accepted: no sign, no decimal point, no exponent.
func ParseShares(raw json.RawMessage) (int64, error) {
	s, err := sharesToken(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidQuantity, err)
	}

	if s == "" {
		return 0, fmt.Errorf("%w: missing share count", domain.ErrInvalidQuantity)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q", domain.ErrInvalidQuantity, s)
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidQuantity, s)
	}
	return n, nil
}

// sharesToken decodes raw as a JSON string or number and returns its text
func sharesToken(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
