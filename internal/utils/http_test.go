package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/paperledger/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrInvalidQuantity, http.StatusBadRequest},
		{domain.ErrInvalidAmount, http.StatusBadRequest},
		{domain.ErrUnknownSymbol, http.StatusNotFound},
		{domain.ErrAccountNotFound, http.StatusNotFound},
		{domain.ErrInvalidAccountID, http.StatusBadRequest},
		{domain.ErrInsufficientFunds, http.StatusConflict},
		{domain.ErrInsufficientShares, http.StatusConflict},
		{domain.ErrNoPosition, http.StatusConflict},
		{domain.ErrQuoteUnavailable, http.StatusServiceUnavailable},
		{domain.NewStorageError("buy", errors.New("disk I/O error")), http.StatusInternalServerError},
		{errors.New("something else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, _ := StatusForError(fmt.Errorf("wrapped: %w", tt.err))
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestWriteError(t *testing.T) {
	t.Run("client error keeps message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, zerolog.Nop(), fmt.Errorf("%w: ABC", domain.ErrNoPosition))

		assert.Equal(t, http.StatusConflict, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "no_position", body.Kind)
		assert.Contains(t, body.Error, "ABC")
	})

	t.Run("storage error hides detail", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, zerolog.Nop(), domain.NewStorageError("buy", errors.New("/var/data/ledger.db locked")))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "ledger.db")
	})
}

func TestParseShares(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: `10`, want: 10},
		{raw: `"7"`, want: 7},
		{raw: `" 3 "`, want: 3},
		{raw: `0`, wantErr: true},
		{raw: `-5`, wantErr: true},
		{raw: `1.5`, wantErr: true},
		{raw: `"2.0"`, wantErr: true},
		{raw: `1e3`, wantErr: true},
		{raw: `"abc"`, wantErr: true},
		{raw: `""`, wantErr: true},
		{raw: ``, wantErr: true},
		{raw: `"99999999999999999999"`, wantErr: true},
		{raw: `"5`, wantErr: true},
		{raw: `5"`, wantErr: true},
		{raw: `""5""`, wantErr: true},
		{raw: `null`, wantErr: true},
		{raw: `true`, wantErr: true},
		{raw: `[5]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseShares(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "0", "-1", "abc"} {
		_, err := ParseID(raw)
		assert.ErrorIs(t, err, domain.ErrInvalidAccountID, raw)

		status, kind := StatusForError(err)
		assert.Equal(t, http.StatusBadRequest, status, raw)
		assert.Equal(t, "invalid_account_id", kind, raw)
	}
}
