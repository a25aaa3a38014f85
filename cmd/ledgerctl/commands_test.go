package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paperledger/internal/config"
	"github.com/aristath/paperledger/internal/di"
	"github.com/aristath/paperledger/internal/domain"
	testingpkg "github.com/aristath/paperledger/internal/testing"
)

type harness struct {
	t        *testing.T
	cfg      *config.Config
	provider *testingpkg.StaticQuoteProvider
}

func newHarness(t *testing.T) *harness {
	return &harness{
		t: t,
		cfg: &config.Config{
			DataDir:      t.TempDir(),
			DBDriver:     config.DriverModernc,
			StartingCash: decimal.NewFromInt(10000),
			Quotes:       config.QuoteConfig{Timeout: time.Second, CacheTTL: time.Minute},
		},
		provider: testingpkg.NewStaticQuoteProvider().SetPrice("ACME", "25.50").SetPrice("WIDG", "10"),
	}
}

func (h *harness) run(args ...string) (subcommands.ExitStatus, string, string) {
	h.t.Helper()

	var out, errOut bytes.Buffer
	a := newApp(&out, &errOut)
	a.connect = func(ctx context.Context) (*session, error) {
		container, jobs, err := di.Wire(h.cfg, zerolog.Nop(), h.provider)
		if err != nil {
			return nil, err
		}
		return &session{cfg: h.cfg, container: container, jobs: jobs}, nil
	}

	fs := flag.NewFlagSet("ledgerctl", flag.ContinueOnError)
	commander := subcommands.NewCommander(fs, "ledgerctl")
	for _, c := range a.commands() {
		commander.Register(c, "")
	}
	require.NoError(h.t, fs.Parse(args))

	status := commander.Execute(context.Background())
	return status, out.String(), errOut.String()
}

func TestOpenAndTrade(t *testing.T) {
	h := newHarness(t)

	status, out, errOut := h.run("open", "-user", "alice")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "Opened account 1 (alice) with $10,000.00")

	status, out, errOut = h.run("buy", "-account", "1", "-symbol", "acme", "-shares", "4")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "BUY 4 ACME @ $25.50 = $102.00 (order 1")

	status, out, errOut = h.run("sell", "-account", "1", "-symbol", "ACME", "-shares", "1")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "SELL 1 ACME @ $25.50 = $25.50 (order 2")

	status, out, errOut = h.run("portfolio", "-account", "1", "-json")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	var view domain.PortfolioView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Len(t, view.Holdings, 1)
	assert.Equal(t, int64(3), view.Holdings[0].Shares)
	assert.True(t, view.Cash.Equal(decimal.RequireFromString("9923.5")), view.Cash.String())
	assert.True(t, view.TotalValue.Equal(decimal.NewFromInt(10000)), view.TotalValue.String())

	status, out, _ = h.run("portfolio", "-account", "1")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "ACME")
	assert.Contains(t, out, "$10,000.00")

	status, out, _ = h.run("history", "-account", "1")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "buy")
	assert.Contains(t, out, "sell")

	status, out, _ = h.run("verify", "-account", "1")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "1 positions match")
}

func TestOpen_CustomCash(t *testing.T) {
	h := newHarness(t)

	status, out, errOut := h.run("open", "-user", "bob", "-cash", "50.25")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "$50.25")
}

func TestOpen_DuplicateUsername(t *testing.T) {
	h := newHarness(t)

	status, _, _ := h.run("open", "-user", "carol")
	require.Equal(t, subcommands.ExitSuccess, status)

	status, _, errOut := h.run("open", "-user", "carol")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "Error (")
}

func TestDeposit(t *testing.T) {
	h := newHarness(t)
	status, _, _ := h.run("open", "-user", "dave", "-cash", "0")
	require.Equal(t, subcommands.ExitSuccess, status)

	status, out, errOut := h.run("deposit", "-account", "1", "-amount", "12.5")
	require.Equal(t, subcommands.ExitSuccess, status, errOut)
	assert.Contains(t, out, "$12.50")

	status, _, _ = h.run("deposit", "-account", "1", "-amount", "abc")
	assert.Equal(t, subcommands.ExitUsageError, status)
}

func TestTrade_Rejections(t *testing.T) {
	h := newHarness(t)
	status, _, _ := h.run("open", "-user", "erin", "-cash", "20")
	require.Equal(t, subcommands.ExitSuccess, status)

	tests := []struct {
		name     string
		args     []string
		status   subcommands.ExitStatus
		contains string
	}{
		{"insufficient funds", []string{"buy", "-account", "1", "-symbol", "ACME", "-shares", "1"}, subcommands.ExitFailure, "insufficient_funds"},
		{"no position", []string{"sell", "-account", "1", "-symbol", "WIDG", "-shares", "1"}, subcommands.ExitFailure, "no_position"},
		{"unknown symbol", []string{"buy", "-account", "1", "-symbol", "NOPE", "-shares", "1"}, subcommands.ExitFailure, "unknown_symbol"},
		{"fractional shares", []string{"buy", "-account", "1", "-symbol", "WIDG", "-shares", "1.5"}, subcommands.ExitFailure, "invalid_quantity"},
		{"unknown account", []string{"buy", "-account", "9", "-symbol", "WIDG", "-shares", "1"}, subcommands.ExitFailure, "account_not_found"},
		{"missing account", []string{"buy", "-symbol", "WIDG", "-shares", "1"}, subcommands.ExitUsageError, "-account"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, errOut := h.run(tt.args...)
			assert.Equal(t, tt.status, status)
			assert.Contains(t, errOut, tt.contains)
		})
	}
}

func TestBackup_Disabled(t *testing.T) {
	h := newHarness(t)

	status, _, errOut := h.run("backup")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "BACKUP_BUCKET")
}
