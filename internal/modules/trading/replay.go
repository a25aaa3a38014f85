package trading

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aristath/paperledger/internal/domain"
)

// Replay folds orders in the given order into net share counts per symbol.
// Symbols whose net is zero are absent from the result.
func Replay(orders []domain.Order) map[string]int64 {
	net := make(map[string]int64)
	for _, o := range orders {
		switch o.Side {
		case domain.OrderSideBuy:
			net[o.Symbol] += o.Shares
		case domain.OrderSideSell:
			net[o.Symbol] -= o.Shares
		}
		if net[o.Symbol] == 0 {
			delete(net, o.Symbol)
		}
	}
	return net
}

// PositionShares indexes positions by symbol
func PositionShares(positions []domain.Position) map[string]int64 {
	shares := make(map[string]int64, len(positions))
	for _, p := range positions {
		shares[p.Symbol] = p.Shares
	}
	return shares
}

// diffHoldings describes every symbol where the stored positions and the
// replayed history disagree, sorted by symbol. Empty means they match.
func diffHoldings(stored, replayed map[string]int64) []string {
	symbols := make(map[string]struct{}, len(stored)+len(replayed))
	for s := range stored {
		symbols[s] = struct{}{}
	}
	for s := range replayed {
		symbols[s] = struct{}{}
	}

	var drift []string
	for s := range symbols {
		if stored[s] != replayed[s] {
			drift = append(drift, fmt.Sprintf("%s: stored %d, replayed %d", s, stored[s], replayed[s]))
		}
	}
	sort.Strings(drift)
	return drift
}

func replayMismatch(accountID int64, drift []string) error {
	return fmt.Errorf("%w: account %d: %s", domain.ErrReplayMismatch, accountID, strings.Join(drift, "; "))
}
