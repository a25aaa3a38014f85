package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/aristath/paperledger/internal/domain"
	"github.com/aristath/paperledger/internal/utils"
)

// openCmd opens a new account
type openCmd struct {
	*app
	username string
	cash     string
}

func (*openCmd) Name() string     { return "open" }
func (*openCmd) Synopsis() string { return "open a new account" }
func (*openCmd) Usage() string {
	return `ledgerctl open -user <name> [-cash <amount>]

  Opens an account. Without -cash the configured STARTING_CASH is granted.
`
}

func (c *openCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "user", "", "Unique username for the account.")
	f.StringVar(&c.cash, "cash", "", "Starting cash. Defaults to STARTING_CASH.")
}

func (c *openCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if strings.TrimSpace(c.username) == "" {
		return c.usage("-user is required")
	}

	return c.withSession(ctx, func(s *session) error {
		cash := s.cfg.StartingCash
		if c.cash != "" {
			var err error
			if cash, err = decimal.NewFromString(c.cash); err != nil {
				return fmt.Errorf("%w: %q", domain.ErrInvalidAmount, c.cash)
			}
		}

		account, err := s.container.AccountService.Open(ctx, c.username, cash)
		if err != nil {
			return err
		}

		fmt.Fprintf(c.out, "Opened account %d (%s) with %s\n", account.ID, account.Username, utils.FormatUSD(account.Cash))
		return nil
	})
}

// depositCmd adds cash to an account
type depositCmd struct {
	*app
	accountID int64
	amount    string
}

func (*depositCmd) Name() string     { return "deposit" }
func (*depositCmd) Synopsis() string { return "add cash to an account" }
func (*depositCmd) Usage() string {
	return `ledgerctl deposit -account <id> -amount <amount>
`
}

func (c *depositCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.accountID, "account", 0, "Account ID.")
	f.StringVar(&c.amount, "amount", "", "Amount to deposit, must be positive.")
}

func (c *depositCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.accountID <= 0 {
		return c.usage("-account is required")
	}
	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		return c.usage("-amount must be a decimal number, got %q", c.amount)
	}

	return c.withSession(ctx, func(s *session) error {
		account, err := s.container.AccountService.Deposit(ctx, c.accountID, amount)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Account %d cash is now %s\n", account.ID, utils.FormatUSD(account.Cash))
		return nil
	})
}

// tradeCmd executes a market buy or sell at the current quote
type tradeCmd struct {
	*app
	buy       bool
	accountID int64
	symbol    string
	shares    string
}

func (c *tradeCmd) Name() string {
	if c.buy {
		return "buy"
	}
	return "sell"
}

func (c *tradeCmd) Synopsis() string { return c.Name() + " shares at the current quote" }
func (c *tradeCmd) Usage() string {
	return fmt.Sprintf(`ledgerctl %s -account <id> -symbol <ticker> -shares <n>
`, c.Name())
}

func (c *tradeCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.accountID, "account", 0, "Account ID.")
	f.StringVar(&c.symbol, "symbol", "", "Ticker symbol.")
	f.StringVar(&c.shares, "shares", "", "Whole number of shares, at least 1.")
}

func (c *tradeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.accountID <= 0 || c.symbol == "" {
		return c.usage("-account and -symbol are required")
	}
	shares, err := utils.ParseShares(json.RawMessage(c.shares))
	if err != nil {
		return c.fail(err)
	}

	return c.withSession(ctx, func(s *session) error {
		execute := s.container.TradingService.ExecuteSell
		if c.buy {
			execute = s.container.TradingService.ExecuteBuy
		}

		order, err := execute(ctx, c.accountID, c.symbol, shares)
		if err != nil {
			return err
		}

		fmt.Fprintf(c.out, "%s %d %s @ %s = %s (order %d, ref %s)\n",
			strings.ToUpper(string(order.Side)), order.Shares, order.Symbol,
			utils.FormatUSD(order.Price), utils.FormatUSD(order.Value()), order.ID, order.Ref)
		return nil
	})
}

// portfolioCmd prints the current valuation of an account
type portfolioCmd struct {
	*app
	accountID int64
	asJSON    bool
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "value an account at current quotes" }
func (*portfolioCmd) Usage() string {
	return `ledgerctl portfolio -account <id> [-json]
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.accountID, "account", 0, "Account ID.")
	f.BoolVar(&c.asJSON, "json", false, "Print JSON instead of a table.")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.accountID <= 0 {
		return c.usage("-account is required")
	}

	return c.withSession(ctx, func(s *session) error {
		view, err := s.container.PortfolioService.BuildView(ctx, c.accountID)
		if err != nil {
			return err
		}
		if c.asJSON {
			return c.printJSON(view)
		}

		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "SYMBOL\tSHARES\tPRICE\tVALUE\t")
		for _, h := range view.Holdings {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t\n", h.Symbol, h.Shares, utils.FormatUSD(h.CurrentPrice), utils.FormatUSD(h.MarketValue))
		}
		fmt.Fprintf(tw, "CASH\t\t\t%s\t\n", utils.FormatUSD(view.Cash))
		fmt.Fprintf(tw, "TOTAL\t\t\t%s\t\n", utils.FormatUSD(view.TotalValue))
		return tw.Flush()
	})
}

// historyCmd lists executed orders, oldest first
type historyCmd struct {
	*app
	accountID int64
	asJSON    bool
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list executed orders in execution order" }
func (*historyCmd) Usage() string {
	return `ledgerctl history -account <id> [-json]
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.accountID, "account", 0, "Account ID.")
	f.BoolVar(&c.asJSON, "json", false, "Print JSON instead of a table.")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.accountID <= 0 {
		return c.usage("-account is required")
	}

	return c.withSession(ctx, func(s *session) error {
		orders, err := s.container.TradingService.ListOrders(ctx, c.accountID)
		if err != nil {
			return err
		}
		if c.asJSON {
			return c.printJSON(orders)
		}

		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tEXECUTED\tSIDE\tSYMBOL\tSHARES\tPRICE\tVALUE")
		for _, o := range orders {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
				o.ID, o.ExecutedAt.UTC().Format(time.RFC3339), o.Side, o.Symbol, o.Shares,
				utils.FormatUSD(o.Price), utils.FormatUSD(o.Value()))
		}
		return tw.Flush()
	})
}

// verifyCmd checks stored positions against a replay of the order history
type verifyCmd struct {
	*app
	accountID int64
}

func (*verifyCmd) Name() string     { return "verify" }
func (*verifyCmd) Synopsis() string { return "check positions against the order history" }
func (*verifyCmd) Usage() string {
	return `ledgerctl verify -account <id>

  Replays every order of the account and compares the result with the stored positions.
`
}

func (c *verifyCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.accountID, "account", 0, "Account ID.")
}

func (c *verifyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.accountID <= 0 {
		return c.usage("-account is required")
	}

	return c.withSession(ctx, func(s *session) error {
		positions, err := s.container.TradingService.VerifyAccount(ctx, c.accountID)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Account %d verified: %d positions match the order history\n", c.accountID, len(positions))
		return nil
	})
}

// backupCmd uploads a ledger backup or lists stored ones
type backupCmd struct {
	*app
	list bool
}

var errBackupsDisabled = errors.New("backups are not configured (set BACKUP_BUCKET)")

func (*backupCmd) Name() string     { return "backup" }
func (*backupCmd) Synopsis() string { return "upload a ledger backup to the configured bucket" }
func (*backupCmd) Usage() string {
	return `ledgerctl backup [-list]
`
}

func (c *backupCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.list, "list", false, "List stored backups instead of creating one.")
}

func (c *backupCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.withSession(ctx, func(s *session) error {
		svc := s.container.BackupService
		if svc == nil {
			return errBackupsDisabled
		}

		if c.list {
			backups, err := svc.ListBackups(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILENAME\tSIZE\tAGE (h)")
			for _, b := range backups {
				fmt.Fprintf(tw, "%s\t%d\t%d\n", b.Filename, b.SizeBytes, b.AgeHours)
			}
			return tw.Flush()
		}

		name, err := svc.CreateAndUploadBackup(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Uploaded %s\n", name)
		return nil
	})
}
