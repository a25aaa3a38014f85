package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/subcommands"

	"github.com/aristath/paperledger/internal/config"
	"github.com/aristath/paperledger/internal/di"
	"github.com/aristath/paperledger/internal/utils"
	"github.com/aristath/paperledger/pkg/logger"
)

// session is an open data directory
type session struct {
	cfg       *config.Config
	container *di.Container
	jobs      *di.JobInstances
}

func (s *session) Close() error {
	return s.container.Close()
}

// app holds what every command shares: output streams and how to open the ledger
type app struct {
	out     io.Writer
	errOut  io.Writer
	connect func(ctx context.Context) (*session, error)
}

func newApp(out, errOut io.Writer) *app {
	a := &app{out: out, errOut: errOut}
	a.connect = a.connectFromEnv
	return a
}

func (a *app) commands() []subcommands.Command {
	return []subcommands.Command{
		&openCmd{app: a},
		&depositCmd{app: a},
		&tradeCmd{app: a, buy: true},
		&tradeCmd{app: a, buy: false},
		&portfolioCmd{app: a},
		&historyCmd{app: a},
		&verifyCmd{app: a},
		&backupCmd{app: a},
	}
}

// connectFromEnv loads configuration like the server does and wires the real quote client.
// Logs go to errOut so command output stays parseable.
func (a *app) connectFromEnv(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
		Output: a.errOut,
	})

	container, jobs, err := di.Wire(cfg, log, nil)
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, container: container, jobs: jobs}, nil
}

// fail reports err and maps it to an exit status
func (a *app) fail(err error) subcommands.ExitStatus {
	_, kind := utils.StatusForError(err)
	fmt.Fprintf(a.errOut, "Error (%s): %v\n", kind, err)
	return subcommands.ExitFailure
}

func (a *app) usage(format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(a.errOut, "Error: "+format+"\n", args...)
	return subcommands.ExitUsageError
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withSession opens the ledger, runs fn and closes it again
func (a *app) withSession(ctx context.Context, fn func(*session) error) subcommands.ExitStatus {
	s, err := a.connect(ctx)
	if err != nil {
		return a.fail(err)
	}
	defer s.Close()

	if err := fn(s); err != nil {
		return a.fail(err)
	}
	return subcommands.ExitSuccess
}
