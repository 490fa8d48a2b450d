package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"finbot/internal/cli"
	"finbot/internal/log"
	"finbot/internal/storage"
)

type historyCmd struct {
	limit int
	plain bool
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "print the latest journaled ledger events" }
func (*historyCmd) Usage() string {
	return `finbot history [-n 20] [-plain]

  Prints the newest ledger events from SQLITE_DB_PATH as a table.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", storage.DefaultHistoryLimit, "Number of events to show.")
	f.BoolVar(&c.plain, "plain", false, "Print markdown without terminal styling.")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.limit < 1 {
		fmt.Fprintln(os.Stderr, "-n must be at least 1")
		return subcommands.ExitUsageError
	}

	cfg, err := cli.LoadConfig(nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	logger, err := cli.SetupLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	journal, err := cli.OpenJournal(logger.WithComponent(log.ComponentStorage), cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open journal", log.FieldError, err)
		return subcommands.ExitFailure
	}
	defer journal.Close()

	events, err := journal.RecentEvents(ctx, c.limit)
	if err != nil {
		logger.Error("Failed to read journal", log.FieldError, err)
		return subcommands.ExitFailure
	}

	md := fmt.Sprintf("# Ledger history\n\nLatest %d events.\n\n%s", len(events), cli.HistoryTable(events))
	out, err := cli.RenderMarkdown(md, !c.plain)
	if err != nil {
		out = md
	}
	fmt.Print(out)
	return subcommands.ExitSuccess
}
