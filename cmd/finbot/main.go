// Command finbot is a chat-driven personal finance assistant backed by a
// Google Sheets ledger.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"finbot/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&serveCmd{}, "")
	commander.Register(&askCmd{}, "")
	commander.Register(&journalCmd{}, "journal")
	commander.Register(&historyCmd{}, "journal")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
