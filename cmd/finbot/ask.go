package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"finbot/internal/cli"
	"finbot/internal/config"
	"finbot/internal/log"
)

type askCmd struct {
	plain bool
}

func (*askCmd) Name() string     { return "ask" }
func (*askCmd) Synopsis() string { return "send one query to the assistant and print the answer" }
func (*askCmd) Usage() string {
	return `finbot ask [-plain] <query...>

  Runs a single assistant loop in-process, against the configured ledger,
  and renders the answer as terminal markdown.

  Example: finbot ask "I spent 250 on pizza"
`
}

func (c *askCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.plain, "plain", false, "Print the raw answer without terminal styling.")
}

func (c *askCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	query := strings.TrimSpace(strings.Join(f.Args(), " "))
	if query == "" {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}

	cfg, err := cli.LoadConfig((*config.Config).Validate)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	logger, err := cli.SetupLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	ctx, stop := cli.SignalContext(ctx)
	defer stop()

	st, err := buildStack(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start assistant", log.FieldError, err)
		return subcommands.ExitFailure
	}
	defer st.Close()

	out, err := st.orchestrator.Run(ctx, query)
	if err != nil {
		logger.Error("Assistant run failed", log.FieldError, err)
	}

	rendered, rerr := cli.RenderMarkdown(out.Answer, !c.plain)
	if rerr != nil {
		rendered = out.Answer
	}
	fmt.Println(strings.TrimRight(rendered, "\n"))

	if err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
