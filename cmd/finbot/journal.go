package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/subcommands"

	"finbot/internal/amqp"
	"finbot/internal/cli"
	"finbot/internal/config"
	"finbot/internal/log"
	"finbot/internal/metrics"
	"finbot/internal/worker"
)

type journalCmd struct {
	metricsAddr string
}

func (*journalCmd) Name() string     { return "journal" }
func (*journalCmd) Synopsis() string { return "consume ledger events into the SQLite journal" }
func (*journalCmd) Usage() string {
	return `finbot journal [-metrics-addr :9091]

  Consumes ledger events from AMQP_QUEUE and stores them in SQLITE_DB_PATH.
  Redelivered events are stored once. Stops on SIGINT or SIGTERM.
`
}

func (c *journalCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address.")
}

func (c *journalCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := cli.LoadConfig((*config.Config).ValidateJournal)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	logger, err := cli.SetupLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := metrics.Register(); err != nil {
		logger.Error("Metrics registration failed", log.FieldError, err)
		return subcommands.ExitFailure
	}

	ctx, stop := cli.SignalContext(ctx)
	defer stop()

	journal, err := cli.OpenJournal(logger.WithComponent(log.ComponentStorage), cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open journal", log.FieldError, err)
		return subcommands.ExitFailure
	}
	defer journal.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		amqp.WithLogger(logger.WithComponent(log.ComponentAMQP)))
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		return subcommands.ExitFailure
	}
	defer client.Close()

	if c.metricsAddr != "" {
		srv := &http.Server{Addr: c.metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", log.FieldError, err)
			}
		}()
		defer srv.Close()
	}

	w := worker.NewJournalWorker(client, journal, logger.WithComponent(log.ComponentJournal))
	if err := w.Run(ctx); err != nil {
		logger.Error("Journal worker failed", log.FieldError, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
