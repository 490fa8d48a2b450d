package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"

	"finbot/internal/cache"
	"finbot/internal/channel/telegram"
	"finbot/internal/cli"
	"finbot/internal/config"
	apphttp "finbot/internal/http"
	"finbot/internal/log"
	"finbot/internal/metrics"
	"finbot/internal/speech"
)

const (
	shutdownTimeout = 15 * time.Second
	janitorInterval = 10 * time.Minute
)

var newBotAPI = tgbotapi.NewBotAPI

type serveCmd struct {
	addr       string
	noTelegram bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API and the Telegram bot" }
func (*serveCmd) Usage() string {
	return `finbot serve [-addr :3000] [-no-telegram]

  Serves POST /finance and, when TELEGRAM_BOT_TOKEN is set, long-polls
  Telegram for text and voice messages. Stops on SIGINT or SIGTERM.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address. Defaults to :$PORT.")
	f.BoolVar(&c.noTelegram, "no-telegram", false, "Do not start the Telegram poller even if a token is set.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	if err := metrics.Register(); err != nil {
		logger.Error("Metrics registration failed", log.FieldError, err)
		return subcommands.ExitFailure
	}

	ctx, stop := cli.SignalContext(ctx)
	defer stop()

	if err := c.run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		return subcommands.ExitFailure
	}
	logger.Info("Shutdown complete", log.FieldOperation, log.OpShutdown)
	return subcommands.ExitSuccess
}

func (c *serveCmd) run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	st, err := buildStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	addr := c.addr
	if addr == "" {
		addr = ":" + cfg.Port
	}
	srv := apphttp.NewServer(addr, st.orchestrator, apphttp.Config{
		WriteTimeout: time.Duration(cfg.MaxRoundTrips+1)*(cfg.ModelTimeout+cfg.StoreTimeout) + 10*time.Second,
		Ready:        st.gateway.Ping,
		Logger:       logger.WithComponent(log.ComponentHTTP),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr, log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.TelegramEnabled() && !c.noTelegram {
		bot, err := newBotAPI(cfg.TelegramBotToken)
		if err != nil {
			// Stop the listener before reporting.
			cancel()
			return errors.Join(fmt.Errorf("connect to Telegram: %w", err), g.Wait())
		}
		logger.Info("Telegram bot authorised", "username", bot.Self.UserName)
		adapter := telegram.New(bot, st.orchestrator, telegramConfig(cfg, logger))
		g.Go(func() error { return adapter.Run(gctx) })
	}

	janitor := cache.NewJanitor(func(removed int) {
		logger.Debug("Category cache swept", "removed", removed)
	}, st.categoryCache)
	g.Go(func() error {
		janitor.Run(gctx, janitorInterval)
		return nil
	})

	return g.Wait()
}

func telegramConfig(cfg *config.Config, logger *log.Logger) telegram.Config {
	tc := telegram.Config{
		VoiceTimeout:   cfg.VoiceTimeout,
		MaxConcurrency: int64(cfg.TelegramMaxConcurrency),
		Logger:         logger.WithComponent(log.ComponentTelegram),
	}
	if cfg.VoiceInputEnabled() {
		tc.Transcoder = speech.NewFFmpeg(cfg.FFmpegPath)
		tc.Transcriber = speech.NewGroq(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.TranscriptionModel)
	}
	if cfg.ElevenLabsAPIKey != "" {
		tc.Synthesizer = speech.NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID)
		tc.VoiceReplies = cfg.VoiceReplies
	}
	return tc
}
