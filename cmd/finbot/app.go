package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finbot/internal/amqp"
	"finbot/internal/assistant"
	"finbot/internal/backend"
	"finbot/internal/cache"
	"finbot/internal/categorize"
	"finbot/internal/config"
	"finbot/internal/core"
	"finbot/internal/ledger"
	"finbot/internal/llm"
	"finbot/internal/log"
)

const (
	categoryCacheSize = 512
	categoryCacheTTL  = 24 * time.Hour
)

// stack is the assistant with everything it depends on.
type stack struct {
	gateway       *ledger.Gateway
	orchestrator  *assistant.Orchestrator
	categoryCache *cache.LRUCache[core.Category]
	closers       []func() error
}

func buildStack(ctx context.Context, cfg *config.Config, logger *log.Logger) (_ *stack, err error) {
	st := &stack{}
	defer func() {
		if err != nil {
			st.Close()
		}
	}()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	if res.Cleanup != nil {
		st.closers = append(st.closers, res.Cleanup)
	}

	client, err := llm.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	st.categoryCache = cache.NewLRUCache[core.Category](categoryCacheSize, categoryCacheTTL)
	inferer := categorize.New(
		llm.NewGeminiCompleter(client, cfg.CategoryModel),
		categorize.WithCache(st.categoryCache),
		categorize.WithTimeout(cfg.ModelTimeout),
		categorize.WithLogger(logger.WithComponent(log.ComponentCategorize)),
	)

	opts := []ledger.Option{
		ledger.WithCategoryInferer(inferer),
		ledger.WithCurrency(cfg.Currency),
		ledger.WithTimeout(cfg.StoreTimeout),
		ledger.WithLogger(logger.WithComponent(log.ComponentLedger)),
	}
	if cfg.AMQPURL != "" {
		// Events are an audit trail; the assistant runs without them.
		pub, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			amqp.WithLogger(logger.WithComponent(log.ComponentAMQP)))
		if err != nil {
			logger.Warn("Ledger events disabled, AMQP unavailable", log.FieldError, err)
		} else {
			opts = append(opts, ledger.WithEventPublisher(pub))
			st.closers = append(st.closers, pub.Close)
		}
	}
	st.gateway = ledger.New(res.Store, cfg.LedgerSheetName, opts...)

	registry := assistant.NewRegistry(st.gateway,
		assistant.WithRegistryLogger(logger.WithComponent(log.ComponentAssistant)))
	st.orchestrator = assistant.NewOrchestrator(
		llm.NewGeminiChat(client, cfg.GeminiModel, assistant.GenerateConfig()),
		registry,
		assistant.WithMaxRoundTrips(cfg.MaxRoundTrips),
		assistant.WithModelTimeout(cfg.ModelTimeout),
		assistant.WithLogger(logger.WithComponent(log.ComponentAssistant)),
	)

	logger.Info("Assistant ready",
		"backend", cfg.DataBackend,
		"model", cfg.GeminiModel,
		"events", cfg.AMQPURL != "")
	return st, nil
}

// Close releases resources in reverse order of acquisition.
func (s *stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
