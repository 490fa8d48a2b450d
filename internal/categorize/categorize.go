// Package categorize assigns a ledger category to a free-text transaction
// description using a single model completion.
package categorize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finbot/internal/cache"
	"finbot/internal/core"
	"finbot/internal/llm"
	"finbot/internal/log"
	"finbot/internal/metrics"
)

const (
	defaultCacheSize = 512
	defaultCacheTTL  = 24 * time.Hour
)

// Prompt is the instruction sent ahead of every description.
var Prompt = fmt.Sprintf(`You are a helpful assistant tasked with categorizing financial transactions.
Given the description of a transaction, determine the most appropriate category
from the following list: %s.
Return only the category name as a plain string, nothing else.
If unsure, default to 'Other'. Consider addictions as Entertainment.`,
	strings.Join(core.CategoryNames(), ", "))

// Inferencer never fails: any model error or unknown label becomes Other.
type Inferencer struct {
	model   llm.Completer
	cache   cache.Cache[core.Category]
	timeout time.Duration
	log     *log.Logger
}

type Option func(*Inferencer)

// WithCache replaces the default in-process cache.
func WithCache(c cache.Cache[core.Category]) Option { return func(i *Inferencer) { i.cache = c } }

// WithTimeout bounds each completion.
func WithTimeout(d time.Duration) Option { return func(i *Inferencer) { i.timeout = d } }

func WithLogger(l *log.Logger) Option { return func(i *Inferencer) { i.log = l } }

func New(model llm.Completer, opts ...Option) *Inferencer {
	i := &Inferencer{
		model: model,
		cache: cache.NewLRUCache[core.Category](defaultCacheSize, defaultCacheTTL),
		log:   log.Default(log.ComponentCategorize),
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Infer returns the category for description.
func (i *Inferencer) Infer(ctx context.Context, description string) core.Category {
	key := cacheKey(description)
	if key == "" {
		metrics.CategoryInferences.WithLabelValues("fallback").Inc()
		return core.CategoryOther
	}
	if c, ok := i.cache.Get(key); ok {
		metrics.CategoryInferences.WithLabelValues("cache").Inc()
		return c
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}
	out, err := i.model.Complete(ctx, Prompt, description)
	if err != nil {
		i.log.WarnContext(ctx, "Category inference failed", log.FieldError, err)
		metrics.CategoryInferences.WithLabelValues("fallback").Inc()
		return core.CategoryOther
	}

	c := core.Category(strings.TrimSpace(out))
	if !c.Valid() {
		i.log.DebugContext(ctx, "Model returned unknown category", log.FieldCategory, out)
		metrics.CategoryInferences.WithLabelValues("fallback").Inc()
		return core.CategoryOther
	}
	i.cache.Set(key, c)
	metrics.CategoryInferences.WithLabelValues("model").Inc()
	return c
}

// cacheKey folds case and collapses whitespace.
func cacheKey(description string) string {
	return strings.ToLower(strings.Join(strings.Fields(description), " "))
}
