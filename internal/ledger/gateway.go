// Package ledger gives typed access to the Budget spreadsheet: appending
// entries, reading the monthly aggregate block and the budget cells, and
// listing rows. All positional knowledge of the sheet lives here.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
	"finbot/internal/log"
	"finbot/internal/metrics"
	"finbot/internal/sheets"
)

// CategoryInferer picks a category for a description. It must not fail;
// uncertain or failed inferences return core.CategoryOther.
type CategoryInferer interface {
	Infer(ctx context.Context, description string) core.Category
}

// EventPublisher receives an event after every successful mutation.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, e core.LedgerEvent) error
}

// ErrNegativeBudget rejects budgets below zero.
var ErrNegativeBudget = errors.New("budget cannot be negative")

type (
	AppendRequest struct {
		Amount      decimal.Decimal
		Description string
		Category    string // optional, inferred when empty
		Type        core.EntryType
		Month       string // optional, current month when empty
	}

	AppendResult struct {
		Row     int
		Message string
		Entry   core.Entry
	}

	SetBudgetResult struct {
		Message string
		Status  core.BudgetStatus
	}
)

// Gateway is safe for concurrent use within one process. Appends are
// serialised around the pointer cell, and selector writes are serialised
// with the reads that depend on them.
type Gateway struct {
	store      sheets.CellStore
	layout     Layout
	categories CategoryInferer
	events     EventPublisher
	log        *log.Logger
	now        func() time.Time
	currency   string
	timeout    time.Duration

	pointerMu  sync.Mutex
	selectorMu sync.Mutex
}

type Option func(*Gateway)

func WithCategoryInferer(c CategoryInferer) Option { return func(g *Gateway) { g.categories = c } }

func WithEventPublisher(p EventPublisher) Option { return func(g *Gateway) { g.events = p } }

func WithLogger(l *log.Logger) Option { return func(g *Gateway) { g.log = l } }

// WithClock sets the time source used for dates and the current month.
func WithClock(now func() time.Time) Option { return func(g *Gateway) { g.now = now } }

// WithCurrency sets the ISO code used in messages.
func WithCurrency(code string) Option { return func(g *Gateway) { g.currency = code } }

// WithTimeout bounds every individual store call. Zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(g *Gateway) { g.timeout = d } }

// New returns a gateway over the named sheet of store.
func New(store sheets.CellStore, sheet string, opts ...Option) *Gateway {
	g := &Gateway{
		store:    store,
		layout:   Layout{Sheet: sheet},
		log:      log.Default(log.ComponentLedger),
		now:      time.Now,
		currency: core.DefaultCurrency,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// AppendEntry records one transaction at the next free row and advances the
// pointer. Expenses in the current month get a budget warning appended to
// the message when less than half the budget is left.
func (g *Gateway) AppendEntry(ctx context.Context, req AppendRequest) (res AppendResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveLedger(log.OpAppend, start, err) }()

	if err := core.ValidateTransaction(req.Type, req.Amount, req.Description); err != nil {
		return AppendResult{}, err
	}
	now := g.now()
	month := core.ParseMonth(req.Month, now)
	category := g.resolveCategory(ctx, req)
	entry := core.NewEntry(req.Type, req.Amount, strings.TrimSpace(req.Description), category, month, now)

	row, err := g.writeEntry(ctx, entry)
	if err != nil {
		return AppendResult{}, err
	}
	g.log.InfoContext(ctx, "Entry added",
		log.FieldOperation, log.OpAppend,
		log.FieldRow, row,
		log.FieldMonth, month,
		log.FieldCategory, string(category),
		log.FieldAmount, req.Amount.String())

	msg := fmt.Sprintf("Added %s of %s %s for %s (Category: %s) at row %d",
		req.Type, req.Amount.String(), g.currency, entry.Description, category, row)

	if req.Type == core.Expense && month == core.CurrentMonth(now) {
		status, err := g.BudgetStatus(ctx)
		if err != nil {
			g.log.WarnContext(ctx, "Budget check after append failed", log.FieldError, err)
		} else if status.Level != core.WarningNone {
			msg += fmt.Sprintf(" Your budget for this month is %s, with %s left (%s%%). %s",
				g.money(status.Budget), g.money(status.BudgetLeft), status.Percent(), status.Warning())
		}
	}

	g.publish(ctx, core.NewEntryAddedEvent(row, req.Type, req.Amount, entry, now))
	return AppendResult{Row: row, Message: msg, Entry: entry}, nil
}

func (g *Gateway) resolveCategory(ctx context.Context, req AppendRequest) core.Category {
	if strings.TrimSpace(req.Category) != "" {
		return core.ParseCategory(req.Category)
	}
	if g.categories == nil {
		return core.CategoryOther
	}
	return g.categories.Infer(ctx, req.Description)
}

// writeEntry is the pointer critical section: read pointer, write row,
// write pointer.
func (g *Gateway) writeEntry(ctx context.Context, e core.Entry) (int, error) {
	g.pointerMu.Lock()
	defer g.pointerMu.Unlock()

	pointer, err := g.readPointer(ctx)
	if err != nil {
		return 0, err
	}
	row := NextRow(pointer)
	if err := g.write(ctx, g.layout.entryRange(row), [][]any{e.Cells()}); err != nil {
		return 0, fmt.Errorf("write entry row %d: %w", row, err)
	}
	if err := g.write(ctx, g.layout.rng(PointerCell), [][]any{{row}}); err != nil {
		return 0, fmt.Errorf("advance pointer to %d: %w", row, err)
	}
	return row, nil
}

func (g *Gateway) readPointer(ctx context.Context) (int, error) {
	raw, err := g.readCell(ctx, g.layout.rng(PointerCell))
	if err != nil {
		return 0, fmt.Errorf("read pointer: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return FirstEntryRow - 1, nil
	}
	return int(core.ParseLooseNumber(raw).IntPart()), nil
}

// Ping reads the pointer cell to check that the ledger is reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	_, err := g.readPointer(ctx)
	return err
}

// QueryMonthSummary selects month on the sheet and reads the aggregate
// block. An empty month means the current one.
func (g *Gateway) QueryMonthSummary(ctx context.Context, month string) (summary core.MonthSummary, err error) {
	start := time.Now()
	defer func() { metrics.ObserveLedger(log.OpQuery, start, err) }()

	month = core.ParseMonth(month, g.now())

	g.selectorMu.Lock()
	defer g.selectorMu.Unlock()

	if err := g.selectMonth(ctx, month); err != nil {
		return core.MonthSummary{}, err
	}
	grid, err := g.readGrid(ctx, g.layout.rng(AggregateRange), len(core.SummaryLabels), 2)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("read month summary: %w", err)
	}
	summary = core.MonthSummary{Month: month, Lines: make([]core.SummaryLine, len(core.SummaryLabels))}
	for i, label := range core.SummaryLabels {
		raw := grid[i][1]
		summary.Lines[i] = core.SummaryLine{Label: label, Raw: raw, Amount: core.ParseLooseNumber(raw)}
	}
	return summary, nil
}

// ListAllEntries returns every row from the first entry row through the
// pointer, including the sheet-computed balance.
func (g *Gateway) ListAllEntries(ctx context.Context) (entries []core.Entry, err error) {
	start := time.Now()
	defer func() { metrics.ObserveLedger(log.OpList, start, err) }()

	pointer, err := g.readPointer(ctx)
	if err != nil {
		return nil, err
	}
	if pointer < FirstEntryRow {
		return []core.Entry{}, nil
	}
	last := min(pointer, RowCeiling)
	rng := g.layout.listingRange(last)

	rctx, cancel := g.bounded(ctx)
	defer cancel()
	values, err := g.store.ReadRange(rctx, rng)
	if err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	if err := checkShape(rng, values, last-FirstEntryRow+1, listingColumns); err != nil {
		return nil, err
	}

	entries = make([]core.Entry, 0, len(values))
	for _, v := range values {
		row := make([]string, listingColumns)
		copy(row, v)
		entries = append(entries, core.Entry{
			Month:       row[0],
			Date:        row[1],
			Description: row[2],
			Category:    core.Category(row[3]),
			Income:      core.ParseLooseNumber(row[4]),
			Debits:      core.ParseLooseNumber(row[5]),
			Balance:     core.ParseLooseNumber(row[6]),
		})
	}
	return entries, nil
}

// BudgetStatus selects the current month and reads the budget cells.
func (g *Gateway) BudgetStatus(ctx context.Context) (status core.BudgetStatus, err error) {
	start := time.Now()
	defer func() { metrics.ObserveLedger(log.OpBudget, start, err) }()

	g.selectorMu.Lock()
	defer g.selectorMu.Unlock()
	return g.budgetStatusLocked(ctx)
}

func (g *Gateway) budgetStatusLocked(ctx context.Context) (core.BudgetStatus, error) {
	month := core.CurrentMonth(g.now())
	if err := g.selectMonth(ctx, month); err != nil {
		return core.BudgetStatus{}, err
	}
	grid, err := g.readGrid(ctx, g.layout.rng(BudgetRange), 2, 1)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("read budget: %w", err)
	}
	return core.NewBudgetStatus(month, core.ParseLooseNumber(grid[0][0]), core.ParseLooseNumber(grid[1][0])), nil
}

// SetBudget stores the budget for the current month and reports the
// remaining amount as recomputed by the sheet.
func (g *Gateway) SetBudget(ctx context.Context, amount decimal.Decimal) (res SetBudgetResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveLedger(log.OpSetBudget, start, err) }()

	if amount.IsNegative() {
		return SetBudgetResult{}, ErrNegativeBudget
	}

	g.selectorMu.Lock()
	defer g.selectorMu.Unlock()

	if err := g.write(ctx, g.layout.rng(BudgetCell), [][]any{{amount.String()}}); err != nil {
		return SetBudgetResult{}, fmt.Errorf("write budget: %w", err)
	}
	status, err := g.budgetStatusLocked(ctx)
	if err != nil {
		return SetBudgetResult{}, err
	}
	msg := fmt.Sprintf("Set budget for this month to %s. You have %s left (%s%%). %s",
		g.money(status.Budget), g.money(status.BudgetLeft), status.Percent(), status.Warning())

	g.log.InfoContext(ctx, "Budget set", log.FieldOperation, log.OpSetBudget, log.FieldAmount, amount.String(), log.FieldMonth, status.Month)
	g.publish(ctx, core.NewBudgetSetEvent(amount, status.Month, g.now()))
	return SetBudgetResult{Message: strings.TrimSpace(msg), Status: status}, nil
}

// selectMonth must be called with selectorMu held.
func (g *Gateway) selectMonth(ctx context.Context, month string) error {
	if err := g.write(ctx, g.layout.rng(SelectorCell), [][]any{{month}}); err != nil {
		return fmt.Errorf("select month %s: %w", month, err)
	}
	return nil
}

func (g *Gateway) publish(ctx context.Context, e core.LedgerEvent) {
	if g.events == nil {
		return
	}
	pctx, cancel := g.bounded(ctx)
	defer cancel()
	err := g.events.PublishLedgerEvent(pctx, e)
	metrics.LedgerEvents.WithLabelValues("published", metrics.Outcome(err)).Inc()
	if err != nil {
		g.log.WarnContext(ctx, "Failed to publish ledger event", log.FieldOperation, log.OpPublish,
			log.FieldEventID, e.ID, log.FieldEventKind, string(e.Kind), log.FieldError, err)
	}
}

func (g *Gateway) money(d decimal.Decimal) string {
	return core.FormatMoney(d, g.currency)
}

func (g *Gateway) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *Gateway) write(ctx context.Context, rng string, values [][]any) error {
	ctx, cancel := g.bounded(ctx)
	defer cancel()
	return g.store.WriteRange(ctx, rng, values)
}

func (g *Gateway) readGrid(ctx context.Context, rng string, rows, cols int) ([][]string, error) {
	ctx, cancel := g.bounded(ctx)
	defer cancel()
	return readGrid(ctx, g.store, rng, rows, cols)
}

func (g *Gateway) readCell(ctx context.Context, rng string) (string, error) {
	ctx, cancel := g.bounded(ctx)
	defer cancel()
	return readCell(ctx, g.store, rng)
}
