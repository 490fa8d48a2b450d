package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"finbot/internal/core"
	"finbot/internal/ledger"
	"finbot/internal/log"
	"finbot/internal/metrics"
)

// Ledger is the part of the ledger gateway the tools drive.
type Ledger interface {
	AppendEntry(ctx context.Context, req ledger.AppendRequest) (ledger.AppendResult, error)
	QueryMonthSummary(ctx context.Context, month string) (core.MonthSummary, error)
	ListAllEntries(ctx context.Context) ([]core.Entry, error)
	BudgetStatus(ctx context.Context) (core.BudgetStatus, error)
	SetBudget(ctx context.Context, amount decimal.Decimal) (ledger.SetBudgetResult, error)
}

// Result is the structured outcome of one tool call. Exactly one of
// Message, Value and Entries is set on success; Error is set on failure.
type Result struct {
	Tool    string
	Success bool
	Message string
	Value   any
	Entries []core.Entry
	Error   string
}

func failure(tool string, err error) Result {
	return Result{Tool: tool, Error: err.Error()}
}

// Response is the payload returned to the model.
func (r Result) Response() map[string]any {
	out := map[string]any{"success": r.Success}
	if !r.Success {
		out["error"] = r.Error
		return out
	}
	switch {
	case r.Message != "":
		out["message"] = r.Message
	case r.Value != nil:
		out["result"] = r.Value
	case r.Entries != nil:
		out["entries"] = r.Entries
	}
	return out
}

// FunctionResponse tags the result with the id and name of the call that
// produced it.
func (r Result) FunctionResponse(id string) *genai.FunctionResponse {
	return &genai.FunctionResponse{ID: id, Name: r.Tool, Response: r.Response()}
}

// Summary is the plain text used as an answer when the model adds none:
// the message, else the JSON result, else the JSON entry list.
func (r Result) Summary() string {
	switch {
	case r.Message != "":
		return r.Message
	case r.Value != nil:
		if s, ok := r.Value.(string); ok {
			return s
		}
		return toJSON(r.Value)
	case r.Entries != nil:
		return toJSON(r.Entries)
	}
	return ""
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Registry decodes and executes tool calls against a ledger.
type Registry struct {
	ledger Ledger
	now    func() time.Time
	log    *log.Logger
}

type RegistryOption func(*Registry)

// WithRegistryClock sets the clock get_current_date reads.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func WithRegistryLogger(l *log.Logger) RegistryOption {
	return func(r *Registry) { r.log = l }
}

func NewRegistry(l Ledger, opts ...RegistryOption) *Registry {
	r := &Registry{ledger: l, now: time.Now, log: log.Default(log.ComponentAssistant)}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Execute runs one model call. Errors never escape; they become failed
// results.
func (r *Registry) Execute(ctx context.Context, fc *genai.FunctionCall) Result {
	name := ""
	if fc != nil {
		name = fc.Name
	}
	call, err := Decode(fc)
	var res Result
	if err != nil {
		res = failure(name, err)
	} else {
		res = r.dispatch(ctx, call)
	}
	metrics.ToolCalls.WithLabelValues(metricToolName(name), outcome(res)).Inc()
	if !res.Success {
		r.log.WarnContext(ctx, "Tool call failed", log.FieldTool, name, log.FieldError, res.Error)
	} else {
		r.log.DebugContext(ctx, "Tool call succeeded", log.FieldTool, name)
	}
	return res
}

func (r *Registry) dispatch(ctx context.Context, call Call) Result {
	name := call.ToolName()
	switch c := call.(type) {
	case AddEntryCall:
		res, err := r.ledger.AppendEntry(ctx, ledger.AppendRequest{
			Amount:      c.Amount,
			Description: c.Description,
			Category:    c.Category,
			Type:        c.Type,
			Month:       c.Month,
		})
		if err != nil {
			return failure(name, err)
		}
		return Result{Tool: name, Success: true, Message: res.Message}

	case QuerySheetCall:
		sum, err := r.ledger.QueryMonthSummary(ctx, c.Month)
		if err != nil {
			return failure(name, err)
		}
		return Result{Tool: name, Success: true, Value: map[string]any{
			"categories": sum.Categories(),
			"month":      sum.Month,
		}}

	case GetAllEntriesCall:
		entries, err := r.ledger.ListAllEntries(ctx)
		if err != nil {
			return failure(name, err)
		}
		if entries == nil {
			entries = []core.Entry{}
		}
		return Result{Tool: name, Success: true, Entries: entries}

	case GetBudgetStatusCall:
		st, err := r.ledger.BudgetStatus(ctx)
		if err != nil {
			return failure(name, err)
		}
		return Result{Tool: name, Success: true, Value: map[string]any{
			"month":          st.Month,
			"budget":         st.Budget.InexactFloat64(),
			"budgetLeft":     st.BudgetLeft.InexactFloat64(),
			"percentageLeft": st.Percent(),
			"warning":        st.Warning(),
		}}

	case SetBudgetCall:
		res, err := r.ledger.SetBudget(ctx, c.Amount)
		if err != nil {
			return failure(name, err)
		}
		return Result{Tool: name, Success: true, Message: res.Message}

	case GetCurrentDateCall:
		now := r.now()
		return Result{Tool: name, Success: true, Value: map[string]any{
			"day":       now.Day(),
			"month":     int(now.Month()),
			"year":      now.Year(),
			"formatted": now.Format(core.DateLayout),
		}}
	}
	return failure(name, fmt.Errorf("%w: %s", ErrUnknownTool, name))
}

func outcome(r Result) string {
	if r.Success {
		return "success"
	}
	return "failure"
}

// metricToolName keeps label cardinality bounded when the model invents
// tool names.
func metricToolName(name string) string {
	switch name {
	case ToolAddEntry, ToolQuerySheet, ToolGetAllEntries, ToolGetBudgetStatus, ToolSetBudget, ToolGetCurrentDate:
		return name
	}
	return "unknown"
}
