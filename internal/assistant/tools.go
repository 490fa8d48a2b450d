package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"finbot/internal/core"
)

// Tool names as declared to the model.
const (
	ToolAddEntry        = "add_entry_to_sheet"
	ToolQuerySheet      = "query_sheet"
	ToolGetAllEntries   = "get_all_entries"
	ToolGetBudgetStatus = "get_budget_status"
	ToolSetBudget       = "set_budget_for_month"
	ToolGetCurrentDate  = "get_current_date"
)

var (
	ErrUnknownTool     = errors.New("unknown tool")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Call is one decoded tool request. The set of implementations is closed.
type Call interface {
	ToolName() string
	isCall()
}

type (
	AddEntryCall struct {
		Amount      decimal.Decimal
		Description string
		Category    string
		Type        core.EntryType
		Month       string
	}

	QuerySheetCall struct {
		Month string
	}

	GetAllEntriesCall struct{}

	GetBudgetStatusCall struct{}

	SetBudgetCall struct {
		Amount decimal.Decimal
	}

	GetCurrentDateCall struct{}
)

func (AddEntryCall) ToolName() string        { return ToolAddEntry }
func (QuerySheetCall) ToolName() string      { return ToolQuerySheet }
func (GetAllEntriesCall) ToolName() string   { return ToolGetAllEntries }
func (GetBudgetStatusCall) ToolName() string { return ToolGetBudgetStatus }
func (SetBudgetCall) ToolName() string       { return ToolSetBudget }
func (GetCurrentDateCall) ToolName() string  { return ToolGetCurrentDate }

func (AddEntryCall) isCall()        {}
func (QuerySheetCall) isCall()      {}
func (GetAllEntriesCall) isCall()   {}
func (GetBudgetStatusCall) isCall() {}
func (SetBudgetCall) isCall()       {}
func (GetCurrentDateCall) isCall()  {}

// Declarations returns the function declarations offered to the model.
func Declarations() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        ToolAddEntry,
			Description: "Adds a new entry to the financial tracker Google Sheet within rows 2-954, updating last appended row in J18. For expenses in the current month, includes budget status if below 50% or 25%.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"amount":      {Type: genai.TypeNumber, Description: "The amount of money involved."},
					"description": {Type: genai.TypeString, Description: "Description of the transaction."},
					"category": {
						Type:        genai.TypeString,
						Enum:        core.CategoryNames(),
						Description: "The category of the transaction (optional, will be inferred if omitted).",
					},
					"type": {
						Type:        genai.TypeString,
						Enum:        []string{string(core.Expense), string(core.Income)},
						Description: "Whether it's an expense or income.",
					},
					"month": {Type: genai.TypeString, Description: "The month as a number (1-12), defaults to current month if omitted."},
				},
				Required: []string{"amount", "description", "type"},
			},
		},
		{
			Name:        ToolQuerySheet,
			Description: `Queries the financial tracker Google Sheet for category totals (e.g., Income, Debt Given, Debt Returned) in a specified month. Use this for summarized financial data, such as total debts owed to you or expenses in a given month. Month parameter accepts numbers (1-12) or names (e.g., "February").`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"month": {Type: genai.TypeString, Description: `The month to query (e.g., "February" or "2"), defaults to current month if omitted.`},
				},
			},
		},
		{
			Name:        ToolGetAllEntries,
			Description: "Fetches all financial entries from the Google Sheet up to the last appended row.",
		},
		{
			Name:        ToolGetBudgetStatus,
			Description: "Fetches the budget and remaining amount for the current month, with spending warnings if below 50% or 25%.",
		},
		{
			Name:        ToolSetBudget,
			Description: "Sets the budget for the current month in the financial tracker Google Sheet and returns the updated budget status.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"amount": {Type: genai.TypeNumber, Description: "The budget amount to set for the current month."},
				},
				Required: []string{"amount"},
			},
		},
		{
			Name:        ToolGetCurrentDate,
			Description: `Returns the current date, including day, month (1-12), year, and formatted string (DD/MM/YYYY). Use this to determine relative time periods like "last month" or "this month" in queries.`,
		},
	}
}

// Decode validates the arguments of fc and returns the matching call.
func Decode(fc *genai.FunctionCall) (Call, error) {
	if fc == nil {
		return nil, fmt.Errorf("%w: empty call", ErrUnknownTool)
	}
	a := args(fc.Args)
	switch fc.Name {
	case ToolAddEntry:
		amount, err := a.amount("amount")
		if err != nil {
			return nil, err
		}
		desc, err := a.requiredString("description")
		if err != nil {
			return nil, err
		}
		typ, err := a.requiredString("type")
		if err != nil {
			return nil, err
		}
		t := core.EntryType(strings.ToLower(typ))
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%w: type: %v", ErrInvalidArgument, err)
		}
		category, err := a.optionalString("category")
		if err != nil {
			return nil, err
		}
		month, err := a.optionalString("month")
		if err != nil {
			return nil, err
		}
		return AddEntryCall{Amount: amount, Description: desc, Category: category, Type: t, Month: month}, nil
	case ToolQuerySheet:
		month, err := a.optionalString("month")
		if err != nil {
			return nil, err
		}
		return QuerySheetCall{Month: month}, nil
	case ToolGetAllEntries:
		return GetAllEntriesCall{}, nil
	case ToolGetBudgetStatus:
		return GetBudgetStatusCall{}, nil
	case ToolSetBudget:
		amount, err := a.amount("amount")
		if err != nil {
			return nil, err
		}
		return SetBudgetCall{Amount: amount}, nil
	case ToolGetCurrentDate:
		return GetCurrentDateCall{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, fc.Name)
	}
}

type args map[string]any

func (a args) requiredString(key string) (string, error) {
	s, err := a.optionalString(key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidArgument, key)
	}
	return s, nil
}

// optionalString accepts strings and numbers, models sometimes send the
// month as 2 instead of "2".
func (a args) optionalString(key string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", nil
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10), nil
		}
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case json.Number:
		return t.String(), nil
	default:
		return "", fmt.Errorf("%w: %s has type %T", ErrInvalidArgument, key, v)
	}
}

func (a args) amount(key string) (decimal.Decimal, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return decimal.Zero, fmt.Errorf("%w: %s is required", ErrInvalidArgument, key)
	}
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, fmt.Errorf("%w: %s is not a finite number", ErrInvalidArgument, key)
		}
		return decimal.NewFromFloat(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case json.Number:
		return parseAmount(key, t.String())
	case string:
		return parseAmount(key, t)
	default:
		return decimal.Zero, fmt.Errorf("%w: %s has type %T", ErrInvalidArgument, key, v)
	}
}

func parseAmount(key, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q is not a number", ErrInvalidArgument, key, s)
	}
	return d, nil
}
