package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"finbot/internal/core"
	"finbot/internal/ledger"
	"finbot/internal/log"
)

var march15 = time.Date(2024, time.March, 15, 18, 45, 0, 0, time.Local)

type brokenLedger struct{ err error }

func (b brokenLedger) AppendEntry(context.Context, ledger.AppendRequest) (ledger.AppendResult, error) {
	return ledger.AppendResult{}, b.err
}

func (b brokenLedger) QueryMonthSummary(context.Context, string) (core.MonthSummary, error) {
	return core.MonthSummary{}, b.err
}

func (b brokenLedger) ListAllEntries(context.Context) ([]core.Entry, error) { return nil, b.err }

func (b brokenLedger) BudgetStatus(context.Context) (core.BudgetStatus, error) {
	return core.BudgetStatus{}, b.err
}

func (b brokenLedger) SetBudget(context.Context, decimal.Decimal) (ledger.SetBudgetResult, error) {
	return ledger.SetBudgetResult{}, b.err
}

func TestRegistryCurrentDate(t *testing.T) {
	r := NewRegistry(brokenLedger{}, WithRegistryClock(func() time.Time { return march15 }), WithRegistryLogger(log.Discard()))
	res := r.Execute(context.Background(), call(ToolGetCurrentDate, nil))
	require.True(t, res.Success)
	assert.Equal(t, map[string]any{"day": 15, "month": 3, "year": 2024, "formatted": "15/03/2024"}, res.Value)
}

func TestRegistryLedgerErrorsBecomeFailures(t *testing.T) {
	r := NewRegistry(brokenLedger{err: errors.New("read Budget!J18: 503")}, WithRegistryLogger(log.Discard()))
	for _, fc := range []*genai.FunctionCall{
		call(ToolAddEntry, map[string]any{"amount": 1.0, "description": "x", "type": "expense"}),
		call(ToolQuerySheet, nil),
		call(ToolGetAllEntries, nil),
		call(ToolGetBudgetStatus, nil),
		call(ToolSetBudget, map[string]any{"amount": 10.0}),
	} {
		res := r.Execute(context.Background(), fc)
		assert.False(t, res.Success, fc.Name)
		assert.Equal(t, "read Budget!J18: 503", res.Error)
		assert.Equal(t, fc.Name, res.Tool)
	}
}

func TestRegistryBadArgumentsFail(t *testing.T) {
	r := NewRegistry(brokenLedger{}, WithRegistryLogger(log.Discard()))
	res := r.Execute(context.Background(), call(ToolSetBudget, map[string]any{"amount": "lots"}))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid argument")

	res = r.Execute(context.Background(), call("transfer_funds", nil))
	assert.False(t, res.Success)
	assert.Equal(t, "unknown tool: transfer_funds", res.Error)
}
