package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBudgetWarning(t *testing.T) {
	tests := []struct {
		pct  string
		want WarningLevel
	}{
		{"100", WarningNone},
		{"50", WarningNone},
		{"49.99", WarningMild},
		{"25", WarningMild},
		{"24.99", WarningStrong},
		{"0", WarningStrong},
		{"-10", WarningStrong},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BudgetWarning(decimal.RequireFromString(tt.pct)), "pct %s", tt.pct)
	}
}

func TestNewBudgetStatus(t *testing.T) {
	s := NewBudgetStatus("3", decimal.NewFromInt(5000), decimal.NewFromInt(2000))
	assert.Equal(t, "40.00", s.Percent())
	assert.Equal(t, WarningMild, s.Level)
	assert.Equal(t, "Be a bit careful with your spending.", s.Warning())

	zero := NewBudgetStatus("3", decimal.Zero, decimal.NewFromInt(-100))
	assert.True(t, zero.PercentageLeft.IsZero())
	assert.Equal(t, WarningStrong, zero.Level)

	full := NewBudgetStatus("3", decimal.NewFromInt(100), decimal.NewFromInt(100))
	assert.Empty(t, full.Warning())
}

func TestMonthSummaryCategories(t *testing.T) {
	s := MonthSummary{Month: "2", Lines: []SummaryLine{
		{Label: "Income", Raw: "₹1,000.00", Amount: decimal.NewFromInt(1000)},
		{Label: "Food", Raw: ""},
	}}
	got := s.Categories()
	assert.Equal(t, "₹1,000.00", got["Income"])
	assert.Equal(t, "0", got["Food"])

	line, ok := s.Line("Income")
	assert.True(t, ok)
	assert.True(t, line.Amount.Equal(decimal.NewFromInt(1000)))
	_, ok = s.Line("Debt Given")
	assert.False(t, ok)
}
