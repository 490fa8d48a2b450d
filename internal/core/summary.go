package core

import (
	"github.com/shopspring/decimal"
)

// Summary labels in the order the sheet's aggregate block lists them.
var SummaryLabels = []string{
	"Income",
	"Food",
	"Clothes",
	"Transport",
	"Entertainment",
	"Student Materials",
	"Other",
	"Expenditure",
	"Net Spend",
	"Net Income",
	"Debt Given",
	"Debt Returned",
	"Debt Not Returned",
}

const (
	mildWarning   = "Be a bit careful with your spending."
	strongWarning = "Be more careful and cautious about your spending."
)

var (
	mildThreshold   = decimal.NewFromInt(50)
	strongThreshold = decimal.NewFromInt(25)
	hundred         = decimal.NewFromInt(100)
)

// WarningLevel grades how much of the monthly budget is left.
type WarningLevel int

const (
	WarningNone WarningLevel = iota
	WarningMild
	WarningStrong
)

// Text is the advice sentence shown for the level, empty for WarningNone.
func (w WarningLevel) Text() string {
	switch w {
	case WarningMild:
		return mildWarning
	case WarningStrong:
		return strongWarning
	default:
		return ""
	}
}

// BudgetWarning grades a remaining-budget percentage: below 25 is strong,
// below 50 is mild, anything else needs no warning.
func BudgetWarning(percentageLeft decimal.Decimal) WarningLevel {
	switch {
	case percentageLeft.LessThan(strongThreshold):
		return WarningStrong
	case percentageLeft.LessThan(mildThreshold):
		return WarningMild
	default:
		return WarningNone
	}
}

// SummaryLine is one labelled cell of a month summary. Raw keeps the cell
// text as the sheet formatted it.
type SummaryLine struct {
	Label  string
	Raw    string
	Amount decimal.Decimal
}

// MonthSummary holds the aggregate block for one month.
type MonthSummary struct {
	Month string
	Lines []SummaryLine
}

// Categories maps each label to its raw cell text. Empty cells read as "0".
func (s MonthSummary) Categories() map[string]string {
	out := make(map[string]string, len(s.Lines))
	for _, l := range s.Lines {
		v := l.Raw
		if v == "" {
			v = "0"
		}
		out[l.Label] = v
	}
	return out
}

// Line returns the line with the given label.
func (s MonthSummary) Line(label string) (SummaryLine, bool) {
	for _, l := range s.Lines {
		if l.Label == label {
			return l, true
		}
	}
	return SummaryLine{}, false
}

// BudgetStatus is the budget record for one month.
type BudgetStatus struct {
	Month          string
	Budget         decimal.Decimal
	BudgetLeft     decimal.Decimal
	PercentageLeft decimal.Decimal
	Level          WarningLevel
}

// NewBudgetStatus derives the percentage and warning level. A zero or
// negative budget yields a percentage of zero.
func NewBudgetStatus(month string, budget, left decimal.Decimal) BudgetStatus {
	pct := decimal.Zero
	if budget.IsPositive() {
		pct = left.Div(budget).Mul(hundred)
	}
	return BudgetStatus{
		Month:          month,
		Budget:         budget,
		BudgetLeft:     left,
		PercentageLeft: pct,
		Level:          BudgetWarning(pct),
	}
}

// Warning is the advice sentence for the status.
func (b BudgetStatus) Warning() string {
	return b.Level.Text()
}

// Percent formats the percentage with two decimals.
func (b BudgetStatus) Percent() string {
	return b.PercentageLeft.StringFixed(2)
}
