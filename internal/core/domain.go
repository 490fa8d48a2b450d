package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense EntryType = "expense"
	Income  EntryType = "income"
)

// Closed category set. Order matches the tool declaration enum.
const (
	CategoryIncome           Category = "Income"
	CategoryFood             Category = "Food"
	CategoryClothes          Category = "Clothes"
	CategoryTransport        Category = "Transport"
	CategoryEntertainment    Category = "Entertainment"
	CategoryStudentMaterials Category = "Student Materials"
	CategoryDebtGiven        Category = "Debt Given"
	CategoryDebtReturned     Category = "Debt Returned"
	CategoryNonExpense       Category = "Non expense"
	CategoryOther            Category = "Other"
	CategoryUnlisted         Category = "Unlisted"
)

// DateLayout is the dd/mm/yyyy form written to the ledger's date column.
const DateLayout = "02/01/2006"

type (
	EntryType string

	Category string

	// Entry is one ledger row. Balance is only populated when rows are listed
	// back from the sheet, it is computed there.
	Entry struct {
		Month       string          `json:"month"`
		Date        string          `json:"date"`
		Description string          `json:"description"`
		Category    Category        `json:"category"`
		Income      decimal.Decimal `json:"income"`
		Debits      decimal.Decimal `json:"debits"`
		Balance     decimal.Decimal `json:"balance"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount: must not be negative")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidEntryType = errors.New("invalid entry type: must be expense or income")
)

var categories = []Category{
	CategoryIncome,
	CategoryFood,
	CategoryClothes,
	CategoryTransport,
	CategoryEntertainment,
	CategoryStudentMaterials,
	CategoryDebtGiven,
	CategoryDebtReturned,
	CategoryNonExpense,
	CategoryOther,
	CategoryUnlisted,
}

// Categories returns a copy of the closed category set.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// CategoryNames returns the category set as plain strings.
func CategoryNames() []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}

// Valid reports whether c is a member of the closed set.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory trims s and returns the matching category, or Other when s
// is not an exact member of the set.
func ParseCategory(s string) Category {
	c := Category(strings.TrimSpace(s))
	if c.Valid() {
		return c
	}
	return CategoryOther
}

func (t EntryType) Validate() error {
	switch t {
	case Expense, Income:
		return nil
	default:
		return ErrInvalidEntryType
	}
}

// NewEntry builds the row for a new transaction. Exactly one of Income and
// Debits is non-zero.
func NewEntry(t EntryType, amount decimal.Decimal, description string, category Category, month string, at time.Time) Entry {
	e := Entry{
		Month:       month,
		Date:        at.Format(DateLayout),
		Description: description,
		Category:    category,
		Income:      decimal.Zero,
		Debits:      decimal.Zero,
	}
	if t == Income {
		e.Income = amount
	} else {
		e.Debits = amount
	}
	return e
}

// ValidateTransaction checks the fields a caller controls before anything is written.
func ValidateTransaction(t EntryType, amount decimal.Decimal, description string) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

// Cells returns the A:F values for the entry in sheet column order.
func (e Entry) Cells() []any {
	return []any{e.Month, e.Date, e.Description, string(e.Category), e.Income.String(), e.Debits.String()}
}
