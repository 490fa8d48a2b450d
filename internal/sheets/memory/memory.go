// Package memory is an in-process stand-in for the Budget spreadsheet. It
// keeps plain cells in a map and recomputes the template's formula cells on
// every read, which is enough to run the ledger without Google credentials.
package memory

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
	"finbot/internal/sheets"
)

// Template cells. Columns are 1-based (A=1).
const (
	colMonth    = 1
	colDate     = 2
	colDesc     = 3
	colCategory = 4
	colIncome   = 5
	colDebits   = 6
	colBalance  = 7
	colLabel    = 9  // I
	colValue    = 10 // J

	rowSelector  = 2
	rowAggFirst  = 3
	rowAggLast   = 15
	rowPointer   = 18
	rowBudget    = 20
	rowRemaining = 21

	lastDataRow = 954
)

var (
	ErrUnknownSheet = errors.New("unknown sheet")
	ErrFormulaCell  = errors.New("cell holds a formula")
	ErrShape        = errors.New("values do not fit range")
)

var header = []string{"Month", "Date", "Description", "Category", "Income", "Debits", "Balance"}

type cellKey struct{ col, row int }

// Store emulates one sheet of the Budget template.
type Store struct {
	mu       sync.Mutex
	sheet    string
	currency string
	cells    map[cellKey]string
}

// New returns an empty template: headers, labels, pointer on the header row,
// current month selected and no budget.
func New(sheet, currency string) *Store {
	if currency == "" {
		currency = core.DefaultCurrency
	}
	s := &Store{sheet: sheet, currency: currency, cells: map[cellKey]string{}}
	for i, h := range header {
		s.cells[cellKey{i + 1, 1}] = h
	}
	for i, l := range core.SummaryLabels {
		s.cells[cellKey{colLabel, rowAggFirst + i}] = l
	}
	s.cells[cellKey{colLabel, rowPointer}] = "Last row"
	s.cells[cellKey{colValue, rowPointer}] = "1"
	s.cells[cellKey{colLabel, rowBudget}] = "Budget"
	s.cells[cellKey{colLabel, rowRemaining}] = "Budget left"
	return s
}

// NewFromFile seeds a template from a pipe separated file with one entry per
// line: month|date|description|category|income|debits. A line "budget|N"
// sets the budget cell. Blank lines and # comments are skipped; a missing
// file yields an empty template.
func NewFromFile(sheet, currency, path string) *Store {
	s := New(sheet, currency)
	if path == "" {
		return s
	}
	row := 1
	for _, line := range readLines(path) {
		parts := strings.Split(line, "|")
		if len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[0]), "budget") {
			s.cells[cellKey{colValue, rowBudget}] = strings.TrimSpace(parts[1])
			continue
		}
		if len(parts) != 6 || row >= lastDataRow {
			continue
		}
		row++
		for i, p := range parts {
			s.cells[cellKey{i + 1, row}] = strings.TrimSpace(p)
		}
	}
	s.cells[cellKey{colValue, rowPointer}] = fmt.Sprint(row)
	return s
}

// ReadRange returns the displayed values of rng with trailing blanks
// trimmed, the way the Sheets API reports them.
func (s *Store) ReadRange(_ context.Context, rng string) ([][]string, error) {
	rect, err := s.rect(rng)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]string, 0, rect.Rows())
	for r := rect.Row0; r <= rect.Row1; r++ {
		row := make([]string, 0, rect.Cols())
		for c := rect.Col0; c <= rect.Col1; c++ {
			row = append(row, s.value(c, r))
		}
		for len(row) > 0 && row[len(row)-1] == "" {
			row = row[:len(row)-1]
		}
		out = append(out, row)
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

// WriteRange stores values into rng. Writing over a formula cell fails.
func (s *Store) WriteRange(_ context.Context, rng string, values [][]any) error {
	rect, err := s.rect(rng)
	if err != nil {
		return err
	}
	if len(values) > rect.Rows() {
		return fmt.Errorf("%w: %d rows into %s", ErrShape, len(values), rng)
	}
	for _, row := range values {
		if len(row) > rect.Cols() {
			return fmt.Errorf("%w: %d columns into %s", ErrShape, len(row), rng)
		}
	}
	for i, row := range values {
		for j := range row {
			if isFormula(rect.Col0+j, rect.Row0+i) {
				return fmt.Errorf("%w: %s", ErrFormulaCell, sheets.Cell(rect.Col0+j, rect.Row0+i))
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range values {
		for j, v := range row {
			k := cellKey{rect.Col0 + j, rect.Row0 + i}
			if v == nil {
				delete(s.cells, k)
				continue
			}
			s.cells[k] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return nil
}

func (s *Store) rect(rng string) (sheets.Rect, error) {
	name, rect, err := sheets.ParseRange(rng)
	if err != nil {
		return sheets.Rect{}, err
	}
	if name != s.sheet {
		return sheets.Rect{}, fmt.Errorf("%w: %q", ErrUnknownSheet, name)
	}
	return rect, nil
}

func isFormula(col, row int) bool {
	switch {
	case col == colBalance && row >= 2:
		return true
	case col == colValue && row >= rowAggFirst && row <= rowAggLast:
		return true
	case col == colValue && row == rowRemaining:
		return true
	}
	return false
}

// value must be called with s.mu held.
func (s *Store) value(col, row int) string {
	switch {
	case col == colBalance && row >= 2:
		return s.balance(row)
	case col == colValue && row >= rowAggFirst && row <= rowAggLast:
		return s.money(s.aggregates()[row-rowAggFirst])
	case col == colValue && row == rowRemaining:
		if _, ok := s.cells[cellKey{colValue, rowBudget}]; !ok {
			return ""
		}
		budget := core.ParseLooseNumber(s.cells[cellKey{colValue, rowBudget}])
		return s.money(budget.Sub(s.aggregates()[7]))
	}
	return s.cells[cellKey{col, row}]
}

func (s *Store) money(d decimal.Decimal) string {
	return core.FormatMoney(d, s.currency)
}

func (s *Store) hasEntry(row int) bool {
	for c := colMonth; c <= colDebits; c++ {
		if s.cells[cellKey{c, row}] != "" {
			return true
		}
	}
	return false
}

func (s *Store) balance(row int) string {
	if !s.hasEntry(row) {
		return ""
	}
	total := decimal.Zero
	for r := 2; r <= row; r++ {
		total = total.Add(s.num(colIncome, r)).Sub(s.num(colDebits, r))
	}
	return s.money(total)
}

func (s *Store) num(col, row int) decimal.Decimal {
	return core.ParseLooseNumber(s.cells[cellKey{col, row}])
}

// aggregates computes the I3:J15 block for the selected month, in
// core.SummaryLabels order.
func (s *Store) aggregates() []decimal.Decimal {
	selected := strings.TrimSpace(s.cells[cellKey{colLabel, rowSelector}])
	var income, debtGiven, debtReturned decimal.Decimal
	spend := map[core.Category]decimal.Decimal{}
	for r := 2; r <= lastDataRow; r++ {
		if !s.hasEntry(r) || strings.TrimSpace(s.cells[cellKey{colMonth, r}]) != selected {
			continue
		}
		cat := core.Category(s.cells[cellKey{colCategory, r}])
		in, out := s.num(colIncome, r), s.num(colDebits, r)
		switch cat {
		case core.CategoryDebtGiven:
			debtGiven = debtGiven.Add(out)
		case core.CategoryDebtReturned:
			debtReturned = debtReturned.Add(in)
		case core.CategoryNonExpense:
		default:
			income = income.Add(in)
			if out.IsPositive() {
				if cat == core.CategoryIncome || !cat.Valid() || cat == core.CategoryUnlisted {
					cat = core.CategoryOther
				}
				spend[cat] = spend[cat].Add(out)
			}
		}
	}
	tracked := []core.Category{
		core.CategoryFood, core.CategoryClothes, core.CategoryTransport,
		core.CategoryEntertainment, core.CategoryStudentMaterials, core.CategoryOther,
	}
	expenditure := decimal.Zero
	out := []decimal.Decimal{income}
	for _, c := range tracked {
		out = append(out, spend[c])
		expenditure = expenditure.Add(spend[c])
	}
	notReturned := debtGiven.Sub(debtReturned)
	netSpend := expenditure.Add(notReturned)
	return append(out,
		expenditure,
		netSpend,
		income.Sub(netSpend),
		debtGiven,
		debtReturned,
		notReturned,
	)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
