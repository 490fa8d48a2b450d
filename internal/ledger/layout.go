package ledger

import (
	"context"
	"errors"
	"fmt"

	"finbot/internal/sheets"
)

// Fixed addresses of the Budget sheet template. The positional contract is
// shared with the spreadsheet's own formulas and must not drift.
const (
	PointerCell    = "J18"
	SelectorCell   = "I2"
	AggregateRange = "I3:J15"
	BudgetCell     = "J20"
	BudgetRange    = "J20:J21"

	FirstEntryRow = 2
	RowCeiling    = 954

	entryColumns   = 6 // A:F written on append
	listingColumns = 7 // A:G including the computed balance
)

// ErrLayoutMismatch means the sheet returned more rows or columns than the
// template defines for a range, so positional mapping would misread it.
var ErrLayoutMismatch = errors.New("ledger layout mismatch")

// NextRow is the row the next entry is written to, given the stored
// pointer. It never leaves [FirstEntryRow, RowCeiling]; at the ceiling the
// last row is overwritten.
func NextRow(pointer int) int {
	next := min(pointer+1, RowCeiling)
	return max(next, FirstEntryRow)
}

// Layout resolves template addresses on a named sheet.
type Layout struct {
	Sheet string
}

func (l Layout) rng(cells string) string { return sheets.Range(l.Sheet, cells) }

func (l Layout) entryRange(row int) string {
	return l.rng(fmt.Sprintf("A%d:F%d", row, row))
}

func (l Layout) listingRange(last int) string {
	return l.rng(fmt.Sprintf("A%d:G%d", FirstEntryRow, last))
}

// checkShape rejects values that exceed rows x cols.
func checkShape(rng string, values [][]string, rows, cols int) error {
	if len(values) > rows {
		return fmt.Errorf("%w: %s returned %d rows, want at most %d", ErrLayoutMismatch, rng, len(values), rows)
	}
	for i, row := range values {
		if len(row) > cols {
			return fmt.Errorf("%w: %s row %d has %d columns, want at most %d", ErrLayoutMismatch, rng, i+1, len(row), cols)
		}
	}
	return nil
}

// readGrid reads rng and returns exactly rows x cols cells. Cells the API
// omitted come back empty; anything beyond the expected shape is an error.
func readGrid(ctx context.Context, r sheets.CellReader, rng string, rows, cols int) ([][]string, error) {
	values, err := r.ReadRange(ctx, rng)
	if err != nil {
		return nil, err
	}
	if err := checkShape(rng, values, rows, cols); err != nil {
		return nil, err
	}
	grid := make([][]string, rows)
	for i := range grid {
		grid[i] = make([]string, cols)
		if i < len(values) {
			copy(grid[i], values[i])
		}
	}
	return grid, nil
}

func readCell(ctx context.Context, r sheets.CellReader, rng string) (string, error) {
	grid, err := readGrid(ctx, r, rng, 1, 1)
	if err != nil {
		return "", err
	}
	return grid[0][0], nil
}
