package sheets

import (
	"context"
)

// Ports for outbound adapters.
type (
	// CellReader returns the formatted values of an A1 range, row-major.
	// Like the Sheets API, trailing empty cells of a row and trailing empty
	// rows may be omitted, so callers must tolerate short results.
	CellReader interface {
		ReadRange(ctx context.Context, rng string) ([][]string, error)
	}

	// CellWriter writes values into an A1 range as if typed by a user, so
	// numbers and dates are parsed by the spreadsheet.
	CellWriter interface {
		WriteRange(ctx context.Context, rng string, values [][]any) error
	}

	CellStore interface {
		CellReader
		CellWriter
	}
)
