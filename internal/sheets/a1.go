package sheets

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidRange = errors.New("invalid A1 range")

// Rect is an inclusive, 1-based cell rectangle.
type Rect struct {
	Col0, Row0 int
	Col1, Row1 int
}

// Rows is the number of rows spanned by r.
func (r Rect) Rows() int { return r.Row1 - r.Row0 + 1 }

// Cols is the number of columns spanned by r.
func (r Rect) Cols() int { return r.Col1 - r.Col0 + 1 }

// Range joins a sheet name and a cell reference, e.g. Range("Budget", "J18")
// is "Budget!J18". Names with spaces are quoted.
func Range(sheet, cells string) string {
	if sheet == "" {
		return cells
	}
	if strings.ContainsAny(sheet, " '!") {
		sheet = "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return sheet + "!" + cells
}

// ParseRange splits "Sheet!A2:G10" into its sheet name and rectangle. A
// single cell reference yields a one-cell rectangle.
func ParseRange(a1 string) (string, Rect, error) {
	sheet, cells := "", a1
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		sheet, cells = a1[:i], a1[i+1:]
		if strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") && len(sheet) >= 2 {
			sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
		}
	}
	from, to, found := strings.Cut(cells, ":")
	if !found {
		to = from
	}
	c0, r0, err := ParseCell(from)
	if err != nil {
		return "", Rect{}, fmt.Errorf("%w: %q", ErrInvalidRange, a1)
	}
	c1, r1, err := ParseCell(to)
	if err != nil {
		return "", Rect{}, fmt.Errorf("%w: %q", ErrInvalidRange, a1)
	}
	if c1 < c0 || r1 < r0 {
		return "", Rect{}, fmt.Errorf("%w: %q", ErrInvalidRange, a1)
	}
	return sheet, Rect{Col0: c0, Row0: r0, Col1: c1, Row1: r1}, nil
}

// ParseCell converts a reference like "J18" to 1-based column and row.
func ParseCell(ref string) (col, row int, err error) {
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		col = col*26 + int(ref[i]-'A'+1)
		i++
	}
	if i == 0 || i == len(ref) {
		return 0, 0, ErrInvalidRange
	}
	row, err = strconv.Atoi(ref[i:])
	if err != nil || row < 1 {
		return 0, 0, ErrInvalidRange
	}
	return col, row, nil
}

// Cell formats a 1-based column and row as an A1 reference.
func Cell(col, row int) string {
	return ColumnName(col) + strconv.Itoa(row)
}

// ColumnName converts a 1-based column index to letters, 1 -> A, 27 -> AA.
func ColumnName(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}
