package core

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

var monthNumbers = map[string]string{
	"january":   "1",
	"february":  "2",
	"march":     "3",
	"april":     "4",
	"may":       "5",
	"june":      "6",
	"july":      "7",
	"august":    "8",
	"september": "9",
	"october":   "10",
	"november":  "11",
	"december":  "12",
}

var monthFolder = cases.Fold()

// CurrentMonth returns now's month as "1".."12".
func CurrentMonth(now time.Time) string {
	return strconv.Itoa(int(now.Month()))
}

// ParseMonth maps a full English month name (any case) to "1".."12".
// Numeric or unrecognised input is returned unchanged; empty input resolves
// to the month of now.
func ParseMonth(s string, now time.Time) string {
	if s == "" {
		return CurrentMonth(now)
	}
	if n, ok := monthNumbers[monthFolder.String(strings.TrimSpace(s))]; ok {
		return n
	}
	return s
}
