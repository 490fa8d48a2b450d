package google

import (
	"fmt"
	"strings"
)

// stringRows converts a values matrix as returned by the Sheets API into
// trimmed strings. Row and cell counts are preserved.
func stringRows(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = toStrings(row)
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
