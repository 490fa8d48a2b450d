package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"finbot/internal/core"
)

const wordWrap = 80

// RenderMarkdown renders md for a terminal. Plain output is used when no
// style is wanted, for example when stdout is not a terminal.
func RenderMarkdown(md string, styled bool) (string, error) {
	if !styled {
		return md, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

// HistoryTable formats journal events as a markdown table, newest first.
func HistoryTable(events []core.LedgerEvent) string {
	if len(events) == 0 {
		return "_No ledger events journaled yet._\n"
	}

	var b strings.Builder
	b.WriteString("| When | Event | Month | Row | Type | Amount | Description | Category |\n")
	b.WriteString("|---|---|---|---|---|---:|---|---|\n")
	for _, e := range events {
		row := ""
		if e.Row > 0 {
			row = fmt.Sprint(e.Row)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			e.OccurredAt.Format("2006-01-02 15:04"),
			e.Kind,
			e.Month,
			row,
			e.Type,
			e.Amount.StringFixed(2),
			escapeCell(e.Description),
			e.Category,
		)
	}
	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
