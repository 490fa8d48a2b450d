package cli

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finbot/internal/config"
	"finbot/internal/core"
	"finbot/internal/log"
)

func TestHistoryTable(t *testing.T) {
	at := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	amount := decimal.RequireFromString("250")
	entry := core.NewEntry(core.Expense, amount, "pizza | drinks", core.CategoryFood, "3", at)

	table := HistoryTable([]core.LedgerEvent{
		core.NewEntryAddedEvent(4, core.Expense, amount, entry, at),
		core.NewBudgetSetEvent(decimal.NewFromInt(5000), "3", at),
	})

	lines := strings.Split(strings.TrimSpace(table), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `| 2024-03-15 09:30 | entry_added | 3 | 4 | expense | 250.00 | pizza \| drinks | Food |`, lines[2])
	assert.Equal(t, `| 2024-03-15 09:30 | budget_set | 3 |  |  | 5000.00 |  |  |`, lines[3])
}

func TestHistoryTableEmpty(t *testing.T) {
	assert.Contains(t, HistoryTable(nil), "No ledger events")
}

func TestRenderMarkdown(t *testing.T) {
	plain, err := RenderMarkdown("**Added** expense", false)
	require.NoError(t, err)
	assert.Equal(t, "**Added** expense", plain)

	styled, err := RenderMarkdown("**Added** expense", true)
	require.NoError(t, err)
	assert.Contains(t, styled, "Added")
}

func TestLoadConfigRunsValidation(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")

	_, err := LoadConfig(func(c *config.Config) error { return c.Validate() })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	_, err = SetupLogger(cfg)
	assert.Error(t, err)
}

func TestOpenJournal(t *testing.T) {
	j, err := OpenJournal(log.Discard(), filepath.Join(t.TempDir(), "j.db"))
	require.NoError(t, err)
	assert.NoError(t, j.Close())
}
