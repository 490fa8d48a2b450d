package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventEntryAdded EventKind = "entry_added"
	EventBudgetSet  EventKind = "budget_set"
)

// EventKind names a ledger mutation.
type EventKind string

// LedgerEvent records one successful mutation of the ledger. Events are an
// outbound audit trail, nothing reads them back into the ledger.
type LedgerEvent struct {
	ID          string          `json:"id"`
	Kind        EventKind       `json:"kind"`
	Row         int             `json:"row,omitempty"`
	Type        EntryType       `json:"type,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Category    Category        `json:"category,omitempty"`
	Month       string          `json:"month"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// NewEntryAddedEvent describes an appended row.
func NewEntryAddedEvent(row int, t EntryType, amount decimal.Decimal, e Entry, at time.Time) LedgerEvent {
	return LedgerEvent{
		ID:          uuid.NewString(),
		Kind:        EventEntryAdded,
		Row:         row,
		Type:        t,
		Amount:      amount,
		Description: e.Description,
		Category:    e.Category,
		Month:       e.Month,
		OccurredAt:  at,
	}
}

// NewBudgetSetEvent describes a budget change for month.
func NewBudgetSetEvent(amount decimal.Decimal, month string, at time.Time) LedgerEvent {
	return LedgerEvent{
		ID:         uuid.NewString(),
		Kind:       EventBudgetSet,
		Amount:     amount,
		Month:      month,
		OccurredAt: at,
	}
}
