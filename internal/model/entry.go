// Package model defines the core domain types for the cascade application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind indicates whether a ledger entry is income or an expense.
type EntryKind string

const (
	// KindIncome represents money coming in.
	KindIncome EntryKind = "income"
	// KindExpense represents money going out.
	KindExpense EntryKind = "expense"
)

// Entry represents a single immutable ledger record for an owner.
type Entry struct {
	Date      time.Time
	CreatedAt time.Time
	Owner     string
	Kind      EntryKind
	Name      string
	Category  string
	Amount    decimal.Decimal
	ID        int64
}
