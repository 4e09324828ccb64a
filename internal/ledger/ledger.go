// Package ledger implements the state transitions applied to an
// AppState. Every function returns a new snapshot and leaves its input
// untouched, so callers can keep the previous value around.
package ledger

import (
	"strings"

	"github.com/google/uuid"

	"hhsfinance/internal/core"
)

// NewID returns a time-ordered unique identifier.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// AddTransaction builds a transaction from draft and puts it first.
func AddTransaction(s core.AppState, draft core.TransactionDraft, id string) (core.AppState, core.Transaction) {
	t := core.Transaction{
		ID:         id,
		Date:       draft.Date,
		Amount:     draft.Amount,
		Type:       draft.Type,
		CategoryID: draft.CategoryID,
		Note:       draft.Note,
	}
	out := s.Clone()
	out.Transactions = make([]core.Transaction, 0, len(s.Transactions)+1)
	out.Transactions = append(out.Transactions, t)
	out.Transactions = append(out.Transactions, s.Transactions...)
	return out, t
}

// UpdateTransaction replaces the transaction with the same id. Unknown ids
// leave the state as is.
func UpdateTransaction(s core.AppState, t core.Transaction) core.AppState {
	out := s.Clone()
	for i := range out.Transactions {
		if out.Transactions[i].ID == t.ID {
			out.Transactions[i] = t
			break
		}
	}
	return out
}

// DeleteTransaction removes the transaction with the given id.
func DeleteTransaction(s core.AppState, id string) core.AppState {
	out := s.Clone()
	out.Transactions = out.Transactions[:0]
	for _, t := range s.Transactions {
		if t.ID != id {
			out.Transactions = append(out.Transactions, t)
		}
	}
	return out
}

// AddCategory appends c. A category whose id already exists is ignored.
func AddCategory(s core.AppState, c core.Category) core.AppState {
	out := s.Clone()
	if _, exists := s.FindCategory(c.ID); exists {
		return out
	}
	out.Categories = append(out.Categories, c)
	return out
}

// UpdateCategory replaces the category with the same id.
func UpdateCategory(s core.AppState, c core.Category) core.AppState {
	out := s.Clone()
	for i := range out.Categories {
		if out.Categories[i].ID == c.ID {
			out.Categories[i] = c
			break
		}
	}
	return out
}

// DeleteCategory removes the category. Transactions that reference it keep
// the dangling id.
func DeleteCategory(s core.AppState, id string) core.AppState {
	out := s.Clone()
	out.Categories = out.Categories[:0]
	for _, c := range s.Categories {
		if c.ID != id {
			out.Categories = append(out.Categories, c)
		}
	}
	return out
}

// SetCurrency changes the display currency. Blank codes are ignored.
func SetCurrency(s core.AppState, code string) core.AppState {
	out := s.Clone()
	if code = strings.TrimSpace(code); code != "" {
		out.Currency = code
	}
	return out
}
