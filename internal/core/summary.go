package core

import "sort"

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID string          `json:"categoryId"`
	Name       string          `json:"name"`
	Type       TransactionType `json:"type"`
	Amount     Money           `json:"amount"`
}

// Summary is the dashboard view of a date range.
type Summary struct {
	From       Date             `json:"from"`
	To         Date             `json:"to"`
	Currency   string           `json:"currency"`
	Income     Money            `json:"income"`
	Expense    Money            `json:"expense"`
	Balance    Money            `json:"balance"`
	Count      int              `json:"count"`
	ByCategory []CategoryAmount `json:"byCategory"`
}

// Summarize aggregates the transactions dated within [from, to]. A zero
// bound leaves that side open. Transactions pointing at a deleted category
// are grouped under their raw id.
func Summarize(s AppState, from, to Date) Summary {
	sum := Summary{From: from, To: to, Currency: s.Currency}
	totals := map[string]*CategoryAmount{}
	for _, t := range s.Transactions {
		if !from.IsZero() && t.Date.Before(from.Time) {
			continue
		}
		if !to.IsZero() && t.Date.After(to.Time) {
			continue
		}
		sum.Count++
		switch t.Type {
		case Income:
			sum.Income = sum.Income.Add(t.Amount)
		case Expense:
			sum.Expense = sum.Expense.Add(t.Amount)
		}
		ca, ok := totals[t.CategoryID]
		if !ok {
			ca = &CategoryAmount{CategoryID: t.CategoryID, Name: t.CategoryID, Type: t.Type}
			if c, found := s.FindCategory(t.CategoryID); found {
				ca.Name = c.Name
				ca.Type = c.Type
			}
			totals[t.CategoryID] = ca
		}
		ca.Amount = ca.Amount.Add(t.Amount)
	}
	sum.Balance = sum.Income.Sub(sum.Expense)
	sum.ByCategory = make([]CategoryAmount, 0, len(totals))
	for _, ca := range totals {
		sum.ByCategory = append(sum.ByCategory, *ca)
	}
	sort.Slice(sum.ByCategory, func(i, j int) bool {
		a, b := sum.ByCategory[i], sum.ByCategory[j]
		if c := a.Amount.Cmp(b.Amount.Decimal); c != 0 {
			return c > 0
		}
		return a.CategoryID < b.CategoryID
	})
	return sum
}
