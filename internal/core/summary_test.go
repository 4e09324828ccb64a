package core

import "testing"

func TestSummarize(t *testing.T) {
	s := AppState{
		Currency: "MMK",
		Categories: []Category{
			{ID: "c1", Name: "Salary", Type: Income},
			{ID: "c3", Name: "Food", Type: Expense},
		},
		Transactions: []Transaction{
			{ID: "4", Date: NewDate(2024, 6, 2), Amount: MustMoney("5"), Type: Expense, CategoryID: "c3"},
			{ID: "3", Date: NewDate(2024, 5, 20), Amount: MustMoney("12.5"), Type: Expense, CategoryID: "c3"},
			{ID: "2", Date: NewDate(2024, 5, 10), Amount: MustMoney("3"), Type: Expense, CategoryID: "gone"},
			{ID: "1", Date: NewDate(2024, 5, 1), Amount: MustMoney("100"), Type: Income, CategoryID: "c1"},
		},
	}

	sum := Summarize(s, NewDate(2024, 5, 1), NewDate(2024, 5, 31))
	if sum.Count != 3 {
		t.Fatalf("expected 3 transactions in May, got %d", sum.Count)
	}
	if sum.Income.Format() != "100.00" || sum.Expense.Format() != "15.50" || sum.Balance.Format() != "84.50" {
		t.Fatalf("unexpected totals %+v", sum)
	}
	if len(sum.ByCategory) != 3 {
		t.Fatalf("expected 3 category rows, got %d", len(sum.ByCategory))
	}
	if sum.ByCategory[0].CategoryID != "c1" {
		t.Fatalf("largest category first, got %s", sum.ByCategory[0].CategoryID)
	}
	if sum.ByCategory[2].Name != "gone" {
		t.Fatalf("dangling reference should use raw id, got %q", sum.ByCategory[2].Name)
	}

	all := Summarize(s, Date{}, Date{})
	if all.Count != 4 || all.Currency != "MMK" {
		t.Fatalf("open range should include everything, got %+v", all)
	}
}
