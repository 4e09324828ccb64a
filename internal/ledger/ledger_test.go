package ledger

import (
	"testing"

	"hhsfinance/internal/core"
)

func sampleState() core.AppState {
	return core.AppState{
		Transactions: []core.Transaction{},
		Categories: []core.Category{
			{ID: "c1", Name: "Salary", Type: core.Income},
			{ID: "c3", Name: "Food", Type: core.Expense},
		},
		Currency: "USD",
	}
}

func lunch() core.TransactionDraft {
	return core.TransactionDraft{
		Date:       core.NewDate(2024, 5, 1),
		Amount:     core.MustMoney("12.50"),
		Type:       core.Expense,
		CategoryID: "c3",
		Note:       "lunch",
	}
}

func TestAddTransactionPrepends(t *testing.T) {
	s := sampleState()
	s, first := AddTransaction(s, lunch(), "1")
	s, second := AddTransaction(s, lunch(), "2")

	if len(s.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(s.Transactions))
	}
	if s.Transactions[0].ID != second.ID || s.Transactions[1].ID != first.ID {
		t.Fatalf("newest must be first, got %s,%s", s.Transactions[0].ID, s.Transactions[1].ID)
	}
}

func TestAddThenDeleteRestoresState(t *testing.T) {
	before := sampleState()
	after, tx := AddTransaction(before, lunch(), NewID())
	restored := DeleteTransaction(after, tx.ID)
	if !restored.Equal(before) {
		t.Fatalf("expected original state back, got %+v", restored)
	}
}

func TestInputNotMutated(t *testing.T) {
	s, tx := AddTransaction(sampleState(), lunch(), "1")
	snapshot := s.Clone()

	changed := tx
	changed.Note = "dinner"
	_ = UpdateTransaction(s, changed)
	_ = DeleteTransaction(s, "1")
	_ = DeleteCategory(s, "c1")
	_ = UpdateCategory(s, core.Category{ID: "c3", Name: "Groceries", Type: core.Expense})
	_ = SetCurrency(s, "MMK")

	if !s.Equal(snapshot) {
		t.Fatalf("input state was mutated: %+v", s)
	}
}

func TestUpdateMissingIsNoop(t *testing.T) {
	s, _ := AddTransaction(sampleState(), lunch(), "1")
	got := UpdateTransaction(s, core.Transaction{ID: "missing", Note: "x"})
	if !got.Equal(s) {
		t.Fatalf("expected unchanged state")
	}
	got = DeleteTransaction(s, "missing")
	if !got.Equal(s) {
		t.Fatalf("expected unchanged state")
	}
}

func TestUpdateTransaction(t *testing.T) {
	s, tx := AddTransaction(sampleState(), lunch(), "1")
	tx.Amount = core.MustMoney("15")
	s = UpdateTransaction(s, tx)
	if !s.Transactions[0].Amount.Equal(core.MustMoney("15")) {
		t.Fatalf("amount not updated: %s", s.Transactions[0].Amount)
	}
}

func TestCategories(t *testing.T) {
	s := sampleState()
	s = AddCategory(s, core.Category{ID: "x1", Name: "Books", Type: core.Expense, IsCustom: true})
	if len(s.Categories) != 3 || s.Categories[2].ID != "x1" {
		t.Fatalf("category should be appended, got %+v", s.Categories)
	}

	dup := AddCategory(s, core.Category{ID: "x1", Name: "Other", Type: core.Income})
	if len(dup.Categories) != 3 || dup.Categories[2].Name != "Books" {
		t.Fatalf("duplicate id must be ignored, got %+v", dup.Categories)
	}

	s = UpdateCategory(s, core.Category{ID: "x1", Name: "Novels", Type: core.Expense})
	if s.Categories[2].Name != "Novels" {
		t.Fatalf("update failed: %+v", s.Categories[2])
	}

	s, _ = AddTransaction(s, core.TransactionDraft{Date: core.NewDate(2024, 1, 1), Amount: core.MustMoney("1"), Type: core.Expense, CategoryID: "x1"}, "t1")
	s = DeleteCategory(s, "x1")
	if _, ok := s.FindCategory("x1"); ok {
		t.Fatal("category still present")
	}
	if s.Transactions[0].CategoryID != "x1" {
		t.Fatal("transactions keep their dangling category reference")
	}
}

func TestSetCurrency(t *testing.T) {
	s := SetCurrency(sampleState(), "MMK")
	if s.Currency != "MMK" {
		t.Fatalf("got %s", s.Currency)
	}
	if SetCurrency(s, "  ").Currency != "MMK" {
		t.Fatal("blank code must be ignored")
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestScenarioAddLunch(t *testing.T) {
	s := core.AppState{
		Transactions: []core.Transaction{},
		Categories: []core.Category{
			{ID: "c1", Name: "Salary", Type: core.Income},
			{ID: "c3", Name: "Food", Type: core.Expense},
		},
		Currency: "USD",
	}
	s, tx := AddTransaction(s, lunch(), NewID())
	if len(s.Transactions) != 1 || s.Transactions[0].ID != tx.ID {
		t.Fatalf("unexpected transactions %+v", s.Transactions)
	}
	got := s.Transactions[0]
	if got.Date.String() != "2024-05-01" || got.Amount.Format() != "12.50" || got.CategoryID != "c3" || got.Note != "lunch" {
		t.Fatalf("unexpected transaction %+v", got)
	}
	if len(s.Categories) != 2 || s.Currency != "USD" {
		t.Fatal("categories and currency must be untouched")
	}
}
