// Package core holds the finance domain types shared by every layer:
// transactions, categories, the application state snapshot and the
// backup envelope exchanged with sync backends.
package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	English Language = "en"
	Myanmar Language = "my"
)

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// DefaultCurrency is used whenever a snapshot carries no currency code.
const DefaultCurrency = "USD"

const dateLayout = "2006-01-02"

type (
	TransactionType string
	Language        string
	Theme           string

	// Date is a calendar day. It serializes as YYYY-MM-DD.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID         string          `json:"id"`
		Date       Date            `json:"date"`
		Amount     Money           `json:"amount"`
		Type       TransactionType `json:"type"`
		CategoryID string          `json:"categoryId"`
		Note       string          `json:"note"`
	}

	// TransactionDraft is a transaction before an id is assigned.
	TransactionDraft struct {
		Date       Date
		Amount     Money
		Type       TransactionType
		CategoryID string
		Note       string
	}

	Category struct {
		ID       string          `json:"id"`
		Name     string          `json:"name"`
		Type     TransactionType `json:"type"`
		Color    string          `json:"color,omitempty"`
		IsCustom bool            `json:"isCustom,omitempty"`
	}

	// AppState is the unit of truth. Transactions are kept newest first,
	// categories in insertion order.
	AppState struct {
		Transactions []Transaction `json:"transactions"`
		Categories   []Category    `json:"categories"`
		Currency     string        `json:"currency"`
	}

	Settings struct {
		Language Language `json:"lang"`
		IsDark   bool     `json:"isDark"`
	}

	Metadata struct {
		Version     string    `json:"version"`
		Timestamp   time.Time `json:"timestamp"`
		Description string    `json:"description"`
	}

	// BackupData is the full backup envelope.
	BackupData struct {
		AppState AppState `json:"appState"`
		Settings Settings `json:"settings"`
		Metadata Metadata `json:"metadata"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyID         = errors.New("empty id")
	ErrEmptyName       = errors.New("empty category name")
	ErrEmptyCategoryID = errors.New("empty category id")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, ErrInvalidDate
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ErrInvalidDate
	}
	s = s[1 : len(s)-1]
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (l Language) Valid() bool {
	return l == English || l == Myanmar
}

func (d TransactionDraft) Validate() error {
	if err := d.Date.Validate(); err != nil {
		return err
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if !d.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(d.CategoryID) == "" {
		return ErrEmptyCategoryID
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	return t.Draft().Validate()
}

// Draft strips the id.
func (t Transaction) Draft() TransactionDraft {
	return TransactionDraft{
		Date:       t.Date,
		Amount:     t.Amount,
		Type:       t.Type,
		CategoryID: t.CategoryID,
		Note:       t.Note,
	}
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

// FindCategory returns the category with the given id.
func (s AppState) FindCategory(id string) (Category, bool) {
	for _, c := range s.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// FindTransaction returns the transaction with the given id.
func (s AppState) FindTransaction(id string) (Transaction, bool) {
	for _, t := range s.Transactions {
		if t.ID == id {
			return t, true
		}
	}
	return Transaction{}, false
}

// Normalize applies the fallbacks used whenever a snapshot enters the
// application from outside: missing transactions become an empty list,
// missing categories the default seed, missing currency USD.
func Normalize(s AppState) AppState {
	out := AppState{
		Transactions: s.Transactions,
		Categories:   s.Categories,
		Currency:     strings.TrimSpace(s.Currency),
	}
	if out.Transactions == nil {
		out.Transactions = []Transaction{}
	}
	if len(out.Categories) == 0 {
		out.Categories = DefaultCategories()
	}
	if out.Currency == "" {
		out.Currency = DefaultCurrency
	}
	return out
}

// DefaultState is the state of a fresh install.
func DefaultState() AppState {
	return AppState{
		Transactions: []Transaction{},
		Categories:   DefaultCategories(),
		Currency:     DefaultCurrency,
	}
}

// DefaultSettings is English, light theme.
func DefaultSettings() Settings {
	return Settings{Language: English}
}

// Equal compares field by field; amounts compare by value.
func (t Transaction) Equal(o Transaction) bool {
	return t.ID == o.ID &&
		t.Date.Equal(o.Date.Time) &&
		t.Amount.Equal(o.Amount) &&
		t.Type == o.Type &&
		t.CategoryID == o.CategoryID &&
		t.Note == o.Note
}

// Equal reports whether both snapshots hold the same data in the same order.
func (s AppState) Equal(o AppState) bool {
	if s.Currency != o.Currency ||
		len(s.Transactions) != len(o.Transactions) ||
		len(s.Categories) != len(o.Categories) {
		return false
	}
	for i := range s.Transactions {
		if !s.Transactions[i].Equal(o.Transactions[i]) {
			return false
		}
	}
	for i := range s.Categories {
		if s.Categories[i] != o.Categories[i] {
			return false
		}
	}
	return true
}

// Clone copies the slices so the result can be handed out safely.
func (s AppState) Clone() AppState {
	out := AppState{Currency: s.Currency}
	out.Transactions = make([]Transaction, len(s.Transactions))
	copy(out.Transactions, s.Transactions)
	out.Categories = make([]Category, len(s.Categories))
	copy(out.Categories, s.Categories)
	return out
}
