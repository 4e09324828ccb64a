package core

var defaultCategories = []Category{
	{ID: "c1", Name: "Salary", Type: Income, Color: "#10b981"},
	{ID: "c2", Name: "Freelance", Type: Income, Color: "#34d399"},
	{ID: "c7", Name: "Saving", Type: Income, Color: "#2dd4bf"},
	{ID: "c8", Name: "Pine", Type: Income, Color: "#ec4899"},
	{ID: "c9", Name: "Han", Type: Income, Color: "#fb923c"},
	{ID: "c3", Name: "Food", Type: Expense, Color: "#f87171"},
	{ID: "c4", Name: "Transport", Type: Expense, Color: "#fbbf24"},
	{ID: "c5", Name: "Utilities", Type: Expense, Color: "#60a5fa"},
	{ID: "c6", Name: "Entertainment", Type: Expense, Color: "#a78bfa"},
	{ID: "c10", Name: "ဝန်ထမ်းလစာ", Type: Expense, Color: "#ef4444"},
	{ID: "c11", Name: "ဈေးဖိုး", Type: Expense, Color: "#f97316"},
	{ID: "c12", Name: "Service_Sparepart", Type: Expense, Color: "#84cc16"},
	{ID: "c13", Name: "မီတာခ", Type: Expense, Color: "#14b8a6"},
	{ID: "c14", Name: "လျှပ်စစ်ပစ္စည်းဝယ်", Type: Expense, Color: "#06b6d4"},
	{ID: "c15", Name: "တန်ဆာခ", Type: Expense, Color: "#3b82f6"},
	{ID: "c16", Name: "ခလေးမုန့်ဖိုး", Type: Expense, Color: "#6366f1"},
	{ID: "c17", Name: "အလှပြင်ပစ္စည်းဝယ်", Type: Expense, Color: "#8b5cf6"},
	{ID: "c18", Name: "Accessories_Company", Type: Expense, Color: "#d946ef"},
	{ID: "c19", Name: "Buy_Handset", Type: Expense, Color: "#f43f5e"},
	{ID: "c20", Name: "‌‌ဆေးခန်း _‌ဆေးဝယ်", Type: Expense, Color: "#ef4444"},
	{ID: "c21", Name: "အခွန်", Type: Expense, Color: "#f59e0b"},
	{ID: "c22", Name: "BuySecondHandset", Type: Expense, Color: "#10b981"},
	{ID: "c23", Name: "မနက်စာ", Type: Expense, Color: "#0ea5e9"},
	{ID: "c24", Name: "လူမှု့ရေး", Type: Expense, Color: "#818cf8"},
	{ID: "c25", Name: "အလှူခံ", Type: Expense, Color: "#a855f7"},
	{ID: "c26", Name: "ASM", Type: Expense, Color: "#ec4899"},
	{ID: "c27", Name: "B2B", Type: Expense, Color: "#64748b"},
	{ID: "c28", Name: "NweNweWin", Type: Expense, Color: "#78716c"},
	{ID: "c29", Name: "KoWaiYan", Type: Expense, Color: "#dc2626"},
	{ID: "c30", Name: "MSN", Type: Expense, Color: "#ea580c"},
	{ID: "c31", Name: "Popular_Cover", Type: Expense, Color: "#d97706"},
	{ID: "c32", Name: "HOCO", Type: Expense, Color: "#65a30d"},
	{ID: "c33", Name: "REMAX", Type: Expense, Color: "#059669"},
	{ID: "c34", Name: "SKY_HELDEN", Type: Expense, Color: "#0891b2"},
	{ID: "c35", Name: "KS", Type: Expense, Color: "#2563eb"},
	{ID: "c36", Name: "OoPoppi", Type: Expense, Color: "#4f46e5"},
	{ID: "c37", Name: "Daw_Khan_Yin", Type: Expense, Color: "#7c3aed"},
	{ID: "c38", Name: "ဆီဖိုး", Type: Expense, Color: "#c026d3"},
	{ID: "c39", Name: "စာ‌ရေးကိရိယာ", Type: Expense, Color: "#db2777"},
	{ID: "c40", Name: "‌‌‌ရေဘူး", Type: Expense, Color: "#e11d48"},
	{ID: "c41", Name: "K_PAY", Type: Expense, Color: "#f87171"},
	{ID: "c42", Name: "ချိုရည်", Type: Expense, Color: "#fbbf24"},
	{ID: "c43", Name: "ကျူရှင်လခ", Type: Expense, Color: "#4ade80"},
	{ID: "c44", Name: "Wifi", Type: Expense, Color: "#60a5fa"},
}

// DefaultCategories returns a fresh copy of the seed categories.
func DefaultCategories() []Category {
	out := make([]Category, len(defaultCategories))
	copy(out, defaultCategories)
	return out
}

// Currency is an entry of the supported currency list.
type Currency struct {
	Code   string
	Symbol string
	Name   string
}

var Currencies = []Currency{
	{Code: "USD", Symbol: "$", Name: "US Dollar"},
	{Code: "MMK", Symbol: "Ks", Name: "Myanmar Kyat"},
	{Code: "EUR", Symbol: "€", Name: "Euro"},
	{Code: "GBP", Symbol: "£", Name: "British Pound"},
	{Code: "SGD", Symbol: "S$", Name: "Singapore Dollar"},
	{Code: "THB", Symbol: "฿", Name: "Thai Baht"},
}

// LookupCurrency finds a supported currency by code.
func LookupCurrency(code string) (Currency, bool) {
	for _, c := range Currencies {
		if c.Code == code {
			return c, true
		}
	}
	return Currency{}, false
}
