package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"hhsfinance/internal/cli"
	"hhsfinance/internal/core"
)

func parseType(s string) (core.TransactionType, error) {
	t := core.TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q (want income or expense)", core.ErrInvalidType, s)
	}
	return t, nil
}

// parseOptionalDate returns the zero Date for an empty flag.
func parseOptionalDate(name, s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid -%s %q: expected YYYY-MM-DD", name, s)
	}
	return d, nil
}

func categoryName(s core.AppState, id string) string {
	if c, ok := s.FindCategory(id); ok {
		return c.Name
	}
	return id
}

func requireFlag(fs *flag.FlagSet, name, value string) error {
	if strings.TrimSpace(value) == "" {
		fs.Usage()
		return fmt.Errorf("-%s is required", name)
	}
	return nil
}

func runAdd(e *env, args []string) error {
	fs := e.flagSet("add")
	date := fs.String("date", today(), "Transaction date (YYYY-MM-DD)")
	amount := fs.String("amount", "", "Non-negative amount, e.g. 12.50")
	typ := fs.String("type", string(core.Expense), "income or expense")
	category := fs.String("category", "", "Category id")
	note := fs.String("note", "", "Optional note")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag(fs, "amount", *amount); err != nil {
		return err
	}
	if err := requireFlag(fs, "category", *category); err != nil {
		return err
	}

	d, err := core.ParseDate(*date)
	if err != nil {
		return fmt.Errorf("invalid -date %q: expected YYYY-MM-DD", *date)
	}
	m, err := core.ParseAmount(*amount)
	if err != nil {
		return fmt.Errorf("invalid -amount %q: %w", *amount, err)
	}
	t, err := parseType(*typ)
	if err != nil {
		return err
	}

	return e.withApp(func(app *cli.App) error {
		if _, ok := app.Reconciler.State().FindCategory(*category); !ok {
			app.Logger.Warn("Category not found, transaction kept under its raw id", "category_id", *category)
		}
		tx, err := app.Reconciler.AddTransaction(e.ctx, core.TransactionDraft{
			Date:       d,
			Amount:     m,
			Type:       t,
			CategoryID: *category,
			Note:       *note,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, tx.ID)
		return nil
	})
}

func runUpdate(e *env, args []string) error {
	fs := e.flagSet("update")
	id := fs.String("id", "", "Transaction id")
	date := fs.String("date", "", "New date (YYYY-MM-DD)")
	amount := fs.String("amount", "", "New amount")
	typ := fs.String("type", "", "New type (income or expense)")
	category := fs.String("category", "", "New category id")
	note := fs.String("note", "", "New note")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag(fs, "id", *id); err != nil {
		return err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	return e.withApp(func(app *cli.App) error {
		tx, ok := app.Reconciler.State().FindTransaction(*id)
		if !ok {
			return fmt.Errorf("transaction %s not found", *id)
		}
		if set["date"] {
			d, err := core.ParseDate(*date)
			if err != nil {
				return fmt.Errorf("invalid -date %q: expected YYYY-MM-DD", *date)
			}
			tx.Date = d
		}
		if set["amount"] {
			m, err := core.ParseAmount(*amount)
			if err != nil {
				return fmt.Errorf("invalid -amount %q: %w", *amount, err)
			}
			tx.Amount = m
		}
		if set["type"] {
			t, err := parseType(*typ)
			if err != nil {
				return err
			}
			tx.Type = t
		}
		if set["category"] {
			tx.CategoryID = *category
		}
		if set["note"] {
			tx.Note = *note
		}
		if err := app.Reconciler.UpdateTransaction(e.ctx, tx); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Updated %s\n", tx.ID)
		return nil
	})
}

func runDelete(e *env, args []string) error {
	fs := e.flagSet("delete")
	id := fs.String("id", "", "Transaction id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag(fs, "id", *id); err != nil {
		return err
	}

	return e.withApp(func(app *cli.App) error {
		if _, ok := app.Reconciler.State().FindTransaction(*id); !ok {
			return fmt.Errorf("transaction %s not found", *id)
		}
		if err := app.Reconciler.DeleteTransaction(e.ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Deleted %s\n", *id)
		return nil
	})
}

func runList(e *env, args []string) error {
	fs := e.flagSet("list")
	fromStr := fs.String("from", "", "First day (YYYY-MM-DD)")
	toStr := fs.String("to", "", "Last day (YYYY-MM-DD)")
	typ := fs.String("type", "", "Only income or expense")
	limit := fs.Int("limit", 0, "Maximum rows, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	from, err := parseOptionalDate("from", *fromStr)
	if err != nil {
		return err
	}
	to, err := parseOptionalDate("to", *toStr)
	if err != nil {
		return err
	}
	var only core.TransactionType
	if *typ != "" {
		if only, err = parseType(*typ); err != nil {
			return err
		}
	}

	return e.withApp(func(app *cli.App) error {
		state := app.Reconciler.State()
		tw := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tDATE\tTYPE\tCATEGORY\tAMOUNT\tNOTE")
		n := 0
		for _, t := range state.Transactions {
			if !from.IsZero() && t.Date.Before(from.Time) {
				continue
			}
			if !to.IsZero() && t.Date.After(to.Time) {
				continue
			}
			if only != "" && t.Type != only {
				continue
			}
			if *limit > 0 && n >= *limit {
				break
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s %s\t%s\n",
				t.ID, t.Date, t.Type, categoryName(state, t.CategoryID), t.Amount.Format(), state.Currency, t.Note)
			n++
		}
		return tw.Flush()
	})
}

func runSummary(e *env, args []string) error {
	fs := e.flagSet("summary")
	fromStr := fs.String("from", "", "First day (YYYY-MM-DD)")
	toStr := fs.String("to", "", "Last day (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	from, err := parseOptionalDate("from", *fromStr)
	if err != nil {
		return err
	}
	to, err := parseOptionalDate("to", *toStr)
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from.Time) {
		return errors.New("-to must not be before -from")
	}

	return e.withApp(func(app *cli.App) error {
		sum := app.Reconciler.Summary(from, to)
		tw := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Transactions\t%d\n", sum.Count)
		fmt.Fprintf(tw, "Income\t%s %s\n", sum.Income.Format(), sum.Currency)
		fmt.Fprintf(tw, "Expense\t%s %s\n", sum.Expense.Format(), sum.Currency)
		fmt.Fprintf(tw, "Balance\t%s %s\n", sum.Balance.Format(), sum.Currency)
		if len(sum.ByCategory) > 0 {
			fmt.Fprintln(tw, "\nCATEGORY\tTYPE\tAMOUNT")
			for _, c := range sum.ByCategory {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Type, c.Amount.Format())
			}
		}
		return tw.Flush()
	})
}

func runStatus(e *env, args []string) error {
	fs := e.flagSet("status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return e.withApp(func(app *cli.App) error {
		sess := app.Reconciler.Session()
		backend := app.Reconciler.GatewayName()
		if backend == "" {
			backend = "none"
		}
		tw := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Mode\t%s\n", sess.Mode)
		fmt.Fprintf(tw, "Backend\t%s\n", backend)
		fmt.Fprintf(tw, "Authenticated\t%t\n", sess.Authenticated)
		fmt.Fprintf(tw, "Online\t%t\n", sess.Online)
		fmt.Fprintf(tw, "Language\t%s\n", sess.Settings.Language)
		fmt.Fprintf(tw, "Dark mode\t%t\n", sess.Settings.IsDark)
		fmt.Fprintf(tw, "Currency\t%s\n", sess.State.Currency)
		fmt.Fprintf(tw, "Transactions\t%d\n", len(sess.State.Transactions))
		fmt.Fprintf(tw, "Categories\t%d\n", len(sess.State.Categories))
		return tw.Flush()
	})
}

func runCategoryAdd(e *env, args []string) error {
	fs := e.flagSet("category-add")
	name := fs.String("name", "", "Category name")
	typ := fs.String("type", string(core.Expense), "income or expense")
	color := fs.String("color", "", "Display color, e.g. #10b981")
	id := fs.String("id", "", "Category id (generated when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag(fs, "name", *name); err != nil {
		return err
	}
	t, err := parseType(*typ)
	if err != nil {
		return err
	}

	return e.withApp(func(app *cli.App) error {
		if *id != "" {
			if _, exists := app.Reconciler.State().FindCategory(*id); exists {
				return fmt.Errorf("category %s already exists", *id)
			}
		}
		c, err := app.Reconciler.AddCategory(e.ctx, core.Category{
			ID:    *id,
			Name:  strings.TrimSpace(*name),
			Type:  t,
			Color: *color,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, c.ID)
		return nil
	})
}

func runCategoryUpdate(e *env, args []string) error {
	fs := e.flagSet("category-update")
	id := fs.String("id", "", "Category id")
	name := fs.String("name", "", "New name")
	typ := fs.String("type", "", "New type (income or expense)")
	color := fs.String("color", "", "New color")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag(fs, "id", *id); err != nil {
		return err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	return e.withApp(func(app *cli.App) error {
		c, ok := app.Reconciler.State().FindCategory(*id)
		if !ok {
			return fmt.Errorf("category %s not found", *id)
		}
		if set["name"] {
			c.Name = strings.TrimSpace(*name)
		}
		if set["type"] {
			t, err := parseType(*typ)
			if err != nil {
				return err
			}
			c.Type = t
		}
		if set["color"] {
			c.Color = *color
		}
		if err := app.Reconciler.UpdateCategory(e.ctx, c); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Updated category %s\n", c.ID)
		return nil
	})
}

func runCategoryDelete(e *env, args []string) error {
	fs := e.flagSet("category-delete")
	id := fs.String("id", "", "Category id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag(fs, "id", *id); err != nil {
		return err
	}

	return e.withApp(func(app *cli.App) error {
		if _, ok := app.Reconciler.State().FindCategory(*id); !ok {
			return fmt.Errorf("category %s not found", *id)
		}
		if err := app.Reconciler.DeleteCategory(e.ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Deleted category %s\n", *id)
		return nil
	})
}

func runCurrency(e *env, args []string) error {
	fs := e.flagSet("currency")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: hhsfinance currency <CODE>")
	}
	code := strings.ToUpper(strings.TrimSpace(fs.Arg(0)))

	return e.withApp(func(app *cli.App) error {
		if _, ok := core.LookupCurrency(code); !ok {
			app.Logger.Warn("Currency is not in the supported list", "currency", code)
		}
		if err := app.Reconciler.SetCurrency(e.ctx, code); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Currency set to %s\n", code)
		return nil
	})
}

func runLang(e *env, args []string) error {
	fs := e.flagSet("lang")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: hhsfinance lang en|my")
	}
	lang := core.Language(strings.ToLower(fs.Arg(0)))
	if !lang.Valid() {
		return fmt.Errorf("unsupported language %q: want en or my", fs.Arg(0))
	}

	return e.withApp(func(app *cli.App) error {
		if err := app.Reconciler.SetLanguage(e.ctx, lang); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Language set to %s\n", lang)
		return nil
	})
}

func runTheme(e *env, args []string) error {
	fs := e.flagSet("theme")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: hhsfinance theme light|dark")
	}
	var dark bool
	switch core.Theme(strings.ToLower(fs.Arg(0))) {
	case core.ThemeDark:
		dark = true
	case core.ThemeLight:
	default:
		return fmt.Errorf("unsupported theme %q: want light or dark", fs.Arg(0))
	}

	return e.withApp(func(app *cli.App) error {
		if err := app.Reconciler.SetDarkMode(e.ctx, dark); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Theme set to %s\n", strings.ToLower(fs.Arg(0)))
		return nil
	})
}
