package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/smart-finance/internal/app"
	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/flow"
	"github.com/dvloznov/smart-finance/internal/stats"
)

// bindForm registers the transaction field flags shared by add and edit.
func bindForm(fs *flag.FlagSet) *flow.FormInput {
	in := &flow.FormInput{}
	fs.StringVar(&in.Date, "date", "", "Date as YYYY-MM-DD (default today)")
	fs.StringVar(&in.Amount, "amount", "", "Amount, always positive")
	fs.StringVar(&in.Type, "type", "", "expense or income")
	fs.StringVar(&in.Category, "category", "", "Category label")
	fs.StringVar(&in.Description, "desc", "", "Description")
	fs.StringVar(&in.AccountID, "account", "", "Account ID (default first account)")
	fs.StringVar(&in.Merchant, "merchant", "", "Merchant")
	fs.StringVar(&in.Mood, "mood", "", "Mood")
	return in
}

// overlay copies the flags given on the command line over base.
func overlay(fs *flag.FlagSet, base, set flow.FormInput) flow.FormInput {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "date":
			base.Date = set.Date
		case "amount":
			base.Amount = set.Amount
		case "type":
			base.Type = set.Type
		case "category":
			base.Category = set.Category
		case "desc":
			base.Description = set.Description
		case "account":
			base.AccountID = set.AccountID
		case "merchant":
			base.Merchant = set.Merchant
		case "mood":
			base.Mood = set.Mood
		}
	})
	return base
}

func runAdd(log zerolog.Logger) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	in := bindForm(fs)
	fs.Parse(os.Args[2:])

	a, ctx := boot(log)
	defer a.Close()

	form := flow.NewForm(a.Ledger, nil, a.Config.AI.HourlyWage)
	if err := form.OpenNew(); err != nil {
		a.Log.Fatal().Err(err).Msg("Failed to open form")
	}
	form.SetInput(overlay(fs, form.Input(), *in))
	submitForm(ctx, a, form)
}

func runEdit(log zerolog.Logger) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	id := fs.String("id", "", "Transaction ID to edit")
	in := bindForm(fs)
	fs.Parse(os.Args[2:])

	if *id == "" {
		log.Fatal().Msg("Error: --id is required")
	}

	a, ctx := boot(log)
	defer a.Close()

	tx, ok := a.Ledger.Transaction(*id)
	if !ok {
		a.Log.Fatal().Str("transaction_id", *id).Msg("Transaction not found")
	}
	form := flow.NewForm(a.Ledger, nil, a.Config.AI.HourlyWage)
	if err := form.OpenEdit(tx); err != nil {
		a.Log.Fatal().Err(err).Msg("Failed to open form")
	}
	form.SetInput(overlay(fs, form.Input(), *in))
	submitForm(ctx, a, form)
}

func submitForm(ctx context.Context, a *app.App, form *flow.Form) {
	hours, hasHint := form.LaborHint()
	tx, err := form.Submit(ctx)
	if err != nil {
		a.Log.Fatal().Err(err).Msg("Failed to save transaction")
	}

	fmt.Printf("Saved %s\n", tx.ID)
	fmt.Printf("  %s  %s  %s  %s\n", tx.Date, tx.Category, tx.Description, signed(tx))
	if hasHint {
		fmt.Printf("  That is %s hours of work.\n", hours)
	}
}

func runList(log zerolog.Logger) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 20, "Number of transactions to show (0 for all)")
	category := fs.String("category", "", "Only show this category")
	fs.Parse(os.Args[2:])

	a, _ := boot(log)
	defer a.Close()

	t := newTable("ID", "DATE", "TYPE", "CATEGORY", "DESCRIPTION", "ACCOUNT", "AMOUNT")
	shown := 0
	for _, tx := range a.Ledger.Transactions() {
		if *category != "" && tx.Category != *category {
			continue
		}
		if *limit > 0 && shown == *limit {
			break
		}
		t.Row(tx.ID, tx.Date.String(), string(tx.Type), tx.Category, tx.Description, accountName(a, tx.AccountID), signed(tx))
		shown++
	}
	fmt.Println(t)
}

func runStats(log zerolog.Logger) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	a, _ := boot(log)
	defer a.Close()

	s := a.Ledger.Stats()
	fmt.Printf("Income:    %s\n", s.TotalIncome)
	fmt.Printf("Expense:   %s\n", s.TotalExpense)
	fmt.Printf("Balance:   %s\n", s.Balance)
	fmt.Printf("Net worth: %s\n", s.NetWorth)

	totals := stats.ExpenseByCategory(a.Ledger.Transactions())
	if len(totals) == 0 {
		return
	}
	wage := decimal.NewFromInt(int64(a.Config.AI.HourlyWage))
	t := newTable("CATEGORY", "SPENT", "HOURS OF WORK")
	for _, ct := range totals {
		t.Row(ct.Category, ct.Amount.String(), domain.LaborHours(ct.Amount, wage).String())
	}
	fmt.Println()
	fmt.Println(t)
}

func runAccounts(log zerolog.Logger) {
	fs := flag.NewFlagSet("accounts", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	a, _ := boot(log)
	defer a.Close()

	t := newTable("ID", "NAME", "TYPE", "BALANCE")
	for _, acc := range a.Ledger.Accounts() {
		t.Row(acc.ID, acc.Name, string(acc.Type), acc.Balance.String())
	}
	fmt.Println(t)

	byType := newTable("TYPE", "BALANCE")
	for _, tt := range stats.NetWorthByType(a.Ledger.Accounts()) {
		byType.Row(string(tt.Type), tt.Balance.String())
	}
	fmt.Println(byType)
	fmt.Printf("Net worth: %s\n", a.Ledger.Stats().NetWorth)
}

func runOpenAccount(log zerolog.Logger) {
	fs := flag.NewFlagSet("open-account", flag.ExitOnError)
	name := fs.String("name", "", "Account name")
	kind := fs.String("type", "", "cash, bank, e-pay, credit or investment")
	balance := fs.String("balance", "0", "Opening balance; negative for credit")
	fs.Parse(os.Args[2:])

	accType, err := domain.ParseAccountType(*kind)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid account type")
	}
	opening, err := decimal.NewFromString(*balance)
	if err != nil {
		log.Fatal().Err(err).Str("balance", *balance).Msg("Invalid opening balance")
	}

	a, ctx := boot(log)
	defer a.Close()

	acc, err := a.Ledger.OpenAccount(ctx, *name, accType, opening)
	if err != nil {
		a.Log.Fatal().Err(err).Msg("Failed to open account")
	}
	fmt.Printf("Opened %s (%s) %s with balance %s\n", acc.Name, acc.ID, acc.Type, acc.Balance)
}

func runTheme(log zerolog.Logger) {
	fs := flag.NewFlagSet("theme", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: cli theme [classic|dragonball|mha|shinchan]")
	}
	fs.Parse(os.Args[2:])

	a, ctx := boot(log)
	defer a.Close()

	if fs.NArg() == 0 {
		th := a.Ledger.Theme()
		p := th.Palette()
		fmt.Printf("%s (primary %s, accent %s, font %s)\n", th, p.Primary, p.Accent, p.Font)
		return
	}

	th, err := domain.ParseTheme(fs.Arg(0))
	if err != nil {
		a.Log.Fatal().Err(err).Msg("Invalid theme")
	}
	if err := a.Ledger.SetTheme(ctx, th); err != nil {
		a.Log.Fatal().Err(err).Msg("Failed to set theme")
	}
	fmt.Printf("Theme set to %s\n", th)
}

func signed(tx domain.Transaction) string {
	s := tx.SignedAmount()
	if s.IsPositive() {
		return "+" + s.String()
	}
	return s.String()
}

func accountName(a *app.App, id string) string {
	if acc, ok := a.Ledger.Account(id); ok {
		return acc.Name
	}
	return id
}

// itoa keeps table rows terse.
func itoa(n int64) string { return strconv.FormatInt(n, 10) }
