package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dvloznov/smart-finance/internal/app"
	"github.com/dvloznov/smart-finance/internal/config"
	"github.com/dvloznov/smart-finance/internal/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// The screen owns stdout, so logs always go to a file.
	if cfg.Log.File == "" {
		if err := os.MkdirAll(cfg.Store.Dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "mkdir data dir: %v\n", err)
			os.Exit(1)
		}
		cfg.Log.File = filepath.Join(cfg.Store.Dir, "smartfinance.log")
	}

	a, ctx, err := app.New(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	var ai tui.AI
	if a.Gateway != nil {
		ai = a.Gateway
	}
	model := tui.New(ctx, a.Ledger, ai, tui.Config{
		HourlyWage:     cfg.AI.HourlyWage,
		MonthlyExpense: cfg.AI.MonthlyExpense,
		LongPress:      cfg.UI.LongPress,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		a.Log.Error().Err(err).Msg("TUI exited with error")
		fmt.Fprintf(os.Stderr, "tui: %v\n", err)
		a.Close()
		os.Exit(1)
	}
}
