package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-finance/internal/app"
	"github.com/dvloznov/smart-finance/internal/config"
	"github.com/dvloznov/smart-finance/internal/logger"
)

func main() {
	// stdout carries command output; logs go to stderr.
	log := logger.NewWithOptions(logger.Options{Output: os.Stderr})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		runAdd(log)
	case "edit":
		runEdit(log)
	case "list":
		runList(log)
	case "stats":
		runStats(log)
	case "accounts":
		runAccounts(log)
	case "open-account":
		runOpenAccount(log)
	case "theme":
		runTheme(log)
	case "quick":
		runQuick(log)
	case "import":
		runImport(log)
	case "analyze":
		runAnalyze(log)
	case "simulate":
		runSimulate(log)
	case "backup":
		runBackup(log)
	case "history":
		runHistory(log)
	case "restore":
		runRestore(log)
	case "export-bq":
		runExportBQ(log)
	case "bq-summary":
		runBQSummary(log)
	case "sync-notion":
		runSyncNotion(log)
	case "export-all":
		runExportAll(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Smart Finance CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nLedger:")
	fmt.Println("  add           Record a transaction")
	fmt.Println("  edit          Change a recorded transaction")
	fmt.Println("  list          List transactions, most recent first")
	fmt.Println("  stats         Show totals and spending by category")
	fmt.Println("  accounts      List accounts and net worth by type")
	fmt.Println("  open-account  Add an account")
	fmt.Println("  theme         Show or set the theme")
	fmt.Println("\nAI:")
	fmt.Println("  quick         Record a transaction from a sentence")
	fmt.Println("  import        Extract transactions from a screenshot")
	fmt.Println("  analyze       Financial health report")
	fmt.Println("  simulate      What-if simulation of a purchase or change")
	fmt.Println("\nStorage and export:")
	fmt.Println("  backup        Copy the stored ledger to a GCS bucket")
	fmt.Println("  history       List archived versions (sqlite backend)")
	fmt.Println("  restore       Restore an archived version (sqlite backend)")
	fmt.Println("  export-bq     Append a ledger snapshot to BigQuery")
	fmt.Println("  bq-summary    Spending by category from the latest BigQuery snapshot")
	fmt.Println("  sync-notion   Mirror transactions into a Notion database")
	fmt.Println("  export-all    Run export-bq and sync-notion together")
	fmt.Println("  help          Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// boot loads configuration and opens the ledger. It exits on failure.
func boot(log zerolog.Logger) (*app.App, context.Context) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	a, ctx, err := app.New(context.Background(), cfg, app.WithLogOutput(os.Stderr))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger")
	}
	return a, ctx
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Faint(true)).
		Headers(headers...)
}
