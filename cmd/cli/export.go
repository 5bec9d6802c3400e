package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/smart-finance/internal/app"
	"github.com/dvloznov/smart-finance/internal/export/bqexport"
	"github.com/dvloznov/smart-finance/internal/export/notionexport"
)

func exportToBigQuery(ctx context.Context, a *app.App) (bqexport.Result, error) {
	cfg := a.Config.Export
	if cfg.BigQueryProject == "" {
		return bqexport.Result{}, fmt.Errorf("export.bigquery_project is not set")
	}

	exporter, err := bqexport.NewExporter(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
	if err != nil {
		return bqexport.Result{}, err
	}
	defer exporter.Close()

	if err := exporter.EnsureTables(ctx); err != nil {
		return bqexport.Result{}, err
	}
	return exporter.Export(ctx, a.Ledger.Snapshot())
}

func syncToNotion(ctx context.Context, a *app.App, dryRun bool) (notionexport.Result, error) {
	cfg := a.Config.Export
	if cfg.NotionToken == "" || cfg.NotionDatabaseID == "" {
		return notionexport.Result{}, fmt.Errorf("export.notion_token and export.notion_database_id must be set")
	}

	client := notionexport.NewClient(cfg.NotionToken)
	return notionexport.Sync(ctx, client, cfg.NotionDatabaseID, a.Ledger.Transactions(), a.Ledger.Accounts(), dryRun)
}

func runExportBQ(log zerolog.Logger) {
	fs := flag.NewFlagSet("export-bq", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	a, ctx := boot(log)
	defer a.Close()

	res, err := exportToBigQuery(ctx, a)
	if err != nil {
		a.Log.Fatal().Err(err).Msg("BigQuery export failed")
	}
	fmt.Printf("Export %s: %d transactions, %d accounts\n", res.ExportID, res.Transactions, res.Accounts)
}

func runBQSummary(log zerolog.Logger) {
	fs := flag.NewFlagSet("bq-summary", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	a, ctx := boot(log)
	defer a.Close()

	cfg := a.Config.Export
	if cfg.BigQueryProject == "" {
		a.Log.Fatal().Msg("export.bigquery_project is not set")
	}
	exporter, err := bqexport.NewExporter(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
	if err != nil {
		a.Log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer exporter.Close()

	rows, err := exporter.CategoryTotals(ctx)
	if err != nil {
		a.Log.Fatal().Err(err).Msg("Failed to query category totals")
	}

	t := newTable("CATEGORY", "TOTAL", "COUNT")
	for _, r := range rows {
		t.Row(r.CategoryName, r.TotalDecimal().String(), strconv.FormatInt(r.Count, 10))
	}
	fmt.Println(t)
}

func runSyncNotion(log zerolog.Logger) {
	fs := flag.NewFlagSet("sync-notion", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "Report what would change without writing")
	fs.Parse(os.Args[2:])

	a, ctx := boot(log)
	defer a.Close()

	res, err := syncToNotion(ctx, a, *dryRun)
	if err != nil {
		a.Log.Fatal().Err(err).Msg("Notion sync failed")
	}
	printNotionResult(res, *dryRun)
}

func printNotionResult(res notionexport.Result, dryRun bool) {
	prefix := ""
	if dryRun {
		prefix = "[DRY RUN] "
	}
	fmt.Printf("%sNotion: %d created, %d updated, %d archived, %d failed\n",
		prefix, res.Created, res.Updated, res.Archived, res.Failed)
}

func runExportAll(log zerolog.Logger) {
	fs := flag.NewFlagSet("export-all", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	a, ctx := boot(log)
	defer a.Close()

	var bqRes bqexport.Result
	var notionRes notionexport.Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := exportToBigQuery(gctx, a)
		if err != nil {
			return fmt.Errorf("bigquery: %w", err)
		}
		bqRes = res
		return nil
	})
	g.Go(func() error {
		res, err := syncToNotion(gctx, a, false)
		if err != nil {
			return fmt.Errorf("notion: %w", err)
		}
		notionRes = res
		return nil
	})
	if err := g.Wait(); err != nil {
		a.Log.Fatal().Err(err).Msg("Export failed")
	}

	fmt.Printf("BigQuery export %s: %d transactions, %d accounts\n", bqRes.ExportID, bqRes.Transactions, bqRes.Accounts)
	printNotionResult(notionRes, false)
}
