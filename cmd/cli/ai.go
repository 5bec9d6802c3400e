package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-finance/internal/app"
	"github.com/dvloznov/smart-finance/internal/flow"
	"github.com/dvloznov/smart-finance/internal/gateway"
	"github.com/dvloznov/smart-finance/internal/store/gcskv"
)

const aiTimeout = 2 * time.Minute

func requireGateway(a *app.App) *gateway.Gateway {
	gw, err := a.RequireGateway()
	if err != nil {
		a.Log.Fatal().Err(err).Msg("AI features unavailable")
	}
	return gw
}

func runQuick(log zerolog.Logger) {
	fs := flag.NewFlagSet("quick", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: cli quick <text>, e.g. cli quick "午餐 拉麵 180"`)
	}
	fs.Parse(os.Args[2:])

	text := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(text) == "" {
		fs.Usage()
		os.Exit(1)
	}

	a, ctx := boot(log)
	defer a.Close()
	ctx, cancel := context.WithTimeout(ctx, aiTimeout)
	defer cancel()

	qc := flow.NewQuickCapture(a.Ledger, requireGateway(a), nil)
	if err := qc.Open(); err != nil {
		a.Log.Fatal().Err(err).Msg("Failed to open quick capture")
	}
	tx, err := qc.Submit(ctx, text)
	if err != nil {
		a.Log.Fatal().Err(err).Str("outcome", gateway.Classify(err).String()).Msg("Quick capture failed")
	}
	fmt.Printf("Saved %s\n", tx.ID)
	fmt.Printf("  %s  %s  %s  %s\n", tx.Date, tx.Category, tx.Description, signed(tx))
}

func runImport(log zerolog.Logger) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "Path to a screenshot")
	gcsURI := fs.String("gcs-uri", "", "gs:// URI of a screenshot")
	yes := fs.Bool("yes", false, "Save without asking")
	fs.Parse(os.Args[2:])

	if (*file == "") == (*gcsURI == "") {
		log.Fatal().Msg("Usage: cli import -file PATH | -gcs-uri gs://BUCKET/OBJECT [-yes]")
	}

	a, ctx := boot(log)
	defer a.Close()
	ctx, cancel := context.WithTimeout(ctx, aiTimeout)
	defer cancel()

	img, err := loadScreenshot(ctx, *file, *gcsURI)
	if err != nil {
		a.Log.Fatal().Err(err).Msg("Failed to read screenshot")
	}

	im := flow.NewImport(a.Ledger, requireGateway(a), nil)
	if err := im.Open(); err != nil {
		a.Log.Fatal().Err(err).Msg("Failed to open import")
	}
	if _, err := im.Extract(ctx, img); err != nil {
		a.Log.Fatal().Err(err).Str("outcome", gateway.Classify(err).String()).Msg("Extraction failed")
	}
	if !im.CanConfirm() {
		fmt.Println("No transactions found.")
		return
	}

	t := newTable("DATE", "TYPE", "CATEGORY", "DESCRIPTION", "MERCHANT", "AMOUNT")
	for _, line := range im.Preview() {
		d := line.Draft
		category := d.Category
		if line.Suggestion != "" {
			category += " (≈" + line.Suggestion + ")"
		}
		amount := "?"
		if d.Amount != nil {
			amount = d.Amount.String()
		}
		t.Row(d.Date, string(d.Type), category, d.Description, d.Merchant, amount)
	}
	fmt.Println(t)

	if !*yes && !confirm(fmt.Sprintf("Save %d transactions?", len(im.Drafts()))) {
		_ = im.Cancel()
		fmt.Println("Discarded.")
		return
	}
	saved, err := im.Confirm(ctx)
	if err != nil {
		a.Log.Error().Err(err).Int("saved", len(saved)).Msg("Some transactions were not saved")
	}
	fmt.Printf("Saved %d transactions.\n", len(saved))
}

func loadScreenshot(ctx context.Context, file, gcsURI string) (gateway.Image, error) {
	if file != "" {
		return gateway.ReadImageFile(file)
	}

	bucket, _, err := gcskv.ParseURI(gcsURI)
	if err != nil {
		return gateway.Image{}, err
	}
	kv, err := gcskv.Open(ctx, bucket, "")
	if err != nil {
		return gateway.Image{}, err
	}
	defer kv.Close()

	data, err := kv.FetchURI(ctx, gcsURI)
	if err != nil {
		return gateway.Image{}, err
	}
	return gateway.NewImage(gcskv.ExtractFilename(gcsURI), data)
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func runAnalyze(log zerolog.Logger) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	a, ctx := boot(log)
	defer a.Close()
	ctx, cancel := context.WithTimeout(ctx, aiTimeout)
	defer cancel()

	report := flow.NewInsights(a.Ledger, requireGateway(a), a.Config.AI.MonthlyExpense).Analyze(ctx)
	fmt.Println(report.Text)
	if report.Fallback {
		os.Exit(1)
	}
}

func runSimulate(log zerolog.Logger) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: cli simulate <scenario>, e.g. cli simulate "買一台 60000 的機車"`)
	}
	fs.Parse(os.Args[2:])

	a, ctx := boot(log)
	defer a.Close()
	ctx, cancel := context.WithTimeout(ctx, aiTimeout)
	defer cancel()

	res, err := flow.NewInsights(a.Ledger, requireGateway(a), a.Config.AI.MonthlyExpense).
		Simulate(ctx, strings.Join(fs.Args(), " "))
	if err != nil {
		a.Log.Fatal().Err(err).Str("outcome", gateway.Classify(err).String()).Msg("Simulation failed")
	}

	fmt.Printf("Scenario:       %s\n", res.Scenario)
	fmt.Printf("Cash flow:      %s\n", res.ImpactOnCashFlow)
	fmt.Printf("Recommendation: %s\n", res.Recommendation)
	fmt.Printf("Safety score:   %.0f/100\n", res.SafetyScore)
}
