// Package notionexport mirrors the ledger into a Notion database, one page
// per transaction keyed by the "Transaction ID" property.
package notionexport

import (
	"context"
	"fmt"

	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/logger"
	"github.com/jomei/notionapi"
)

// BatchSize is the page size used when listing existing pages.
const BatchSize = 100

// Result counts what a sync did, or would do in dry-run mode.
type Result struct {
	Created  int
	Updated  int
	Archived int
	Failed   int
}

// Sync makes the database match txs: pages for unknown or duplicate IDs are
// archived, existing pages are updated and missing ones created. Individual
// page failures are logged and counted; only listing the database is fatal.
func Sync(ctx context.Context, svc Service, databaseID string, txs []domain.Transaction, accounts []domain.Account, dryRun bool) (Result, error) {
	log := logger.FromContext(ctx)

	log.Info().
		Int("transactions", len(txs)).
		Bool("dry_run", dryRun).
		Msg("Starting transaction sync to Notion")

	valid := make(map[string]bool, len(txs))
	for _, tx := range txs {
		valid[tx.ID] = true
	}
	accountNames := make(map[string]string, len(accounts))
	for _, acc := range accounts {
		accountNames[acc.ID] = acc.Name
	}

	pages, err := queryAllPages(ctx, svc, databaseID)
	if err != nil {
		return Result{}, fmt.Errorf("Sync: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	var res Result
	existing := make(map[string]string, len(pages))

	for _, page := range pages {
		txID := extractTransactionID(page)
		_, dup := existing[txID]
		if txID != "" && valid[txID] && !dup {
			existing[txID] = string(page.ID)
			continue
		}

		if dryRun {
			log.Info().Str("transaction_id", txID).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive stale Notion page")
			res.Archived++
			continue
		}
		if err := svc.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("transaction_id", txID).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
			res.Failed++
			continue
		}
		res.Archived++
	}

	for _, tx := range txs {
		pageID, found := existing[tx.ID]

		if dryRun {
			if found {
				res.Updated++
			} else {
				res.Created++
			}
			continue
		}

		props := TransactionToProperties(tx, accountNames[tx.AccountID])
		if found {
			if _, err := svc.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.ID).Str("page_id", pageID).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			res.Updated++
			continue
		}

		page, err := svc.CreatePage(ctx, databaseID, props)
		if err != nil {
			log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		log.Debug().Str("transaction_id", tx.ID).Str("page_id", string(page.ID)).Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Bool("dry_run", dryRun).
		Msg("Transaction sync to Notion completed")

	return res, nil
}

// queryAllPages lists every page of the database, following cursors.
func queryAllPages(ctx context.Context, svc Service, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: BatchSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := svc.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return all, nil
}
