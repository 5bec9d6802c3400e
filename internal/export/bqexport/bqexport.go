// Package bqexport copies ledger snapshots into BigQuery for ad-hoc
// analysis. Every export appends a full snapshot stamped with a fresh
// export_id; queries read the latest one.
package bqexport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/smart-finance/internal/ledger"
	"github.com/dvloznov/smart-finance/internal/logger"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

const (
	transactionsTable = "transactions"
	accountsTable     = "accounts"
)

// Result summarises one export.
type Result struct {
	ExportID     string
	Transactions int
	Accounts     int
}

// Exporter writes snapshots to one dataset.
type Exporter struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	now       func() time.Time
}

// NewExporter creates a BigQuery client for projectID.
func NewExporter(ctx context.Context, projectID, datasetID string) (*Exporter, error) {
	if projectID == "" || datasetID == "" {
		return nil, errors.New("NewExporter: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: bigquery client: %w", err)
	}
	return NewExporterWithClient(client, projectID, datasetID), nil
}

// NewExporterWithClient wraps an existing client.
func NewExporterWithClient(client *bigquery.Client, projectID, datasetID string) *Exporter {
	return &Exporter{client: client, projectID: projectID, datasetID: datasetID, now: time.Now}
}

// Close closes the BigQuery client connection.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

func (e *Exporter) dataset() *bigquery.Dataset {
	return e.client.DatasetInProject(e.projectID, e.datasetID)
}

// EnsureTables creates the dataset and tables when they do not exist.
func (e *Exporter) EnsureTables(ctx context.Context) error {
	if err := e.dataset().Create(ctx, &bigquery.DatasetMetadata{}); err != nil && !alreadyExists(err) {
		return fmt.Errorf("EnsureTables: create dataset: %w", err)
	}

	for name, sample := range map[string]interface{}{
		transactionsTable: TransactionRow{},
		accountsTable:     AccountRow{},
	} {
		schema, err := bigquery.InferSchema(sample)
		if err != nil {
			return fmt.Errorf("EnsureTables: infer %s schema: %w", name, err)
		}
		meta := &bigquery.TableMetadata{Schema: schema}
		if err := e.dataset().Table(name).Create(ctx, meta); err != nil && !alreadyExists(err) {
			return fmt.Errorf("EnsureTables: create %s: %w", name, err)
		}
	}
	return nil
}

func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusConflict
}

// Export appends snap as a new snapshot.
func (e *Exporter) Export(ctx context.Context, snap ledger.Snapshot) (Result, error) {
	log := logger.FromContext(ctx)

	if err := e.EnsureTables(ctx); err != nil {
		return Result{}, err
	}

	exportID := uuid.New().String()
	now := e.now().UTC()

	txRows := ToTransactionRows(exportID, snap.Transactions, now)
	accRows := ToAccountRows(exportID, snap.Accounts, now)

	if len(txRows) > 0 {
		if err := e.dataset().Table(transactionsTable).Inserter().Put(ctx, txRows); err != nil {
			return Result{}, fmt.Errorf("Export: inserting transactions: %w", err)
		}
	}
	if len(accRows) > 0 {
		if err := e.dataset().Table(accountsTable).Inserter().Put(ctx, accRows); err != nil {
			return Result{}, fmt.Errorf("Export: inserting accounts: %w", err)
		}
	}

	log.Info().
		Str("export_id", exportID).
		Int("transactions", len(txRows)).
		Int("accounts", len(accRows)).
		Msg("Exported ledger snapshot to BigQuery")

	return Result{ExportID: exportID, Transactions: len(txRows), Accounts: len(accRows)}, nil
}

// CategoryTotals returns expense totals per category from the latest
// snapshot, largest first.
func (e *Exporter) CategoryTotals(ctx context.Context) ([]CategoryTotalRow, error) {
	table := fmt.Sprintf("`%s.%s.%s`", e.projectID, e.datasetID, transactionsTable)
	q := e.client.Query(`
		WITH latest AS (
		  SELECT export_id
		  FROM ` + table + `
		  ORDER BY exported_ts DESC
		  LIMIT 1
		)
		SELECT
		  t.category_name,
		  SUM(t.amount) AS total,
		  COUNT(*) AS tx_count
		FROM ` + table + ` t
		JOIN latest USING (export_id)
		WHERE t.type = @type
		GROUP BY t.category_name
		ORDER BY total DESC, t.category_name
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "type", Value: "expense"},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("CategoryTotals: query read: %w", err)
	}

	var rows []CategoryTotalRow
	for {
		var r CategoryTotalRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CategoryTotals: iter next: %w", err)
		}
		rows = append(rows, r)
	}

	return rows, nil
}
