// Command migrate moves the stored ledger from one storage backend to
// another, for example from the JSON files to SQLite once history is wanted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/dvloznov/smart-finance/internal/app"
	"github.com/dvloznov/smart-finance/internal/config"
	"github.com/dvloznov/smart-finance/internal/store"
	"github.com/dvloznov/smart-finance/internal/store/sqlitekv"
)

var (
	from       = flag.String("from", "", "Source backend: file, sqlite or gcs (default store.backend)")
	to         = flag.String("to", "", "Target backend: file, sqlite or gcs (required)")
	schemaOnly = flag.Bool("schema-only", false, "Only apply SQLite schema migrations to the target")
	force      = flag.Bool("force", false, "Overwrite a target that already holds a ledger")
)

func main() {
	flag.Parse()

	if *to == "" {
		log.Fatal("Error: -to flag is required.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	src := cfg.Store
	if *from != "" {
		src.Backend = *from
	}
	dst := cfg.Store
	dst.Backend = *to

	if *schemaOnly {
		if dst.Backend != config.BackendSQLite {
			log.Fatal("Error: -schema-only applies to the sqlite backend only.")
		}
		if err := sqlitekv.RunMigrations(dst.SQLitePath); err != nil {
			log.Fatalf("Failed to migrate schema: %v", err)
		}
		log.Printf("Schema of %s is up to date", dst.SQLitePath)
		return
	}

	n, err := migrate(context.Background(), src, dst, *force)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Copied %d keys from %s to %s", n, src.Backend, dst.Backend)
}

// migrate copies every store key from src to dst. A target that already has
// transactions is left alone unless force is set.
func migrate(ctx context.Context, src, dst config.StoreConfig, force bool) (int, error) {
	if src.Backend == dst.Backend {
		return 0, fmt.Errorf("source and target are both %q", src.Backend)
	}

	srcKV, err := app.OpenKV(ctx, src)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer srcKV.Close()

	dstKV, err := app.OpenKV(ctx, dst)
	if err != nil {
		return 0, fmt.Errorf("open target: %w", err)
	}
	defer dstKV.Close()

	if !force {
		if _, err := dstKV.Get(ctx, store.KeyTransactions); err == nil {
			return 0, fmt.Errorf("target %s already holds transactions; use -force to overwrite", dst.Backend)
		}
	}

	n, err := store.Copy(ctx, dstKV, srcKV)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, fmt.Errorf("source %s holds no ledger", src.Backend)
	}
	return n, nil
}
