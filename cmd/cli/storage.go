package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-finance/internal/app"
	"github.com/dvloznov/smart-finance/internal/store"
	"github.com/dvloznov/smart-finance/internal/store/gcskv"
	"github.com/dvloznov/smart-finance/internal/store/sqlitekv"
)

func runBackup(log zerolog.Logger) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	bucket := fs.String("bucket", "", "GCS bucket (default store.gcs_bucket)")
	prefix := fs.String("prefix", "", "Object prefix (default backups/<timestamp>)")
	fs.Parse(os.Args[2:])

	a, ctx := boot(log)
	defer a.Close()

	if *bucket == "" {
		*bucket = a.Config.Store.GCSBucket
	}
	if *bucket == "" {
		a.Log.Fatal().Msg("Error: --bucket is required when store.gcs_bucket is not set")
	}
	if *prefix == "" {
		*prefix = "backups/" + time.Now().UTC().Format("20060102T150405Z")
	}

	dst, err := gcskv.Open(ctx, *bucket, *prefix)
	if err != nil {
		a.Log.Fatal().Err(err).Msg("Failed to open backup bucket")
	}
	defer dst.Close()

	a.Log.Info().
		Str("bucket", *bucket).
		Str("prefix", *prefix).
		Str("backend", a.Config.Store.Backend).
		Msg("Backing up ledger")

	n, err := store.Copy(ctx, dst, a.KV)
	if err != nil {
		a.Log.Fatal().Err(err).Int("copied", n).Msg("Backup failed")
	}
	for _, key := range store.Keys {
		fmt.Println(dst.URI(key))
	}
	fmt.Printf("Backed up %d keys.\n", n)
}

func sqliteKV(a *app.App) *sqlitekv.KV {
	kv, ok := a.KV.(*sqlitekv.KV)
	if !ok {
		a.Log.Fatal().Str("backend", a.Config.Store.Backend).Msg("Version history needs the sqlite backend")
	}
	return kv
}

func runHistory(log zerolog.Logger) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	key := fs.String("key", store.KeyTransactions, "Store key: transactions, accounts or appTheme")
	fs.Parse(os.Args[2:])

	a, ctx := boot(log)
	defer a.Close()

	versions, err := sqliteKV(a).History(ctx, *key)
	if err != nil {
		a.Log.Fatal().Err(err).Msg("Failed to list history")
	}
	if len(versions) == 0 {
		fmt.Printf("No archived versions of %s.\n", *key)
		return
	}

	t := newTable("VERSION", "WRITTEN AT", "BYTES")
	for _, v := range versions {
		t.Row(itoa(v.ID), v.WrittenAt, strconv.Itoa(v.Size))
	}
	fmt.Println(t)
}

func runRestore(log zerolog.Logger) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	key := fs.String("key", store.KeyTransactions, "Store key: transactions, accounts or appTheme")
	version := fs.Int64("version", 0, "Version to restore (see cli history)")
	fs.Parse(os.Args[2:])

	if *version <= 0 {
		log.Fatal().Msg("Error: --version is required")
	}

	a, ctx := boot(log)
	defer a.Close()

	if err := sqliteKV(a).Restore(ctx, *key, *version); err != nil {
		a.Log.Fatal().Err(err).Msg("Restore failed")
	}
	fmt.Printf("Restored %s to version %d. Restart running clients to pick it up.\n", *key, *version)
}
