package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/DustinBergman/workout-app-sub001/internal/migrate"
	wsync "github.com/DustinBergman/workout-app-sub001/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Full sweep from the local document to the remote store",
	Long: `Push the entire local document to the remote store.

This performs a full sweep:
  1. Loads the local workout document
  2. Migrates it if its schema version is behind
  3. Syncs templates and completed sessions (insert or update, guarded)
  4. Upserts custom exercises and weight entries`,
	Run: func(cmd *cobra.Command, args []string) {
		store := documentStore()
		doc, err := store.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading document: %v\n", err)
			os.Exit(1)
		}
		if doc == nil {
			fmt.Fprintf(os.Stderr, "No document found at %s\n", store.Path())
			os.Exit(1)
		}

		migrated := false
		if doc.Version < migrate.CurrentVersion {
			migrate.Migrate(doc, nil)
			migrated = true
		}
		// Repairs must be persisted: regenerated identifiers that are
		// never saved would mint fresh UUIDs on the next sweep and
		// duplicate remote rows.
		if migrate.Normalize(doc) || migrated {
			if err := store.Save(doc); err != nil {
				fmt.Fprintf(os.Stderr, "Error saving migrated document: %v\n", err)
				os.Exit(1)
			}
		}

		db, err := openRemote()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		syncer := wsync.New(db, currentAuth(), wsync.NewLockRegistry(), failedSyncLedger(), nil)

		fmt.Printf("Syncing %s...\n", store.Path())
		start := time.Now()

		res, err := syncer.SyncDocument(cmd.Context(), doc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during sync: %v\n", err)
			os.Exit(1)
		}

		elapsed := time.Since(start)
		fmt.Printf("Sync complete in %v\n", elapsed.Round(time.Millisecond))
		fmt.Printf("   Templates: %d (failed: %d)\n", res.Templates, res.TemplatesFailed)
		fmt.Printf("   Sessions: %d (failed: %d)\n", res.Sessions, res.SessionsFailed)
		fmt.Printf("   Exercises: %d\n", res.Exercises)
		fmt.Printf("   Weight entries: %d\n", res.WeightEntries)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
