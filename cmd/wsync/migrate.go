package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DustinBergman/workout-app-sub001/internal/migrate"
)

var migrateDryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade the local document to the current schema version",
	Long: `Upgrade the local workout document across schema versions.

Each migration step is idempotent; re-running against an already migrated
document is a no-op. The structural repairs (missing template types,
missing cardio categories, non-UUID identifiers) are applied as well.`,
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

		from := doc.Version
		migrate.Migrate(doc, nil)
		migrate.Normalize(doc)

		if migrateDryRun {
			fmt.Printf("Dry run: would migrate v%d -> v%d (not saved)\n", from, doc.Version)
			return
		}

		if err := store.Save(doc); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving document: %v\n", err)
			os.Exit(1)
		}

		if from == doc.Version {
			fmt.Printf("Document already at version %d, structural repairs applied\n", doc.Version)
		} else {
			fmt.Printf("Document migrated: v%d -> v%d\n", from, doc.Version)
		}
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "preview the migration without saving")
	rootCmd.AddCommand(migrateCmd)
}
