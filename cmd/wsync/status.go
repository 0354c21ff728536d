package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DustinBergman/workout-app-sub001/internal/migrate"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local document and failed-sync ledger status",
	Run: func(cmd *cobra.Command, args []string) {
		store := documentStore()
		doc, err := store.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading document: %v\n", err)
			os.Exit(1)
		}
		if doc == nil {
			fmt.Printf("No document at %s\n", store.Path())
			return
		}

		fmt.Printf("Document: %s\n", store.Path())
		fmt.Printf("   Schema version: %d (current: %d)\n", doc.Version, migrate.CurrentVersion)
		fmt.Printf("   Templates: %d\n", len(doc.Templates))
		fmt.Printf("   Sessions: %d (completed: %d)\n", len(doc.Sessions), len(doc.CompletedSessions()))
		if doc.ActiveSession != nil {
			fmt.Printf("   Active session: %s (%s)\n", doc.ActiveSession.Name, doc.ActiveSession.ID)
		}
		fmt.Printf("   Custom exercises: %d\n", len(doc.CustomExercises))
		fmt.Printf("   Weight entries: %d\n", len(doc.WeightEntries))

		entries, err := failedSyncLedger().Entries()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading ledger: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Failed-sync ledger: %d entries\n", len(entries))
		for _, e := range entries {
			fmt.Printf("   %s  %s  %s (%s)\n",
				e.Timestamp.Format("2006-01-02 15:04:05"), e.Type, e.ResourceID, e.ResourceName)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
