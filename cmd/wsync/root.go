package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DustinBergman/workout-app-sub001/internal/document"
	"github.com/DustinBergman/workout-app-sub001/internal/remote"
	wsync "github.com/DustinBergman/workout-app-sub001/internal/sync"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "wsync",
	Short: "Local-first workout data synchronization",
	Long: `wsync keeps the local workout document and the remote store in sync.

The local document (templates, sessions, custom exercises, weight entries)
is the authoritative copy; wsync pushes it to the remote relational store
without ever destroying remote data on the strength of suspicious local
state.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .wsync.yaml)")
	rootCmd.PersistentFlags().String("document", ".wsync/document.json", "path to the local workout document")
	rootCmd.PersistentFlags().String("db", ".wsync/remote.db", "path to the remote store database")
	rootCmd.PersistentFlags().String("ledger", ".wsync/failed-sync.jsonl", "path to the failed-sync ledger")
	rootCmd.PersistentFlags().String("owner", "", "owner identity for remote writes (empty = logged out)")

	for _, flag := range []string{"document", "db", "ledger", "owner"} {
		_ = viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag))
	}
}

// initConfig reads the config file and environment.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".wsync")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("WSYNC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// openRemote opens the remote store database and ensures the schema exists.
func openRemote() (*remote.DB, error) {
	db, err := remote.Open(viper.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open remote store: %w", err)
	}
	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

func documentStore() *document.Store {
	return document.NewStore(filepath.Clean(viper.GetString("document")))
}

func failedSyncLedger() *wsync.Ledger {
	return wsync.NewLedger(viper.GetString("ledger"))
}

func currentAuth() wsync.Auth {
	return wsync.AuthFunc(func() string { return viper.GetString("owner") })
}
