package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DustinBergman/workout-app-sub001/internal/daemon"
	"github.com/DustinBergman/workout-app-sub001/internal/dashboard"
	wsync "github.com/DustinBergman/workout-app-sub001/internal/sync"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Watch the local document and sync changes continuously",
	Long: `Run the sync daemon.

The daemon watches the local workout document file, debounces rapid saves,
and sweeps every change to the remote store. With --dashboard-port set, a
WebSocket dashboard broadcasts sweep results and serves the failed-sync
ledger.`,
	Run: func(cmd *cobra.Command, args []string) {
		db, err := openRemote()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		ledger := failedSyncLedger()
		syncer := wsync.New(db, currentAuth(), wsync.NewLockRegistry(), ledger, nil)

		var dash *dashboard.Server
		if port := viper.GetInt("dashboard-port"); port > 0 {
			dash = dashboard.NewServer(&dashboard.Config{Port: port}, ledger)
			if err := dash.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "Error starting dashboard: %v\n", err)
				os.Exit(1)
			}
			defer dash.Stop()
			ledger.OnAppend(dash.BroadcastLedgerEntry)
			fmt.Printf("Dashboard listening on %s\n", dash.GetAddr())
		}

		cfg := daemon.DefaultConfig()
		cfg.LogFile = viper.GetString("log-file")
		if interval := viper.GetDuration("debounce"); interval > 0 {
			cfg.DebounceInterval = interval
		}

		d, err := daemon.New(documentStore(), syncer, dash, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating daemon: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Daemon error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	daemonCmd.Flags().Int("dashboard-port", 0, "serve the sync dashboard on this port (0 = disabled)")
	daemonCmd.Flags().Duration("debounce", 250*time.Millisecond, "how long to wait after a save before sweeping")
	daemonCmd.Flags().String("log-file", "", "rotate daemon logs into this file instead of stderr")

	for _, flag := range []string{"dashboard-port", "debounce", "log-file"} {
		_ = viper.BindPFlag(flag, daemonCmd.Flags().Lookup(flag))
	}

	rootCmd.AddCommand(daemonCmd)
}
