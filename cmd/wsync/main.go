// Command wsync manages local-first synchronization of workout data.
//
// It loads the persisted local workout document, migrates it across schema
// versions, and pushes templates, sessions, custom exercises and weight
// entries to the remote relational store.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
