package main

import (
	"os"

	"github.com/aristath/frontier/cmd/frontier/commands"
)

// main is the entry point for the frontier CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
