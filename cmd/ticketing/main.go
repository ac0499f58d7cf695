package main

import (
	"os"

	"ticket-marketplace/cmd/ticketing/commands"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
)

func main() {
	commands.SetVersionInfo(version, commit)

	// Errors are already printed by the printer
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
