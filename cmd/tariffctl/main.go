// Package main is the entry point for the tariffctl CLI.
package main

import (
	"os"

	"correction_pricing/cmd/tariffctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
