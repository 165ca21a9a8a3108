// Package main provides the entry point for the licindex CLI.
package main

import (
	"os"

	"github.com/licindex/licindex/cmd/licindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
