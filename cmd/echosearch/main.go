// Package main provides the entry point for the echosearch CLI.
package main

import (
	"os"

	"github.com/reverb-labs/echosearch/cmd/echosearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
