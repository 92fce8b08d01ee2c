// Package main provides the CLI for the amalgam single-header generator.
package main

import (
	"os"

	"github.com/leapstack-labs/amalgam/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
