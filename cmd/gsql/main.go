// Package main provides the CLI for the GSQL embedded SQL engine.
package main

import (
	"os"

	"github.com/leapstack-labs/gsql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
