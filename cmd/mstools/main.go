// Package main provides the mstools command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/mstools/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
