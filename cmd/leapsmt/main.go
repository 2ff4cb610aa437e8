// Package main provides the leapsmt command.
package main

import (
	"os"

	"github.com/leapstack-labs/leapsmt/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
