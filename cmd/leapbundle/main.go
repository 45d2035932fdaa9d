// Package main provides the CLI for the LeapBundle module graph assembly engine.
package main

import (
	"os"

	"github.com/leapstack-labs/leapbundle/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
