// Package main provides the hrc command, which rebuilds and reruns a C
// program whenever its sources change.
package main

import (
	"os"

	"github.com/leapstack-labs/hrc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
