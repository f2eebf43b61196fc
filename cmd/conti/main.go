// Package main is the entry point for the conti CLI.
package main

import (
	"os"

	"conti/cmd/conti/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
