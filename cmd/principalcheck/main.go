// Package main is the entry point for the principalcheck CLI binary.
package main

import (
	"os"

	"principalcheck/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
