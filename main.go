// Package main is the entry point for the bezos application
package main

import (
	"os"

	"github.com/baely/bezos/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
