// Package main implements the absint CLI.
// It analyses Go sources and IR files with interval abstract interpretation.
package main

import (
	"os"

	"github.com/l3aro/go-absint/cmd/absint/commands"
)

var version = "dev"

func main() {
	commands.RootCmd.Version = version
	commands.RootCmd.SetVersionTemplate(`absint version {{.Version}}
`)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
