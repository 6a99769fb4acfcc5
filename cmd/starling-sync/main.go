// Package main is the entry point for the starling-sync CLI.
package main

import (
	"os"

	"github.com/shunichi-ikebuchi/starling-sync/cmd/starling-sync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
