// Package main is the entry point for the ivlyrics-helper daemon.
package main

import (
	"os"

	"github.com/ivlis-studio/ivlyrics-helper/cmd/ivlyrics-helper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
