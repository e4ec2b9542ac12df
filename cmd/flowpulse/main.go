package main

import (
	"os"

	"github.com/flowpulse/flowpulse/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
