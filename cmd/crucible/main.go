package main

import (
	"os"

	"github.com/probelab/crucible/cmd/crucible/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
