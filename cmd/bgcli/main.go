package main

import (
	"os"

	"github.com/mitchelldurbincs/bgcore/cmd/bgcli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
