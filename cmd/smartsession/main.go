package main

import (
	"os"

	"smartsession/cmd/smartsession/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
