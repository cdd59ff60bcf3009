package main

import (
	"os"

	"papertrader/cmd/papertrader-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
