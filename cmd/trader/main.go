package main

import (
	"os"

	"github.com/rustyeddy/levtrader/cmd/trader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
