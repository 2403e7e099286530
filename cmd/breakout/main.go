package main

import (
	"os"

	"github.com/rustyeddy/breakout/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
