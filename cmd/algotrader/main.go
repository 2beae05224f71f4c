package main

import (
	"os"

	"github.com/rustyeddy/algotrader/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
