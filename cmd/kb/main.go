package main

import (
	"github.com/custodia-labs/kb-cli/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}
