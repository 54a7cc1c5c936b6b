package main

import (
	"fmt"
	"os"

	"github.com/kavinsood/kite/internal/cli/commands"
)

// set via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := commands.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
