package main

import (
	"fmt"
	"os"

	"github.com/yndnr/sessmesh/internal/cli/command"
	"github.com/yndnr/sessmesh/internal/core/domain"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(domain.ExitCode(err))
	}
}
