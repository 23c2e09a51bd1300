package main

import (
	"fmt"
	"os"

	"lunchbook/internal/config"
)

func main() {
	cfg := config.LoadConfig()

	app := newApp(cfg, os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
