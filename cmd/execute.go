// Package cmd contains the command line entry points for the assistant
// server. main.go stays a minimal shim; all routing and initialization
// lives here.
package cmd

import (
	"fmt"
	"os"
)

// Execute is the main entry point. It routes the version and help flags
// before any initialization so they work even with an invalid environment;
// everything else starts the HTTP server.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			printVersionInfo()
			return nil
		case "help", "--help", "-h":
			printHelp()
			return nil
		}
	}

	return runServe()
}

func printHelp() {
	fmt.Print(`docs-assistant - RAG backend for the Rutoken documentation

Usage:
  docs-assistant [serve] [--addr host:port]   start the HTTP API server (default)
  docs-assistant version                      show version information
  docs-assistant help                         show this help

Configuration is taken from the environment (optionally via a .env file);
see the README for the variable reference.
`)
}
