// Package main is the entry point for the reqflow CLI.
//
// reqflow can be used as a library (SDK) or as a standalone binary that
// executes request scripts from files. This CLI provides the standalone
// binary approach.
//
// Usage:
//
//	reqflow send -f requests.http      # Execute a request script
//	reqflow check -f requests.http     # Validate a script without executing
//	reqflow version                    # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "reqflow",
	Short: "Execute HTTP request scripts concurrently",
	Long: `reqflow parses plain-text request scripts and executes them
concurrently with bounded parallelism, streaming results as they complete
and printing a final summary in source order.

Quick start:
  1. Write a script (requests.http):

       ###env
       host: https://api.example.com
       ###env

       GET {{.host}}/users
       Accept: application/json

       POST {{.host}}/users
       Content-Type: application/json

       {"name": "ada"}

  2. Run: reqflow send -f requests.http`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this reqflow binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("reqflow %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
