package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jharte/reqflow"
	"github.com/jharte/reqflow/env"
)

// checkCmd validates a request script without executing it.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a request script",
	Long: `Validate a request script without sending any requests.

This command parses the script, evaluates its environment, and resolves
every request descriptor. It's useful for CI pipelines or pre-flight
checks of shared request collections.

Exit codes:
  0 - Script is valid
  1 - Script is invalid (error details printed to stderr)

Example:
  reqflow check -f requests.http
  reqflow check -f requests.http -e staging.yaml`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("file", "f", "", "path to request script (required)")
	checkCmd.Flags().StringP("env-file", "e", "", "path to YAML environment file")
	_ = checkCmd.MarkFlagRequired("file")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	file, _ := cmd.Flags().GetString("file")
	envFile, _ := cmd.Flags().GetString("env-file")

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	script, err := reqflow.ParseScript(string(data))
	if err != nil {
		return err
	}

	vars, err := env.Parse(script.EnvBlock)
	if err != nil {
		return fmt.Errorf("evaluate environment: %w", err)
	}

	if envFile != "" {
		fileVars, err := env.LoadFile(envFile)
		if err != nil {
			return err
		}
		vars = env.Merge(vars, fileVars)
	}

	var bad int
	for i, desc := range script.Descriptors {
		req, err := reqflow.ValidateDescriptor(desc, vars)
		if err != nil {
			bad++
			fmt.Fprintf(os.Stderr, "request %d: %v\n", i, err)
			continue
		}
		fmt.Printf("  [%d] %s %s\n", i, req.Method(), req.URL())
	}

	if bad > 0 {
		return fmt.Errorf("%d of %d requests are invalid", bad, len(script.Descriptors))
	}

	fmt.Printf("Script is valid!\n")
	fmt.Printf("  Requests:    %d\n", len(script.Descriptors))
	fmt.Printf("  Environment: %d variable(s)\n", len(vars))
	return nil
}
