// Package cli implements the problemd command line.
package cli

import (
	"errors"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tansive/problemadvice/internal/server"
)

var (
	okLabel    = color.New(color.FgGreen)
	warnLabel  = color.New(color.FgYellow)
	errorLabel = color.New(color.FgRed)
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "problemd [command] [flags]",
	Short: "problemd - RFC 7807 problem responses for Go services",
	Long: `problemd turns errors into RFC 7807 problem documents.
It runs a demo HTTP server whose failures are all answered with problem
responses, and renders the problem built for a synthetic error chain.

Examples:
  # Start the demo server
  problemd serve --config problemd.conf

  # Render a 404 caused by two lower level errors
  problemd render --status 404 --detail "user not found" --cause "query failed" --cause "connection reset" --causal-chains

  # Render as YAML
  problemd render --status 503 --output yaml

  # Print the problem chain answered by a running server
  problemd fetch /problems/502?depth=3`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true // Prevent Cobra from printing the error
	rootCmd.SilenceUsage = true  // Prevent Cobra from printing usage on error

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, ErrProblemResponse) {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// newVersionCmd creates and returns a new version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of problemd",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("problemd %s\n", server.Version)
		},
	}
}
