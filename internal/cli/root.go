// Package cli implements the tinyutterances command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tinyutterances",
	Short: "Render GitHub issue comments into static HTML pages",
	Long: `tinyutterances fills comments widget containers in HTML documents with the
comments of a GitHub issue, rendered server side.

A container is any element with the class "tiny-utterances" carrying the
data-repo-owner, data-repo-name, data-issue-number and data-max-comments
attributes.

Configuration is read from TINYUTTERANCES_* environment variables.

Example:
  tinyutterances hydrate post.html -o post.html
  tinyutterances build -o public
  tinyutterances serve --addr :8080`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides TINYUTTERANCES_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json (overrides TINYUTTERANCES_LOG_FORMAT)")
	rootCmd.PersistentFlags().String("db", "", "SQLite path for hydration diagnostics (overrides TINYUTTERANCES_DB_PATH)")
}
