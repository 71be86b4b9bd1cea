package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "diagramsvc",
	Short: "Diagram generation microservice",
	Long: `diagramsvc accepts diagram_request messages over a WebSocket connection
and produces SVG, Mermaid, or chart artifacts using a template-first,
LLM-fallback generation pipeline.

  serve               Run the WebSocket server
  version             Show version information
  validate-templates  Load the SVG template directory and report slot arity

Use "diagramsvc <command> --help" for details on a given command.`,
}

// Execute adds all child commands to rootCmd and runs it. Called once by
// main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file (defaults built in, see spec.md §6.3)")
}
