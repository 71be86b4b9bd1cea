package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/archviz/diagramsvc/internal/svgtmpl"
)

var validateTemplateDir string

// validateTemplatesCmd loads every SVG under --dir the same way internal/service
// does at startup and reports each template's slot arity, so a malformed
// template (spec.md §4.5's MalformedTemplate, fatal at startup) is caught by
// CI before it ever reaches a running service.
var validateTemplatesCmd = &cobra.Command{
	Use:   "validate-templates",
	Short: "Load and report the SVG template directory's slot arity",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := svgtmpl.LoadDir(validateTemplateDir)
		if err != nil {
			return fmt.Errorf("load templates from %q: %w", validateTemplateDir, err)
		}
		ids := lib.IDs()
		fmt.Fprintf(os.Stdout, "%d templates loaded from %s\n", len(ids), validateTemplateDir)
		for _, id := range ids {
			tmpl := lib.Template(id)
			fmt.Fprintf(os.Stdout, "  %-24s text=%d fill=%d\n", id, tmpl.TextSlotCount(), tmpl.FillSlotCount())
		}
		return nil
	},
}

func init() {
	validateTemplatesCmd.Flags().StringVar(&validateTemplateDir, "dir", "templates", "directory of SVG templates to validate")
	rootCmd.AddCommand(validateTemplatesCmd)
}
