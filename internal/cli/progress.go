package cli

import (
	"github.com/spf13/cobra"

	"github.com/eoinhurrell/citelink/internal/progress"
)

// ReporterFor builds the progress.Reporter a validate/extract run should
// drive: Silent under --quiet or --format json (a JSON report must stay
// the only thing written to stdout), Terminal otherwise, writing to cmd's
// configured output so tests can capture it.
func ReporterFor(cmd *cobra.Command, format string, quiet bool) progress.Reporter {
	if quiet || format == "json" {
		return progress.NewSilent()
	}
	return progress.NewReporter(progress.Options{Type: "terminal", Writer: cmd.OutOrStdout()})
}
