// Package validate implements "citelink validate", reporting the status of
// every outgoing link in a source Markdown file.
package validate

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eoinhurrell/citelink/internal/cli"
	"github.com/eoinhurrell/citelink/internal/core"
	"github.com/eoinhurrell/citelink/internal/linkmodel"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <source>",
		Short: "Validate every outgoing citation link in a Markdown file",
		Long: `Validate classifies, resolves, and verifies every wiki link, cross-document
link, and caret block reference found in <source>, reporting a status
("valid", "warning", or "error") for each.

Examples:
  citelink validate notes/design.md
  citelink validate --scope ./vault notes/design.md
  citelink validate --format json notes/design.md`,
		Args: cobra.ExactArgs(1),
		Run:  cli.WithErrorHandling(runValidate),
	}

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	source := args[0]
	scope, _ := cmd.Root().PersistentFlags().GetString("scope")
	format, _ := cmd.Root().PersistentFlags().GetString("format")
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")

	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return err
	}
	if scope == "" && cfg != nil {
		scope = cfg.Vault.ScopeFolder
	}

	reporter := cli.ReporterFor(cmd, format, quiet)
	result, err := core.Validate(cmd.Context(), source, core.Options{Scope: scope, Reporter: reporter})
	if err != nil {
		return fmt.Errorf("validating %s: %w", source, err)
	}

	if format == "json" {
		return renderJSON(cmd, result)
	}
	return renderTable(cmd, source, result, quiet)
}

type jsonReport struct {
	Summary *summaryView      `json:"summary"`
	Links   []*linkmodel.Link `json:"links"`
}

type summaryView struct {
	Total    int `json:"total"`
	Valid    int `json:"valid"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

func renderJSON(cmd *cobra.Command, result *core.ValidationResult) error {
	report := jsonReport{
		Summary: &summaryView{
			Total:    result.Summary.Total,
			Valid:    result.Summary.Valid,
			Warnings: result.Summary.Warnings,
			Errors:   result.Summary.Errors,
		},
		Links: result.Links,
	}
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	cmd.Println(string(b))
	return nil
}

func renderTable(cmd *cobra.Command, source string, result *core.ValidationResult, quiet bool) error {
	if !quiet {
		for _, link := range result.Links {
			status := "valid"
			detail := ""
			if link.Validation != nil {
				status = string(link.Validation.Status)
				if link.Validation.Error != "" {
					detail = " - " + link.Validation.Error
				}
			}
			cmd.Printf("[%s] line %d: %s%s\n", status, link.Line, link.FullMatch, detail)
		}
	}

	s := result.Summary
	cmd.Printf("\n%s: %d link(s), %d valid, %d warning(s), %d error(s)\n",
		source, s.Total, s.Valid, s.Warnings, s.Errors)

	if s.Errors > 0 {
		return fmt.Errorf("%d link(s) failed validation", s.Errors)
	}
	return nil
}
