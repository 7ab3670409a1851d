package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/eoinhurrell/citelink/internal/errors"
)

// HandleError processes errors consistently across all commands
func HandleError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}

	// Get verbosity flags
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")

	// Create error handler
	errorHandler := errors.NewErrorHandler(verbose, quiet)

	// Format and display error
	errorMessage := errorHandler.Handle(err)
	
	if !quiet {
		cmd.PrintErrln(errorMessage)
	}

	// Exit with appropriate code
	os.Exit(errors.ExitCode(err))
}

// WithErrorHandling wraps a command function with consistent error handling
func WithErrorHandling(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		if err := fn(cmd, args); err != nil {
			HandleError(cmd, err)
		}
	}
}

// CommonErrorSuggestions provides suggestions for common error scenarios
type CommonErrorSuggestions struct{}

// ForFileOperation suggests solutions for file operation errors
func (s CommonErrorSuggestions) ForFileOperation(operation, file string, err error) string {
	switch operation {
	case "scan":
		return "Ensure the scope folder exists and you have read permissions. Use --verbose to see which files are being processed."
	case "parse":
		return "Check the file for malformed wiki links or unterminated markdown links. Use --dry-run to test without making changes."
	case "write":
		return "Ensure you have write permissions and sufficient disk space. 'citelink fix' backs the file up first (see --backup-dir) unless safety backups are disabled in .citelink.yaml."
	default:
		return "Use --help to see available options, or --verbose for more detailed output."
	}
}

// ForValidationOperation suggests solutions for anchor/pattern validation errors
func (s CommonErrorSuggestions) ForValidationOperation(field, expectedType string) string {
	switch expectedType {
	case "header":
		return "Use the target header's raw text, URL-encoded (spaces as %20). Example: [text](./doc.md#My%20Header)"
	case "block":
		return "Block references must point at an existing ^blockid in the target file."
	case "caret":
		return "Caret block ids must match a requirement/AC/task numbering (FR1, NFR2, US1-4bT1-1, MVP-P1) or be kebab-case."
	default:
		return "Check the link shape. Use 'citelink validate --help' for more information."
	}
}

// ForConfigOperation suggests solutions for configuration errors
func (s CommonErrorSuggestions) ForConfigOperation(configFile string) string {
	return "Check .citelink.yaml for syntax errors, ensure required fields are present, and verify file permissions. " +
		"Use 'citelink cache build' to confirm the scope folder resolves correctly."
}

// ForExtractionOperation suggests solutions for content extraction errors
func (s CommonErrorSuggestions) ForExtractionOperation(reason string) string {
	switch reason {
	case "heading not found":
		return "The target heading may have been renamed. Re-run 'citelink validate' to see the closest matching headers."
	case "block not found":
		return "The target ^blockid no longer exists in the target file."
	default:
		return "Re-run 'citelink validate' first; extraction only processes links that already passed validation."
	}
}