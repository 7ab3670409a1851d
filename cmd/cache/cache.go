// Package cache implements "citelink cache", a thin wrapper over
// FileCache.BuildCache for inspecting basename resolution in a scope
// folder ahead of a validate or extract run.
package cache

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eoinhurrell/citelink/internal/cli"
	"github.com/eoinhurrell/citelink/internal/filecache"
)

// NewCacheCommand creates the cache command.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the basename resolution cache for a scope folder",
	}

	cmd.AddCommand(newBuildCommand())
	return cmd
}

func newBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <scope>",
		Short: "Build the basename index for scope and report duplicates",
		Long: `Build walks scope, indexes every regular file by basename, and reports
how many files were indexed and which basenames are ambiguous (shared by
more than one file). It performs no validation itself; it is a quick way
to confirm a scope folder resolves link targets the way you expect before
running validate or extract against it.`,
		Args: cobra.ExactArgs(1),
		Run:  cli.WithErrorHandling(runBuild),
	}
	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	scope := args[0]
	format, _ := cmd.Root().PersistentFlags().GetString("format")

	c := filecache.New()
	result, err := c.BuildCache(scope)
	if err != nil {
		return fmt.Errorf("building cache for %s: %w", scope, err)
	}

	if format == "json" {
		b, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		cmd.Println(string(b))
		return nil
	}

	cmd.Printf("%s: %d file(s) indexed\n", result.ScopeFolder, result.TotalFiles)
	if len(result.Duplicates) == 0 {
		cmd.Println("no duplicate basenames")
		return nil
	}
	cmd.Printf("%d ambiguous basename(s):\n", len(result.Duplicates))
	for _, name := range result.Duplicates {
		cmd.Printf("  - %s\n", name)
	}
	return nil
}
