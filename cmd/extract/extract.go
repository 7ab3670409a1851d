// Package extract implements "citelink extract", retrieving the content
// behind every eligible outgoing link in a source Markdown file.
package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eoinhurrell/citelink/internal/cli"
	"github.com/eoinhurrell/citelink/internal/core"
)

// NewExtractCommand creates the extract command.
func NewExtractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <source>",
		Short: "Extract the content behind a Markdown file's outgoing citations",
		Long: `Extract validates <source> and then retrieves the content each eligible
link points at: header sections, caret block references, and (with
--full-files) whole target files. Retrieved content is deduplicated by a
content hash so repeated targets are only fetched once.

Examples:
  citelink extract notes/design.md
  citelink extract --full-files --scope ./vault notes/design.md
  citelink extract --lines 10-40 notes/design.md`,
		Args: cobra.ExactArgs(1),
		Run:  cli.WithErrorHandling(runExtract),
	}

	cmd.Flags().Bool("full-files", false, "Treat anchor-less links as eligible for whole-file extraction")
	cmd.Flags().String("lines", "", "Clip the source to a 1-indexed line range (start-end) before link discovery")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	source := args[0]
	scope, _ := cmd.Root().PersistentFlags().GetString("scope")
	format, _ := cmd.Root().PersistentFlags().GetString("format")
	fullFiles, _ := cmd.Flags().GetBool("full-files")
	lines, _ := cmd.Flags().GetString("lines")

	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg != nil {
		if scope == "" {
			scope = cfg.Vault.ScopeFolder
		}
		if !cmd.Flags().Changed("full-files") {
			fullFiles = cfg.Extraction.FullFiles
		}
	}

	if lines != "" {
		clipped, cleanup, err := clipToLines(source, lines)
		if err != nil {
			return fmt.Errorf("clipping %s to lines %s: %w", source, lines, err)
		}
		defer cleanup()
		source = clipped
	}

	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	reporter := cli.ReporterFor(cmd, format, quiet)
	result, err := core.Extract(cmd.Context(), source, core.Options{Scope: scope, FullFiles: fullFiles, Reporter: reporter})
	if err != nil {
		return fmt.Errorf("extracting %s: %w", source, err)
	}

	if format == "json" {
		b, mErr := json.MarshalIndent(result, "", "  ")
		if mErr != nil {
			return fmt.Errorf("encoding report: %w", mErr)
		}
		cmd.Println(string(b))
		return nil
	}

	cmd.Printf("run %s: %d link(s) processed, %d unique block(s), %d duplicate(s), %d skipped, %d failed\n",
		result.RunID, result.Stats.TotalLinks, result.Stats.UniqueContent,
		result.Stats.DuplicateContentDetected, result.Stats.Skipped, result.Stats.Failed)
	for id, block := range result.ExtractedContentBlocks {
		cmd.Printf("\n--- %s (from %d link(s)) ---\n%s\n", id, len(block.SourceLinks), block.Content)
	}
	return nil
}

// clipToLines writes a temporary copy of source containing only the
// 1-indexed, inclusive start-end line range, so link discovery runs over
// the clipped excerpt rather than the whole file. The core pipeline never
// sees the original path or the range; this is shell-level argument
// pre-processing only.
func clipToLines(source, rng string) (clippedPath string, cleanup func(), err error) {
	start, end, err := parseLineRange(rng)
	if err != nil {
		return "", nil, err
	}

	content, err := os.ReadFile(source)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", source, err)
	}

	all := strings.Split(string(content), "\n")
	if start < 1 {
		start = 1
	}
	if end > len(all) {
		end = len(all)
	}
	if start > end {
		return "", nil, fmt.Errorf("invalid line range %s for a %d-line file", rng, len(all))
	}
	excerpt := strings.Join(all[start-1:end], "\n")

	// Written alongside source, not in a system temp dir, so the excerpt's
	// relative links still resolve against the original sibling files.
	tmp, err := os.CreateTemp(filepath.Dir(source), ".citelink-clip-*.md")
	if err != nil {
		return "", nil, fmt.Errorf("creating clipped excerpt: %w", err)
	}
	if _, err := tmp.WriteString(excerpt); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("writing clipped excerpt: %w", err)
	}
	tmp.Close()

	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

func parseLineRange(rng string) (start, end int, err error) {
	parts := strings.SplitN(rng, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected start-end, got %q", rng)
	}
	start, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start %q: %w", parts[0], err)
	}
	end, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end %q: %w", parts[1], err)
	}
	return start, end, nil
}
