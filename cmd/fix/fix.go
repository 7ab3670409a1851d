// Package fix implements "citelink fix", the one command that rewrites a
// source file: it applies the path corrections validate already surfaced.
package fix

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eoinhurrell/citelink/internal/cli"
	"github.com/eoinhurrell/citelink/internal/core"
	"github.com/eoinhurrell/citelink/internal/linkmodel"
	"github.com/eoinhurrell/citelink/internal/safety"
)

// NewFixCommand creates the fix command.
func NewFixCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix <source>",
		Short: "Rewrite validated path-conversion suggestions into a source file",
		Long: `Fix re-validates <source>, collects every link carrying a pathConversion
suggestion (a link that resolved but was written with a path other than
the one relative to source), and rewrites those targets in place.

A backup is taken before every write; use --dry-run to preview the
changes without touching the file.

Examples:
  citelink fix notes/design.md
  citelink fix --dry-run --scope ./vault notes/design.md`,
		Args: cobra.ExactArgs(1),
		Run:  cli.WithErrorHandling(runFix),
	}

	cmd.Flags().String("backup-dir", ".citelink-backup", "Directory backups are written to before a fix rewrite")

	return cmd
}

func runFix(cmd *cobra.Command, args []string) error {
	source := args[0]
	scope, _ := cmd.Root().PersistentFlags().GetString("scope")
	format, _ := cmd.Root().PersistentFlags().GetString("format")
	dryRun, _ := cmd.Root().PersistentFlags().GetBool("dry-run")
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	backupDir, _ := cmd.Flags().GetString("backup-dir")

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

	conversions := pathConversions(result.Links)
	if len(conversions) == 0 {
		if !quiet {
			cmd.Println("no path-conversion suggestions found; nothing to fix")
		}
		return nil
	}

	content, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("reading %s: %w", source, err)
	}

	recorder := safety.NewDryRunRecorder()
	rewritten := string(content)
	for _, link := range conversions {
		pc := link.Validation.PathConversion
		recorder.Record(safety.Operation{
			Type: "path-conversion",
			File: source,
			Changes: []safety.Change{{
				Field:    "target.path",
				OldValue: pc.Original,
				NewValue: pc.Recommended,
				Action:   "modify",
				Reason:   "link resolved through a path other than the one written",
			}},
			Description: fmt.Sprintf("rewrite %q to %q", pc.Original, pc.Recommended),
		})
		rewritten = strings.ReplaceAll(rewritten, pc.Original, pc.Recommended)
	}

	if dryRun {
		cmd.Println(recorder.GenerateReport())
		return nil
	}

	createBackup := true
	if cfg != nil {
		createBackup = cfg.Safety.CreateBackup
	}

	if createBackup {
		backups := safety.NewBackupManager(backupDir)
		if _, err := backups.CreateBackup(source); err != nil {
			return fmt.Errorf("backing up %s before fix: %w", source, err)
		}
		if cfg != nil && cfg.Safety.BackupRetention != "" {
			if retention, parseErr := time.ParseDuration(cfg.Safety.BackupRetention); parseErr == nil {
				backups.CleanupOld(retention)
			}
		}
	}

	if err := os.WriteFile(source, []byte(rewritten), 0o644); err != nil {
		return fmt.Errorf("writing fixed %s: %w", source, err)
	}

	if !quiet {
		if createBackup {
			cmd.Printf("applied %d path correction(s) to %s (backup in %s)\n", len(conversions), source, backupDir)
		} else {
			cmd.Printf("applied %d path correction(s) to %s (no backup: disabled by config)\n", len(conversions), source)
		}
	}
	return nil
}

func pathConversions(links []*linkmodel.Link) []*linkmodel.Link {
	var out []*linkmodel.Link
	for _, link := range links {
		if link.Validation != nil && link.Validation.PathConversion != nil {
			out = append(out, link)
		}
	}
	return out
}
