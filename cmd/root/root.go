// Package root wires the citelink command tree together.
package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eoinhurrell/citelink/cmd/cache"
	"github.com/eoinhurrell/citelink/cmd/extract"
	"github.com/eoinhurrell/citelink/cmd/fix"
	"github.com/eoinhurrell/citelink/cmd/validate"
	"github.com/eoinhurrell/citelink/cmd/watch"
)

// NewRootCommand creates the root command for citelink.
func NewRootCommand() *cobra.Command {
	var zshCompletion bool

	cmd := &cobra.Command{
		Use:   "citelink",
		Short: "Validate and extract cross-document Markdown citations",
		Long: `citelink validates Obsidian-flavored Markdown links (wiki links,
cross-document section links, caret block references) and can extract the
content they point at for downstream consumption.`,
		Version: "1.0.0",
		Run: func(cmd *cobra.Command, args []string) {
			if zshCompletion {
				if err := cmd.Root().GenZshCompletion(os.Stdout); err != nil {
					fmt.Fprintf(os.Stderr, "Error generating zsh completion: %v\n", err)
					os.Exit(1)
				}
				return
			}
			cmd.Help()
		},
	}

	cmd.PersistentFlags().String("scope", "", "Scope folder used to resolve basename-only link targets")
	cmd.PersistentFlags().String("config", "", "Config file (default: .citelink.yaml)")
	cmd.PersistentFlags().String("format", "cli", "Output format: cli or json")
	cmd.PersistentFlags().Bool("dry-run", false, "Preview changes without applying them")
	cmd.PersistentFlags().Bool("verbose", false, "Print error codes and suggestions in full")
	cmd.PersistentFlags().Bool("quiet", false, "Suppress all output except the final summary")

	cmd.Flags().BoolVar(&zshCompletion, "zsh-completion", false, "Generate zsh completion script")

	cmd.AddCommand(validate.NewValidateCommand())
	cmd.AddCommand(extract.NewExtractCommand())
	cmd.AddCommand(fix.NewFixCommand())
	cmd.AddCommand(cache.NewCacheCommand())
	cmd.AddCommand(watch.NewWatchCommand())
	cmd.AddCommand(newCompletionCommand())

	setupCustomCompletions(cmd)

	return cmd
}

// newCompletionCommand creates the completion command.
func newCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate completion script",
		Long: `To load completions:

Bash:

  $ source <(citelink completion bash)

Zsh:

  $ citelink completion zsh > "${fpath[1]}/_citelink"

fish:

  $ citelink completion fish | source

PowerShell:

  PS> citelink completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Run: func(cmd *cobra.Command, args []string) {
			switch args[0] {
			case "bash":
				cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
		},
	}
}

// setupCustomCompletions registers directory/file/flag completion across
// the subcommand tree.
func setupCustomCompletions(cmd *cobra.Command) {
	cmd.RegisterFlagCompletionFunc("config", CompleteConfigFiles)
	cmd.RegisterFlagCompletionFunc("format", CompleteOutputFormats)

	for _, subCmd := range cmd.Commands() {
		switch subCmd.Name() {
		case "validate", "extract", "fix", "cache", "watch":
			subCmd.ValidArgsFunction = CompleteMarkdownFiles
		}
		subCmd.RegisterFlagCompletionFunc("scope", CompleteDirs)
		subCmd.RegisterFlagCompletionFunc("format", CompleteOutputFormats)
	}
}

// CompleteDirs provides directory completion.
func CompleteDirs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveFilterDirs
}

// CompleteMarkdownFiles provides markdown file completion.
func CompleteMarkdownFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"md", "markdown"}, cobra.ShellCompDirectiveFilterFileExt
}

// CompleteConfigFiles provides config file completion.
func CompleteConfigFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
}

// CompleteOutputFormats provides completion for the --format flag.
func CompleteOutputFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"cli", "json"}, cobra.ShellCompDirectiveNoFileComp
}
