package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/texdown/internal/document"
	"github.com/hupe1980/texdown/internal/fileobserver"
)

// markdownArgs completes positional arguments with Markdown files.
func markdownArgs(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return document.ValidExtensions, cobra.ShellCompDirectiveFilterFileExt
}

// registerFlagCompletions wires value completion for the flags added by
// registerOutputFlags and registerWatchFlags.
func registerFlagCompletions(cmd *cobra.Command) {
	if cmd.Flags().Lookup("output") != nil {
		_ = cmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveFilterDirs
		})
	}

	if cmd.Flags().Lookup("missing") != nil {
		_ = cmd.RegisterFlagCompletionFunc("missing", cobra.FixedCompletions(
			[]string{fileobserver.MissingRetain.String(), fileobserver.MissingDrop.String()}, cobra.ShellCompDirectiveNoFileComp))
	}
}

func newCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for texdown.

To load completions:

Bash:
  $ source <(texdown completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ texdown completion bash > /etc/bash_completion.d/texdown

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ texdown completion zsh > "${fpath[1]}/_texdown"

Fish:
  $ texdown completion fish > ~/.config/fish/completions/texdown.fish

PowerShell:
  PS> texdown completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> texdown completion powershell > texdown.ps1
  # and source this file from your PowerShell profile.
`,
		// Override parent PersistentPreRunE: completion needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Args:              cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:         []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(w, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}

			return nil
		},
	}

	return cmd
}
