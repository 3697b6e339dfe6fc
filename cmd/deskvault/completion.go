package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/forest6511/deskvault/pkg/document"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate completion script for your shell",
	Long: `To load completions:

Bash:
  $ source <(deskvault completion bash)

  # To load for each session (Linux):
  $ deskvault completion bash > ~/.local/share/bash-completion/completions/deskvault

  # To load for each session (macOS with Homebrew):
  $ deskvault completion bash > $(brew --prefix)/etc/bash_completion.d/deskvault

Zsh:
  # Ensure completion is enabled:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # Generate completion:
  $ deskvault completion zsh > ~/.zsh/completions/_deskvault

Fish:
  $ deskvault completion fish > ~/.config/fish/completions/deskvault.fish

PowerShell:
  PS> deskvault completion powershell >> $PROFILE

Task and note ids are not completed; completing them would need the vault
to be unlocked.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(out)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
	registerCompletionFunctions()
}

// registerCompletionFunctions completes the fixed vocabularies: statuses,
// priorities and log levels. None of them touch the vault.
func registerCompletionFunctions() {
	for _, c := range []*cobra.Command{taskAddCmd, taskEditCmd, taskListCmd} {
		_ = c.RegisterFlagCompletionFunc("status", completeStatuses)
	}
	for _, c := range []*cobra.Command{taskAddCmd, taskEditCmd} {
		_ = c.RegisterFlagCompletionFunc("priority", completePriorities)
	}
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", cobra.FixedCompletions(
		[]string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp))

	taskMoveCmd.ValidArgsFunction = func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 1 {
			return completeStatuses(nil, nil, "")
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
}

func completeStatuses(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	out := make([]string, len(document.Statuses))
	for i, s := range document.Statuses {
		out[i] = string(s)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func completePriorities(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		string(document.PriorityA),
		string(document.PriorityB),
		string(document.PriorityC),
	}, cobra.ShellCompDirectiveNoFileComp
}
