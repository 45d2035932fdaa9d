// Package cli provides the command-line interface for LeapBundle.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapbundle/internal/cli/commands"
	"github.com/leapstack-labs/leapbundle/internal/cli/config"
	"github.com/leapstack-labs/leapbundle/internal/cli/output"
	intconfig "github.com/leapstack-labs/leapbundle/internal/config"
	"github.com/leapstack-labs/leapbundle/internal/plugin"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "leapbundle",
		Short: "LeapBundle - Module Graph Assembly Engine",
		Long: `LeapBundle assembles the module graph of a JavaScript/TypeScript project.

Starting from the configured entries it resolves every import, builds each
module once with esbuild and records one connection per dependency. A
generation is published only when it completes without errors.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := config.NewLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.Verbose)
			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Built with Go and esbuild
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./leapbundle.yaml)")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.StringP("output", "o", "", "Output format (auto|text|json|yaml)")
	flags.String("log-format", "", "Log format (text|json)")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file")

	// Compiler options
	flags.String("context", "", "Directory entry requests resolve against")
	flags.StringToString("entry", nil, "Entry as name=request (repeatable)")
	flags.String("mode", "", "Compilation mode (development|production)")
	flags.Bool("tree-shaking", false, "Record export usage on every resolved edge")
	flags.StringSlice("external", nil, "Bare requests left for the runtime to provide")
	flags.StringSlice("plugin", nil, "Plugins to run, in order")
	flags.Bool("cache", false, "Enable the persistent build cache")
	flags.String("cache-path", "", "Path to the build cache database")
	flags.Int("workers", 0, "Concurrent resolve/build tasks (default: GOMAXPROCS)")
	flags.Bool("profile", false, "Record per-module timings")
	flags.Duration("timeout", 0, "Abort a generation that runs longer")

	// Register completion for flags with a fixed set of values
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{intconfig.ModeDevelopment, intconfig.ModeProduction}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("plugin", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return plugin.ListPlugins(), cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewMakeCommand())
	rootCmd.AddCommand(commands.NewGraphCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel a running generation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for LeapBundle.

To load completions:

Bash:
  $ source <(leapbundle completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ leapbundle completion bash > /etc/bash_completion.d/leapbundle
  # macOS:
  $ leapbundle completion bash > $(brew --prefix)/etc/bash_completion.d/leapbundle

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ leapbundle completion zsh > "${fpath[1]}/_leapbundle"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ leapbundle completion fish | source

  # To load completions for each session, execute once:
  $ leapbundle completion fish > ~/.config/fish/completions/leapbundle.fish

PowerShell:
  PS> leapbundle completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> leapbundle completion powershell > leapbundle.ps1
  # and source this file from your PowerShell profile.
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
	return cmd
}
