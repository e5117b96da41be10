// Package cli provides the command-line interface for mstools.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/leapstack-labs/mstools/internal/cli/commands"
	"github.com/leapstack-labs/mstools/internal/cli/config"
	"github.com/leapstack-labs/mstools/internal/cli/output"
	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/spf13/cobra"

	// Import store packages to ensure stores are registered via init()
	_ "github.com/leapstack-labs/mstools/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/mstools/pkg/adapters/memory"
	_ "github.com/leapstack-labs/mstools/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/mstools/pkg/adapters/sqlite"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// rendererKey is used to store renderer in context.
type rendererKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mstools",
		Short: "mstools - Measurement Set tools for VLBI",
		Long: `mstools inspects and repairs VLBI visibility datasets.

It swaps or copies polarization hands, corrects 1-bit sampled amplitudes,
reverses inverted subbands, flags low-weight visibilities, renames the
project or sources and fixes antenna mount types. Transforms touch only
the rows whose baselines include the selected antennas.`,
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
			ctx := config.WithLogger(cmd.Context(), logger)
			ctx = context.WithValue(ctx, configKey{}, cfg)

			renderer := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))
			ctx = context.WithValue(ctx, rendererKey{}, renderer)
			cmd.SetContext(ctx)

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			logger.Debug("configuration loaded", "store", cfg.Store.Type, "chunk_size", cfg.ChunkSize, "dry_run", cfg.DryRun)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Measurement Set tools for VLBI visibility data
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: mstools.yaml in the project root)")
	flags.String("store", "", "Table store backend (duckdb|sqlite|postgres|memory)")
	flags.Int("chunk-size", 0, "Rows per chunk")
	flags.String("weight-reference", "", "flag_weights threshold reference (absolute|max)")
	flags.StringSlice("one-bit", nil, "Extra 1-bit sampled antennas for scale1bit")
	flags.Bool("dry-run", false, "Report what would change without writing")
	flags.Bool("progress", true, "Show a progress bar on terminals")
	flags.String("journal", "", "Run journal path (default .mstools/journal.db, \"\" disables)")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.String("log-format", "", "Log format (text|json)")
	flags.StringP("output", "o", "", "Output format (auto|text|json|yaml)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("store", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return adapter.ListStores(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(commands.BuildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildDate: BuildDate,
	}))
	rootCmd.AddCommand(commands.NewViewCommand())
	rootCmd.AddCommand(commands.NewExportCommand())
	rootCmd.AddCommand(commands.NewSynthCommand())
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{Output: config.DefaultOutput, LogFormat: config.DefaultLogFormat, Progress: true}
}

// GetRenderer retrieves the renderer from the command context.
func GetRenderer(ctx context.Context) *output.Renderer {
	if r, ok := ctx.Value(rendererKey{}).(*output.Renderer); ok {
		return r
	}
	return output.NewRenderer(os.Stdout, os.Stderr, output.ModeAuto)
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for mstools.

To load completions:

Bash:
  $ source <(mstools completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ mstools completion bash > /etc/bash_completion.d/mstools
  # macOS:
  $ mstools completion bash > $(brew --prefix)/etc/bash_completion.d/mstools

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ mstools completion zsh > "${fpath[1]}/_mstools"

Fish:
  $ mstools completion fish | source

  # To load completions for each session, execute once:
  $ mstools completion fish > ~/.config/fish/completions/mstools.fish

PowerShell:
  PS> mstools completion powershell | Out-String | Invoke-Expression
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
