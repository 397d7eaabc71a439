// Package cli assembles a cobra command tree from self-describing plugins.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type CommandPlugin interface {
	Meta() *cobra.Command
	Execute(cmd *cobra.Command, args []string) error
}

type CLI struct {
	rootCmd        *cobra.Command
	plugins        []CommandPlugin
	completionDone bool
}

func NewCLI(use, short string) *CLI {
	return &CLI{
		rootCmd: &cobra.Command{
			Use:           use,
			Short:         short,
			SilenceUsage:  true,
			SilenceErrors: true,
		},
		plugins: make([]CommandPlugin, 0, 10),
	}
}

// Root exposes the root command for persistent flags and hooks.
func (c *CLI) Root() *cobra.Command {
	return c.rootCmd
}

func (c *CLI) Plugins() []CommandPlugin {
	return c.plugins
}

func (c *CLI) RegisterPlugin(p CommandPlugin) {
	c.plugins = append(c.plugins, p)
	cmd := p.Meta()
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return p.Execute(cmd, args)
	}
	c.rootCmd.AddCommand(cmd)
}

func (c *CLI) initCompletion() {
	if c.completionDone {
		return
	}
	c.completionDone = true

	c.rootCmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string,
	) ([]string, cobra.ShellCompDirective) {
		names := make([]string, 0, len(c.plugins))
		for _, plugin := range c.plugins {
			names = append(names, plugin.Meta().Name())
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	}

	completionCmd := &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate completion script",
		Long:      "Generate the completion script for bash, zsh, fish or powershell",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.GenCompletion(cmd.OutOrStdout(), args[0])
		},
	}
	// source <(lanshare completion zsh)
	c.rootCmd.AddCommand(completionCmd)
	c.rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GenCompletion writes the completion script for shell to w.
func (c *CLI) GenCompletion(w io.Writer, shell string) error {
	switch shell {
	case "bash":
		return c.rootCmd.GenBashCompletionV2(w, true)
	case "zsh":
		return c.rootCmd.GenZshCompletion(w)
	case "fish":
		return c.rootCmd.GenFishCompletion(w, true)
	case "powershell":
		return c.rootCmd.GenPowerShellCompletion(w)
	default:
		return fmt.Errorf("unsupported shell: %s", shell)
	}
}

func (c *CLI) Run(ctx context.Context, args []string) error {
	c.initCompletion()
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}
