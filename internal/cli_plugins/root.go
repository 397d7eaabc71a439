package cliplugins

import (
	"github.com/spf13/cobra"

	"lanshare/pkg/cli"
)

// NewRootCLI registers every top-level command. The config is loaded once,
// before the selected command runs.
func NewRootCLI(app *AppContext) *cli.CLI {
	c := cli.NewCLI("lanshare", "Find peers on the local network")

	root := c.Root()
	root.PersistentFlags().StringVarP(&app.ConfigPath, "config", "c", "", "Path to the config file (default: $CONFIG_PATH)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "completion" {
			return nil
		}
		return app.Load()
	}

	c.RegisterPlugin(NewDiscoverCommand(app))
	c.RegisterPlugin(NewPeersCommand(app))
	c.RegisterPlugin(NewAnnounceCommand(app))
	c.RegisterPlugin(NewWhoamiCommand(app))
	c.RegisterPlugin(NewProbeCommand(app))
	return c
}
