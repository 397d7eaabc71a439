package cliplugins

import (
	"fmt"

	"github.com/spf13/cobra"

	"lanshare/internal/node"
	"lanshare/pkg/cli"
)

// NewSessionCLI builds the command tree of the interactive console that
// runs next to a started node.
func NewSessionCLI(app *AppContext, n *node.Node) *cli.CLI {
	c := cli.NewCLI("lanshare", "lanshare console")
	c.RegisterPlugin(&LivePeersCommand{node: n})
	c.RegisterPlugin(&NickCommand{node: n})
	c.RegisterPlugin(NewSessionWhoamiCommand(app, n))
	c.RegisterPlugin(NewSessionAnnounceCommand(app, n))
	c.RegisterPlugin(NewHistoryCommand(app, n.History, n.Journal))
	c.RegisterPlugin(NewProbeCommand(app))
	return c
}

// LivePeersCommand prints the current peer table.
type LivePeersCommand struct {
	cmd  *cobra.Command
	node *node.Node
}

func (c *LivePeersCommand) Meta() *cobra.Command {
	if c.cmd != nil {
		return c.cmd
	}
	c.cmd = &cobra.Command{
		Use:   "peers",
		Short: "Show peers connected right now",
		Args:  cobra.NoArgs,
	}
	c.cmd.Flags().BoolP("json", "j", false, "Print JSON")
	return c.cmd
}

func (c *LivePeersCommand) Execute(cmd *cobra.Command, args []string) error {
	if c.node.Discovery.IsClosed() {
		return ErrNotRunning
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	return printLivePeers(cmd.OutOrStdout(), c.node.Discovery.Peers(), asJSON)
}

// NickCommand changes the announced nickname.
type NickCommand struct {
	cmd  *cobra.Command
	node *node.Node
}

func (c *NickCommand) Meta() *cobra.Command {
	if c.cmd != nil {
		return c.cmd
	}
	c.cmd = &cobra.Command{
		Use:   "nick NAME",
		Short: "Change the nickname announced to peers",
		Args:  cobra.ExactArgs(1),
	}
	return c.cmd
}

func (c *NickCommand) Execute(cmd *cobra.Command, args []string) error {
	if c.node.Discovery.SetNickName(args[0]) {
		fmt.Fprintf(cmd.OutOrStdout(), "nickname is now %s\n", args[0])
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "nickname unchanged: %s\n", c.node.Discovery.NickName())
	return nil
}
