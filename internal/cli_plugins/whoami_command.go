package cliplugins

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"lanshare/internal/node"
)

// WhoamiCommand prints the identity this client announces.
type WhoamiCommand struct {
	cmd      *cobra.Command
	app      *AppContext
	identity func() (nickName, address string)
}

func NewWhoamiCommand(app *AppContext) *WhoamiCommand {
	c := &WhoamiCommand{app: app}
	c.identity = func() (string, string) {
		return configIdentity(c.app)
	}
	return c
}

func NewSessionWhoamiCommand(app *AppContext, n *node.Node) *WhoamiCommand {
	return &WhoamiCommand{
		app: app,
		identity: func() (string, string) {
			return n.Discovery.NickName(), n.Discovery.LocalAddress()
		},
	}
}

func (c *WhoamiCommand) Meta() *cobra.Command {
	if c.cmd != nil {
		return c.cmd
	}
	c.cmd = &cobra.Command{
		Use:   "whoami",
		Short: "Show the nickname and address announced to peers",
		Args:  cobra.NoArgs,
	}
	return c.cmd
}

func (c *WhoamiCommand) Execute(cmd *cobra.Command, args []string) error {
	nick, addr := c.identity()
	group := net.JoinHostPort(c.app.Config.Multicast.GroupAddress, strconv.Itoa(c.app.Config.Multicast.Port))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "nick:    %s\n", nick)
	fmt.Fprintf(out, "address: %s\n", addr)
	fmt.Fprintf(out, "group:   %s\n", group)
	return nil
}
