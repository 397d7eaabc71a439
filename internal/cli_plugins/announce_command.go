package cliplugins

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"lanshare/internal/discovery"
	"lanshare/internal/multicast"
	"lanshare/internal/node"
	"lanshare/internal/protocol"
)

const (
	kindIDShare      = "id-share"
	kindIDRequest    = "id-request"
	kindSendRequest  = "send-request"
	kindSendAccepted = "send-accepted"
	kindSendRejected = "send-rejected"
)

var messageKinds = []string{kindIDShare, kindIDRequest, kindSendRequest, kindSendAccepted, kindSendRejected}

type MessageSender interface {
	SendMessage(m protocol.Message) error
}

// AnnounceCommand sends one control message to the multicast group.
type AnnounceCommand struct {
	cmd *cobra.Command
	app *AppContext

	identity   func() (nickName, address string)
	openSender func() (MessageSender, func(), error)
}

// NewAnnounceCommand sends through a short-lived multicast client.
func NewAnnounceCommand(app *AppContext) *AnnounceCommand {
	c := &AnnounceCommand{app: app}
	c.identity = func() (string, string) {
		return configIdentity(c.app)
	}
	c.openSender = func() (MessageSender, func(), error) {
		client, err := multicast.New(c.app.Config.MulticastConfig(), c.app.Log)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { client.Close() }, nil
	}
	return c
}

// NewSessionAnnounceCommand sends through the control channel of n.
func NewSessionAnnounceCommand(app *AppContext, n *node.Node) *AnnounceCommand {
	return &AnnounceCommand{
		app: app,
		identity: func() (string, string) {
			return n.Discovery.NickName(), n.Discovery.LocalAddress()
		},
		openSender: func() (MessageSender, func(), error) {
			return n.Control(), func() {}, nil
		},
	}
}

func configIdentity(app *AppContext) (string, string) {
	nick := app.Config.NickName
	if nick == "" {
		nick = discovery.DefaultNickName()
	}
	addr := app.Config.LocalAddress
	if addr == "" {
		addr = discovery.DetectLocalAddress()
	}
	return nick, addr
}

func (c *AnnounceCommand) Meta() *cobra.Command {
	if c.cmd != nil {
		return c.cmd
	}
	c.cmd = &cobra.Command{
		Use:       "announce TYPE",
		Short:     "Send one control message to the group",
		Long:      "Send one control message to the multicast group.\nTYPE is one of: id-share, id-request, send-request, send-accepted, send-rejected.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: messageKinds,
	}
	c.cmd.Flags().String("nick", "", "Nickname for id-share (default: own nickname)")
	c.cmd.Flags().String("ip", "", "Address carried by the message (default: own address)")
	c.cmd.Flags().IntP("port", "p", 0, "Port for send-accepted (default: transfer port)")
	return c.cmd
}

func (c *AnnounceCommand) Execute(cmd *cobra.Command, args []string) error {
	const op = "cliplugins.AnnounceCommand.Execute"

	nick, addr := c.identity()
	if v, _ := cmd.Flags().GetString("nick"); v != "" {
		nick = v
	}
	if v, _ := cmd.Flags().GetString("ip"); v != "" {
		addr = v
	}
	port, _ := cmd.Flags().GetInt("port")
	if port == 0 {
		port = c.app.Config.Transfer.Port
	}

	msg, err := buildMessage(args[0], nick, addr, port)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sender, release, err := c.openSender()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer release()

	if err := sender.SendMessage(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.app.Log.Debug("message sent", slog.String("op", op), slog.String("tag", msg.Tag().String()))
	fmt.Fprintf(cmd.OutOrStdout(), "sent %s %v\n", msg.Tag(), msg.Fields())
	return nil
}

func buildMessage(kind, nick, addr string, port int) (protocol.Message, error) {
	switch kind {
	case kindIDShare:
		return protocol.NewIDShare(nick, addr), nil
	case kindIDRequest:
		return protocol.NewIDRequest(), nil
	case kindSendRequest:
		return protocol.NewSendRequest(addr), nil
	case kindSendAccepted:
		if port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid port %d", port)
		}
		return protocol.NewSendRequestAccepted(addr, port), nil
	case kindSendRejected:
		return protocol.NewSendRequestRejected(addr), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, kind)
	}
}
