package cliplugins

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"lanshare/internal/config"
	"lanshare/internal/console"
	"lanshare/internal/node"
	"lanshare/internal/util/logger/sl"
	"lanshare/internal/watcher"
)

// DiscoverCommand runs a node until it is interrupted.
type DiscoverCommand struct {
	cmd *cobra.Command
	app *AppContext

	newNode    func(ctx context.Context, cfg *config.Config, opts node.Options, log *slog.Logger) (*node.Node, error)
	runConsole func(ctx context.Context, root *cobra.Command, log *slog.Logger) error
}

func NewDiscoverCommand(app *AppContext) *DiscoverCommand {
	return &DiscoverCommand{
		app:     app,
		newNode: node.New,
		runConsole: func(ctx context.Context, root *cobra.Command, log *slog.Logger) error {
			return console.NewStdio(root, log).Run(ctx)
		},
	}
}

func (c *DiscoverCommand) Meta() *cobra.Command {
	if c.cmd != nil {
		return c.cmd
	}
	c.cmd = &cobra.Command{
		Use:   "discover",
		Short: "Announce this client and track peers on the LAN",
		Long: "Join the multicast group, announce this client every ping interval and\n" +
			"log peers as they connect, rename and disconnect. Ctrl+C withdraws from the group.",
		Args: cobra.NoArgs,
	}
	c.cmd.Flags().StringP("nick", "n", "", "Nickname to announce (overrides config)")
	c.cmd.Flags().BoolP("interactive", "i", false, "Open an interactive console")
	c.cmd.Flags().Bool("accept-transfers", false, "Open the transfer port and accept send requests")
	c.cmd.Flags().Bool("loopback", false, "Receive own announcements")
	c.cmd.Flags().Bool("watch", true, "Reload the nickname when the config file changes")
	return c.cmd
}

func (c *DiscoverCommand) Execute(cmd *cobra.Command, args []string) error {
	const op = "cliplugins.DiscoverCommand.Execute"

	log := c.app.Log.With(slog.String("op", op))

	cfg := *c.app.Config
	if nick, _ := cmd.Flags().GetString("nick"); nick != "" {
		cfg.NickName = nick
	}
	if loopback, _ := cmd.Flags().GetBool("loopback"); loopback {
		cfg.Multicast.Loopback = true
	}
	accept, _ := cmd.Flags().GetBool("accept-transfers")
	interactive, _ := cmd.Flags().GetBool("interactive")
	watch, _ := cmd.Flags().GetBool("watch")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := c.newNode(ctx, &cfg, node.Options{AcceptTransfers: accept}, c.app.Log)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := n.Close(); err != nil {
			log.Error("failed to close node", sl.Err(err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	if watch && c.app.ConfigPath != "" {
		w, err := watcher.NewConfigWatcher(c.app.ConfigPath, n.Reconfigure, watcher.Config{Logger: c.app.Log})
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		defer w.Close()

		g.Go(func() error {
			return drainErrors(gctx, w.Errors(), log)
		})
	}

	if interactive {
		g.Go(func() error {
			// выход из консоли завершает discover
			defer stop()
			return c.runConsole(gctx, NewSessionCLI(c.app, n).Root(), c.app.Log)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return nil
	})

	return g.Wait()
}

func drainErrors(ctx context.Context, errs <-chan error, log *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			log.Warn("config reload failed", sl.Err(err))
		}
	}
}
