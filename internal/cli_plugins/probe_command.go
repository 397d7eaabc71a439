package cliplugins

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lanshare/internal/tcp"
)

// ProbeCommand checks that a peer's transfer port accepts connections,
// typically the port from a SEND_REQUEST_ACCEPTED reply.
type ProbeCommand struct {
	cmd *cobra.Command
	app *AppContext
}

func NewProbeCommand(app *AppContext) *ProbeCommand {
	return &ProbeCommand{app: app}
}

func (c *ProbeCommand) Meta() *cobra.Command {
	if c.cmd != nil {
		return c.cmd
	}
	c.cmd = &cobra.Command{
		Use:   "probe HOST:PORT",
		Short: "Check that a peer's transfer port accepts connections",
		Args:  cobra.ExactArgs(1),
	}
	c.cmd.Flags().IntP("attempts", "a", 3, "Number of connection attempts")
	c.cmd.Flags().Duration("delay", 500*time.Millisecond, "Delay before the second attempt, doubled after each failure")
	return c.cmd
}

func (c *ProbeCommand) Execute(cmd *cobra.Command, args []string) error {
	const op = "cliplugins.ProbeCommand.Execute"

	attempts, _ := cmd.Flags().GetInt("attempts")
	delay, _ := cmd.Flags().GetDuration("delay")

	client := tcp.NewClient(0, c.app.Log)
	start := time.Now()

	err := client.ConnectWithRetry(cmd.Context(), args[0], tcp.RetryOptions{
		MaxAttempts:    attempts,
		UseExponential: true,
		InitialDelay:   delay,
		MaxDelay:       10 * delay,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer client.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "%s is reachable (%s)\n", client.RemoteAddr(), time.Since(start).Round(time.Millisecond))
	return nil
}
