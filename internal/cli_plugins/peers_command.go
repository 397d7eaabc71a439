package cliplugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"

	"lanshare/internal/storage/peerhistory"
	"lanshare/internal/storage/sessionlog"
)

const historyOpenTimeout = time.Second

// PeersCommand prints the stored peer history or the session journal.
type PeersCommand struct {
	cmd *cobra.Command
	app *AppContext
	use string

	// открытые хранилища работающего узла; nil - открыть по конфигу
	history *peerhistory.Store
	journal *sessionlog.Journal

	now func() time.Time
}

func NewPeersCommand(app *AppContext) *PeersCommand {
	return &PeersCommand{app: app, use: "peers", now: time.Now}
}

// NewHistoryCommand reads the stores of a running node.
func NewHistoryCommand(app *AppContext, history *peerhistory.Store, journal *sessionlog.Journal) *PeersCommand {
	return &PeersCommand{app: app, use: "history", history: history, journal: journal, now: time.Now}
}

func (c *PeersCommand) Meta() *cobra.Command {
	if c.cmd != nil {
		return c.cmd
	}
	c.cmd = &cobra.Command{
		Use:   c.use,
		Short: "Show known peers from the history store",
		Long: "Show every peer ever seen, with its current and previous nicknames.\n" +
			"With --sessions, show the session journal instead.",
		Args: cobra.NoArgs,
	}
	c.cmd.Flags().BoolP("json", "j", false, "Print JSON")
	c.cmd.Flags().BoolP("sessions", "s", false, "Show the session journal")
	c.cmd.Flags().Bool("open", false, "Only sessions that are still open")
	c.cmd.Flags().StringP("address", "a", "", "Only sessions of this address")
	c.cmd.Flags().IntP("limit", "n", 50, "Maximum number of sessions")
	return c.cmd
}

func (c *PeersCommand) Execute(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	sessions, _ := cmd.Flags().GetBool("sessions")

	if sessions {
		onlyOpen, _ := cmd.Flags().GetBool("open")
		address, _ := cmd.Flags().GetString("address")
		limit, _ := cmd.Flags().GetInt("limit")
		filter := sessionlog.Filter{Address: address, OnlyOpen: onlyOpen, Limit: limit}
		return c.showSessions(cmd, filter, asJSON)
	}
	return c.showHistory(cmd, asJSON)
}

func (c *PeersCommand) showHistory(cmd *cobra.Command, asJSON bool) error {
	const op = "cliplugins.PeersCommand.showHistory"

	store := c.history
	if store == nil {
		path := c.app.Config.Storage.HistoryPath
		if path == "" {
			return ErrHistoryDisabled
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return printRecords(cmd.OutOrStdout(), nil, asJSON)
		}

		var err error
		store, err = peerhistory.New(peerhistory.Config{
			Path:    path,
			Options: &bbolt.Options{ReadOnly: true, Timeout: historyOpenTimeout},
		}, c.app.Log)
		if errors.Is(err, bbolt.ErrTimeout) {
			return fmt.Errorf("%s: %w: %s", op, ErrHistoryLocked, path)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		defer store.Close()
	}

	records, err := store.List()
	if errors.Is(err, peerhistory.ErrBucketNotFound) {
		records, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return printRecords(cmd.OutOrStdout(), records, asJSON)
}

func (c *PeersCommand) showSessions(cmd *cobra.Command, filter sessionlog.Filter, asJSON bool) error {
	const op = "cliplugins.PeersCommand.showSessions"

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	journal := c.journal
	if journal == nil {
		path := c.app.Config.Storage.JournalPath
		if path == "" {
			return ErrJournalDisabled
		}

		var err error
		journal, err = sessionlog.Open(ctx, sessionlog.Config{DBPath: path}, c.app.Log)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		defer journal.Close()
	}

	sessions, err := journal.Sessions(ctx, filter)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return printSessions(cmd.OutOrStdout(), sessions, c.now(), asJSON)
}
