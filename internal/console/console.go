// Package console runs an interactive prompt over a cobra command tree.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"lanshare/internal/util/logger/sl"
)

const Prompt = "> "

var exitWords = map[string]struct{}{"exit": {}, "quit": {}}

type Console struct {
	root *cobra.Command
	rw   io.ReadWriter
	// fd терминала или -1, если raw mode не нужен
	fd  int
	log *slog.Logger
}

func New(root *cobra.Command, rw io.ReadWriter, fd int, log *slog.Logger) *Console {
	return &Console{root: root, rw: rw, fd: fd, log: log}
}

// NewStdio attaches to the process stdin and stdout.
func NewStdio(root *cobra.Command, log *slog.Logger) *Console {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		fd = -1
	}
	rw := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}
	return New(root, rw, fd, log)
}

// Run reads and executes commands until ctx is done, the input ends
// or the user types exit.
func (c *Console) Run(ctx context.Context) error {
	const op = "console.Run"

	log := c.log.With(slog.String("op", op))

	if c.fd >= 0 {
		oldState, err := term.MakeRaw(c.fd)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		defer term.Restore(c.fd, oldState)
	}

	t := term.NewTerminal(c.rw, Prompt)
	t.AutoCompleteCallback = c.autoComplete(t)

	done := make(chan error, 1)
	go func() { done <- c.loop(ctx, t) }()

	select {
	case <-ctx.Done():
		log.Debug("console stopped by context")
		return nil
	case err := <-done:
		if err != nil {
			log.Error("console stopped", sl.Err(err))
		}
		return err
	}
}

func (c *Console) loop(ctx context.Context, t *term.Terminal) error {
	for {
		line, err := t.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, ok := exitWords[line]; ok {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		c.execute(ctx, t, strings.Fields(line))
	}
}

func (c *Console) execute(ctx context.Context, out io.Writer, args []string) {
	c.root.SetArgs(args)
	c.root.SetOut(out)
	c.root.SetErr(out)

	if err := c.root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(out, "error:", err)
	}

	// cobra хранит значения флагов между вызовами
	if cmd, _, err := c.root.Find(args); err == nil {
		resetFlags(cmd)
	}
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
}

func (c *Console) autoComplete(t io.Writer) func(string, int, rune) (string, int, bool) {
	return func(line string, pos int, key rune) (string, int, bool) {
		if key != '\t' {
			return "", 0, false
		}
		return c.complete(t, line, pos)
	}
}

func (c *Console) complete(out io.Writer, line string, pos int) (string, int, bool) {
	input := line[:pos]
	completions := getCompletions(c.root, input)

	switch len(completions) {
	case 0:
		return "", 0, false
	case 1:
		newLine := completeCommand(input, completions[0]) + " "
		return newLine + line[pos:], len(newLine), true
	default:
		fmt.Fprintln(out, strings.Join(completions, "  "))
		newLine := completeCommand(input, commonPrefix(completions))
		return newLine + line[pos:], len(newLine), true
	}
}
