package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoPlugin struct {
	cmd  *cobra.Command
	got  []string
	fail error
}

func (e *echoPlugin) Meta() *cobra.Command {
	if e.cmd == nil {
		e.cmd = &cobra.Command{Use: "echo", Short: "Echo arguments"}
	}
	return e.cmd
}

func (e *echoPlugin) Execute(cmd *cobra.Command, args []string) error {
	e.got = args
	return e.fail
}

func TestCLI_RunsPlugin(t *testing.T) {
	c := NewCLI("test", "test cli")
	p := &echoPlugin{}
	c.RegisterPlugin(p)

	require.NoError(t, c.Run(context.Background(), []string{"echo", "a", "b"}))
	assert.Equal(t, []string{"a", "b"}, p.got)
	assert.Len(t, c.Plugins(), 1)
}

func TestCLI_PropagatesErrors(t *testing.T) {
	c := NewCLI("test", "test cli")
	boom := errors.New("boom")
	c.RegisterPlugin(&echoPlugin{fail: boom})

	err := c.Run(context.Background(), []string{"echo"})
	assert.ErrorIs(t, err, boom)
}

func TestCLI_Completion(t *testing.T) {
	tests := []struct {
		shell   string
		wantErr bool
	}{
		{shell: "bash"},
		{shell: "zsh"},
		{shell: "fish"},
		{shell: "powershell"},
		{shell: "tcsh", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			c := NewCLI("test", "test cli")
			c.RegisterPlugin(&echoPlugin{})

			var out bytes.Buffer
			c.Root().SetOut(&out)

			err := c.Run(context.Background(), []string{"completion", tt.shell})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), "test")
		})
	}
}

func TestCLI_RunTwice(t *testing.T) {
	c := NewCLI("test", "test cli")
	p := &echoPlugin{}
	c.RegisterPlugin(p)

	require.NoError(t, c.Run(context.Background(), []string{"echo", "a"}))
	require.NoError(t, c.Run(context.Background(), []string{"echo", "b"}))
	assert.Equal(t, []string{"b"}, p.got)

	completions := 0
	for _, cmd := range c.Root().Commands() {
		if cmd.Name() == "completion" {
			completions++
		}
	}
	assert.Equal(t, 1, completions)
}
