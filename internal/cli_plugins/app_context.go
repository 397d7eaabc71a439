// Package cliplugins holds the lanshare commands, one cli.CommandPlugin each.
package cliplugins

import (
	"fmt"
	"log/slog"

	"lanshare/internal/config"
	"lanshare/internal/util/logger/handlers/slogdiscard"
)

// AppContext хранит зависимости, которые будут использоваться в командах CLI
type AppContext struct {
	// ConfigPath is the value of the --config flag.
	ConfigPath string
	Config     *config.Config
	Log        *slog.Logger

	newLogger func(env string) *slog.Logger
}

func NewAppContext(newLogger func(env string) *slog.Logger) *AppContext {
	return &AppContext{newLogger: newLogger}
}

// Load resolves the config path, reads the config and builds the logger.
// A context that already holds a config is left as is.
func (a *AppContext) Load() error {
	const op = "cliplugins.AppContext.Load"

	if a.Config != nil {
		return nil
	}

	a.ConfigPath = config.ResolvePath(a.ConfigPath)
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	a.Config = cfg

	if a.Log == nil {
		if a.newLogger != nil {
			a.Log = a.newLogger(cfg.Env)
		} else {
			a.Log = slogdiscard.NewDiscardLogger()
		}
	}
	return nil
}
