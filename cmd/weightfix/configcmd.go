package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/weightfix/internal/config"
)

// cmdConfig saves the effective configuration, flags included, so a tuned
// command line can be turned into a config file.
func (a *app) cmdConfig(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: config takes at most one file", errUsage)
	}

	var (
		path string
		err  error
	)
	switch {
	case len(args) == 1:
		path = args[0]
		err = a.cfg.SaveTo(path)
	case a.configPath != "":
		path = a.configPath
		err = a.cfg.SaveTo(path)
	default:
		path = config.UserConfigPath()
		err = a.cfg.Save()
	}
	if err != nil {
		return fmt.Errorf("saving config to %s: %w", path, err)
	}

	fmt.Fprintf(a.out, "Saved config to %s\n", path)
	a.log.Info("config saved", zap.String("path", path))
	return nil
}
