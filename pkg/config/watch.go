package config

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/marmos91/dittohttp/internal/logger"
)

// Watch loads the configuration at configPath and calls onChange with the
// reloaded configuration every time the file is written.
//
// Reloads that fail to parse or validate are logged and skipped, so the
// running server keeps its last good configuration. Only settings that can
// change at runtime should be applied by onChange (log level, rate limit).
//
// Returns the initial configuration, or an error if no config file is in use.
func Watch(configPath string, onChange func(*Config)) (*Config, error) {
	v, cfg, err := load(configPath)
	if err != nil {
		return nil, err
	}

	used := v.ConfigFileUsed()
	if used == "" {
		return nil, fmt.Errorf("no configuration file to watch")
	}
	if _, err := os.Stat(used); err != nil {
		return nil, fmt.Errorf("cannot watch configuration file: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		reloaded, err := decode(v)
		if err != nil {
			logger.Warn("Ignoring configuration change in %s: %v", e.Name, err)
			return
		}

		logger.Info("Configuration reloaded from %s", e.Name)
		onChange(reloaded)
	})
	v.WatchConfig()

	logger.Debug("Watching configuration file %s", used)
	return cfg, nil
}
