package config

import (
	"log/slog"
)

// loadFromFile loads configuration from a file and converts it to runtime types.
// Returns nil if no file is configured.
func loadFromFile(path string) (*GlobalConfig, []string) {
	if path == "" {
		return nil, nil
	}

	fileCfg, err := LoadFile(path)
	if err != nil {
		return nil, []string{"config file: " + err.Error()}
	}

	slog.Info("loaded configuration from file", slog.String("path", path))

	global, errs := fileCfg.ToGlobalConfig()
	for i := range errs {
		errs[i] = "config file: " + errs[i]
	}
	return global, errs
}
