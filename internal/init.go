package internal

import (
	"fmt"
)

// Init loads configuration and sets up the global logger.
func Init(configFile string) (*Config, *Logger, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading configuration: %w", err)
	}

	if err := InitGlobalLogger(LoggerOptions{
		Dir:    cfg.Log.Dir,
		Format: cfg.Log.Format,
		Level:  ParseLogLevel(cfg.Log.Level),
	}); err != nil {
		// If logger initialization fails, use the default logger
		logger := GetLogger()
		logger.Error(ComponentGeneral, "Error initializing logger: %v", err)
	}

	return cfg, GetLogger(), nil
}
