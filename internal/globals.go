package internal

import (
	"os"
	"path/filepath"
)

var (
	DefaultAppName          = "fireflyiii"
	DefaultAppCMDShortCut   = "ff3"
	DefaultConfigFolderName = DefaultAppName
	DefaultConfigPath       = filepath.Join(os.Getenv("HOME"), ".config", DefaultConfigFolderName)
	DefaultConfigFile       = filepath.Join(DefaultConfigPath, "config.yaml")
)
