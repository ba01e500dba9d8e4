package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".lookout"

// DataDir returns the base data directory for Lookout.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// ConfigPath returns the path to the TOML configuration file.
func ConfigPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "config.toml"), nil
}

// DefaultStorePath returns the default account store location.
func DefaultStorePath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "accounts.db"), nil
}

// ItemsDir returns the directory item logs are written under.
func ItemsDir() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "items"), nil
}

// CachePath returns the path the channel cache is published to.
func CachePath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "channels.json"), nil
}
