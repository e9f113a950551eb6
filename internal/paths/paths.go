// Package paths resolves the linkgraph configuration and data directories.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used under the platform base directories.
const AppName = "linkgraph"

// Environment variables that override the platform defaults.
const (
	EnvConfigDir = "LINKGRAPH_CONFIG_DIR"
	EnvDataDir   = "LINKGRAPH_DATA_DIR"
)

// platformDir holds platform lookups that tests replace.
var platformDir = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// baseDir returns the XDG base directory named by xdgEnv on Linux, falling
// back to $HOME/<fallback...>. Other platforms use os.UserConfigDir for both
// configuration and data.
func baseDir(xdgEnv string, fallback ...string) (string, error) {
	if platformDir.goos != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(xdgEnv); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, fallback...), AppName)...), nil
}

// DefaultConfigDir returns the platform configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/linkgraph (fallback ~/.config/linkgraph)
// macOS:   ~/Library/Application Support/linkgraph
// Windows: %APPDATA%/linkgraph
func DefaultConfigDir() (string, error) {
	return baseDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory.
//
// Linux:   $XDG_DATA_HOME/linkgraph (fallback ~/.local/share/linkgraph)
// macOS and Windows: same as DefaultConfigDir.
func DefaultDataDir() (string, error) {
	return baseDir("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir applies the precedence flag > LINKGRAPH_CONFIG_DIR >
// DefaultConfigDir. Explicit values are made absolute.
func ResolveConfigDir(flag string) (string, error) {
	return resolve(DefaultConfigDir, flag, os.Getenv(EnvConfigDir))
}

// ResolveDataDir applies the precedence flag > LINKGRAPH_DATA_DIR >
// configured (the data_dir key of config.yaml) > DefaultDataDir.
func ResolveDataDir(flag, configured string) (string, error) {
	return resolve(DefaultDataDir, flag, os.Getenv(EnvDataDir), configured)
}

func resolve(fallback func() (string, error), candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	return fallback()
}
