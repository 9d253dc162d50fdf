// Package paths locates the sheetform configuration and data directories.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "sheetform"

// Names used inside the working directory and the config directory.
const (
	DefaultDataDirName = ".sheetform"
	ConfigFileName     = "config.yaml"
	WorkbookFileName   = "sheetform.xlsx"
)

// Environment variables that override directory resolution.
const (
	EnvConfigDir = "SHEETFORM_CONFIG_DIR"
	EnvDataDir   = "SHEETFORM_DATA_DIR"
)

// platformDir holds lookups that tests replace.
var platformDir = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// xdgDir returns $env/sheetform on Linux, falling back to ~/fallback...,
// and the OS user config directory elsewhere.
func xdgDir(env string, fallback ...string) (string, error) {
	if platformDir.goos != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if v := os.Getenv(env); v != "" {
		return filepath.Join(v, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, fallback...), AppName)...), nil
}

// DefaultConfigDir returns the per-user configuration directory:
// $XDG_CONFIG_HOME/sheetform or ~/.config/sheetform on Linux, the OS config
// directory elsewhere.
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the per-user data directory:
// $XDG_DATA_HOME/sheetform or ~/.local/share/sheetform on Linux, the OS
// config directory elsewhere.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir applies flag > SHEETFORM_CONFIG_DIR > DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > config.yaml value > SHEETFORM_DATA_DIR >
// ./.sheetform.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, v := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ConfigFile returns the config.yaml path inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

// WorkbookFile returns the default .xlsx path inside dataDir.
func WorkbookFile(dataDir string) string {
	return filepath.Join(dataDir, WorkbookFileName)
}
