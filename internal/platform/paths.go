package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName is the directory name used under the user config and data roots.
const DefaultAppName = "vboard"

// Paths holds the per-user locations vboard reads from and logs to.
type Paths struct {
	ConfigPath string
	DataDir    string
	// SeedPath is the optional default seed file; it is read, never written.
	SeedPath string
	LogDir   string
}

// Options selects the app directory name.
type Options struct {
	AppName string
	DevMode bool
}

// rootOverride names the env vars that replace the config and data roots.
type rootOverride struct {
	config string
	data   string
}

// rootOverrides is keyed by GOOS. Platforms without an entry, darwin included,
// keep the os package defaults.
var rootOverrides = map[string]rootOverride{
	"linux":   {config: "XDG_CONFIG_HOME", data: "XDG_DATA_HOME"},
	"windows": {config: "APPDATA", data: "LOCALAPPDATA"},
}

// DefaultPaths returns default paths.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: DefaultAppName})
}

// DefaultPathsWithOptions resolves paths for the running platform and user.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir := configDir
	if runtime.GOOS == "linux" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, fmt.Errorf("user home dir: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return PathsFor(runtime.GOOS, os.Getenv, configDir, dataDir, appDirName(opts))
}

// PathsFor resolves paths for goos from explicit inputs so it can be tested
// without touching the real environment. A nil getenv reads no overrides.
func PathsFor(goos string, getenv func(string) string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, errors.New("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, errors.New("empty app name")
	}

	configBase, dataBase := userConfigDir, userDataDir
	if o, ok := rootOverrides[goos]; ok && getenv != nil {
		configBase = envOr(getenv, o.config, configBase)
		dataBase = envOr(getenv, o.data, dataBase)
	}

	appConfigDir := filepath.Join(configBase, appName)
	appDataDir := filepath.Join(dataBase, appName)
	return Paths{
		ConfigPath: filepath.Join(appConfigDir, "config.toml"),
		DataDir:    appDataDir,
		SeedPath:   filepath.Join(appConfigDir, "seed.toml"),
		LogDir:     filepath.Join(appDataDir, "log"),
	}, nil
}

// appDirName applies the default name and the dev suffix.
func appDirName(opts Options) string {
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = DefaultAppName
	}
	if opts.DevMode {
		name += "-dev"
	}
	return name
}

// envOr returns the trimmed value of key, or fallback when it is blank.
func envOr(getenv func(string) string, key, fallback string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return fallback
}
