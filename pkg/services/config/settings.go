// Package config loads the bootstrap settings: everything the process
// needs before the embedded configuration store is open. Values come
// from an optional settings file and COSTMINIMIZER_* environment
// variables; flags override both.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
)

const envPrefix = "COSTMINIMIZER"

// Settings is the pre-store bootstrap configuration.
type Settings struct {
	DBPath       string `mapstructure:"db_path"`
	CacheDir     string `mapstructure:"cache_dir"`
	OutputFolder string `mapstructure:"output_folder"`
	Profile      string `mapstructure:"profile"`
	LogLevel     string `mapstructure:"log_level"`
	Installation string `mapstructure:"installation_mode"`
}

// InstallationMode maps the raw setting onto the known modes,
// defaulting to standalone.
func (s Settings) InstallationMode() domain.InstallationMode {
	if s.Installation == string(domain.InstallContainer) {
		return domain.InstallContainer
	}
	return domain.InstallStandalone
}

// Load reads the settings file when one exists at path, then overlays
// environment variables. An absent file is not an error; a malformed
// one is.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	// Every key is bound explicitly so env-only values reach Unmarshal
	// even without a settings file or default.
	for _, key := range []string{
		"db_path", "cache_dir", "output_folder",
		"profile", "log_level", "installation_mode",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment key %s: %w", key, err)
		}
	}

	v.SetDefault("log_level", "info")
	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("output_folder", defaultOutputFolder())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read settings file: %w", err)
			}
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return &settings, nil
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".costminimizer", "cache")
	}
	return filepath.Join(home, ".costminimizer", "cache")
}

func defaultOutputFolder() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "costminimizer-reports")
	}
	return filepath.Join(home, "costminimizer-reports")
}
