// Package config loads run configuration from defaults, an optional config
// file, an optional preset, FECHADOR_* environment variables and flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name searched for, with any extension viper
	// understands.
	ConfigFileName = "fechador"

	EnvPrefix = "FECHADOR"
)

// Loader wraps a private viper instance so tests and commands do not share
// state through the global one.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	l := &Loader{v: viper.New()}
	l.setDefaults()
	l.setupEnvironmentVariables()
	return l
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("text", "15/12/2025")
	l.v.SetDefault("font", "Go-Regular.ttf")
	l.v.SetDefault("size", 36)
	l.v.SetDefault("color", "255,255,255")
	l.v.SetDefault("anchor", "bottom-right")
	l.v.SetDefault("margin", 20)
	l.v.SetDefault("use_margin", true)
	l.v.SetDefault("exif_date", false)
	l.v.SetDefault("date_layout", "02/01/2006")
	l.v.SetDefault("font_dirs", []string{"fonts"})

	l.v.SetDefault("turbo", true)
	l.v.SetDefault("parallelism", 0)
	l.v.SetDefault("output", "")
	l.v.SetDefault("recursive", false)
	l.v.SetDefault("preset", "")
	l.v.SetDefault("metrics_file", "")

	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "text")
	l.v.SetDefault("log.file", "")
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "fechador"))
	}
}

// BindFlag binds a flag to a configuration key. Only flags the user actually
// set override lower layers.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: flag not defined", key)
	}
	return l.v.BindPFlag(key, flag)
}

// BindFlags binds every flag in fs under its name with dashes turned into
// underscores, except for names listed in keys which map explicitly.
func (l *Loader) BindFlags(fs *pflag.FlagSet, keys map[string]string) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := keys[f.Name]
		if !ok {
			key = strings.ReplaceAll(f.Name, "-", "_")
		}
		if key == "" {
			return
		}
		if err := l.BindFlag(key, f); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// Load reads configFile, or searches for fechador.{yaml,toml,json} when it
// is empty, merges the preset if one is configured and returns the
// validated result.
func (l *Loader) Load(configFile string) (*Config, error) {
	cfg, err := l.LoadWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithoutValidation is Load without the final Validate, for commands
// that only inspect settings.
func (l *Loader) LoadWithoutValidation(configFile string) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.addConfigPaths()
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	if preset := l.v.GetString("preset"); preset != "" {
		values, err := ReadPreset(preset)
		if err != nil {
			return nil, err
		}
		if err := l.v.MergeConfigMap(values); err != nil {
			return nil, fmt.Errorf("merge preset %s: %w", preset, err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed reports the file that was read, if any.
func (l *Loader) ConfigFileUsed() string { return l.v.ConfigFileUsed() }
