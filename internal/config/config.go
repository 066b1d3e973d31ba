// Package config loads mend settings from YAML files and MEND_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/chojs23/mend/internal/log"
	"github.com/chojs23/mend/internal/textenc"
)

const (
	DefaultUndoLimit = 100
	// LocalConfigPath is checked before the user config directory.
	LocalConfigPath = ".mend/config.yaml"
)

type Config struct {
	UndoLimit int  `mapstructure:"undo_limit" yaml:"undo_limit"`
	Backup    bool `mapstructure:"backup" yaml:"backup"`
	// Watch reloads the open file when it changes on disk.
	Watch bool `mapstructure:"watch" yaml:"watch"`

	ExcludedFiles []string       `mapstructure:"excluded_files" yaml:"excluded_files"`
	FileEncodings []EncodingRule `mapstructure:"file_encodings" yaml:"file_encodings"`

	Log LogConfig `mapstructure:"log" yaml:"log"`
	UI  UIConfig  `mapstructure:"ui" yaml:"ui"`
}

// EncodingRule assigns a text encoding to paths matching a doublestar glob.
type EncodingRule struct {
	Pattern  string `mapstructure:"pattern" yaml:"pattern"`
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
}

type LogConfig struct {
	// Path enables file logging when set.
	Path  string `mapstructure:"path" yaml:"path"`
	Level string `mapstructure:"level" yaml:"level"`
}

type UIConfig struct {
	// InlineDiff starts the diff view in single-column mode.
	InlineDiff bool `mapstructure:"inline_diff" yaml:"inline_diff"`
	// Theme names an entry of themes.json; empty uses its default.
	Theme string `mapstructure:"theme" yaml:"theme"`
}

func Defaults() Config {
	return Config{
		UndoLimit:     DefaultUndoLimit,
		Backup:        false,
		Watch:         true,
		ExcludedFiles: []string{},
		FileEncodings: []EncodingRule{},
		Log:           LogConfig{Level: "info"},
	}
}

// EncodingRules converts the configured list into lookup rules.
func (c Config) EncodingRules() textenc.Rules {
	rules := textenc.Rules{}
	for _, r := range c.FileEncodings {
		if r.Pattern == "" || r.Encoding == "" {
			continue
		}
		rules[r.Pattern] = r.Encoding
	}
	return rules
}

func (c Config) Validate() error {
	var errs []error
	if c.UndoLimit < 1 {
		errs = append(errs, fmt.Errorf("undo_limit must be >= 1, got %d", c.UndoLimit))
	}
	for i, r := range c.FileEncodings {
		if r.Pattern == "" {
			errs = append(errs, fmt.Errorf("file_encodings[%d]: pattern is required", i))
		}
		if _, ok := textenc.Lookup(r.Encoding); !ok {
			errs = append(errs, fmt.Errorf("file_encodings[%d]: unknown encoding %q", i, r.Encoding))
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	return errors.Join(errs...)
}

// Load reads configuration. An explicit path must exist. Without one,
// .mend/config.yaml in the working directory wins over
// ~/.config/mend/config.yaml; missing files leave the defaults in place.
// It returns the config file actually used, or "".
func Load(explicitPath string) (Config, string, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case explicitPath != "":
		v.SetConfigFile(explicitPath)
	case fileExists(LocalConfigPath):
		v.SetConfigFile(LocalConfigPath)
	default:
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := UserConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath != "" || !errors.As(err, &notFound) {
			return Config{}, "", fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, "", fmt.Errorf("invalid config: %w", err)
	}

	used := v.ConfigFileUsed()
	log.Debug(log.CatConfig, "config loaded", "file", used, "undo_limit", cfg.UndoLimit, "watch", cfg.Watch)
	return cfg, used, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("undo_limit", d.UndoLimit)
	v.SetDefault("backup", d.Backup)
	v.SetDefault("watch", d.Watch)
	v.SetDefault("excluded_files", d.ExcludedFiles)
	v.SetDefault("file_encodings", d.FileEncodings)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("ui.inline_diff", d.UI.InlineDiff)
	v.SetDefault("ui.theme", d.UI.Theme)
}

// UserConfigDir returns ~/.config/mend.
func UserConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "mend"), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
