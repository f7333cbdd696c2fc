// Package config handles configuration loading and defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Default values.
const (
	DefaultAPIURL   = "http://localhost:5000"
	DefaultTheme    = "classic"
	DefaultLogFile  = "~/.todo/todo.log"
	DefaultLogLevel = "info"

	EnvPrefix = "TODO"
)

// Config holds the full configuration for todo.
type Config struct {
	// API root; requests go to {APIURL}/api/todos.
	APIURL string `mapstructure:"api_url" toml:"api_url"`

	// Output
	Theme string `mapstructure:"theme" toml:"theme"` // classic, neon, mono
	Group bool   `mapstructure:"group" toml:"group"` // group static listing by pending/done

	// Diagnostics
	LogFile  string `mapstructure:"log_file" toml:"log_file"`
	LogLevel string `mapstructure:"log_level" toml:"log_level"`

	// File the values were read from, if any (computed)
	Source string `mapstructure:"-" toml:"-"`
}

// Defaults returns a Config with every default applied.
func Defaults() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		Theme:    DefaultTheme,
		LogFile:  DefaultLogFile,
		LogLevel: DefaultLogLevel,
	}
}

// RegisterFlags adds the configuration flags to fs. Unset flags do not
// override file or environment values.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("config", "", "Path to config file (default ./todo.toml or ~/.todo/config.toml)")
	fs.String("api-url", d.APIURL, "Base URL of the todo API")
	fs.String("theme", d.Theme, "Output theme (classic|neon|mono)")
	fs.Bool("group", d.Group, "Group list output by pending/done")
	fs.String("log-file", d.LogFile, "Log file used while the TUI is running")
	fs.String("log-level", d.LogLevel, "Log level (debug|info|warn|error)")
}

// Load reads configuration in priority order:
// 1. Defaults
// 2. Config file (TOML)
// 3. Environment variables (TODO_API_URL, TODO_THEME, ...)
// 4. Flags that were set explicitly
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	d := Defaults()
	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("theme", d.Theme)
	v.SetDefault("group", d.Group)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("log_level", d.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for key, name := range map[string]string{
			"api_url":   "api-url",
			"theme":     "theme",
			"group":     "group",
			"log_file":  "log-file",
			"log_level": "log-level",
		} {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	path, err := configPath(fs)
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Source = path
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configPath returns the explicit --config value, else the first existing
// default location, else "".
func configPath(fs *pflag.FlagSet) (string, error) {
	if fs != nil {
		if p, _ := fs.GetString("config"); p != "" {
			if _, err := os.Stat(p); err != nil {
				return "", fmt.Errorf("config file: %w", err)
			}
			return p, nil
		}
	}
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p, nil
	}
	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// SearchPaths lists the default config file locations, most specific first.
func SearchPaths() []string {
	paths := []string{"todo.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".todo", "config.toml"))
	}
	return paths
}

// finalize validates values and expands paths.
func (c *Config) finalize() error {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if err := ValidateAPIURL(c.APIURL); err != nil {
		return err
	}
	c.Theme = strings.ToLower(strings.TrimSpace(c.Theme))
	switch c.Theme {
	case "classic", "neon", "mono":
	case "":
		c.Theme = DefaultTheme
	default:
		return fmt.Errorf("theme %q: want classic, neon or mono", c.Theme)
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.LogFile = expandPath(c.LogFile)
	return nil
}

var errNoHost = errors.New("missing host")

// ValidateAPIURL checks that raw is an absolute http(s) URL.
func ValidateAPIURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("api_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("api_url %q: %w", raw, errNoHost)
	}
	return nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
	}
	return p
}
