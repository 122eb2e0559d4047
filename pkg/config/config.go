// Package config reads the tool settings from ~/.config/tasktree/config.json
// with TASKTREE_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/viper"
)

const (
	xdgAppName = "tasktree"
	configName = "config"
	configType = "json"
	envPrefix  = "TASKTREE"
)

// Config holds every setting.
type Config struct {
	APIURL           string
	Listen           string
	Backend          string
	SpreadsheetID    string
	SheetName        string
	LocalPath        string
	IndexPath        string
	TriageSection    string
	AutosaveInterval time.Duration
	RequestTimeout   time.Duration
	Calendar         string
}

// Backends the server can store tasks in.
const (
	BackendSheets = "sheets"
	BackendMemory = "memory"
)

func defaults(dir string) map[string]any {
	return map[string]any{
		"api_url":           "http://localhost:3000",
		"listen":            ":3000",
		"backend":           BackendSheets,
		"spreadsheet_id":    "",
		"sheet_name":        "Tasks",
		"local_path":        filepath.Join(dir, "local.json"),
		"index_path":        filepath.Join(dir, "events.json"),
		"triage_section":    "Triage",
		"autosave_interval": "30s",
		"request_timeout":   "10s",
		"calendar":          "Tasks",
	}
}

// Keys lists the settable keys in order.
func Keys() []string {
	keys := make([]string, 0, len(defaults("")))
	for k := range defaults("") {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dir returns ~/.config/tasktree.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

// Load reads the config from Dir.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(dir)
}

// LoadFrom reads config.json in dir. A missing file yields the defaults.
func LoadFrom(dir string) (*Config, error) {
	v, err := open(dir)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIURL:           v.GetString("api_url"),
		Listen:           v.GetString("listen"),
		Backend:          v.GetString("backend"),
		SpreadsheetID:    v.GetString("spreadsheet_id"),
		SheetName:        v.GetString("sheet_name"),
		LocalPath:        v.GetString("local_path"),
		IndexPath:        v.GetString("index_path"),
		TriageSection:    v.GetString("triage_section"),
		AutosaveInterval: v.GetDuration("autosave_interval"),
		RequestTimeout:   v.GetDuration("request_timeout"),
		Calendar:         v.GetString("calendar"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the tool cannot run with.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSheets, BackendMemory:
	default:
		return fmt.Errorf("invalid backend %q: must be %s or %s", c.Backend, BackendSheets, BackendMemory)
	}
	if c.AutosaveInterval <= 0 {
		return fmt.Errorf("autosave_interval must be positive, got %s", c.AutosaveInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// Set writes one key to config.json in Dir.
func Set(key, value string) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return SetIn(dir, key, value)
}

// SetIn writes one key to config.json in dir, keeping the other keys.
func SetIn(dir, key, value string) error {
	if _, ok := defaults(dir)[key]; !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	switch key {
	case "autosave_interval", "request_timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid duration %q for %s", value, key)
		}
	case "backend":
		if value != BackendSheets && value != BackendMemory {
			return fmt.Errorf("invalid backend %q", value)
		}
	}

	v, err := open(dir)
	if err != nil {
		return err
	}
	// Only keys written before, plus this one, go to disk.
	out := viper.New()
	for _, k := range v.AllKeys() {
		if v.InConfig(k) {
			out.Set(k, v.Get(k))
		}
	}
	out.Set(key, value)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path := filepath.Join(dir, configName+"."+configType)
	if err := out.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Chmod(path, 0600)
}

// Values returns every key with its effective value, for display.
func (c *Config) Values() map[string]string {
	return map[string]string{
		"api_url":           c.APIURL,
		"listen":            c.Listen,
		"backend":           c.Backend,
		"spreadsheet_id":    c.SpreadsheetID,
		"sheet_name":        c.SheetName,
		"local_path":        c.LocalPath,
		"index_path":        c.IndexPath,
		"triage_section":    c.TriageSection,
		"autosave_interval": c.AutosaveInterval.String(),
		"request_timeout":   c.RequestTimeout.String(),
		"calendar":          c.Calendar,
	}
}

func open(dir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	for k, d := range defaults(dir) {
		v.SetDefault(k, d)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s: %w", filepath.Join(dir, configName+"."+configType), err)
		}
	}
	return v, nil
}

