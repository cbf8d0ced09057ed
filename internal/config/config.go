/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	applog "charsheet/internal/log"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	// TemplatesDir holds one subdirectory per character sheet template.
	TemplatesDir string `yaml:"templates_dir"`
	// DocumentsDir is where new characters are offered to be saved.
	DocumentsDir string `yaml:"documents_dir"`
	Debug        bool   `yaml:"debug"`
	RecentLimit  int    `yaml:"recent_limit"`
}

type CatalogConfig struct {
	// Path of the SQLite recent files catalog. Empty means next to the config file.
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Catalog       CatalogConfig `yaml:"catalog"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General: GeneralConfig{
			TemplatesDir: defaultTemplatesDir(),
			DocumentsDir: defaultDocumentsDir(),
			RecentLimit:  10,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvTemplatesDir = "CHS_TEMPLATES_DIR"
	EnvDocumentsDir = "CHS_DOCUMENTS_DIR"
	EnvRecentLimit  = "CHS_RECENT_LIMIT"
	EnvCatalogPath  = "CHS_CATALOG_PATH"
	// EnvDebug enables the Debug menu, as the desktop shell has always done.
	EnvDebug = "DEBUG"

	EnvLogLevel  = applog.EnvLevel
	EnvLogFormat = applog.EnvFormat
	EnvLogSource = applog.EnvSource
	EnvLogFile   = applog.EnvFile
)

// configDirOverride lets tests redirect the config location.
var configDirOverride string

// ConfigDir returns the per-user configuration directory.
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "CharSheet")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "CharSheet")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "charsheet")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "charsheet")
		}
	}
	if base == "" || base == "CharSheet" || base == "charsheet" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// CatalogPath resolves where the recent files catalog lives.
func (c AppConfig) CatalogPath() (string, error) {
	if p := strings.TrimSpace(c.Catalog.Path); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "recent.sqlite"), nil
}

// LogOptions converts the logging section for log.Init.
func (c AppConfig) LogOptions() applog.Options {
	return applog.Options{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		AddSource: c.Logging.Source,
		File:      c.Logging.File,
	}
}

// Validate checks the merged configuration.
func (c AppConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.General),
		validation.Field(&c.Logging),
	)
}

func (g GeneralConfig) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.TemplatesDir, validation.Required),
		validation.Field(&g.RecentLimit, validation.Required, validation.Min(1), validation.Max(100)),
	)
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&l.Format, validation.In("console", "json")),
	)
}

// Load reads the user config file (if present), applies defaults, merges environment
// overrides and validates the result. A missing file is not an error.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.TrimSpace(src.General.TemplatesDir); v != "" {
		dst.General.TemplatesDir = v
	}
	if v := strings.TrimSpace(src.General.DocumentsDir); v != "" {
		dst.General.DocumentsDir = v
	}
	dst.General.Debug = src.General.Debug
	if src.General.RecentLimit != 0 {
		dst.General.RecentLimit = src.General.RecentLimit
	}
	if v := strings.TrimSpace(src.Catalog.Path); v != "" {
		dst.Catalog.Path = v
	}
	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTemplatesDir)); v != "" {
		cfg.General.TemplatesDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDocumentsDir)); v != "" {
		cfg.General.DocumentsDir = v
	}
	// Any non-empty DEBUG value turns the debug menu on.
	if os.Getenv(EnvDebug) != "" {
		cfg.General.Debug = true
	}
	if v := strings.TrimSpace(os.Getenv(EnvRecentLimit)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.General.RecentLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCatalogPath)); v != "" {
		cfg.Catalog.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"general.templates_dir": EnvTemplatesDir,
		"general.documents_dir": EnvDocumentsDir,
		"general.debug":         EnvDebug,
		"general.recent_limit":  EnvRecentLimit,
		"catalog.path":          EnvCatalogPath,
		"logging.level":         EnvLogLevel,
		"logging.format":        EnvLogFormat,
		"logging.source":        EnvLogSource,
		"logging.file":          EnvLogFile,
	}
	env, ok := names[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// defaultTemplatesDir is the Templates folder shipped next to the executable.
func defaultTemplatesDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "Templates"
	}
	return filepath.Join(filepath.Dir(exe), "Templates")
}

// defaultDocumentsDir mirrors the platform "documents" location, falling back to home.
func defaultDocumentsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	docs := filepath.Join(home, "Documents")
	if fi, err := os.Stat(docs); err == nil && fi.IsDir() {
		return docs
	}
	return home
}
