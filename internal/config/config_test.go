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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func useTempConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := configDirOverride
	configDirOverride = dir
	t.Cleanup(func() { configDirOverride = old })
	for _, env := range []string{EnvTemplatesDir, EnvDocumentsDir, EnvDebug, EnvRecentLimit, EnvCatalogPath, EnvLogLevel, EnvLogFormat, EnvLogSource, EnvLogFile} {
		t.Setenv(env, "")
	}
	return dir
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	useTempConfigDir(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.General.RecentLimit != 10 {
		t.Fatalf("RecentLimit = %d, want 10", cfg.General.RecentLimit)
	}
	if cfg.General.Debug {
		t.Fatalf("Debug should default to false")
	}
	if !strings.HasSuffix(cfg.General.TemplatesDir, "Templates") {
		t.Fatalf("TemplatesDir = %q, want a Templates folder", cfg.General.TemplatesDir)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	dir := useTempConfigDir(t)
	cfg := Defaults()
	cfg.General.TemplatesDir = "/opt/sheets"
	cfg.General.RecentLimit = 25
	cfg.Logging.Format = "json"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.General.TemplatesDir != "/opt/sheets" || got.General.RecentLimit != 25 || got.Logging.Format != "json" {
		t.Fatalf("round trip mismatch: %#v", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	useTempConfigDir(t)
	t.Setenv(EnvTemplatesDir, "/srv/templates")
	t.Setenv(EnvDocumentsDir, "/home/gm/chars")
	t.Setenv(EnvDebug, "1")
	t.Setenv(EnvRecentLimit, "3")
	t.Setenv(EnvLogLevel, "ERROR")
	t.Setenv(EnvLogSource, "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.General.TemplatesDir != "/srv/templates" || cfg.General.DocumentsDir != "/home/gm/chars" {
		t.Fatalf("dir overrides not applied: %#v", cfg.General)
	}
	if !cfg.General.Debug || cfg.General.RecentLimit != 3 {
		t.Fatalf("general overrides not applied: %#v", cfg.General)
	}
	if cfg.Logging.Level != "error" || !cfg.Logging.Source {
		t.Fatalf("logging overrides not applied: %#v", cfg.Logging)
	}
	if env, ok := EnvOverrideFor("general.recent_limit"); !ok || env != EnvRecentLimit {
		t.Fatalf("EnvOverrideFor = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("catalog.path"); ok {
		t.Fatalf("catalog.path is not overridden")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	useTempConfigDir(t)
	t.Setenv(EnvRecentLimit, "500")
	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error for recent_limit=500")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := useTempConfigDir(t)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("general: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestMergeKeepsDefaultsForEmptyFields(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Logging: LoggingConfig{Level: " DEBUG "}}
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" {
		t.Fatalf("Level = %q, want debug", dst.Logging.Level)
	}
	if dst.General.RecentLimit != 10 || dst.Logging.Format != "console" {
		t.Fatalf("defaults lost: %#v", dst)
	}
}

func TestCatalogPathDefaultsNextToConfig(t *testing.T) {
	dir := useTempConfigDir(t)
	p, err := Defaults().CatalogPath()
	if err != nil {
		t.Fatalf("CatalogPath error: %v", err)
	}
	if p != filepath.Join(dir, "recent.sqlite") {
		t.Fatalf("CatalogPath = %q", p)
	}
	cfg := Defaults()
	cfg.Catalog.Path = "/tmp/elsewhere.sqlite"
	if p, _ := cfg.CatalogPath(); p != "/tmp/elsewhere.sqlite" {
		t.Fatalf("explicit CatalogPath = %q", p)
	}
}
