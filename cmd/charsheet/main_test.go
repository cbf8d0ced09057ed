/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"charsheet/internal/config"
)

// setupEnv points config, catalog and templates at a temp directory.
func setupEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", root)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("AppData", filepath.Join(root, "config"))
	t.Setenv("CHS_CATALOG_PATH", filepath.Join(root, "recent.sqlite"))
	t.Setenv("CHS_LOG_LEVEL", "error")
	tdir := filepath.Join(root, "Templates", "fate")
	if err := os.MkdirAll(tdir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tdir, "info.json"), []byte(`{"name":"Fate Core"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHS_TEMPLATES_DIR", filepath.Join(root, "Templates"))
	return root
}

func runCmd(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var buf bytes.Buffer
	code := run(args, &buf)
	return code, buf.String()
}

func TestVersionAndUsage(t *testing.T) {
	if code, out := runCmd(t, "version"); code != 0 || strings.TrimSpace(out) == "" {
		t.Fatalf("version: %d %q", code, out)
	}
	if code, out := runCmd(t); code != 0 || !strings.Contains(out, "Usage:") {
		t.Fatalf("usage: %d %q", code, out)
	}
}

func TestNewSaveShowRecent(t *testing.T) {
	root := setupEnv(t)
	file := filepath.Join(root, "Hero")
	if code, out := runCmd(t, "new", file); code != 0 || !strings.Contains(out, "Hero.cha") {
		t.Fatalf("new: %d %q", code, out)
	}
	info := filepath.Join(root, "info.json")
	logf := filepath.Join(root, "log.txt")
	_ = os.WriteFile(info, []byte("héllo"), 0o644)
	_ = os.WriteFile(logf, []byte("log"), 0o644)

	if code, out := runCmd(t, "save", file+".cha", info, logf); code != 0 || !strings.Contains(out, "(6 + 3 bytes)") {
		t.Fatalf("save: %d %q", code, out)
	}
	code, out := runCmd(t, "show", file+".cha")
	if code != 0 || !strings.Contains(out, "Hero.dat") || !strings.Contains(out, "héllo") {
		t.Fatalf("show: %d %q", code, out)
	}
	code, out = runCmd(t, "recent")
	if code != 0 || !strings.Contains(out, file+".cha") {
		t.Fatalf("recent: %d %q", code, out)
	}
	if code, _ := runCmd(t, "recent", "clear"); code != 0 {
		t.Fatalf("recent clear failed")
	}
	if _, out := runCmd(t, "recent"); strings.Contains(out, "Hero") {
		t.Fatalf("recent not cleared: %q", out)
	}
}

func TestTemplatesAndMenu(t *testing.T) {
	setupEnv(t)
	code, out := runCmd(t, "templates")
	if code != 0 || !strings.Contains(out, "*[fate]*") || !strings.Contains(out, "1 template(s)") {
		t.Fatalf("templates: %d %q", code, out)
	}
	code, out = runCmd(t, "menu", "darwin")
	if code != 0 || !strings.HasPrefix(out, "CharSheet\n") || !strings.Contains(out, "Fate Core") || !strings.Contains(out, "CmdOrCtrl+S") {
		t.Fatalf("menu: %d %q", code, out)
	}
}

func TestErrorsAndUsageCodes(t *testing.T) {
	root := setupEnv(t)
	if code, _ := runCmd(t, "new"); code != 2 {
		t.Fatalf("missing argument should exit 2, got %d", code)
	}
	if code, _ := runCmd(t, "bogus"); code != 2 {
		t.Fatalf("unknown command should exit 2, got %d", code)
	}
	if code, out := runCmd(t, "show", filepath.Join(root, "nope.cha")); code != 1 || !strings.Contains(out, "Error:") {
		t.Fatalf("show missing: %d %q", code, out)
	}
	if code, _ := runCmd(t, "templates", filepath.Join(root, "missing")); code != 1 {
		t.Fatalf("templates in missing dir should fail")
	}
}

func TestTokenCommand(t *testing.T) {
	setupEnv(t)
	keyring.MockInit()
	if code, out := runCmd(t, "token", "set", "abc"); code != 0 || !strings.Contains(out, "updated") {
		t.Fatalf("token set: %d %q", code, out)
	}
	if tok, err := config.TelemetryToken(); err != nil || tok != "abc" {
		t.Fatalf("stored token = %q, %v", tok, err)
	}
	if code, _ := runCmd(t, "token", "clear"); code != 0 {
		t.Fatalf("token clear failed")
	}
	if code, _ := runCmd(t, "token"); code != 2 {
		t.Fatalf("bare token should exit 2")
	}
}

func TestExportPDF(t *testing.T) {
	root := setupEnv(t)
	file := filepath.Join(root, "Hero")
	if code, out := runCmd(t, "new", file); code != 0 {
		t.Fatalf("new: %d %q", code, out)
	}
	pdfPath := filepath.Join(root, "out", "hero.pdf")
	if code, out := runCmd(t, "export", file+".cha", pdfPath); code != 0 || !strings.Contains(out, "Exported") {
		t.Fatalf("export: %d %q", code, out)
	}
	if st, err := os.Stat(pdfPath); err != nil || st.Size() == 0 {
		t.Fatalf("pdf missing: %v", err)
	}
	if code, _ := runCmd(t, "export", file+".cha"); code != 2 {
		t.Fatalf("export without output should exit 2")
	}
}
