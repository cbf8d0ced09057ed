/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"charsheet/internal/config"
	"charsheet/internal/menu"
	"charsheet/internal/router"
)

func itemFor(command string) menu.Item { return menu.Item{Command: command} }

func writeTemplate(t *testing.T, dir, id, name string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, id), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, id, "info.json"), []byte(`{"name":"`+name+`"}`), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOpenSessionWiresSheetsAndCatalog(t *testing.T) {
	root := t.TempDir()
	tdir := filepath.Join(root, "Templates")
	writeTemplate(t, tdir, "dnd5e", "D&D 5e")
	writeTemplate(t, tdir, "fate", "Fate Core")

	cfg := config.Defaults()
	cfg.General.TemplatesDir = tdir
	cfg.General.DocumentsDir = root
	cfg.Catalog.Path = filepath.Join(root, "recent.sqlite")

	d := &scriptedDialogs{save: filepath.Join(root, "Eve.cha")}
	view := newFakeView()
	s, err := OpenSession(context.Background(), cfg, d, view, nil)
	if err != nil {
		t.Fatalf("OpenSession error: %v", err)
	}
	defer s.Close()

	got, err := s.Router.Invoke(context.Background(), router.ChanSheetList, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if sheets := s.Router.SheetList(); len(sheets) != 2 || sheets[0].Type != "*[dnd5e]*" || got == nil {
		t.Fatalf("sheets = %#v", sheets)
	}

	s.Workspace.Command(context.Background(), itemFor("*[fate]*"))
	paths, err := s.Catalog.Paths(context.Background(), 0)
	if err != nil || len(paths) != 1 || paths[0] != d.save {
		t.Fatalf("catalog paths = %v, %v", paths, err)
	}
}

func TestOpenSessionFailsOnBadTemplate(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "broken"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	cfg.General.TemplatesDir = root
	cfg.Catalog.Path = filepath.Join(root, "recent.sqlite")
	if _, err := OpenSession(context.Background(), cfg, nil, newFakeView(), nil); err == nil {
		t.Fatalf("expected error for template without info.json")
	}
}
