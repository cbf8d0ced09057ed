/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// openTest returns a catalog whose clock advances one second per Touch.
func openTest(t *testing.T, keep int) *Catalog {
	t.Helper()
	c, err := Open(context.Background(), filepath.Join(t.TempDir(), "recent.sqlite"), keep)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	c.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	return c
}

func TestTouchOrdersMostRecentFirst(t *testing.T) {
	c := openTest(t, 0)
	ctx := context.Background()
	for _, p := range []string{"/c/a.cha", "/c/b.cha", "/c/c.cha", "/c/a.cha"} {
		if err := c.Touch(ctx, p, ""); err != nil {
			t.Fatalf("Touch(%s): %v", p, err)
		}
	}
	paths, err := c.Paths(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/c/a.cha", "/c/c.cha", "/c/b.cha"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != mustAbs(t, want[i]) {
			t.Fatalf("paths = %v, want %v", paths, want)
		}
	}
	limited, _ := c.Paths(ctx, 2)
	if len(limited) != 2 {
		t.Fatalf("limit ignored: %v", limited)
	}
}

func mustAbs(t *testing.T, p string) string {
	t.Helper()
	abs, err := filepath.Abs(p)
	if err != nil {
		t.Fatal(err)
	}
	return abs
}

func TestTouchKeepsRulesetWhenEmpty(t *testing.T) {
	c := openTest(t, 0)
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "Hero.cha")
	if err := c.Touch(ctx, p, "fate"); err != nil {
		t.Fatal(err)
	}
	if err := c.Touch(ctx, p, ""); err != nil {
		t.Fatal(err)
	}
	entries, err := c.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Ruleset != "fate" {
		t.Fatalf("entries = %#v", entries)
	}
	if !entries[0].OpenedAt.Equal(time.Date(2025, 3, 1, 12, 0, 2, 0, time.UTC)) {
		t.Fatalf("OpenedAt = %v", entries[0].OpenedAt)
	}
}

func TestTouchTrimsToKeep(t *testing.T) {
	c := openTest(t, 2)
	ctx := context.Background()
	dir := t.TempDir()
	for _, n := range []string{"a", "b", "c"} {
		if err := c.Touch(ctx, filepath.Join(dir, n+".cha"), ""); err != nil {
			t.Fatal(err)
		}
	}
	paths, _ := c.Paths(ctx, 0)
	if len(paths) != 2 || paths[0] != filepath.Join(dir, "c.cha") || paths[1] != filepath.Join(dir, "b.cha") {
		t.Fatalf("paths = %v", paths)
	}
}

func TestForgetAndClear(t *testing.T) {
	c := openTest(t, 0)
	ctx := context.Background()
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.cha"), filepath.Join(dir, "b.cha")
	_ = c.Touch(ctx, a, "")
	_ = c.Touch(ctx, b, "")
	if err := c.Forget(ctx, a); err != nil {
		t.Fatal(err)
	}
	if paths, _ := c.Paths(ctx, 0); len(paths) != 1 || paths[0] != b {
		t.Fatalf("after Forget: %v", paths)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if paths, _ := c.Paths(ctx, 0); len(paths) != 0 {
		t.Fatalf("after Clear: %v", paths)
	}
	if err := c.Touch(ctx, "  ", ""); err == nil {
		t.Fatalf("blank path accepted")
	}
}

func TestReopenPersistsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recent.sqlite")
	ctx := context.Background()
	c, err := Open(ctx, path, 0)
	if err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(t.TempDir(), "Hero.cha")
	if err := c.Touch(ctx, file, "dnd5e"); err != nil {
		t.Fatal(err)
	}
	_ = c.Close()

	c, err = Open(ctx, path, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	entries, _ := c.Recent(ctx, 0)
	if len(entries) != 1 || entries[0].Path != file || entries[0].Ruleset != "dnd5e" {
		t.Fatalf("entries = %#v", entries)
	}
}

func TestOpenMigratesVersionOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recent.sqlite")
	ctx := context.Background()
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.ToSlash(path)))
	if err != nil {
		t.Fatal(err)
	}
	for _, q := range []string{
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, updated_at TEXT NOT NULL);`,
		`INSERT INTO version VALUES (1, 1, 'test', '2020-01-01T00:00:00Z');`,
		`CREATE TABLE recent (path TEXT PRIMARY KEY, ruleset TEXT NOT NULL DEFAULT '', opened_at INTEGER NOT NULL);`,
		`INSERT INTO recent VALUES ('/old/a.cha', 'fate', 1);`,
	} {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed: %v (%s)", err, q)
		}
	}
	_ = db.Close()

	c, err := Open(ctx, path, 0)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer c.Close()
	var schema, idx int
	if err := c.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatal(err)
	}
	if schema != schemaVersion {
		t.Fatalf("schema = %d, want %d", schema, schemaVersion)
	}
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_recent_opened'`).Scan(&idx); err != nil || idx != 1 {
		t.Fatalf("index missing: %d %v", idx, err)
	}
	if entries, _ := c.Recent(ctx, 0); len(entries) != 1 || entries[0].Path != "/old/a.cha" {
		t.Fatalf("old entries lost: %#v", entries)
	}
}

func TestOpenRecreatesBrokenDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recent.sqlite")
	if err := os.WriteFile(path, []byte("definitely not a sqlite database, just some bytes padded out to a page"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Open(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer c.Close()
	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Fatalf("broken database not kept as backup: %v", err)
	}
	if entries, err := c.Recent(context.Background(), 0); err != nil || len(entries) != 0 {
		t.Fatalf("recreated catalog = %#v, %v", entries, err)
	}
}
