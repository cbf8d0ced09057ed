/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package catalog keeps the per-user list of recently used character files in a small
// SQLite database.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "charsheet/internal/log"
	"charsheet/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion is bumped together with a new step in migrate.
const schemaVersion = 2

// Entry is one remembered character file.
type Entry struct {
	Path     string
	Ruleset  string
	OpenedAt time.Time
}

// Catalog is the recent files store. It is safe for concurrent use.
type Catalog struct {
	db   *sql.DB
	path string
	keep int
	now  func() time.Time
	log  *slog.Logger
}

// Open opens or creates the catalog at path. keep bounds the number of remembered files;
// zero keeps everything. A database that fails its integrity check is moved aside to
// <path>.bak and recreated empty.
func Open(ctx context.Context, path string, keep int) (*Catalog, error) {
	l := applog.WithOperation(applog.WithComponent("catalog"), "open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("catalog path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	db, err := openDB(ctx, path)
	if err == nil && !healthy(ctx, db) {
		_ = db.Close()
		err = errors.New("integrity check failed")
	}
	if err != nil {
		l.Warn("catalog unusable, recreating", slog.Any("err", err))
		backup(path)
		if db, err = openDB(ctx, path); err != nil {
			l.Error("catalog open failed", slog.Any("err", err))
			return nil, err
		}
	}
	l.Debug("catalog ready")
	return &Catalog{db: db, path: path, keep: keep, now: time.Now, log: applog.WithComponent("catalog")}, nil
}

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureVersion(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func healthy(ctx context.Context, db *sql.DB) bool {
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(chk), "ok")
}

// backup moves a broken database and its WAL side files out of the way.
func backup(path string) {
	_ = os.Rename(path, path+".bak")
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
}

func ensureVersion(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS version (
		id         INTEGER PRIMARY KEY CHECK(id=1),
		schema     INTEGER NOT NULL,
		app        TEXT,
		updated_at TEXT NOT NULL
	);`); err != nil {
		return fmt.Errorf("create version table: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Fresh database: migrate builds every table from step 1.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, updated_at) VALUES (1, 0, ?, ?)`, version.String(), now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// migrations[i] brings the schema from version i to i+1.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS recent (
			path      TEXT PRIMARY KEY,
			ruleset   TEXT NOT NULL DEFAULT '',
			opened_at INTEGER NOT NULL
		);`,
	},
	{
		`CREATE INDEX IF NOT EXISTS idx_recent_opened ON recent(opened_at DESC);`,
	},
}

func migrate(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for ; cur < schemaVersion; cur++ {
		next := cur + 1
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range migrations[cur] {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=? WHERE id=1`, next); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
	}
	return nil
}

// Close releases the database.
func (c *Catalog) Close() error { return c.db.Close() }

// Path returns the database file.
func (c *Catalog) Path() string { return c.path }

// Touch records that path was opened now. An empty ruleset keeps the one already stored.
func (c *Catalog) Touch(ctx context.Context, path, ruleset string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("empty path")
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("touch %s: %w", path, err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `INSERT INTO recent (path, ruleset, opened_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			opened_at = excluded.opened_at,
			ruleset = CASE WHEN excluded.ruleset <> '' THEN excluded.ruleset ELSE recent.ruleset END`,
		path, ruleset, c.now().UnixNano()); err != nil {
		return fmt.Errorf("touch %s: %w", path, err)
	}
	if c.keep > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recent WHERE path NOT IN (
			SELECT path FROM recent ORDER BY opened_at DESC, path LIMIT ?)`, c.keep); err != nil {
			return fmt.Errorf("trim recent: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("touch %s: %w", path, err)
	}
	c.log.Debug("recent file recorded", slog.String("path", path))
	return nil
}

// Recent returns up to limit entries, most recently opened first. limit <= 0 returns all.
func (c *Catalog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := c.db.QueryContext(ctx, `SELECT path, ruleset, opened_at FROM recent ORDER BY opened_at DESC, path LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var ns int64
		if err := rows.Scan(&e.Path, &e.Ruleset, &ns); err != nil {
			return nil, fmt.Errorf("scan recent: %w", err)
		}
		e.OpenedAt = time.Unix(0, ns)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Paths is Recent reduced to the file paths, the shape of the recent files list.
func (c *Catalog) Paths(ctx context.Context, limit int) ([]string, error) {
	entries, err := c.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out, nil
}

// Forget removes one file from the list.
func (c *Catalog) Forget(ctx context.Context, path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM recent WHERE path=?`, path); err != nil {
		return fmt.Errorf("forget %s: %w", path, err)
	}
	return nil
}

// Clear empties the list.
func (c *Catalog) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM recent`); err != nil {
		return fmt.Errorf("clear recent: %w", err)
	}
	return nil
}
