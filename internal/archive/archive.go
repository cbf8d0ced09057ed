/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	applog "charsheet/internal/log"
)

const (
	// Extension is the conventional suffix of character files.
	Extension = ".cha"
	// LogEntryName is the archive entry holding the session log.
	LogEntryName = "log.txt"
	dataSuffix   = ".dat"
)

// ErrNotArchive reports a file that exists but is not a readable zip container.
var ErrNotArchive = errors.New("not a character archive")

// locks serializes every archive mutation in the process per file path.
var locks Locker

// Character is the decoded content of a character file.
type Character struct {
	Path string
	Info string
	Log  string
}

// Entry describes one member of an archive.
type Entry struct {
	Name string
	Size uint64
}

// BaseName returns the last element of path without its final extension.
// Both '/' and '\' are treated as separators so Windows paths resolve on any host.
func BaseName(path string) string {
	name := path
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	// A leading dot starts a hidden name, not an extension.
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return name
}

// DataEntryName is the entry holding the character data for the archive at path.
func DataEntryName(path string) string { return BaseName(path) + dataSuffix }

// EnsureExtension appends .cha unless path already carries it (any case).
func EnsureExtension(path string) string {
	if strings.HasSuffix(strings.ToLower(path), Extension) {
		return path
	}
	return path + Extension
}

// Create writes a new archive at path containing an empty data entry and an empty log.
// An existing file at path is replaced.
func Create(ctx context.Context, path string) error {
	l := applog.WithOperation(applog.WithComponent("archive"), "create").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return errors.New("archive path is required")
	}
	unlock, err := locks.Lock(ctx, path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer unlock()

	err = writeAtomic(path, func(zw *zip.Writer) error {
		if err := addEntry(zw, DataEntryName(path), nil); err != nil {
			return err
		}
		return addEntry(zw, LogEntryName, nil)
	})
	if err != nil {
		l.Error("create failed", slog.Any("err", err))
		return fmt.Errorf("create %s: %w", path, err)
	}
	l.Info("archive created")
	return nil
}

// Persist replaces the data and log entries of the existing archive at path with info and
// logText. Other entries are carried over untouched. The archive must already exist.
func Persist(ctx context.Context, path, info, logText string) error {
	l := applog.WithOperation(applog.WithComponent("archive"), "persist").With(slog.String("path", path))
	unlock, err := locks.Lock(ctx, path)
	if err != nil {
		return fmt.Errorf("persist %s: %w", path, err)
	}
	defer unlock()

	zr, err := openReader(path)
	if err != nil {
		l.Error("open failed", slog.Any("err", err))
		return fmt.Errorf("persist %s: %w", path, err)
	}
	dataName := DataEntryName(path)
	data := Encode(info)
	logData := Encode(logText)

	err = writeAtomic(path, func(zw *zip.Writer) error {
		for _, f := range zr.File {
			if f.Name == dataName || f.Name == LogEntryName {
				continue
			}
			if err := zw.Copy(f); err != nil {
				return fmt.Errorf("copy entry %s: %w", f.Name, err)
			}
		}
		if err := addEntry(zw, dataName, data); err != nil {
			return err
		}
		return addEntry(zw, LogEntryName, logData)
	}, zr.Close)
	if err != nil {
		l.Error("persist failed", slog.Any("err", err))
		return fmt.Errorf("persist %s: %w", path, err)
	}
	l.Info("archive written", slog.Int("info_bytes", len(data)), slog.Int("log_bytes", len(logData)))
	return nil
}

// Load reads the character stored at path. Missing entries read as empty text.
func Load(ctx context.Context, path string) (Character, error) {
	unlock, err := locks.Lock(ctx, path)
	if err != nil {
		return Character{}, fmt.Errorf("load %s: %w", path, err)
	}
	defer unlock()

	zr, err := openReader(path)
	if err != nil {
		return Character{}, fmt.Errorf("load %s: %w", path, err)
	}
	defer func() { _ = zr.Close() }()

	ch := Character{Path: path}
	dataName := DataEntryName(path)
	for _, f := range zr.File {
		switch f.Name {
		case dataName:
			if ch.Info, err = readEntry(f); err != nil {
				return Character{}, fmt.Errorf("load %s: %w", path, err)
			}
		case LogEntryName:
			if ch.Log, err = readEntry(f); err != nil {
				return Character{}, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}
	return ch, nil
}

// Entries lists the members of the archive at path in stored order.
func Entries(ctx context.Context, path string) ([]Entry, error) {
	unlock, err := locks.Lock(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("entries %s: %w", path, err)
	}
	defer unlock()

	zr, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()
	out := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		out = append(out, Entry{Name: f.Name, Size: f.UncompressedSize64})
	}
	return out, nil
}

func openReader(path string) (*zip.ReadCloser, error) {
	zr, err := zip.OpenReader(path)
	if err == nil {
		return zr, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrAlgorithm) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: %v", ErrNotArchive, err)
	}
	return nil, err
}

func readEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read entry %s: %w", f.Name, err)
	}
	return string(b), nil
}

func addEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: time.Now()})
	if err != nil {
		return fmt.Errorf("add entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}

// writeAtomic builds a zip in a temporary file next to path and renames it over path.
// beforeRename hooks run after the temp file is complete, e.g. to release a reader of path.
func writeAtomic(path string, fill func(*zip.Writer) error, beforeRename ...func() error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	_ = tmp.Chmod(0o644)
	committed := false
	defer func() {
		for _, fn := range beforeRename {
			if fn != nil {
				_ = fn()
			}
		}
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	zw := zip.NewWriter(tmp)
	if err := fill(zw); err != nil {
		_ = zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	for i, fn := range beforeRename {
		if fn != nil {
			if err := fn(); err != nil {
				return err
			}
			beforeRename[i] = nil
		}
	}
	// On Windows, rename does not replace an existing file.
	if runtime.GOOS == "windows" {
		if _, err := os.Stat(path); err == nil {
			_ = os.Remove(path)
		}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace archive: %w", err)
	}
	committed = true
	return nil
}
