/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	applog "charsheet/internal/log"
)

// ErrCancelled is returned by Dialogs when the user dismisses a dialog without choosing a file.
var ErrCancelled = errors.New("dialog cancelled")

// FileFilter restricts a file dialog to the given extensions (without dots).
type FileFilter struct {
	Name       string
	Extensions []string
}

// DialogOptions configures a native file dialog.
type DialogOptions struct {
	Title    string
	StartDir string
	Filters  []FileFilter
}

// Dialogs is the native file picker. Implementations block until the user decides and
// return ErrCancelled when nothing was chosen.
type Dialogs interface {
	OpenFile(ctx context.Context, opts DialogOptions) (string, error)
	SaveFile(ctx context.Context, opts DialogOptions) (string, error)
}

// CharacterFilter is the filter every character dialog uses.
var CharacterFilter = FileFilter{Name: "Character files", Extensions: []string{strings.TrimPrefix(Extension, ".")}}

// Manager couples the archive operations with the dialogs that pick their paths.
type Manager struct {
	dialogs Dialogs
	log     *slog.Logger
}

// NewManager returns a Manager prompting through d.
func NewManager(d Dialogs) *Manager {
	return &Manager{dialogs: d, log: applog.WithComponent("archive")}
}

// Open resolves the character file to load. A non-empty path is returned as is, without
// looking at the file; otherwise the user picks one. ok is false when the user cancelled.
func (m *Manager) Open(ctx context.Context, path string) (string, bool, error) {
	if path != "" {
		return path, true, nil
	}
	if m.dialogs == nil {
		return "", false, errors.New("no file dialog available")
	}
	chosen, err := m.dialogs.OpenFile(ctx, DialogOptions{
		Title:   "Select a character",
		Filters: []FileFilter{CharacterFilter},
	})
	switch {
	case errors.Is(err, ErrCancelled):
		m.log.Info("open canceled")
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("open dialog: %w", err)
	case chosen == "":
		return "", false, nil
	}
	m.log.Info("character selected", slog.String("path", chosen))
	return chosen, true, nil
}

// Create asks for the location of a new character file, starting in startDir, and writes an
// empty archive there. ok is false when the user cancelled.
func (m *Manager) Create(ctx context.Context, startDir string) (string, bool, error) {
	if m.dialogs == nil {
		return "", false, errors.New("no file dialog available")
	}
	chosen, err := m.dialogs.SaveFile(ctx, DialogOptions{
		Title:    "Save new character as",
		StartDir: startDir,
		Filters:  []FileFilter{CharacterFilter},
	})
	switch {
	case errors.Is(err, ErrCancelled):
		m.log.Info("create canceled")
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("save dialog: %w", err)
	case chosen == "":
		return "", false, nil
	}
	chosen = EnsureExtension(chosen)
	if err := Create(ctx, chosen); err != nil {
		return "", false, err
	}
	return chosen, true, nil
}

// Persist stores info and logText in the existing archive at path.
func (m *Manager) Persist(ctx context.Context, path, info, logText string) error {
	return Persist(ctx, path, info, logText)
}

// Load reads the archive at path.
func (m *Manager) Load(ctx context.Context, path string) (Character, error) {
	return Load(ctx, path)
}
