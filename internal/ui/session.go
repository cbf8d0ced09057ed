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
	"fmt"

	"charsheet/internal/archive"
	"charsheet/internal/catalog"
	"charsheet/internal/config"
	"charsheet/internal/router"
	"charsheet/internal/telemetry"
	"charsheet/internal/templates"
)

// Session wires the template registry, the recent files catalog, the router and a
// workspace for one run of the application.
type Session struct {
	Workspace *Workspace
	Router    *router.Router
	Sheets    *templates.Registry
	Catalog   *catalog.Catalog
}

// OpenSession loads the templates named by cfg and opens the catalog. A template that cannot
// be read fails the whole session.
func OpenSession(ctx context.Context, cfg config.AppConfig, dialogs archive.Dialogs, view View, post func(func())) (*Session, error) {
	sheets, err := templates.Load(cfg.General.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	catPath, err := cfg.CatalogPath()
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Open(ctx, catPath, cfg.General.RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("open recent files: %w", err)
	}
	ws := NewWorkspace(Options{View: view, Recent: cat, RecentLimit: cfg.General.RecentLimit, Post: post})
	r := router.New(router.Options{
		Archives:     archive.NewManager(dialogs),
		Host:         ws,
		Sheets:       sheets,
		DocumentsDir: cfg.General.DocumentsDir,
		Recent:       cat,
		Events:       telemetry.Default(),
	})
	ws.Attach(r)
	return &Session{Workspace: ws, Router: r, Sheets: sheets, Catalog: cat}, nil
}

// Close releases the catalog.
func (s *Session) Close() error { return s.Catalog.Close() }
