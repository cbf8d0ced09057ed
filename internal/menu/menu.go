/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package menu describes the application menu bar without depending on a UI toolkit.
// The UI turns the description into native menus and maps each item's Command to a router call.
package menu

import (
	"path/filepath"

	"charsheet/internal/router"
	"charsheet/internal/templates"
)

// Commands handled by the UI itself. Open and Save use the router's shortcut names.
const (
	CommandOpen        = router.CommandOpen
	CommandSave        = router.CommandSave
	CommandOpenRecent  = "open_recent"
	CommandClearRecent = "clear_recent"
	CommandQuit        = "quit"
	CommandAbout       = "about"
	CommandDevTools    = "toggle_dev_tools"
	CommandReload      = "reload"
)

// Item is a menu entry. An item with Items is a submenu; a Separator has no other fields.
// Items without a Command are shown but do nothing.
type Item struct {
	Label       string
	Accelerator string
	Command     string
	// Arg carries the command argument: the file for open_recent.
	Arg       string
	Separator bool
	Items     []Item
}

// Menu is one top-level entry of the menu bar.
type Menu struct {
	Label string
	Items []Item
}

// Options controls Build.
type Options struct {
	Sheets  []templates.Sheet
	Recent  []string
	Debug   bool
	GOOS    string
	AppName string
}

// Build returns the menu bar.
func Build(opts Options) []Menu {
	newItems := make([]Item, 0, len(opts.Sheets))
	for _, s := range opts.Sheets {
		// The command is the sheet's type tag, answered with a new character of that template.
		newItems = append(newItems, Item{Label: s.Name, Command: s.Type})
	}

	recent := make([]Item, 0, len(opts.Recent)+2)
	for _, p := range opts.Recent {
		recent = append(recent, Item{Label: filepath.Base(p), Command: CommandOpenRecent, Arg: p})
	}
	if len(recent) > 0 {
		recent = append(recent, Item{Separator: true})
	}
	recent = append(recent, Item{Label: "Clear All", Command: CommandClearRecent})

	bar := []Menu{
		{Label: "File", Items: []Item{
			{Label: "New", Items: newItems},
			{Label: "Open", Accelerator: "CmdOrCtrl+O", Command: CommandOpen},
			{Label: "Save", Accelerator: "CmdOrCtrl+S", Command: CommandSave},
			{Label: "Recent Files", Items: recent},
			{Label: "Quit", Command: CommandQuit},
		}},
		{Label: "Network", Items: []Item{
			{Label: "Join", Accelerator: "CmdOrCtrl+J"},
			{Label: "Start Server", Accelerator: "CmdOrCtrl+H"},
			{Label: "Settings", Accelerator: "CmdOrCtrl+P"},
		}},
		{Label: "Help", Items: []Item{
			{Label: "About", Command: CommandAbout},
		}},
	}

	if opts.Debug {
		bar = append(bar, Menu{Label: "Debug", Items: []Item{
			{Label: "Dev Tools", Command: CommandDevTools},
			{Separator: true},
			{Label: "Reload", Accelerator: "Alt+R", Command: CommandReload},
		}})
	}

	if opts.GOOS == "darwin" {
		name := opts.AppName
		if name == "" {
			name = "CharSheet"
		}
		app := Menu{Label: name, Items: []Item{
			{Label: "About " + name, Command: CommandAbout},
			{Separator: true},
			{Label: "Quit " + name, Command: CommandQuit},
		}}
		bar = append([]Menu{app}, bar...)
	}
	return bar
}

// Walk calls fn for every non-separator item, depth first.
func Walk(bar []Menu, fn func(Item)) {
	var visit func(items []Item)
	visit = func(items []Item) {
		for _, it := range items {
			if it.Separator {
				continue
			}
			fn(it)
			visit(it.Items)
		}
	}
	for _, m := range bar {
		visit(m.Items)
	}
}
