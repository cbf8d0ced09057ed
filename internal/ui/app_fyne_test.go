//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests validate the Fyne menu binding. They are gated behind the
// "fyne" build tag so CI (which is headless) does not need Fyne or a display.
// To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"testing"

	"fyne.io/fyne/v2"

	"charsheet/internal/menu"
	"charsheet/internal/templates"
)

func TestToMainMenu_MirrorsBar(t *testing.T) {
	bar := menu.Build(menu.Options{
		Sheets: []templates.Sheet{{Name: "Fate Core", Type: "*[fate]*"}},
		Recent: []string{"/c/Aria.cha"},
		Debug:  true,
	})
	var ran []menu.Item
	mm := toMainMenu(bar, func(it menu.Item) { ran = append(ran, it) })
	if len(mm.Items) != 4 {
		t.Fatalf("expected 4 menus, got %d", len(mm.Items))
	}
	file := mm.Items[0]
	if file.Label != "File" || file.Items[0].ChildMenu == nil {
		t.Fatalf("unexpected File menu: %#v", file)
	}
	file.Items[0].ChildMenu.Items[0].Action()
	if len(ran) != 1 || ran[0].Command != "*[fate]*" {
		t.Fatalf("template item ran %#v", ran)
	}
	if !file.Items[4].IsQuit {
		t.Fatalf("Quit item not marked")
	}
	recent := file.Items[3].ChildMenu.Items
	if len(recent) != 3 || !recent[1].IsSeparator {
		t.Fatalf("unexpected recent submenu: %#v", recent)
	}
	if join := mm.Items[1].Items[0]; join.Action != nil {
		t.Fatalf("Join should have no action")
	}
}

func TestToShortcut(t *testing.T) {
	acc, err := menu.ParseAccelerator("CmdOrCtrl+S", "linux")
	if err != nil {
		t.Fatal(err)
	}
	sc := toShortcut(acc)
	if sc.KeyName != fyne.KeyS || sc.Modifier != fyne.KeyModifierControl {
		t.Fatalf("unexpected shortcut: %#v", sc)
	}
	acc, _ = menu.ParseAccelerator("Alt+R", "darwin")
	if sc := toShortcut(acc); sc.KeyName != fyne.KeyR || sc.Modifier != fyne.KeyModifierAlt {
		t.Fatalf("unexpected shortcut: %#v", sc)
	}
}
