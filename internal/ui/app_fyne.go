//go:build fyne && cgo

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
	"log/slog"
	"runtime"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"charsheet/internal/config"
	"charsheet/internal/crash"
	applog "charsheet/internal/log"
	"charsheet/internal/menu"
	"charsheet/internal/router"
	"charsheet/internal/version"
)

// Run starts the Fyne-based desktop UI: one window, one tab per open character.
func Run(cfg config.AppConfig) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")
	defer crash.Recover("")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fyneApp := app.NewWithID("charsheet")
	w := fyneApp.NewWindow("CharSheet")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1000)
	winH := prefs.IntWithFallback("window.height", 700)
	if winW < 640 {
		winW = 640
	}
	if winH < 480 {
		winH = 480
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	win := &window{
		app:     fyneApp,
		win:     w,
		tabs:    container.NewDocTabs(),
		status:  widget.NewLabel("Ready"),
		debug:   cfg.General.Debug,
		ctx:     ctx,
		editors: make(map[router.FrameID]*frameEditor),
		texts:   make(map[router.FrameID]*frameText),
		log:     l,
	}
	jobs := newWorker(ctx)
	win.post = jobs.post

	sess, err := OpenSession(ctx, cfg, nativeDialogs{}, win, jobs.post)
	if err != nil {
		l.Error("session setup failed", slog.Any("err", err))
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			l.Warn("close session", slog.Any("err", err))
		}
	}()
	win.sess = sess

	fyneApp.Lifecycle().SetOnEnteredForeground(func() { sess.Workspace.SetFocused(true) })
	fyneApp.Lifecycle().SetOnExitedForeground(func() { sess.Workspace.SetFocused(false) })

	win.tabs.OnSelected = func(item *container.TabItem) { win.selected(item) }
	win.tabs.OnClosed = func(item *container.TabItem) { win.closed(item) }

	w.SetContent(container.NewBorder(nil, win.status, nil, nil, win.tabs))
	win.setMenu(sess.Workspace.RecentFiles(ctx))
	win.registerShortcuts()

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		cancel()
		w.Close()
	})

	w.ShowAndRun()
	return nil
}

// window is the Fyne View of a Workspace. Fields under mu are shared with the worker
// goroutine; widgets are only touched on the UI goroutine.
type window struct {
	app    fyne.App
	win    fyne.Window
	tabs   *container.DocTabs
	status *widget.Label
	debug  bool
	ctx    context.Context
	sess   *Session
	post   func(func())
	log    *slog.Logger

	mu      sync.Mutex
	active  router.FrameID
	editors map[router.FrameID]*frameEditor
	texts   map[router.FrameID]*frameText
}

type frameText struct{ info, log string }

type frameEditor struct {
	id      router.FrameID
	tab     *container.TabItem
	info    *widget.Entry
	logText *widget.Entry
	ruleset *widget.Label
	recent  *widget.Select
}

var _ View = (*window)(nil)

func (w *window) ShowFrame(f Frame) {
	w.mu.Lock()
	w.texts[f.ID] = &frameText{info: f.Info, log: f.Log}
	w.active = f.ID
	w.mu.Unlock()

	fyne.Do(func() {
		ed := w.editor(f.ID)
		if ed == nil {
			ed = w.newEditor(f)
			w.tabs.Append(ed.tab)
		}
		ed.tab.Text = f.Title()
		ed.info.SetText(f.Info)
		ed.logText.SetText(f.Log)
		ed.ruleset.SetText(rulesetLabel(f.Ruleset))
		w.tabs.Select(ed.tab)
		w.tabs.Refresh()
		w.status.SetText("Opened " + f.File)
	})
}

func (w *window) ActiveFrame() router.FrameID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

func (w *window) FrameContent(id router.FrameID) (string, string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.texts[id]
	if !ok {
		return "", "", false
	}
	return t.info, t.log, true
}

func (w *window) ShowRecent(id router.FrameID, list []string) {
	fyne.Do(func() {
		ed := w.editor(id)
		if ed == nil {
			return
		}
		ed.recent.Options = list
		ed.recent.ClearSelected()
		ed.recent.Refresh()
	})
}

func (w *window) ShowError(e router.ArchiveError) {
	fyne.Do(func() {
		w.status.SetText(fmt.Sprintf("%s failed", e.Op))
		dialog.ShowError(fmt.Errorf("%s %s: %s", e.Op, e.Path, e.Reason), w.win)
	})
}

func (w *window) setStatus(msg string) {
	fyne.Do(func() { w.status.SetText(msg) })
}

func (w *window) MenuChanged() {
	list := w.sess.Workspace.RecentFiles(w.ctx)
	fyne.Do(func() { w.setMenu(list) })
}

func (w *window) editor(id router.FrameID) *frameEditor {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.editors[id]
}

func (w *window) newEditor(f Frame) *frameEditor {
	ed := &frameEditor{
		id:      f.ID,
		info:    widget.NewMultiLineEntry(),
		logText: widget.NewMultiLineEntry(),
		ruleset: widget.NewLabel(rulesetLabel(f.Ruleset)),
	}
	ed.info.SetPlaceHolder("Character data")
	ed.logText.SetPlaceHolder("Session log")
	ed.info.OnChanged = func(s string) { w.setText(f.ID, &s, nil) }
	ed.logText.OnChanged = func(s string) { w.setText(f.ID, nil, &s) }
	ed.recent = widget.NewSelect(nil, func(path string) {
		if path == "" {
			return
		}
		w.post(func() { w.sess.Workspace.Command(w.ctx, menu.Item{Command: menu.CommandOpenRecent, Arg: path}) })
	})
	ed.recent.PlaceHolder = "Recent files"
	refresh := widget.NewButton("Refresh", func() {
		w.post(func() { w.sess.Workspace.RequestRecent(f.ID) })
	})

	revert := widget.NewButton("Undo Save", func() {
		w.post(func() {
			if !w.sess.Workspace.RevertSave(f.ID) {
				w.setStatus("Nothing to undo")
			}
		})
	})
	redo := widget.NewButton("Redo Save", func() {
		w.post(func() {
			if !w.sess.Workspace.RedoSave(f.ID) {
				w.setStatus("Nothing to redo")
			}
		})
	})

	top := container.NewBorder(nil, nil, ed.ruleset, container.NewHBox(revert, redo, refresh), ed.recent)
	split := container.NewVSplit(ed.info, ed.logText)
	split.Offset = 0.7
	ed.tab = container.NewTabItem(f.Title(), container.NewBorder(top, nil, nil, nil, split))

	w.mu.Lock()
	w.editors[f.ID] = ed
	w.mu.Unlock()
	w.post(func() { w.sess.Workspace.RequestRecent(f.ID) })
	return ed
}

func (w *window) setText(id router.FrameID, info, logText *string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.texts[id]
	if !ok {
		t = &frameText{}
		w.texts[id] = t
	}
	if info != nil {
		t.info = *info
	}
	if logText != nil {
		t.log = *logText
	}
}

func (w *window) selected(item *container.TabItem) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, ed := range w.editors {
		if ed.tab == item {
			w.active = id
			return
		}
	}
}

func (w *window) closed(item *container.TabItem) {
	w.mu.Lock()
	var closedID router.FrameID
	for id, ed := range w.editors {
		if ed.tab == item {
			closedID = id
			break
		}
	}
	delete(w.editors, closedID)
	delete(w.texts, closedID)
	if w.active == closedID {
		w.active = ""
	}
	w.mu.Unlock()
	if closedID != "" {
		w.sess.Workspace.CloseFrame(closedID)
	}
	if cur := w.tabs.Selected(); cur != nil {
		w.selected(cur)
	}
}

// bar builds the toolkit independent menu. Fyne supplies the macOS application menu itself.
func (w *window) bar(recent []string) []menu.Menu {
	return menu.Build(menu.Options{
		Sheets:  w.sess.Sheets.Sheets(),
		Recent:  recent,
		Debug:   w.debug,
		AppName: "CharSheet",
	})
}

func (w *window) setMenu(recent []string) {
	w.win.SetMainMenu(toMainMenu(w.bar(recent), w.run))
}

// run executes a menu command off the UI goroutine.
func (w *window) run(item menu.Item) {
	switch item.Command {
	case menu.CommandQuit:
		w.app.Quit()
	case menu.CommandAbout:
		dialog.ShowInformation("About CharSheet", "CharSheet "+version.String(), w.win)
	case menu.CommandDevTools:
		w.showDebugInfo()
	case menu.CommandReload:
		w.post(func() { w.reloadAll() })
	default:
		w.post(func() { w.sess.Workspace.Command(w.ctx, item) })
	}
}

func (w *window) registerShortcuts() {
	menu.Walk(w.bar(nil), func(item menu.Item) {
		if item.Accelerator == "" || item.Command == "" {
			return
		}
		acc, err := menu.ParseAccelerator(item.Accelerator, runtime.GOOS)
		if err != nil {
			w.log.Warn("skip accelerator", slog.String("accel", item.Accelerator), slog.Any("err", err))
			return
		}
		it := item
		w.win.Canvas().AddShortcut(toShortcut(acc), func(fyne.Shortcut) { w.run(it) })
	})
}

// reloadAll rereads every open frame from disk.
func (w *window) reloadAll() {
	for _, f := range w.sess.Workspace.Frames() {
		w.sess.Workspace.Command(w.ctx, menu.Item{Command: menu.CommandOpenRecent, Arg: f.File})
	}
}

func (w *window) showDebugInfo() {
	frames := w.sess.Workspace.Frames()
	text := fmt.Sprintf("Version: %s\nCatalog: %s\nOpen frames: %d\n", version.String(), w.sess.Catalog.Path(), len(frames))
	for _, f := range frames {
		text += fmt.Sprintf("  %s  %s  %s\n", f.ID, f.Ruleset, f.File)
	}
	dialog.ShowInformation("Debug", text, w.win)
}

func rulesetLabel(id string) string {
	if id == "" {
		return "Ruleset: unknown"
	}
	return "Ruleset: " + id
}

// toMainMenu converts bar into Fyne menus whose actions call run.
func toMainMenu(bar []menu.Menu, run func(menu.Item)) *fyne.MainMenu {
	menus := make([]*fyne.Menu, 0, len(bar))
	for _, m := range bar {
		menus = append(menus, fyne.NewMenu(m.Label, toMenuItems(m.Items, run)...))
	}
	return fyne.NewMainMenu(menus...)
}

func toMenuItems(items []menu.Item, run func(menu.Item)) []*fyne.MenuItem {
	out := make([]*fyne.MenuItem, 0, len(items))
	for _, it := range items {
		if it.Separator {
			out = append(out, fyne.NewMenuItemSeparator())
			continue
		}
		item := it
		var action func()
		if item.Command != "" {
			action = func() { run(item) }
		}
		mi := fyne.NewMenuItem(item.Label, action)
		if len(item.Items) > 0 {
			mi.ChildMenu = fyne.NewMenu(item.Label, toMenuItems(item.Items, run)...)
		}
		if item.Command == menu.CommandQuit {
			mi.IsQuit = true
		}
		out = append(out, mi)
	}
	return out
}

func toShortcut(acc menu.Accelerator) *desktop.CustomShortcut {
	var mod fyne.KeyModifier
	if acc.Mods&menu.ModShift != 0 {
		mod |= fyne.KeyModifierShift
	}
	if acc.Mods&menu.ModControl != 0 {
		mod |= fyne.KeyModifierControl
	}
	if acc.Mods&menu.ModAlt != 0 {
		mod |= fyne.KeyModifierAlt
	}
	if acc.Mods&menu.ModSuper != 0 {
		mod |= fyne.KeyModifierSuper
	}
	return &desktop.CustomShortcut{KeyName: fyne.KeyName(acc.Key), Modifier: mod}
}
