/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ui hosts character sheets in frames and speaks the router's message protocol on
// their behalf. The Workspace is toolkit independent; the Fyne window in app_fyne.go is one
// View of it.
package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"charsheet/internal/archive"
	applog "charsheet/internal/log"
	"charsheet/internal/menu"
	"charsheet/internal/router"
	"charsheet/internal/templates"
	"charsheet/internal/undo"
)

// ErrUnknownFrame is returned for notifications addressed to a frame that is not open.
var ErrUnknownFrame = errors.New("unknown frame")

// Frame is one open character sheet.
type Frame struct {
	ID      router.FrameID
	File    string
	Ruleset string
	Info    string
	Log     string
	Recent  []string
}

// Title is the label shown on the frame's tab.
func (f Frame) Title() string {
	if f.File == "" {
		return "Untitled"
	}
	return archive.BaseName(f.File)
}

// View renders a Workspace. Methods may be called from any goroutine.
type View interface {
	// ShowFrame displays a newly opened frame or refreshes an existing one.
	ShowFrame(f Frame)
	// ActiveFrame is the frame with focus, empty when there is none.
	ActiveFrame() router.FrameID
	// FrameContent returns the edited info and log texts of a frame.
	FrameContent(id router.FrameID) (info, logText string, ok bool)
	ShowRecent(id router.FrameID, list []string)
	ShowError(e router.ArchiveError)
	// MenuChanged asks for the menu bar to be rebuilt.
	MenuChanged()
}

// Recents is the recent files list as the workspace uses it.
type Recents interface {
	Paths(ctx context.Context, limit int) ([]string, error)
	Clear(ctx context.Context) error
	Forget(ctx context.Context, path string) error
}

// Options configures a Workspace.
type Options struct {
	View        View
	Recent      Recents
	RecentLimit int
	// Post runs reactions to notifications. The default runs them inline.
	Post func(func())
	// History keeps the versions replaced by saves. Nil gets a default one.
	History *undo.History
}

// Workspace is the single application window: a router.Host with one surface, itself.
type Workspace struct {
	mu      sync.Mutex
	frames  map[router.FrameID]*Frame
	order   []router.FrameID
	focused bool

	view    View
	recent  Recents
	limit   int
	post    func(func())
	router  *router.Router
	history *undo.History
	now     func() time.Time
	log     *slog.Logger
}

// NewWorkspace returns a focused, empty workspace. Attach must be called before use.
func NewWorkspace(opts Options) *Workspace {
	post := opts.Post
	if post == nil {
		post = func(fn func()) { fn() }
	}
	history := opts.History
	if history == nil {
		history = undo.New(undo.Config{MaxPerKey: 20})
	}
	return &Workspace{
		frames:  make(map[router.FrameID]*Frame),
		focused: true,
		view:    opts.View,
		recent:  opts.Recent,
		limit:   opts.RecentLimit,
		post:    post,
		history: history,
		now:     time.Now,
		log:     applog.WithComponent("ui"),
	}
}

// Attach sets the router the workspace talks to.
func (w *Workspace) Attach(r *router.Router) { w.router = r }

// SetFocused records whether the window has focus.
func (w *Workspace) SetFocused(v bool) {
	w.mu.Lock()
	w.focused = v
	w.mu.Unlock()
}

// Focused implements router.Host.
func (w *Workspace) Focused() router.Surface {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.focused {
		return nil
	}
	return w
}

// Frames returns the open frames in the order they were opened.
func (w *Workspace) Frames() []Frame {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Frame, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, *w.frames[id])
	}
	return out
}

// Frame returns one open frame.
func (w *Workspace) Frame(id router.FrameID) (Frame, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.frames[id]
	if !ok {
		return Frame{}, false
	}
	return *f, true
}

// CloseFrame forgets a frame and its save history.
func (w *Workspace) CloseFrame(id router.FrameID) {
	w.history.Forget(string(id))
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.frames, id)
	for i, o := range w.order {
		if o == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// Send implements router.Surface for window-level notifications.
func (w *Workspace) Send(n router.Notification) error {
	switch n.Channel {
	case router.ChanWhoAmI:
		id := w.view.ActiveFrame()
		if id == "" {
			return nil
		}
		w.post(func() { w.invoke(router.ChanSaveRequest, id, id) })
		return nil
	case router.ChanLoadCharacter:
		switch p := n.Payload.(type) {
		case string:
			w.post(func() { w.openFile(p) })
		case router.LoadTarget:
			w.post(func() { w.openNew(p) })
		default:
			return fmt.Errorf("load_character: unexpected payload %T", n.Payload)
		}
		return nil
	case router.ChanRecentFilesRequest:
		frame, _ := n.Payload.(router.FrameID)
		w.post(func() { w.answerRecent(frame) })
		return nil
	case router.ChanArchiveError:
		if e, ok := n.Payload.(router.ArchiveError); ok {
			w.view.ShowError(e)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", router.ErrUnknownChannel, n.Channel)
}

// SendToFrame implements router.Surface for notifications addressed to one frame.
func (w *Workspace) SendToFrame(id router.FrameID, n router.Notification) error {
	if _, ok := w.Frame(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFrame, id)
	}
	switch n.Channel {
	case router.ChanSaveRequest:
		w.post(func() { w.saveFrame(id) })
		return nil
	case router.ChanRecentFilesList:
		list, _ := n.Payload.([]string)
		w.mu.Lock()
		if f, ok := w.frames[id]; ok {
			f.Recent = append([]string(nil), list...)
		}
		w.mu.Unlock()
		w.view.ShowRecent(id, list)
		return nil
	}
	return fmt.Errorf("%w: %q", router.ErrUnknownChannel, n.Channel)
}

// Command runs a menu command.
func (w *Workspace) Command(ctx context.Context, item menu.Item) {
	switch item.Command {
	case "":
		return
	case menu.CommandOpen, menu.CommandSave:
		if err := w.router.Shortcut(ctx, item.Command); err != nil {
			w.log.Warn("shortcut failed", slog.String("command", item.Command), slog.Any("err", err))
		}
	case menu.CommandOpenRecent:
		w.invoke(router.ChanLoadCharacter, "", item.Arg)
	case menu.CommandClearRecent:
		if w.recent == nil {
			return
		}
		if err := w.recent.Clear(ctx); err != nil {
			w.log.Warn("clear recent files failed", slog.Any("err", err))
		}
		w.view.MenuChanged()
	default:
		if _, ok := templates.ParseTypeTag(item.Command); ok {
			w.invoke(router.ChanSaveCharacter, "", item.Command)
			return
		}
		w.log.Debug("menu command not handled here", slog.String("command", item.Command))
	}
}

// RequestRecent asks, on behalf of frame id, for the recent files list.
func (w *Workspace) RequestRecent(id router.FrameID) {
	w.invoke(router.ChanRecentFilesRequest, id, nil)
}

// RecentFiles returns the recent files list for the menu. Errors yield an empty list.
func (w *Workspace) RecentFiles(ctx context.Context) []string {
	if w.recent == nil {
		return nil
	}
	list, err := w.recent.Paths(ctx, w.limit)
	if err != nil {
		w.log.Warn("recent files unavailable", slog.Any("err", err))
		return nil
	}
	return list
}

// invoke sends a message to the router as a frame would, JSON encoding payload.
func (w *Workspace) invoke(channel string, sender router.FrameID, payload any) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			w.log.Error("encode message", slog.String("channel", channel), slog.Any("err", err))
			return
		}
		raw = b
	}
	ctx := applog.ContextWith(context.Background(), slog.String("frame", string(sender)))
	if _, err := w.router.Invoke(ctx, channel, sender, raw); err != nil {
		w.log.Warn("message failed", slog.String("channel", channel), slog.Any("err", err))
	}
}

func (w *Workspace) openFile(path string) {
	ctx := context.Background()
	ch, err := archive.Load(ctx, path)
	if err != nil {
		// The router lists a path as soon as it is chosen; drop it again when it cannot be read.
		if w.recent != nil {
			if ferr := w.recent.Forget(ctx, path); ferr != nil {
				w.log.Warn("forget recent file failed", slog.String("path", path), slog.Any("err", ferr))
			}
		}
		w.view.ShowError(router.ArchiveError{Op: "open", Path: path, Reason: err.Error()})
		w.view.MenuChanged()
		return
	}
	w.show(Frame{File: ch.Path, Info: ch.Info, Log: ch.Log})
}

func (w *Workspace) openNew(t router.LoadTarget) {
	w.show(Frame{File: t.File, Ruleset: t.Ruleset})
}

// show adds f, or refreshes the frame already showing the same file.
func (w *Workspace) show(f Frame) {
	w.mu.Lock()
	for _, id := range w.order {
		if existing := w.frames[id]; sameFile(existing.File, f.File) {
			f.ID = id
			if f.Ruleset == "" {
				f.Ruleset = existing.Ruleset
			}
			break
		}
	}
	if f.ID == "" {
		f.ID = router.FrameID(uuid.NewString())
		w.order = append(w.order, f.ID)
	}
	stored := f
	w.frames[f.ID] = &stored
	w.mu.Unlock()

	w.view.ShowFrame(f)
	w.view.MenuChanged()
}

func (w *Workspace) saveFrame(id router.FrameID) {
	f, ok := w.Frame(id)
	if !ok {
		return
	}
	info, logText, ok := w.view.FrameContent(id)
	if !ok {
		info, logText = f.Info, f.Log
	}
	if info != f.Info || logText != f.Log {
		w.history.Record(string(id), undo.Version{Info: f.Info, Log: f.Log, TS: w.now()})
	}
	w.store(id, info, logText)
	w.invoke(router.ChanSaveCharacter, id, router.SaveExisting{File: f.File, Info: info, Log: logText})
}

// RevertSave puts back the version a frame had before its last save and saves it.
// It reports false when there is nothing to revert.
func (w *Workspace) RevertSave(id router.FrameID) bool {
	return w.step(id, w.history.Back)
}

// RedoSave undoes a RevertSave.
func (w *Workspace) RedoSave(id router.FrameID) bool {
	return w.step(id, w.history.Forward)
}

func (w *Workspace) step(id router.FrameID, move func(string, undo.Version) (undo.Version, bool)) bool {
	f, ok := w.Frame(id)
	if !ok {
		return false
	}
	v, ok := move(string(id), undo.Version{Info: f.Info, Log: f.Log, TS: w.now()})
	if !ok {
		return false
	}
	w.store(id, v.Info, v.Log)
	f.Info, f.Log = v.Info, v.Log
	w.view.ShowFrame(f)
	w.invoke(router.ChanSaveCharacter, id, router.SaveExisting{File: f.File, Info: v.Info, Log: v.Log})
	return true
}

func (w *Workspace) store(id router.FrameID, info, logText string) {
	w.mu.Lock()
	if cur, ok := w.frames[id]; ok {
		cur.Info, cur.Log = info, logText
	}
	w.mu.Unlock()
}

func (w *Workspace) answerRecent(frame router.FrameID) {
	list := w.RecentFiles(context.Background())
	if list == nil {
		list = []string{}
	}
	w.invoke(router.ChanRecentFilesList, "", struct {
		ID   router.FrameID `json:"id"`
		List []string       `json:"list"`
	}{frame, list})
}

func sameFile(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return aa == bb
}
