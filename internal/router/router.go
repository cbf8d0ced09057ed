/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package router relays commands between UI surfaces and the archive layer.
// It holds no state of its own: every command either runs an archive operation and reports
// the outcome to the focused surface, or forwards a notification to a surface or frame.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	applog "charsheet/internal/log"
	"charsheet/internal/templates"
)

// Surface is a window able to receive notifications, for itself or one of its frames.
type Surface interface {
	Send(n Notification) error
	SendToFrame(frame FrameID, n Notification) error
}

// Host tracks the surfaces of the application. Focused returns nil when no window has focus.
type Host interface {
	Focused() Surface
}

// Archives is the archive manager the router drives.
type Archives interface {
	Open(ctx context.Context, path string) (string, bool, error)
	Create(ctx context.Context, startDir string) (string, bool, error)
	Persist(ctx context.Context, path, info, logText string) error
}

// RecentStore remembers character files the user worked with.
type RecentStore interface {
	Touch(ctx context.Context, path, ruleset string) error
}

// Events receives anonymous usage events.
type Events interface {
	Event(name string, props map[string]any)
}

// Options configures a Router. Archives and Host are required.
type Options struct {
	Archives     Archives
	Host         Host
	Sheets       *templates.Registry
	DocumentsDir string
	Recent       RecentStore
	Events       Events
}

// Router dispatches commands. It is safe for concurrent use when its collaborators are.
type Router struct {
	archives Archives
	host     Host
	sheets   []templates.Sheet
	docs     string
	recent   RecentStore
	events   Events
	log      *slog.Logger
}

// New returns a Router. The sheet list is captured once and never changes afterwards.
func New(opts Options) *Router {
	return &Router{
		archives: opts.Archives,
		host:     opts.Host,
		sheets:   opts.Sheets.Sheets(),
		docs:     opts.DocumentsDir,
		recent:   opts.Recent,
		events:   opts.Events,
		log:      applog.WithComponent("router"),
	}
}

// SheetList answers request_sheet_list synchronously.
func (r *Router) SheetList() []templates.Sheet {
	return append([]templates.Sheet(nil), r.sheets...)
}

// Shortcut runs the action bound to a global accelerator.
func (r *Router) Shortcut(ctx context.Context, command string) error {
	switch command {
	case CommandSave:
		// The focused surface answers who_am_i with a save_request naming its frame.
		s := r.focused("shortcut save")
		if s == nil {
			return nil
		}
		return s.Send(Notification{Channel: ChanWhoAmI})
	case CommandOpen:
		return r.load(ctx, "")
	}
	return fmt.Errorf("%w: shortcut %q", ErrUnknownChannel, command)
}

// Dispatch handles one command message. Archive failures are reported to the focused surface
// as archive_error and returned.
func (r *Router) Dispatch(ctx context.Context, msg Message) error {
	switch m := msg.(type) {
	case nil:
		return nil
	case LoadCharacter:
		return r.load(ctx, m.Path)
	case SaveExisting:
		return r.persist(ctx, m)
	case SaveNew:
		return r.create(ctx, m.TemplateID)
	case SaveRequest:
		s := r.focused(ChanSaveRequest)
		if s == nil {
			return nil
		}
		return s.SendToFrame(m.Frame, Notification{Channel: ChanSaveRequest})
	case RecentFilesRequest:
		s := r.focused(ChanRecentFilesRequest)
		if s == nil {
			return nil
		}
		return s.Send(Notification{Channel: ChanRecentFilesRequest, Payload: m.Frame})
	case RecentFilesList:
		s := r.focused(ChanRecentFilesList)
		if s == nil {
			return nil
		}
		return s.SendToFrame(m.Frame, Notification{Channel: ChanRecentFilesList, Payload: m.List})
	}
	return fmt.Errorf("%w: %T", ErrUnknownChannel, msg)
}

// Invoke is the wire entry point: it decodes raw and dispatches it. For the synchronous
// request_sheet_list query it returns the sheet list; every other channel returns nil.
func (r *Router) Invoke(ctx context.Context, channel string, sender FrameID, raw json.RawMessage) (any, error) {
	if channel == ChanSheetList {
		return r.SheetList(), nil
	}
	msg, err := Decode(channel, sender, raw)
	if err != nil {
		r.log.Warn("undecodable message", slog.String("channel", channel), slog.Any("err", err))
		return nil, err
	}
	return nil, r.Dispatch(ctx, msg)
}

func (r *Router) load(ctx context.Context, path string) error {
	s := r.focused(ChanLoadCharacter)
	if s == nil {
		return nil
	}
	chosen, ok, err := r.archives.Open(ctx, path)
	if err != nil {
		return r.fail(s, "open", path, err)
	}
	if !ok {
		return nil
	}
	r.touch(ctx, chosen, "")
	return s.Send(Notification{Channel: ChanLoadCharacter, Payload: chosen})
}

func (r *Router) persist(ctx context.Context, m SaveExisting) error {
	if err := r.archives.Persist(ctx, m.File, m.Info, m.Log); err != nil {
		return r.fail(r.host.Focused(), "save", m.File, err)
	}
	r.touch(ctx, m.File, "")
	r.event("archive_saved", map[string]any{"info_bytes": len(m.Info), "log_bytes": len(m.Log)})
	return nil
}

func (r *Router) create(ctx context.Context, templateID string) error {
	s := r.focused("new character")
	if s == nil {
		return nil
	}
	path, ok, err := r.archives.Create(ctx, r.docs)
	if err != nil {
		return r.fail(s, "create", "", err)
	}
	if !ok {
		return nil
	}
	r.touch(ctx, path, templateID)
	r.event("archive_created", map[string]any{"ruleset": templateID})
	return s.Send(Notification{Channel: ChanLoadCharacter, Payload: LoadTarget{File: path, Ruleset: templateID}})
}

func (r *Router) focused(what string) Surface {
	s := r.host.Focused()
	if s == nil {
		r.log.Debug("no focused surface", slog.String("for", what))
	}
	return s
}

// fail forwards err to s (when present) and returns it.
func (r *Router) fail(s Surface, op, path string, err error) error {
	r.log.Error("archive operation failed", slog.String("op", op), slog.String("path", path), slog.Any("err", err))
	if s != nil {
		n := Notification{Channel: ChanArchiveError, Payload: ArchiveError{Op: op, Path: path, Reason: err.Error()}}
		if serr := s.Send(n); serr != nil {
			r.log.Warn("error notification not delivered", slog.Any("err", serr))
		}
	}
	return err
}

func (r *Router) touch(ctx context.Context, path, ruleset string) {
	if r.recent == nil {
		return
	}
	if err := r.recent.Touch(ctx, path, ruleset); err != nil {
		r.log.Warn("recent files update failed", slog.String("path", path), slog.Any("err", err))
	}
}

func (r *Router) event(name string, props map[string]any) {
	if r.events != nil {
		r.events.Event(name, props)
	}
}
