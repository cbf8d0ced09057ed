/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package router

// FrameID identifies one frame of a UI surface.
type FrameID string

// Channels exchanged with UI surfaces.
const (
	ChanWhoAmI             = "who_am_i"
	ChanLoadCharacter      = "load_character"
	ChanSaveCharacter      = "save_character"
	ChanSaveRequest        = "save_request"
	ChanRecentFilesRequest = "request_recent_files_list"
	ChanRecentFilesList    = "here_is_the_recent_files_list"
	ChanSheetList          = "request_sheet_list"
	ChanArchiveError       = "archive_error"
)

// Shortcut commands bound to the menu accelerators.
const (
	CommandOpen = "open"
	CommandSave = "save"
)

// Message is a command sent by a UI surface to the router.
type Message interface {
	Channel() string
}

// LoadCharacter asks to load the character file at Path into the focused surface.
type LoadCharacter struct {
	Path string
}

// SaveExisting stores Info and Log into the existing character file File.
type SaveExisting struct {
	File string `json:"file"`
	Info string `json:"info"`
	Log  string `json:"log"`
}

// SaveNew creates a new character file for the template TemplateID.
type SaveNew struct {
	TemplateID string
}

// SaveRequest asks frame Frame of the focused surface to save itself.
type SaveRequest struct {
	Frame FrameID
}

// RecentFilesRequest is sent by frame Frame wanting the recent files list.
type RecentFilesRequest struct {
	Frame FrameID
}

// RecentFilesList answers a RecentFilesRequest for frame Frame.
type RecentFilesList struct {
	Frame FrameID  `json:"id"`
	List  []string `json:"list"`
}

func (LoadCharacter) Channel() string      { return ChanLoadCharacter }
func (SaveExisting) Channel() string       { return ChanSaveCharacter }
func (SaveNew) Channel() string            { return ChanSaveCharacter }
func (SaveRequest) Channel() string        { return ChanSaveRequest }
func (RecentFilesRequest) Channel() string { return ChanRecentFilesRequest }
func (RecentFilesList) Channel() string    { return ChanRecentFilesList }

// Notification is what the router delivers to a surface or frame.
type Notification struct {
	Channel string
	Payload any
}

// LoadTarget is the load_character payload for a freshly created character.
type LoadTarget struct {
	File    string `json:"file"`
	Ruleset string `json:"ruleset"`
}

// ArchiveError is the archive_error payload: an archive operation failed.
type ArchiveError struct {
	Op     string `json:"op"`
	Path   string `json:"path,omitempty"`
	Reason string `json:"reason"`
}
