/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"charsheet/internal/templates"
)

// ErrUnknownChannel reports a channel the router does not handle.
var ErrUnknownChannel = errors.New("unknown channel")

// Decode turns a wire message into a Message. sender is the frame the message came from.
// A save_character string that is not a *[id]* tag yields (nil, nil): it is ignored.
func Decode(channel string, sender FrameID, raw json.RawMessage) (Message, error) {
	switch channel {
	case ChanLoadCharacter:
		var path string
		if len(bytes.TrimSpace(raw)) == 0 {
			return LoadCharacter{}, nil
		}
		if err := json.Unmarshal(raw, &path); err != nil {
			return nil, fmt.Errorf("%s: %w", channel, err)
		}
		return LoadCharacter{Path: path}, nil
	case ChanSaveCharacter:
		return decodeSave(raw)
	case ChanSaveRequest:
		id, err := decodeFrameID(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", channel, err)
		}
		return SaveRequest{Frame: id}, nil
	case ChanRecentFilesRequest:
		return RecentFilesRequest{Frame: sender}, nil
	case ChanRecentFilesList:
		var msg struct {
			ID   json.RawMessage `json:"id"`
			List []string        `json:"list"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("%s: %w", channel, err)
		}
		id, err := decodeFrameID(msg.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", channel, err)
		}
		return RecentFilesList{Frame: id, List: msg.List}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
}

// decodeSave distinguishes the two save_character shapes: an object saves an existing
// character, a *[id]* string asks for a new one.
func decodeSave(raw json.RawMessage) (Message, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var msg SaveExisting
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return nil, fmt.Errorf("%s: %w", ChanSaveCharacter, err)
		}
		return msg, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", ChanSaveCharacter, err)
	}
	id, ok := templates.ParseTypeTag(s)
	if !ok {
		return nil, nil
	}
	return SaveNew{TemplateID: id}, nil
}

// decodeFrameID accepts a JSON string or number.
func decodeFrameID(raw json.RawMessage) (FrameID, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return FrameID(s), nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("frame id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return "", fmt.Errorf("frame id %s is not an integer", n)
	}
	return FrameID(n.String()), nil
}
