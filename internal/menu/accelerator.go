/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package menu

import (
	"errors"
	"fmt"
	"strings"
)

// Modifier is a bit set of accelerator modifier keys.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModControl
	ModAlt
	ModSuper
)

// ErrBadAccelerator is returned for accelerator strings that cannot be parsed.
var ErrBadAccelerator = errors.New("bad accelerator")

// Accelerator is a parsed key combination.
type Accelerator struct {
	Mods Modifier
	Key  string // upper case letter, digit or named key such as "F5"
}

// ParseAccelerator parses strings like "CmdOrCtrl+S" or "Alt+R". CmdOrCtrl is the
// Super key on darwin and Control elsewhere.
func ParseAccelerator(s, goos string) (Accelerator, error) {
	var acc Accelerator
	parts := strings.Split(s, "+")
	if len(parts) < 2 {
		return acc, fmt.Errorf("%w: %q", ErrBadAccelerator, s)
	}
	for _, p := range parts[:len(parts)-1] {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "cmdorctrl", "commandorcontrol":
			if goos == "darwin" {
				acc.Mods |= ModSuper
			} else {
				acc.Mods |= ModControl
			}
		case "cmd", "command", "super":
			acc.Mods |= ModSuper
		case "ctrl", "control":
			acc.Mods |= ModControl
		case "alt", "option":
			acc.Mods |= ModAlt
		case "shift":
			acc.Mods |= ModShift
		default:
			return acc, fmt.Errorf("%w: modifier %q in %q", ErrBadAccelerator, p, s)
		}
	}
	acc.Key = strings.ToUpper(strings.TrimSpace(parts[len(parts)-1]))
	if acc.Key == "" {
		return acc, fmt.Errorf("%w: no key in %q", ErrBadAccelerator, s)
	}
	return acc, nil
}
