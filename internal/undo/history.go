/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo keeps, per open character, the versions it was saved as, so a save can be
// taken back. It is safe for concurrent use.
package undo

import (
	"sync"
	"time"
)

// Version is one saved state of a character.
type Version struct {
	Info string
	Log  string
	TS   time.Time
}

func (v Version) size() int { return len(v.Info) + len(v.Log) }

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap over all keys; the oldest versions are pruned first.
	MaxBytes int
	// MaxPerKey limits the versions kept per key (0 means unlimited).
	MaxPerKey int
	// MinInterval coalesces versions recorded within the interval for the same key.
	MinInterval time.Duration
}

// History holds a back and a forward stack per key.
type History struct {
	cfg   Config
	mu    sync.Mutex
	back  map[string][]Version
	fwd   map[string][]Version
	total int
}

// New returns a History. Zero config fields get defaults of 8 MiB and 250ms.
func New(cfg Config) *History {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 8 * 1024 * 1024
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &History{cfg: cfg, back: make(map[string][]Version), fwd: make(map[string][]Version)}
}

// Record stores v, the state being replaced by a save, and clears the forward stack.
func (h *History) Record(key string, v Version) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropForward(key)
	stack := h.back[key]
	if n := len(stack); n > 0 && v.TS.Sub(stack[n-1].TS) < h.cfg.MinInterval {
		// Keep the older state: it is the one the user would want back.
		return
	}
	h.back[key] = append(stack, v)
	h.total += v.size()
	h.enforceLocked(key)
}

// Back returns the previous version and remembers current for Forward.
func (h *History) Back(key string, current Version) (Version, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stack := h.back[key]
	if len(stack) == 0 {
		return Version{}, false
	}
	v := stack[len(stack)-1]
	h.back[key] = stack[:len(stack)-1]
	h.fwd[key] = append(h.fwd[key], current)
	h.total += current.size() - v.size()
	h.enforceLocked(key)
	return v, true
}

// Forward undoes a Back.
func (h *History) Forward(key string, current Version) (Version, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stack := h.fwd[key]
	if len(stack) == 0 {
		return Version{}, false
	}
	v := stack[len(stack)-1]
	h.fwd[key] = stack[:len(stack)-1]
	h.back[key] = append(h.back[key], current)
	h.total += current.size() - v.size()
	h.enforceLocked(key)
	return v, true
}

// Forget drops everything kept for key.
func (h *History) Forget(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, v := range h.back[key] {
		h.total -= v.size()
	}
	h.dropForward(key)
	delete(h.back, key)
	delete(h.fwd, key)
}

// Stats returns current sizes for diagnostics.
func (h *History) Stats() (totalBytes, keys, versions int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, v := range h.back {
		versions += len(v)
	}
	for _, v := range h.fwd {
		versions += len(v)
	}
	return h.total, len(h.back), versions
}

func (h *History) dropForward(key string) {
	for _, v := range h.fwd[key] {
		h.total -= v.size()
	}
	h.fwd[key] = nil
}

func (h *History) enforceLocked(key string) {
	if h.cfg.MaxPerKey > 0 {
		if stack := h.back[key]; len(stack) > h.cfg.MaxPerKey {
			drop := len(stack) - h.cfg.MaxPerKey
			for _, v := range stack[:drop] {
				h.total -= v.size()
			}
			h.back[key] = append([]Version(nil), stack[drop:]...)
		}
	}
	for h.total > h.cfg.MaxBytes {
		oldestKey := ""
		var oldest time.Time
		for k, stack := range h.back {
			if len(stack) > 0 && (oldestKey == "" || stack[0].TS.Before(oldest)) {
				oldestKey, oldest = k, stack[0].TS
			}
		}
		if oldestKey == "" {
			return
		}
		stack := h.back[oldestKey]
		h.total -= stack[0].size()
		h.back[oldestKey] = stack[1:]
		if len(h.back[oldestKey]) == 0 {
			delete(h.back, oldestKey)
		}
	}
}
