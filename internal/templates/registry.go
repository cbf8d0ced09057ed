/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package templates discovers the character sheet templates shipped with the application.
// Each template is a directory containing an info.json descriptor; the directory name is the
// template id and is exposed to sheets as the type tag *[id]*.
package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	applog "charsheet/internal/log"
)

// InfoFileName is the descriptor every template directory carries.
const InfoFileName = "info.json"

// ErrInvalidDescriptor reports an info.json that does not satisfy the descriptor schema.
var ErrInvalidDescriptor = errors.New("invalid template descriptor")

// infoSchema is the minimum an info.json must provide. Extra fields are allowed.
const infoSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string", "minLength": 1}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(infoSchema)

// Sheet describes one selectable template.
type Sheet struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Registry is the immutable list of templates found at startup.
type Registry struct {
	sheets []Sheet
	ids    map[string]int
}

// TypeTag returns the tag a sheet of template id carries: *[id]*.
func TypeTag(id string) string { return "*[" + id + "]*" }

// ParseTypeTag extracts the id from a *[id]* tag. The whole string must be wrapped and the
// id must be a non-empty single line.
func ParseTypeTag(s string) (string, bool) {
	if len(s) < 5 || !strings.HasPrefix(s, "*[") || !strings.HasSuffix(s, "]*") {
		return "", false
	}
	id := s[2 : len(s)-2]
	if strings.ContainsAny(id, "\n\r\u2028\u2029") {
		return "", false
	}
	return id, true
}

// New builds a registry from explicit sheets, e.g. for tests or embedded templates.
func New(sheets ...Sheet) *Registry {
	r := &Registry{sheets: append([]Sheet(nil), sheets...), ids: make(map[string]int, len(sheets))}
	for i, s := range r.sheets {
		if id, ok := ParseTypeTag(s.Type); ok {
			r.ids[id] = i
		}
	}
	return r
}

// Load reads every template directory under dir, in name order (as os.ReadDir yields them). Any unreadable or invalid
// descriptor fails the whole load.
func Load(dir string) (*Registry, error) {
	l := applog.WithOperation(applog.WithComponent("templates"), "load").With(slog.String("dir", dir))
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read templates dir: %w", err)
	}
	var sheets []Sheet
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		id := e.Name()
		name, err := readInfo(filepath.Join(dir, id, InfoFileName))
		if err != nil {
			l.Error("template descriptor rejected", slog.String("template", id), slog.Any("err", err))
			return nil, fmt.Errorf("template %s: %w", id, err)
		}
		sheets = append(sheets, Sheet{Name: name, Type: TypeTag(id)})
	}
	l.Info("templates loaded", slog.Int("count", len(sheets)))
	return New(sheets...), nil
}

func readInfo(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !json.Valid(b) {
		return "", fmt.Errorf("%w: %s is not valid JSON", ErrInvalidDescriptor, InfoFileName)
	}
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(b))
	if err != nil {
		return "", fmt.Errorf("validate %s: %w", InfoFileName, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return "", fmt.Errorf("%w: %s", ErrInvalidDescriptor, strings.Join(msgs, "; "))
	}
	var info struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &info); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return info.Name, nil
}

// Sheets returns a copy of the templates in discovery order.
func (r *Registry) Sheets() []Sheet {
	if r == nil {
		return []Sheet{}
	}
	return append([]Sheet(nil), r.sheets...)
}

// Len reports the number of templates.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.sheets)
}

// Lookup finds the template with the given id.
func (r *Registry) Lookup(id string) (Sheet, bool) {
	if r == nil {
		return Sheet{}, false
	}
	i, ok := r.ids[id]
	if !ok {
		return Sheet{}, false
	}
	return r.sheets[i], true
}
