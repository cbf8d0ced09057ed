/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"charsheet/internal/archive"
)

func TestFields(t *testing.T) {
	cases := []struct {
		name string
		info string
		want []Field
	}{
		{"empty", "  ", nil},
		{"plain text", "just notes", []Field{{Value: "just notes"}}},
		{"nested object", `{"name":"Aria","skills":{"will":3,"lore":2},"aspects":["Bold","Curious"],"npc":false}`, []Field{
			{"aspects", "Bold, Curious"},
			{"name", "Aria"},
			{"npc", "false"},
			{"skills.lore", "2"},
			{"skills.will", "3"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Fields(tc.info); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Fields(%q) = %#v, want %#v", tc.info, got, tc.want)
			}
		})
	}
}

func TestCharacterPDF_CreatesFile(t *testing.T) {
	root := t.TempDir()
	ch := archive.Character{
		Path: filepath.Join(root, "Aria.cha"),
		Info: `{"name":"Aria","fate":3}`,
		Log:  "Séance one: gained a fate point.",
	}
	out := filepath.Join(root, "exports", "aria.pdf")
	if err := CharacterPDF(ch, out, PDFOptions{Ruleset: "fate"}); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}
}
