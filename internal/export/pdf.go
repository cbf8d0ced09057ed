/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders characters into printable documents.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"charsheet/internal/archive"
	applog "charsheet/internal/log"
)

// PDFOptions controls PDF export behavior. Units are millimetres.
type PDFOptions struct {
	// PageSize is a gofpdf size name such as "A4" or "Letter". Empty means A4.
	PageSize string
	// Ruleset is printed under the title when set.
	Ruleset string
	// OmitLog leaves the session log out.
	OmitLog bool
}

// Field is one printed line of a character's data.
type Field struct {
	Key   string
	Value string
}

// Fields flattens the character data for printing. A JSON object becomes one field per
// leaf, keyed by its dotted path, in key order. Anything else is a single field with an
// empty key holding the raw text.
func Fields(info string) []Field {
	var obj map[string]any
	if err := json.Unmarshal([]byte(info), &obj); err != nil {
		if strings.TrimSpace(info) == "" {
			return nil
		}
		return []Field{{Value: info}}
	}
	var out []Field
	flatten("", obj, &out)
	return out
}

func flatten(prefix string, v any, out *[]Field) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, t[k], out)
		}
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, scalar(e))
		}
		*out = append(*out, Field{Key: prefix, Value: strings.Join(parts, ", ")})
	default:
		*out = append(*out, Field{Key: prefix, Value: scalar(t)})
	}
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// CharacterPDF writes ch as a PDF to outPath, creating the directory if needed.
func CharacterPDF(ch archive.Character, outPath string, opt PDFOptions) error {
	l := applog.WithOperation(applog.WithComponent("export"), "pdf")
	size := opt.PageSize
	if size == "" {
		size = "A4"
	}
	pdf := gofpdf.New("P", "mm", size, "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	title := archive.BaseName(ch.Path)
	if title == "" {
		title = "Character"
	}
	pdf.SetTitle(title, true)
	pdf.SetAuthor("CharSheet", false)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	if opt.Ruleset != "" {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(0, 6, tr(opt.Ruleset), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	fields := Fields(ch.Info)
	pdf.SetFont("Helvetica", "", 11)
	for _, f := range fields {
		if f.Key == "" {
			pdf.MultiCell(0, 5.5, tr(f.Value), "", "L", false)
			continue
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(55, 5.5, tr(f.Key), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5.5, tr(f.Value), "", "L", false)
	}

	if !opt.OmitLog && strings.TrimSpace(ch.Log) != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, "Log", "B", 1, "L", false, 0, "")
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(ch.Log), "", "L", false)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	l.Info("exported", slog.String("path", outPath), slog.Int("fields", len(fields)))
	return nil
}
