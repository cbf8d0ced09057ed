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
	"errors"

	"github.com/sqweek/dialog"

	"charsheet/internal/archive"
)

// nativeDialogs shows the platform's own file choosers. The calls block, so they must not
// run on the UI goroutine.
type nativeDialogs struct{}

var _ archive.Dialogs = nativeDialogs{}

func (nativeDialogs) OpenFile(ctx context.Context, opts archive.DialogOptions) (string, error) {
	return runDialog(ctx, opts, (*dialog.FileBuilder).Load)
}

func (nativeDialogs) SaveFile(ctx context.Context, opts archive.DialogOptions) (string, error) {
	return runDialog(ctx, opts, (*dialog.FileBuilder).Save)
}

func runDialog(ctx context.Context, opts archive.DialogOptions, show func(*dialog.FileBuilder) (string, error)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b := dialog.File().Title(opts.Title)
	for _, f := range opts.Filters {
		b = b.Filter(f.Name, f.Extensions...)
	}
	if opts.StartDir != "" {
		b = b.SetStartDir(opts.StartDir)
	}
	path, err := show(b)
	if errors.Is(err, dialog.ErrCancelled) {
		return "", archive.ErrCancelled
	}
	return path, err
}
