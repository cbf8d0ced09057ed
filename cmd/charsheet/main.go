/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"charsheet/internal/archive"
	"charsheet/internal/catalog"
	"charsheet/internal/config"
	"charsheet/internal/crash"
	"charsheet/internal/export"
	applog "charsheet/internal/log"
	"charsheet/internal/menu"
	"charsheet/internal/telemetry"
	"charsheet/internal/templates"
	"charsheet/internal/ui"
	"charsheet/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "CharSheet, character sheet workbench")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  charsheet version|-v|--version              Show version")
	fmt.Fprintln(w, "  charsheet templates [<dir>]                 List character sheet templates")
	fmt.Fprintln(w, "  charsheet new <file>                        Create an empty character archive")
	fmt.Fprintln(w, "  charsheet save <file> <info-file> <log-file> Store character data and log in an archive")
	fmt.Fprintln(w, "  charsheet show <file>                       Print the contents of an archive")
	fmt.Fprintln(w, "  charsheet export <file> <out.pdf>           Print a character to PDF")
	fmt.Fprintln(w, "  charsheet recent [clear]                    List (or clear) recently used files")
	fmt.Fprintln(w, "  charsheet menu [<goos>]                     Print the application menu")
	fmt.Fprintln(w, "  charsheet token set <value>|clear           Store or remove the telemetry token in the OS keyring")
	fmt.Fprintln(w, "  charsheet ui                                Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes one command and returns the process exit code.
func run(args []string, out io.Writer) int {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	defer crash.Recover("")
	l := applog.WithComponent("cli")
	l.Debug("start", slog.Int("args", len(args)))

	if len(args) == 0 {
		usage(out)
		return 0
	}
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(out, version.String())
		return 0
	case "help", "-h", "--help":
		usage(out)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		l.Error("load config failed", slog.Any("err", err))
		fmt.Fprintln(out, "Error:", err)
		return 1
	}
	applog.Init(cfg.LogOptions())
	ctx := context.Background()
	events := telemetry.Default()
	events.Event("cli_command", map[string]any{"cmd": args[0]})
	defer events.Close()

	var cmdErr error
	switch args[0] {
	case "templates":
		dir := cfg.General.TemplatesDir
		if len(args) > 1 {
			dir = args[1]
		}
		cmdErr = listTemplates(out, dir)
	case "new":
		if len(args) < 2 {
			return usageError(out, "new requires <file>")
		}
		cmdErr = newCharacter(ctx, out, cfg, args[1])
	case "save":
		if len(args) < 4 {
			return usageError(out, "save requires <file> <info-file> <log-file>")
		}
		cmdErr = saveCharacter(ctx, out, cfg, args[1], args[2], args[3])
	case "show":
		if len(args) < 2 {
			return usageError(out, "show requires <file>")
		}
		cmdErr = showCharacter(ctx, out, args[1])
	case "export":
		if len(args) < 3 {
			return usageError(out, "export requires <file> <out.pdf>")
		}
		cmdErr = exportCharacter(ctx, out, cfg, args[1], args[2])
	case "recent":
		wipe := len(args) > 1 && args[1] == "clear"
		cmdErr = recentFiles(ctx, out, cfg, wipe)
	case "menu":
		goos := runtime.GOOS
		if len(args) > 1 {
			goos = args[1]
		}
		cmdErr = printMenu(out, cfg, goos)
	case "token":
		switch {
		case len(args) > 2 && args[1] == "set":
			cmdErr = config.SetTelemetryToken(args[2])
		case len(args) > 1 && args[1] == "clear":
			cmdErr = config.SetTelemetryToken("")
		default:
			return usageError(out, "token requires set <value> or clear")
		}
		if cmdErr == nil {
			fmt.Fprintln(out, "Telemetry token updated")
		}
	case "ui":
		cmdErr = ui.Run(cfg)
	default:
		usage(out)
		return 2
	}
	if cmdErr != nil {
		l.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", cmdErr))
		fmt.Fprintln(out, "Error:", cmdErr)
		return 1
	}
	return 0
}

func usageError(out io.Writer, msg string) int {
	fmt.Fprintln(out, msg)
	usage(out)
	return 2
}

func listTemplates(out io.Writer, dir string) error {
	reg, err := templates.Load(dir)
	if err != nil {
		return err
	}
	for _, s := range reg.Sheets() {
		fmt.Fprintf(out, "%-20s %s\n", s.Type, s.Name)
	}
	fmt.Fprintf(out, "%d template(s) in %s\n", reg.Len(), dir)
	return nil
}

func newCharacter(ctx context.Context, out io.Writer, cfg config.AppConfig, file string) error {
	path, err := filepath.Abs(archive.EnsureExtension(file))
	if err != nil {
		return err
	}
	defer crash.Recover(path)
	if err := archive.Create(ctx, path); err != nil {
		return err
	}
	remember(ctx, cfg, path)
	fmt.Fprintln(out, "Created", path)
	return nil
}

func saveCharacter(ctx context.Context, out io.Writer, cfg config.AppConfig, file, infoFile, logFile string) error {
	path, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	defer crash.Recover(path)
	info, err := os.ReadFile(infoFile)
	if err != nil {
		return err
	}
	logText, err := os.ReadFile(logFile)
	if err != nil {
		return err
	}
	if err := archive.Persist(ctx, path, string(info), string(logText)); err != nil {
		return err
	}
	remember(ctx, cfg, path)
	fmt.Fprintf(out, "Saved %s (%d + %d bytes)\n", path, archive.ByteLength(string(info)), archive.ByteLength(string(logText)))
	return nil
}

func showCharacter(ctx context.Context, out io.Writer, file string) error {
	entries, err := archive.Entries(ctx, file)
	if err != nil {
		return err
	}
	ch, err := archive.Load(ctx, file)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Archive:", ch.Path)
	for _, e := range entries {
		fmt.Fprintf(out, "  %-24s %8d bytes\n", e.Name, e.Size)
	}
	fmt.Fprintf(out, "\n[%s]\n%s\n", archive.DataEntryName(file), ch.Info)
	fmt.Fprintf(out, "\n[%s]\n%s\n", archive.LogEntryName, ch.Log)
	return nil
}

func exportCharacter(ctx context.Context, out io.Writer, cfg config.AppConfig, file, pdfPath string) error {
	defer crash.Recover(file)
	ch, err := archive.Load(ctx, file)
	if err != nil {
		return err
	}
	opt := export.PDFOptions{Ruleset: rulesetOf(ctx, cfg, file)}
	if err := export.CharacterPDF(ch, pdfPath, opt); err != nil {
		return err
	}
	fmt.Fprintln(out, "Exported", pdfPath)
	return nil
}

// rulesetOf looks the file up in the recent files catalog.
func rulesetOf(ctx context.Context, cfg config.AppConfig, file string) string {
	cat, err := openCatalog(ctx, cfg)
	if err != nil {
		return ""
	}
	defer cat.Close()
	abs, err := filepath.Abs(file)
	if err != nil {
		return ""
	}
	entries, err := cat.Recent(ctx, 0)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.Path == abs {
			return e.Ruleset
		}
	}
	return ""
}

func openCatalog(ctx context.Context, cfg config.AppConfig) (*catalog.Catalog, error) {
	p, err := cfg.CatalogPath()
	if err != nil {
		return nil, err
	}
	return catalog.Open(ctx, p, cfg.General.RecentLimit)
}

// remember records path in the recent files catalog. Failures only log.
func remember(ctx context.Context, cfg config.AppConfig, path string) {
	l := applog.WithComponent("cli")
	cat, err := openCatalog(ctx, cfg)
	if err != nil {
		l.Warn("recent files unavailable", slog.Any("err", err))
		return
	}
	defer cat.Close()
	if err := cat.Touch(ctx, path, ""); err != nil {
		l.Warn("recent files update failed", slog.Any("err", err))
	}
}

func recentFiles(ctx context.Context, out io.Writer, cfg config.AppConfig, wipe bool) error {
	cat, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer cat.Close()
	if wipe {
		if err := cat.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Recent files cleared.")
		return nil
	}
	entries, err := cat.Recent(ctx, cfg.General.RecentLimit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		rs := e.Ruleset
		if rs == "" {
			rs = "-"
		}
		fmt.Fprintf(out, "%s  %-10s %s\n", e.OpenedAt.Format("2006-01-02 15:04"), rs, e.Path)
	}
	return nil
}

func printMenu(out io.Writer, cfg config.AppConfig, goos string) error {
	reg, err := templates.Load(cfg.General.TemplatesDir)
	if err != nil {
		return err
	}
	bar := menu.Build(menu.Options{Sheets: reg.Sheets(), Debug: cfg.General.Debug, GOOS: goos, AppName: "CharSheet"})
	for _, m := range bar {
		fmt.Fprintln(out, m.Label)
		printItems(out, m.Items, 1)
	}
	return nil
}

func printItems(out io.Writer, items []menu.Item, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, it := range items {
		if it.Separator {
			fmt.Fprintln(out, indent+"---")
			continue
		}
		line := indent + it.Label
		if it.Accelerator != "" {
			line += "\t" + it.Accelerator
		}
		fmt.Fprintln(out, line)
		printItems(out, it.Items, depth+1)
	}
}
