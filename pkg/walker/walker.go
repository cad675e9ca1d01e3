// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package walker discovers the source files of a repository that the
// parsing pipeline should process, applying .compassignore rules, a
// built-in directory block list, test-file filtering and size limits.
package walker

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/opengraph-dev/compass/pkg/model"
)

// defaultBlockedDirs are always skipped, except node_modules and vendor
// when IncludeVendoredDependencies is set, matching directories no parser
// should ever need to descend into.
var defaultBlockedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
	"vendor":       true,
}

var testPathMarkers = []string{"/tests/", "/test/", "/__tests__/"}

// extensionLanguage maps file extensions to the language a parser will
// recognize. Extensions absent from this table are skipped before ever
// reaching a parser.
var extensionLanguage = map[string]model.Language{
	".js":    model.LanguageJavaScript,
	".jsx":   model.LanguageJavaScript,
	".mjs":   model.LanguageJavaScript,
	".cjs":   model.LanguageJavaScript,
	".ts":    model.LanguageTypeScript,
	".tsx":   model.LanguageTypeScript,
	".vue":   model.LanguageVue,
	".php":   model.LanguagePHP,
	".cs":    model.LanguageCSharp,
	".tscn":  model.LanguageGodot,
	".godot": model.LanguageGodot,
	".tres":  model.LanguageGodot,
}

// FileInfo describes one file selected for parsing.
type FileInfo struct {
	Path     string // relative to the repository root, slash-separated
	FullPath string // absolute path in Fs
	Size     int64
	Language model.Language
}

// Config controls what the walker includes.
type Config struct {
	// RootPath is the repository root to walk.
	RootPath string

	// ExcludeGlobs are additional gitignore-style patterns beyond
	// .compassignore, applied with the same last-match-wins semantics.
	ExcludeGlobs []string

	// IncludeVendoredDependencies disables the built-in node_modules/
	// vendor block list.
	IncludeVendoredDependencies bool

	// IncludeTestFiles disables filtering of *.test.*, *.spec.* and
	// test-directory paths.
	IncludeTestFiles bool

	// MaxFileSize skips files larger than this many bytes. Zero means
	// no limit.
	MaxFileSize int64

	// MaxFiles truncates the sorted result to at most this many files.
	// Zero means no limit.
	MaxFiles int
}

// Result is the outcome of a Walk.
type Result struct {
	RootPath    string
	Files       []FileInfo
	Languages   map[model.Language]int
	SkipReasons map[string]int
}

// Walker discovers files in a filesystem abstraction, enabling unit tests
// against afero.NewMemMapFs() without touching the real disk.
type Walker struct {
	fs     afero.Fs
	logger *slog.Logger
}

// New returns a Walker over fs, logging skip/truncation warnings to logger.
func New(fs afero.Fs, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{fs: fs, logger: logger}
}

// Walk discovers files under config.RootPath per the rules in Config.
func (w *Walker) Walk(config Config) (*Result, error) {
	ignore, err := loadIgnoreFile(w.fs, filepath.Join(config.RootPath, ".compassignore"))
	if err != nil {
		return nil, err
	}

	skipReasons := make(map[string]int)
	var files []FileInfo

	err = afero.Walk(w.fs, config.RootPath, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("walker.walk.error", "path", path, "err", walkErr)
			return nil
		}

		relPath, relErr := filepath.Rel(config.RootPath, path)
		if relErr != nil {
			return nil
		}
		if relPath == "." {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			name := filepath.Base(relPath)
			vendored := name == "node_modules" || name == "vendor"
			if defaultBlockedDirs[name] && !(config.IncludeVendoredDependencies && vendored) {
				skipReasons["excluded_dir"]++
				return filepath.SkipDir
			}
			if strings.HasPrefix(name, ".") {
				skipReasons["excluded_dir"]++
				return filepath.SkipDir
			}
			if matchesIgnore(ignore, relPath+"/", config.ExcludeGlobs) {
				skipReasons["excluded_dir"]++
				return filepath.SkipDir
			}
			return nil
		}

		if matchesIgnore(ignore, relPath, config.ExcludeGlobs) {
			skipReasons["excluded"]++
			return nil
		}

		if !config.IncludeTestFiles && isTestPath(relPath) {
			skipReasons["test_file"]++
			return nil
		}

		lang, ok := extensionLanguage[strings.ToLower(filepath.Ext(relPath))]
		if !ok {
			skipReasons["unsupported_language"]++
			return nil
		}

		if config.MaxFileSize > 0 && info.Size() > config.MaxFileSize {
			skipReasons["too_large"]++
			w.logger.Warn("walker.walk.skip_large_file", "path", relPath, "size", info.Size(), "limit", config.MaxFileSize)
			return nil
		}

		files = append(files, FileInfo{
			Path:     relPath,
			FullPath: path,
			Size:     info.Size(),
			Language: lang,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	if config.MaxFiles > 0 && len(files) > config.MaxFiles {
		w.logger.Warn("walker.walk.truncated", "total", len(files), "max_files", config.MaxFiles)
		files = files[:config.MaxFiles]
	}

	languages := make(map[model.Language]int)
	for _, f := range files {
		languages[f.Language]++
	}

	return &Result{
		RootPath:    config.RootPath,
		Files:       files,
		Languages:   languages,
		SkipReasons: skipReasons,
	}, nil
}

// IsTestPath reports whether relPath matches the test-file conventions the
// walker uses internally to decide skip_test_file, exported so the
// ingestion pipeline can flag File.IsTest for files it does not skip
// (IncludeTestFiles enabled, but the row should still say what it is).
func IsTestPath(relPath string) bool {
	return isTestPath(relPath)
}

func isTestPath(relPath string) bool {
	base := filepath.Base(relPath)
	if strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") {
		return true
	}
	full := "/" + relPath
	for _, marker := range testPathMarkers {
		if strings.Contains(full, marker) {
			return true
		}
	}
	return false
}
