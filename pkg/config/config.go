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

// Package config loads and validates the per-repository analysis settings
// spec.md §6 enumerates, generalizing the teacher's ad hoc Config/
// IngestionConfig pair (cmd/cie/index.go, pkg/ingestion/doc.go) into one
// YAML-backed, struct-tag-validated type.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks for project configuration, relative to a
// repository root, mirroring the teacher's ".cie/project.yaml" convention.
const DefaultPath = ".compass/project.yaml"

// defaultFileExtensions is the whitelist spec.md §6 names.
var defaultFileExtensions = []string{
	".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".vue", ".php", ".cs", ".tscn", ".godot",
}

// Config holds every analysis setting spec.md §6 enumerates. Fields are
// validated with struct tags (go-playground/validator) instead of the
// teacher's hand-written checks, and loaded from YAML instead of flags.
type Config struct {
	// IncludeTestFiles, when false, skips paths matching *.test.*,
	// *.spec.*, /tests/, /test/, __tests__/.
	IncludeTestFiles bool `yaml:"include_test_files"`

	// IncludeVendoredDependencies, when false, prunes node_modules/ and
	// vendor/ during the walk.
	IncludeVendoredDependencies bool `yaml:"include_vendored_dependencies"`

	// FileExtensions is the parse whitelist.
	FileExtensions []string `yaml:"file_extensions" validate:"min=1,dive,required"`

	// MaxFileSize is the byte ceiling past which a file is skipped as a
	// walk error rather than parsed.
	MaxFileSize int64 `yaml:"max_file_size" validate:"gt=0"`

	// ChunkingThreshold is the byte size past which a file is split into
	// overlapping chunks before parsing.
	ChunkingThreshold int64 `yaml:"chunking_threshold" validate:"gt=0"`

	// WarnThreshold is the byte size past which a file is still parsed
	// whole but logged as unusually large.
	WarnThreshold int64 `yaml:"warn_threshold" validate:"gt=0"`

	// ChunkOverlapLines is the number of lines shared between adjacent
	// chunks of an oversized file, so a symbol split across a chunk
	// boundary is still captured whole at least once.
	ChunkOverlapLines int `yaml:"chunk_overlap_lines" validate:"gte=0"`

	// MaxFiles caps the number of files a single analysis pass will walk,
	// as a safety valve against runaway repositories.
	MaxFiles int `yaml:"max_files" validate:"gt=0"`

	// EncodingFallback is the encoding tried when a file fails strict
	// UTF-8 decoding (e.g. "windows-1252", "iso-8859-1").
	EncodingFallback string `yaml:"encoding_fallback" validate:"required"`

	// ParallelParsing enables the worker-pool parse stage described in
	// SPEC_FULL.md §5; when false, files are parsed one at a time.
	ParallelParsing bool `yaml:"parallel_parsing"`

	// MaxConcurrency bounds the parse worker pool when ParallelParsing is
	// enabled.
	MaxConcurrency int `yaml:"max_concurrency" validate:"gt=0"`

	// ForceFullAnalysis disables the Incremental Controller's file-hash
	// skip, re-parsing every file regardless of whether it changed.
	ForceFullAnalysis bool `yaml:"force_full_analysis"`

	// CrossStackEnabled is a tri-state: nil means "auto-detect from
	// framework manifests", non-nil pins the behavior explicitly.
	CrossStackEnabled *bool `yaml:"cross_stack_enabled"`
}

// Default returns the configuration applied when no project.yaml exists,
// matching the thresholds the teacher's cmd/cie/index.go hard-codes for its
// own ingestion config.
func Default() Config {
	return Config{
		IncludeTestFiles:            false,
		IncludeVendoredDependencies: false,
		FileExtensions:              append([]string(nil), defaultFileExtensions...),
		MaxFileSize:                 5 << 20,  // 5 MiB
		ChunkingThreshold:           1 << 20,  // 1 MiB
		WarnThreshold:               512 << 10, // 512 KiB
		ChunkOverlapLines:           20,
		MaxFiles:                    50000,
		EncodingFallback:            "windows-1252",
		ParallelParsing:             true,
		MaxConcurrency:              10,
		ForceFullAnalysis:           false,
		CrossStackEnabled:           nil,
	}
}

// Save writes cfg as root/.compass/project.yaml, creating the .compass
// directory if needed, mirroring the teacher's cmd/cie/init.go SaveConfig.
func Save(fs afero.Fs, root string, cfg Config) error {
	dir := filepath.Join(root, filepath.Dir(DefaultPath))
	if err := fs.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := afero.WriteFile(fs, filepath.Join(root, DefaultPath), data, 0o640); err != nil {
		return fmt.Errorf("write %s: %w", DefaultPath, err)
	}
	return nil
}

var validate = validator.New()

// Load reads and validates project.yaml from root/.compass/project.yaml. A
// missing file is not an error: Default() is returned instead, matching
// pkg/framework's "absence is not fatal" convention for optional manifests.
// A present-but-malformed or failing-validation file is an error, since the
// user clearly intended to configure something.
func Load(fs afero.Fs, root string) (Config, error) {
	cfg := Default()

	data, err := afero.ReadFile(fs, filepath.Join(root, DefaultPath))
	if err != nil {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", DefaultPath, err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("validate %s: %w", DefaultPath, err)
	}
	return cfg, nil
}
