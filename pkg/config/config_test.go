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

package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	fs := afero.NewMemMapFs()

	cfg, err := Load(fs, "/repo")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	yaml := `
include_test_files: true
max_file_size: 1048576
max_files: 100
encoding_fallback: iso-8859-1
cross_stack_enabled: false
`
	require.NoError(t, afero.WriteFile(fs, "/repo/.compass/project.yaml", []byte(yaml), 0o644))

	cfg, err := Load(fs, "/repo")
	require.NoError(t, err)
	assert.True(t, cfg.IncludeTestFiles)
	assert.Equal(t, int64(1048576), cfg.MaxFileSize)
	assert.Equal(t, 100, cfg.MaxFiles)
	assert.Equal(t, "iso-8859-1", cfg.EncodingFallback)
	require.NotNil(t, cfg.CrossStackEnabled)
	assert.False(t, *cfg.CrossStackEnabled)
	// Fields left out of the override keep their Default() values, since
	// YAML unmarshals over the Default() struct.
	assert.Equal(t, defaultFileExtensions, cfg.FileExtensions)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/.compass/project.yaml", []byte("max_file_size: -1\n"), 0o644))

	_, err := Load(fs, "/repo")
	assert.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/.compass/project.yaml", []byte("not: [valid"), 0o644))

	_, err := Load(fs, "/repo")
	assert.Error(t, err)
}
