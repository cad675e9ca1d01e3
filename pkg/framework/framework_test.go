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

package framework

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectVueOnly(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/package.json", []byte(`{"dependencies":{"vue":"^3.4.0","pinia":"^2.1.0"}}`), 0o644))

	set, err := Detect(fs, "/repo")
	require.NoError(t, err)
	assert.True(t, set.Has("vue"))
	assert.False(t, set.Has("laravel"))
	assert.False(t, set.CrossStackEligible)
}

func TestDetectCrossStackEligibleWithoutExternalAPI(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/package.json", []byte(`{"dependencies":{"vue":"^3.4.0"}}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/composer.json", []byte(`{"require":{"laravel/framework":"^11.0"}}`), 0o644))

	set, err := Detect(fs, "/repo")
	require.NoError(t, err)
	assert.True(t, set.Has("vue"))
	assert.True(t, set.Has("laravel"))
	assert.True(t, set.CrossStackEligible)
}

func TestDetectCrossStackDisqualifiedByExternalAPIBaseURL(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/package.json", []byte(`{"dependencies":{"nuxt":"^3.0.0"}}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/composer.json", []byte(`{"require":{"laravel/framework":"^11.0"}}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/.env", []byte("VITE_API_BASE_URL=https://api.example.com\n"), 0o644))

	set, err := Detect(fs, "/repo")
	require.NoError(t, err)
	assert.True(t, set.CrossStackEligible == false)
}

func TestDetectGodot(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/project.godot", []byte("[application]\n"), 0o644))

	set, err := Detect(fs, "/repo")
	require.NoError(t, err)
	assert.True(t, set.Has("godot"))
}

func TestDetectNoManifests(t *testing.T) {
	fs := afero.NewMemMapFs()
	set, err := Detect(fs, "/repo")
	require.NoError(t, err)
	assert.Empty(t, set.Tags)
}
