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

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRelativeImportDirect(t *testing.T) {
	known := map[string]bool{"src/components/Button.vue": true}
	exists := func(p string) bool { return known[p] }

	resolved, ok := ResolveRelativeImport("src/components/App.vue", "./Button.vue", exists, nil, nil)
	assert.True(t, ok)
	assert.Equal(t, "src/components/Button.vue", resolved)
}

func TestResolveRelativeImportExtensionProbing(t *testing.T) {
	known := map[string]bool{"src/stores/areas.ts": true}
	exists := func(p string) bool { return known[p] }

	resolved, ok := ResolveRelativeImport("src/views/Home.vue", "../stores/areas", exists, nil, nil)
	assert.True(t, ok)
	assert.Equal(t, "src/stores/areas.ts", resolved)
}

func TestResolveRelativeImportIndexProbing(t *testing.T) {
	known := map[string]bool{"src/utils/index.ts": true}
	exists := func(p string) bool { return known[p] }

	resolved, ok := ResolveRelativeImport("src/App.vue", "./utils", exists, nil, nil)
	assert.True(t, ok)
	assert.Equal(t, "src/utils/index.ts", resolved)
}

func TestResolveRelativeImportAlias(t *testing.T) {
	known := map[string]bool{"src/stores/areas.ts": true}
	exists := func(p string) bool { return known[p] }
	aliases := map[string]string{"@": "src"}

	resolved, ok := ResolveRelativeImport("src/views/Home.vue", "@/stores/areas", exists, nil, aliases)
	assert.True(t, ok)
	assert.Equal(t, "src/stores/areas.ts", resolved)
}

func TestResolveRelativeImportUnresolvedExternal(t *testing.T) {
	exists := func(p string) bool { return false }
	_, ok := ResolveRelativeImport("src/App.vue", "vue", exists, nil, nil)
	assert.False(t, ok)
}
