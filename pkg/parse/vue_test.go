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

package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengraph-dev/compass/pkg/model"
)

func newVueParser() *VueParser {
	return NewVueParser(NewJavaScriptParser(Options{}), NewTypeScriptParser(Options{}), Options{})
}

// TestVueParserComponentSymbolAndScriptDelegation covers spec.md §8 S4's
// parsing half: a plain (non-TS) <script> block delegates to the JS parser
// and its symbols/imports come back with line numbers shifted by the
// script block's offset within the .vue file.
func TestVueParserComponentSymbolAndScriptDelegation(t *testing.T) {
	content := []byte(`<template>
  <div>{{ areas }}</div>
</template>

<script>
import { useAreasStore } from './stores/areasStore';

export default {
  setup() {
    const areasStore = useAreasStore();
    function load() {
      areasStore.getAreas();
    }
    return { load };
  },
};
</script>
`)
	p := newVueParser()
	result, err := p.Parse(context.Background(), "src/Areas.vue", content)
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	component, ok := findSymbol(result.Symbols, "Areas")
	require.True(t, ok)
	assert.Equal(t, model.SymbolComponent, component.SymbolType)
	assert.True(t, component.IsExported)
	assert.Equal(t, 1, component.StartLine)

	require.Len(t, result.Imports, 1)
	assert.Equal(t, "./stores/areasStore", result.Imports[0].Specifier)
	// The import sits on line 6 of the .vue file (the <script> tag itself is
	// line 5, the next line is the block's first line); parseWithOffset must
	// carry that line offset through to the delegate's symbols/imports.
	assert.Equal(t, 6, result.Imports[0].Line)

	var dottedCall bool
	for _, dep := range result.RawDependencies {
		if dep.TargetName == "areasStore.getAreas" && dep.CallingObject == "areasStore" {
			dottedCall = true
		}
		assert.NotEqual(t, "useAreasStore", dep.TargetName, "store factory calls must not surface as call dependencies even through Vue delegation")
	}
	assert.True(t, dottedCall)
}

// TestVueParserTypeScriptScriptBlockDelegatesToTS verifies the lang="ts"
// attribute routes the script block through the TypeScript grammar rather
// than plain JS.
func TestVueParserTypeScriptScriptBlockDelegatesToTS(t *testing.T) {
	content := []byte(`<script lang="ts">
interface Props {
  id: string;
}
export default {};
</script>
`)
	p := newVueParser()
	result, err := p.Parse(context.Background(), "src/Typed.vue", content)
	require.NoError(t, err)

	props, ok := findSymbol(result.Symbols, "Props")
	require.True(t, ok)
	assert.Equal(t, model.SymbolInterface, props.SymbolType, "interface declarations only parse under the TypeScript grammar")
}

// TestVueParserTemplateHTTPCallAndComponentTags covers the template-level
// extraction: an axios call inside the template surfaces as a call
// dependency carrying the HTTP method and URL, and a referenced
// PascalCase component tag surfaces as an instantiates dependency, with
// the component's own tag excluded and duplicates collapsed.
func TestVueParserTemplateHTTPCallAndComponentTags(t *testing.T) {
	content := []byte(`<template>
  <div>
    <button @click="axios.get('/api/areas')">Load</button>
    <Areas />
    <Widget />
    <Widget />
  </div>
</template>

<script>
export default {
  mounted() {
    axios.get('/api/areas');
  },
};
</script>
`)
	p := newVueParser()
	result, err := p.Parse(context.Background(), "src/Dashboard.vue", content)
	require.NoError(t, err)

	var httpCall *model.RawDependency
	widgetCount := 0
	areasTagSeen := false
	for i := range result.RawDependencies {
		dep := &result.RawDependencies[i]
		switch {
		case dep.Kind == model.DependencyCall && dep.TargetName == "/api/areas":
			httpCall = dep
		case dep.Kind == model.DependencyInstantiates && dep.TargetName == "Widget":
			widgetCount++
		case dep.Kind == model.DependencyInstantiates && dep.TargetName == "Areas":
			areasTagSeen = true
		}
	}
	require.NotNil(t, httpCall)
	assert.Equal(t, "Dashboard", httpCall.FromSymbolName)
	assert.Equal(t, "axios.get /api/areas", httpCall.ParameterContext)
	assert.Equal(t, 1, widgetCount, "duplicate <Widget /> tags must be deduped")
	assert.True(t, areasTagSeen)
}

func TestVueParserLanguage(t *testing.T) {
	assert.Equal(t, model.LanguageVue, newVueParser().Language())
}
