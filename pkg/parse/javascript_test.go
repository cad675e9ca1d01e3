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

func findSymbol(symbols []model.Symbol, name string) (model.Symbol, bool) {
	for _, s := range symbols {
		if s.Name == name {
			return s, true
		}
	}
	return model.Symbol{}, false
}

func TestJavaScriptParserImportsFunctionsAndCalls(t *testing.T) {
	content := []byte(`import { bar } from './bar';

function foo() {
  bar();
}

class Greeter {
  greet() {
    foo();
  }
}

export { foo };
`)

	p := NewJavaScriptParser(Options{})
	result, err := p.Parse(context.Background(), "src/foo.js", content)
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	require.Len(t, result.Imports, 1)
	assert.Equal(t, "./bar", result.Imports[0].Specifier)
	assert.Equal(t, model.ImportNamed, result.Imports[0].ImportType)
	assert.Equal(t, []string{"bar"}, result.Imports[0].ImportedNames)

	foo, ok := findSymbol(result.Symbols, "foo")
	require.True(t, ok)
	assert.Equal(t, model.SymbolFunction, foo.SymbolType)
	assert.True(t, foo.IsExported, "export { foo } must mark the foo symbol exported")

	greeter, ok := findSymbol(result.Symbols, "Greeter")
	require.True(t, ok)
	assert.Equal(t, model.SymbolClass, greeter.SymbolType)

	greet, ok := findSymbol(result.Symbols, "greet")
	require.True(t, ok)
	assert.Equal(t, model.SymbolMethod, greet.SymbolType)
	assert.Equal(t, "Greeter.greet", greet.QualifiedName)

	require.Len(t, result.Exports, 1)
	assert.Equal(t, "foo", result.Exports[0].Name)
	assert.Equal(t, "named", result.Exports[0].Kind)

	var callToBar, callToFoo bool
	for _, dep := range result.RawDependencies {
		if dep.Kind != model.DependencyCall {
			continue
		}
		switch {
		case dep.TargetName == "bar" && dep.FromSymbolName == "foo":
			callToBar = true
		case dep.TargetName == "foo" && dep.FromSymbolName == "greet":
			callToFoo = true
		}
	}
	assert.True(t, callToBar, "bar() inside foo() should be attributed to foo")
	assert.True(t, callToFoo, "foo() inside greet() should be attributed to greet")
}

func TestJavaScriptParserStoreFactoryNotRecordedAsCall(t *testing.T) {
	content := []byte(`import { useAreasStore } from './stores/areasStore';

const areasStore = useAreasStore();

function load() {
  areasStore.getAreas();
}
`)
	p := NewJavaScriptParser(Options{})
	result, err := p.Parse(context.Background(), "src/caller.js", content)
	require.NoError(t, err)

	for _, dep := range result.RawDependencies {
		assert.NotEqual(t, "useAreasStore", dep.TargetName, "useXxxStore() factory calls must not be recorded as call dependencies")
	}

	var dottedCall bool
	for _, dep := range result.RawDependencies {
		if dep.TargetName == "areasStore.getAreas" && dep.CallingObject == "areasStore" {
			dottedCall = true
		}
	}
	assert.True(t, dottedCall)
}

func TestJavaScriptParserClassExtends(t *testing.T) {
	content := []byte(`class Base {}
class Derived extends Base {}
`)
	p := NewJavaScriptParser(Options{})
	result, err := p.Parse(context.Background(), "src/classes.js", content)
	require.NoError(t, err)

	var foundExtends bool
	for _, dep := range result.RawDependencies {
		if dep.Kind == model.DependencyExtends && dep.FromSymbolName == "Derived" && dep.TargetName == "Base" {
			foundExtends = true
		}
	}
	assert.True(t, foundExtends)
}

func TestJavaScriptParserInstantiation(t *testing.T) {
	content := []byte(`class Logger {}

function run() {
  const logger = new Logger();
  return logger;
}
`)
	p := NewJavaScriptParser(Options{})
	result, err := p.Parse(context.Background(), "src/run.js", content)
	require.NoError(t, err)

	var instantiates bool
	for _, dep := range result.RawDependencies {
		if dep.Kind == model.DependencyInstantiates && dep.TargetName == "Logger" {
			instantiates = true
			assert.Equal(t, "run", dep.FromSymbolName)
		}
	}
	assert.True(t, instantiates, "new Logger() should be attributed to the enclosing function as an instantiates dependency")
}

func TestJavaScriptParserLanguage(t *testing.T) {
	assert.Equal(t, model.LanguageJavaScript, NewJavaScriptParser(Options{}).Language())
	assert.Equal(t, model.LanguageTypeScript, NewTypeScriptParser(Options{}).Language())
}

func TestTypeScriptParserInterfaceExtends(t *testing.T) {
	content := []byte(`interface Base {
  id: string;
}

interface Derived extends Base {
  name: string;
}
`)
	p := NewTypeScriptParser(Options{})
	result, err := p.Parse(context.Background(), "src/types.ts", content)
	require.NoError(t, err)

	base, ok := findSymbol(result.Symbols, "Base")
	require.True(t, ok)
	assert.Equal(t, model.SymbolInterface, base.SymbolType)

	var extendsBase bool
	for _, dep := range result.RawDependencies {
		if dep.Kind == model.DependencyExtends && dep.FromSymbolName == "Derived" && dep.TargetName == "Base" {
			extendsBase = true
		}
	}
	assert.True(t, extendsBase)
}
