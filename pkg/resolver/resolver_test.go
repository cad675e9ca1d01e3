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

package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengraph-dev/compass/pkg/model"
)

// TestResolvePHPStaticCall covers spec.md §8 S1: a static call between two
// classes under the same PSR-4-mapped namespace resolves via the
// qualified-name index.
func TestResolvePHPStaticCall(t *testing.T) {
	bar := model.Symbol{ID: 2, FileID: 20, Name: "baz", SymbolType: model.SymbolMethod, QualifiedName: `App\Services\Bar::baz`}
	foo := model.Symbol{ID: 1, FileID: 10, Name: "run", SymbolType: model.SymbolMethod, QualifiedName: `App\Services\Foo::run`, StartLine: 1, EndLine: 5}
	fooClass := model.Symbol{ID: 4, FileID: 10, Name: "Foo", SymbolType: model.SymbolClass, QualifiedName: `App\Services\Foo`}

	fooCtx := &FileContext{FileID: 10, Path: "app/Services/Foo.php", Language: model.LanguagePHP, Symbols: []model.Symbol{foo, fooClass}}
	barCtx := &FileContext{FileID: 20, Path: "app/Services/Bar.php", Language: model.LanguagePHP, Symbols: []model.Symbol{bar}}

	r := New(nil)
	r.Init([]*FileContext{fooCtx, barCtx}, nil, NewPHPAutoloader(nil), NewRegistry())

	dep := model.RawDependency{FileID: 10, FromSymbolName: "run", TargetName: "Bar::baz", Kind: model.DependencyCall, Line: 3}
	res := r.Resolve(fooCtx, dep)

	require.Equal(t, bar.ID, res.SymbolID)
	assert.Equal(t, "php_qualified", res.Strategy)
}

// TestResolvePHPFrameworkDenylist covers S2: a call on a framework-denylisted
// class short-circuits to unresolved, never falling through to a same-named
// local method.
func TestResolvePHPFrameworkDenylist(t *testing.T) {
	controller := model.Symbol{ID: 1, FileID: 10, Name: "store", SymbolType: model.SymbolMethod, QualifiedName: `App\Http\Controllers\SomeController::store`}
	fooCtx := &FileContext{FileID: 10, Path: "app/Http/Controllers/SomeController.php", Language: model.LanguagePHP, Symbols: []model.Symbol{controller}}

	r := New(nil)
	r.Init([]*FileContext{fooCtx}, nil, NewPHPAutoloader(nil), NewRegistry())

	dep := model.RawDependency{FileID: 10, TargetName: "store", Kind: model.DependencyCall, ResolvedClass: "UploadedFile", CallingObject: "$file"}
	res := r.Resolve(fooCtx, dep)

	assert.Equal(t, int64(0), res.SymbolID)
	assert.Empty(t, res.Strategy)
}

// TestResolveCSharpFieldCall covers S3: a field-type map binds a private
// field to its declared interface/class type, and the call resolves to a
// method declared in the implementing class via line-range acceptance.
func TestResolveCSharpFieldCall(t *testing.T) {
	handManagerClass := model.Symbol{ID: 1, FileID: 20, Name: "HandManager", SymbolType: model.SymbolClass, StartLine: 1, EndLine: 20}
	setPositions := model.Symbol{ID: 2, FileID: 20, Name: "SetHandPositions", SymbolType: model.SymbolMethod, StartLine: 5, EndLine: 8}
	field := model.Symbol{ID: 3, FileID: 10, Name: "_handManager", SymbolType: model.SymbolField, DeclaredType: "HandManager"}
	cardManagerClass := model.Symbol{ID: 4, FileID: 10, Name: "CardManager", SymbolType: model.SymbolClass}

	cardCtx := &FileContext{FileID: 10, Path: "CardManager.cs", Language: model.LanguageCSharp, Symbols: []model.Symbol{field, cardManagerClass}}
	handCtx := &FileContext{FileID: 20, Path: "HandManager.cs", Language: model.LanguageCSharp, Symbols: []model.Symbol{handManagerClass, setPositions}}

	r := New(nil)
	r.Init([]*FileContext{cardCtx, handCtx}, nil, nil, NewRegistry())

	dep := model.RawDependency{
		FileID: 10, TargetName: "_handManager.SetHandPositions", Kind: model.DependencyCall,
		QualifiedContext: "field_call__handManager",
	}
	res := r.Resolve(cardCtx, dep)

	require.Equal(t, setPositions.ID, res.SymbolID)
	assert.Equal(t, "csharp_field_type", res.Strategy)
}

// TestResolveCSharpFieldCallThroughInterfaceAlias covers S3 literally: the
// field is declared with the interface type (IHandManager), not the
// concrete class, and the interface itself declares the same method as an
// abstract member. The call must still resolve to HandManager's concrete
// SetHandPositions -- not IHandManager's own abstract declaration -- via
// the bases-list alias Resolver.Init builds from HandManager's "implements
// IHandManager" clause.
func TestResolveCSharpFieldCallThroughInterfaceAlias(t *testing.T) {
	ifaceMethod := model.Symbol{ID: 1, FileID: 30, Name: "SetHandPositions", SymbolType: model.SymbolMethod, StartLine: 2, EndLine: 2}
	ifaceSym := model.Symbol{ID: 2, FileID: 30, Name: "IHandManager", SymbolType: model.SymbolInterface, StartLine: 1, EndLine: 3}
	ifaceCtx := &FileContext{FileID: 30, Path: "IHandManager.cs", Language: model.LanguageCSharp, Symbols: []model.Symbol{ifaceSym, ifaceMethod}}

	handManagerClass := model.Symbol{ID: 3, FileID: 20, Name: "HandManager", SymbolType: model.SymbolClass, StartLine: 1, EndLine: 20, DeclaredType: "IHandManager"}
	setPositions := model.Symbol{ID: 4, FileID: 20, Name: "SetHandPositions", SymbolType: model.SymbolMethod, StartLine: 5, EndLine: 8}
	handCtx := &FileContext{FileID: 20, Path: "HandManager.cs", Language: model.LanguageCSharp, Symbols: []model.Symbol{handManagerClass, setPositions}}

	field := model.Symbol{ID: 5, FileID: 10, Name: "_handManager", SymbolType: model.SymbolField, DeclaredType: "IHandManager"}
	cardManagerClass := model.Symbol{ID: 6, FileID: 10, Name: "CardManager", SymbolType: model.SymbolClass}
	cardCtx := &FileContext{FileID: 10, Path: "CardManager.cs", Language: model.LanguageCSharp, Symbols: []model.Symbol{field, cardManagerClass}}

	r := New(nil)
	r.Init([]*FileContext{cardCtx, handCtx, ifaceCtx}, nil, nil, NewRegistry())

	dep := model.RawDependency{
		FileID: 10, TargetName: "_handManager.SetHandPositions", Kind: model.DependencyCall,
		QualifiedContext: "field_call__handManager",
	}
	res := r.Resolve(cardCtx, dep)

	require.Equal(t, setPositions.ID, res.SymbolID, "must bind through HandManager, not IHandManager's own abstract method")
	assert.Equal(t, "csharp_field_type", res.Strategy)
}

// TestResolveJSStoreFactory covers S4: a Pinia-style `useXxxStore` import
// resolves a later `xxxStore.method()` call into the store file's export.
func TestResolveJSStoreFactory(t *testing.T) {
	getAreas := model.Symbol{ID: 1, FileID: 20, Name: "getAreas", SymbolType: model.SymbolFunction, IsExported: true}
	storeCtx := &FileContext{
		FileID: 20, Path: "src/stores/areasStore.ts", Language: model.LanguageTypeScript,
		Symbols: []model.Symbol{getAreas},
		Exports: []model.Export{{FileID: 20, Name: "getAreas", Kind: "named"}},
	}
	callerCtx := &FileContext{
		FileID: 10, Path: "src/Areas.vue", Language: model.LanguageVue,
		Imports: []model.Import{{FileID: 10, Specifier: "./stores/areasStore.ts", ImportType: model.ImportNamed, ImportedNames: []string{"useAreasStore"}}},
	}

	r := New(nil)
	r.Init([]*FileContext{callerCtx, storeCtx}, nil, nil, NewRegistry())

	dep := model.RawDependency{FileID: 10, TargetName: "areasStore.getAreas", Kind: model.DependencyCall, CallingObject: "areasStore"}
	res := r.Resolve(callerCtx, dep)

	require.Equal(t, getAreas.ID, res.SymbolID)
	assert.Equal(t, "js_store_factory", res.Strategy)
}

// TestResolveJSDottedCrossFile covers S5: a named import used as a
// receiver resolves to the method the imported file declares.
func TestResolveJSDottedCrossFile(t *testing.T) {
	format := model.Symbol{ID: 1, FileID: 20, Name: "format", SymbolType: model.SymbolMethod, QualifiedName: "helper.format", IsExported: true}
	utilCtx := &FileContext{
		FileID: 20, Path: "src/util.ts", Language: model.LanguageTypeScript,
		Symbols: []model.Symbol{format},
		Exports: []model.Export{{FileID: 20, Name: "helper", Kind: "named"}},
	}
	callerCtx := &FileContext{
		FileID: 10, Path: "src/caller.ts", Language: model.LanguageTypeScript,
		Imports: []model.Import{{FileID: 10, Specifier: "./util", ImportType: model.ImportNamed, ImportedNames: []string{"helper"}}},
	}

	r := New(nil)
	r.Init([]*FileContext{callerCtx, utilCtx}, nil, nil, NewRegistry())

	dep := model.RawDependency{FileID: 10, TargetName: "helper.format", Kind: model.DependencyCall, CallingObject: "helper"}
	res := r.Resolve(callerCtx, dep)

	require.Equal(t, format.ID, res.SymbolID)
	assert.Equal(t, "js_direct_import", res.Strategy)
}

// TestResolveJSAmbiguousExportPicksLowestID exercises the deterministic
// tie-break spec.md §4.5.3 implies but does not name explicitly: when an
// import can't be path-resolved and more than one file exports the same
// name, import_mediated picks the lowest symbol id rather than resolving
// non-deterministically.
func TestResolveJSAmbiguousExportPicksLowestID(t *testing.T) {
	helperA := model.Symbol{ID: 5, FileID: 20, Name: "helper", SymbolType: model.SymbolFunction, IsExported: true}
	helperB := model.Symbol{ID: 3, FileID: 30, Name: "helper", SymbolType: model.SymbolFunction, IsExported: true}
	fileA := &FileContext{FileID: 20, Path: "src/a.ts", Language: model.LanguageTypeScript, Symbols: []model.Symbol{helperA}}
	fileB := &FileContext{FileID: 30, Path: "src/b.ts", Language: model.LanguageTypeScript, Symbols: []model.Symbol{helperB}}
	callerCtx := &FileContext{
		FileID: 10, Path: "src/caller.ts", Language: model.LanguageTypeScript,
		Imports: []model.Import{{FileID: 10, Specifier: "virtual:unresolvable", ImportType: model.ImportNamed, ImportedNames: []string{"helper"}}},
	}

	r := New(nil)
	r.Init([]*FileContext{callerCtx, fileA, fileB}, nil, nil, NewRegistry())

	dep := model.RawDependency{FileID: 10, TargetName: "helper", Kind: model.DependencyCall}
	res := r.Resolve(callerCtx, dep)

	require.Equal(t, helperB.ID, res.SymbolID)
	assert.Equal(t, "import_mediated", res.Strategy, "unresolvable import path falls back to the exported-name index, picking the lowest symbol id for a deterministic tie-break")
}

// TestResolveFrameworkRegistry covers step 5: an axios call with no local
// match resolves to the synthetic framework-registry symbol id via the
// import specifier used as the framework hint.
func TestResolveFrameworkRegistry(t *testing.T) {
	callerCtx := &FileContext{
		FileID: 10, Path: "src/api.ts", Language: model.LanguageTypeScript,
		Imports: []model.Import{{FileID: 10, Specifier: "axios", ImportType: model.ImportDefault, ImportedNames: []string{"axios"}}},
	}
	r := New(nil)
	r.Init([]*FileContext{callerCtx}, nil, nil, NewRegistry())

	dep := model.RawDependency{FileID: 10, TargetName: "axios.get", Kind: model.DependencyCall, CallingObject: "axios"}
	res := r.Resolve(callerCtx, dep)

	require.NotZero(t, res.SymbolID)
	assert.Equal(t, "framework_registry", res.Strategy)
}

// TestResolveUnresolvedWhenNoStrategyMatches covers step 6: a call to a
// name nothing in this pass declares, imports, or registers stays
// unresolved with a zero symbol id and empty strategy.
func TestResolveUnresolvedWhenNoStrategyMatches(t *testing.T) {
	callerCtx := &FileContext{FileID: 10, Path: "src/lonely.ts", Language: model.LanguageTypeScript}
	r := New(nil)
	r.Init([]*FileContext{callerCtx}, nil, nil, NewRegistry())

	dep := model.RawDependency{FileID: 10, TargetName: "nothingDeclaresThis", Kind: model.DependencyCall}
	res := r.Resolve(callerCtx, dep)

	assert.Equal(t, int64(0), res.SymbolID)
	assert.Empty(t, res.Strategy)
}

func TestResolveFromSymbolIDFallsBackToLineRange(t *testing.T) {
	outer := model.Symbol{ID: 1, Name: "run", StartLine: 1, EndLine: 10}
	inner := model.Symbol{ID: 2, Name: "run", StartLine: 3, EndLine: 5}
	fc := &FileContext{Symbols: []model.Symbol{outer, inner}}

	dep := model.RawDependency{FromSymbolName: "run", Line: 4}
	id := (&Resolver{}).ResolveFromSymbolID(fc, dep)

	assert.Equal(t, inner.ID, id, "innermost (highest StartLine) enclosing symbol wins")
}

func TestPHPAutoloaderResolve(t *testing.T) {
	a := NewPHPAutoloader(map[string]string{`App\`: "app"})

	path, ok := a.Resolve(`App\Services\Foo`)
	require.True(t, ok)
	assert.Equal(t, "app/Services/Foo.php", path)

	_, ok = a.Resolve(`Vendor\Other\Thing`)
	assert.False(t, ok)
}
