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

// TestPHPParserStaticCall covers spec.md §8 S1's parsing half: a `use`
// import, a class/method pair, and a static-call raw dependency carrying
// enough information (ResolvedClass) for the resolver's php_qualified
// strategy.
func TestPHPParserStaticCall(t *testing.T) {
	content := []byte(`<?php
namespace App\Services;

use App\Services\Bar;

class Foo {
    public function run() {
        Bar::baz();
    }
}
`)
	p := NewPHPParser(Options{})
	result, err := p.Parse(context.Background(), "app/Services/Foo.php", content)
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	require.Len(t, result.Imports, 1)
	assert.Equal(t, `App\Services\Bar`, result.Imports[0].Specifier)
	assert.Equal(t, model.ImportUse, result.Imports[0].ImportType)

	foo, ok := findSymbol(result.Symbols, "Foo")
	require.True(t, ok)
	assert.Equal(t, model.SymbolClass, foo.SymbolType)
	assert.Equal(t, `App\Services\Foo`, foo.QualifiedName)
	assert.True(t, foo.IsExported)

	run, ok := findSymbol(result.Symbols, "run")
	require.True(t, ok)
	assert.Equal(t, model.SymbolMethod, run.SymbolType)
	assert.Equal(t, `App\Services\Foo::run`, run.QualifiedName)
	assert.Equal(t, "public", run.Visibility)

	var staticCall *model.RawDependency
	for i := range result.RawDependencies {
		if result.RawDependencies[i].Kind == model.DependencyCall {
			staticCall = &result.RawDependencies[i]
		}
	}
	require.NotNil(t, staticCall)
	assert.Equal(t, "Bar::baz", staticCall.TargetName)
	assert.Equal(t, "Bar", staticCall.ResolvedClass)
	assert.Equal(t, `App\Services\Foo::run`, staticCall.FromSymbolName)
}

func TestPHPParserInstantiationAndMemberCall(t *testing.T) {
	content := []byte(`<?php
class Service {
    public function run() {
        $logger = new Logger();
        $logger->log("hi");
    }
}
`)
	p := NewPHPParser(Options{})
	result, err := p.Parse(context.Background(), "Service.php", content)
	require.NoError(t, err)

	var instantiates, memberCall bool
	for _, dep := range result.RawDependencies {
		switch {
		case dep.Kind == model.DependencyInstantiates && dep.TargetName == "Logger":
			instantiates = true
		case dep.Kind == model.DependencyCall && dep.CallingObject == "$logger":
			memberCall = true
			assert.Equal(t, "Logger", dep.ResolvedClass, "the assignment $logger = new Logger() should be tracked for member-call resolution")
			assert.Equal(t, `$logger->log`, dep.TargetName)
		}
	}
	assert.True(t, instantiates)
	assert.True(t, memberCall)
}

func TestPHPParserInterfaceAndExtends(t *testing.T) {
	content := []byte(`<?php
interface Shape {
    public function area();
}

class Circle extends BaseShape implements Shape {
    public function area() {}
}
`)
	p := NewPHPParser(Options{})
	result, err := p.Parse(context.Background(), "Circle.php", content)
	require.NoError(t, err)

	shape, ok := findSymbol(result.Symbols, "Shape")
	require.True(t, ok)
	assert.Equal(t, model.SymbolInterface, shape.SymbolType)

	var extends, implements bool
	for _, dep := range result.RawDependencies {
		switch dep.Kind {
		case model.DependencyExtends:
			if dep.FromSymbolName == "Circle" {
				extends = true
			}
		case model.DependencyImplements:
			if dep.FromSymbolName == "Circle" {
				implements = true
			}
		}
	}
	assert.True(t, extends)
	assert.True(t, implements)
}

// TestPHPParserMultipleInterfaces covers a class implementing more than one
// interface: each name in the comma-separated clause must surface as its
// own DependencyImplements row, since resolver/php.go only ever looks up a
// single symbol name per dependency and a comma-joined TargetName would
// never match anything.
func TestPHPParserMultipleInterfaces(t *testing.T) {
	content := []byte(`<?php
interface Movable {
    public function move();
}

interface Drawable {
    public function draw();
}

class Sprite implements Movable, Drawable {
    public function move() {}
    public function draw() {}
}
`)
	p := NewPHPParser(Options{})
	result, err := p.Parse(context.Background(), "Sprite.php", content)
	require.NoError(t, err)

	var implements []string
	for _, dep := range result.RawDependencies {
		if dep.Kind == model.DependencyImplements && dep.FromSymbolName == "Sprite" {
			implements = append(implements, dep.TargetName)
		}
	}
	assert.ElementsMatch(t, []string{"Movable", "Drawable"}, implements)
}

func TestPHPParserLanguage(t *testing.T) {
	assert.Equal(t, model.LanguagePHP, NewPHPParser(Options{}).Language())
}
