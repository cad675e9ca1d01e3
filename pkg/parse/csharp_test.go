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

// TestCSharpParserFieldCall covers spec.md §8 S3's parsing half: a
// leading-underscore field backed by a declared type produces a
// field_call_<name> qualified-context dependency the resolver's field-type
// map can bind to HandManager.SetHandPositions.
func TestCSharpParserFieldCall(t *testing.T) {
	content := []byte(`namespace Game.Player
{
    class PlayerController
    {
        private IHandManager _handManager;

        public void Update()
        {
            _handManager.SetHandPositions();
        }
    }
}
`)
	p := NewCSharpParser(Options{})
	result, err := p.Parse(context.Background(), "Game/Player/PlayerController.cs", content)
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	field, ok := findSymbol(result.Symbols, "_handManager")
	require.True(t, ok)
	assert.Equal(t, model.SymbolField, field.SymbolType)
	assert.Equal(t, "IHandManager", field.DeclaredType)
	assert.Equal(t, "PlayerController._handManager", field.QualifiedName)

	var call *model.RawDependency
	for i := range result.RawDependencies {
		if result.RawDependencies[i].Kind == model.DependencyCall {
			call = &result.RawDependencies[i]
		}
	}
	require.NotNil(t, call)
	assert.Equal(t, "_handManager.SetHandPositions", call.TargetName)
	assert.Equal(t, "_handManager", call.CallingObject)
	assert.Equal(t, "field_call__handManager", call.QualifiedContext)
	assert.Equal(t, "IHandManager", call.ResolvedClass)
	assert.Equal(t, "PlayerController.Update", call.FromSymbolName)
}

// TestCSharpParserClassExtends covers a class declared with a base type and
// an implemented interface, both captured as a single "bases" field by the
// csharp grammar and both emitted as DependencyExtends by the walker (it
// does not distinguish extends from implements for C#).
func TestCSharpParserClassExtends(t *testing.T) {
	content := []byte(`namespace Game.Player
{
    interface IDamageable
    {
        void TakeDamage(int amount);
    }

    class Enemy : BaseCharacter, IDamageable
    {
        public void TakeDamage(int amount) {}
    }
}
`)
	p := NewCSharpParser(Options{})
	result, err := p.Parse(context.Background(), "Game/Player/Enemy.cs", content)
	require.NoError(t, err)

	iface, ok := findSymbol(result.Symbols, "IDamageable")
	require.True(t, ok)
	assert.Equal(t, model.SymbolInterface, iface.SymbolType)
	assert.Equal(t, "Game.Player.IDamageable", iface.QualifiedName)

	enemy, ok := findSymbol(result.Symbols, "Enemy")
	require.True(t, ok)
	assert.Equal(t, "BaseCharacter,IDamageable", enemy.DeclaredType,
		"a class symbol's DeclaredType carries its comma-joined bases list, which the resolver uses to alias an interface-typed field through to its implementer")

	var sawBase, sawInterface bool
	for _, dep := range result.RawDependencies {
		if dep.Kind != model.DependencyExtends || dep.FromSymbolName != "Enemy" {
			continue
		}
		switch dep.TargetName {
		case "BaseCharacter":
			sawBase = true
		case "IDamageable":
			sawInterface = true
		}
	}
	assert.True(t, sawBase, "Enemy : BaseCharacter should produce an extends dependency to BaseCharacter")
	assert.True(t, sawInterface, "Enemy : ..., IDamageable should produce an extends dependency to IDamageable")
}

// TestCSharpParserInstantiation covers `new ClassName()` producing a
// DependencyInstantiates raw dependency attributed to the enclosing method.
func TestCSharpParserInstantiation(t *testing.T) {
	content := []byte(`namespace Game.Services
{
    class Spawner
    {
        public void Spawn()
        {
            var enemy = new Enemy();
        }
    }
}
`)
	p := NewCSharpParser(Options{})
	result, err := p.Parse(context.Background(), "Game/Services/Spawner.cs", content)
	require.NoError(t, err)

	var instantiates bool
	for _, dep := range result.RawDependencies {
		if dep.Kind == model.DependencyInstantiates && dep.TargetName == "Enemy" {
			instantiates = true
			assert.Equal(t, "Spawner.Spawn", dep.FromSymbolName)
		}
	}
	assert.True(t, instantiates)
}

func TestCSharpParserLanguage(t *testing.T) {
	assert.Equal(t, model.LanguageCSharp, NewCSharpParser(Options{}).Language())
}
