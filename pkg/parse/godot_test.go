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

func TestGodotParserScene(t *testing.T) {
	content := []byte(`[gd_scene load_steps=3 format=3]

[ext_resource type="Script" path="res://player.gd" id="1_abcde"]

[node name="Player" type="CharacterBody2D"]
script = ExtResource("1_abcde")

[node name="Sprite" type="Sprite2D" parent="Player"]
`)

	p := NewGodotParser()
	result, err := p.Parse(context.Background(), "player.tscn", content)
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	assert.Empty(t, result.Symbols, "Godot parser never emits Symbols, only FrameworkEntities")

	var scenes, nodes, scripts int
	for _, fe := range result.FrameworkEntities {
		switch fe.Kind {
		case model.FrameworkEntityScene:
			scenes++
			assert.Equal(t, "3", fe.Metadata["load_steps"])
		case model.FrameworkEntityNode:
			nodes++
		case model.FrameworkEntityScript:
			scripts++
		}
	}
	assert.Equal(t, 1, scenes)
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 1, scripts, "ext_resource of type Script is the only script entity; node 'script' key holds a resource reference, not a path")
}

func TestGodotParserAutoload(t *testing.T) {
	content := []byte(`[application]

config/name="MyGame"

[autoload]

GameState="*res://scripts/game_state.gd"
EventBus="res://scripts/event_bus.gd"
`)

	p := NewGodotParser()
	result, err := p.Parse(context.Background(), "project.godot", content)
	require.NoError(t, err)

	var autoloads []model.FrameworkEntity
	for _, fe := range result.FrameworkEntities {
		if fe.Kind == model.FrameworkEntityAutoload {
			autoloads = append(autoloads, fe)
		}
	}
	require.Len(t, autoloads, 2)
	assert.Equal(t, "GameState", autoloads[0].Metadata["name"])
	assert.Equal(t, "res://scripts/game_state.gd", autoloads[0].Metadata["path"])
	assert.Equal(t, "EventBus", autoloads[1].Metadata["name"])
}

func TestGodotParserAutoloadOnlyInsideProjectGodot(t *testing.T) {
	// The "autoload" section is only meaningful inside project.godot; the
	// same key=value shape inside a .tscn file must not be misread as one.
	content := []byte(`[autoload]

NotReally="res://x.gd"
`)
	p := NewGodotParser()
	result, err := p.Parse(context.Background(), "scene.tscn", content)
	require.NoError(t, err)
	assert.Empty(t, result.FrameworkEntities)
}

func TestGodotParserLanguage(t *testing.T) {
	assert.Equal(t, model.LanguageGodot, NewGodotParser().Language())
}
