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

	"github.com/opengraph-dev/compass/pkg/model"
)

func TestDepthFrom(t *testing.T) {
	g := NewSymbolGraph([]model.SymbolEdge{
		{FromSymbol: 1, ToSymbol: 2, Kind: model.DependencyCall},
		{FromSymbol: 2, ToSymbol: 3, Kind: model.DependencyCall},
	})
	depth := g.DepthFrom(1)
	assert.Equal(t, 0, depth[1])
	assert.Equal(t, 1, depth[2])
	assert.Equal(t, 2, depth[3])
}

func TestWhoCallsAndListDependencies(t *testing.T) {
	g := NewSymbolGraph([]model.SymbolEdge{
		{FromSymbol: 1, ToSymbol: 2, Kind: model.DependencyCall},
		{FromSymbol: 3, ToSymbol: 2, Kind: model.DependencyCall},
	})
	assert.Len(t, g.WhoCalls(2), 2)
	assert.Len(t, g.ListDependencies(1), 1)
	assert.Empty(t, g.ListDependencies(2))
}

func TestCyclesDetectsSelfLoop(t *testing.T) {
	g := NewSymbolGraph([]model.SymbolEdge{
		{FromSymbol: 1, ToSymbol: 1, Kind: model.DependencyCall},
	})
	cycles := g.Cycles()
	assert.NotEmpty(t, cycles)
}

func TestCyclesDetectsTwoNodeCycle(t *testing.T) {
	g := NewSymbolGraph([]model.SymbolEdge{
		{FromSymbol: 1, ToSymbol: 2, Kind: model.DependencyCall},
		{FromSymbol: 2, ToSymbol: 1, Kind: model.DependencyCall},
	})
	cycles := g.Cycles()
	assert.NotEmpty(t, cycles)
}
