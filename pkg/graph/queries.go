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

import "github.com/opengraph-dev/compass/pkg/model"

// maxNodesExplored bounds traversal, grounded on the teacher's TracePath
// BFS safety limit (pkg/tools/trace.go), which caps exploration at 5000
// nodes to avoid hanging on large graphs.
const maxNodesExplored = 5000

// SymbolGraph is a store-agnostic, already-loaded view of symbol edges,
// the entire "downstream tool" surface the analysis core exposes per
// spec.md §9 ("pure read-only query... not part of the core write path").
type SymbolGraph struct {
	forward map[int64][]model.SymbolEdge // from -> edges
	reverse map[int64][]model.SymbolEdge // to -> edges
}

// NewSymbolGraph builds adjacency lists from a flat edge slice.
func NewSymbolGraph(edges []model.SymbolEdge) *SymbolGraph {
	g := &SymbolGraph{
		forward: make(map[int64][]model.SymbolEdge),
		reverse: make(map[int64][]model.SymbolEdge),
	}
	for _, e := range edges {
		g.forward[e.FromSymbol] = append(g.forward[e.FromSymbol], e)
		g.reverse[e.ToSymbol] = append(g.reverse[e.ToSymbol], e)
	}
	return g
}

// ListDependencies returns the symbols that id directly depends on.
func (g *SymbolGraph) ListDependencies(id int64) []model.SymbolEdge {
	return g.forward[id]
}

// WhoCalls returns the symbols that directly reference id.
func (g *SymbolGraph) WhoCalls(id int64) []model.SymbolEdge {
	return g.reverse[id]
}

// DepthFrom does a breadth-first traversal from id, returning each reached
// symbol's distance in edges. id itself is depth 0.
func (g *SymbolGraph) DepthFrom(id int64) map[int64]int {
	depth := map[int64]int{id: 0}
	queue := []int64{id}
	explored := 0

	for len(queue) > 0 && explored < maxNodesExplored {
		current := queue[0]
		queue = queue[1:]
		explored++

		for _, edge := range g.forward[current] {
			if _, seen := depth[edge.ToSymbol]; seen {
				continue
			}
			depth[edge.ToSymbol] = depth[current] + 1
			queue = append(queue, edge.ToSymbol)
		}
	}
	return depth
}

// Cycles returns every distinct cycle found by DFS from each node, each
// expressed as the ordered sequence of symbol ids starting and ending at
// the same node. Graphs are expected to be small enough per component
// that a bounded DFS is adequate; exploration stops at maxNodesExplored.
func (g *SymbolGraph) Cycles() [][]int64 {
	var cycles [][]int64
	explored := 0

	visited := make(map[int64]bool)
	for start := range g.forward {
		if explored >= maxNodesExplored {
			break
		}
		if visited[start] {
			continue
		}
		var path []int64
		onPath := make(map[int64]bool)
		explored += g.dfsCycles(start, path, onPath, visited, &cycles, maxNodesExplored-explored)
	}
	return cycles
}

func (g *SymbolGraph) dfsCycles(node int64, path []int64, onPath map[int64]bool, visited map[int64]bool, cycles *[][]int64, budget int) int {
	if budget <= 0 {
		return 0
	}
	visited[node] = true
	onPath[node] = true
	path = append(path, node)
	explored := 1

	for _, edge := range g.forward[node] {
		next := edge.ToSymbol
		if onPath[next] {
			cycle := append([]int64{}, path...)
			cycle = append(cycle, next)
			*cycles = append(*cycles, cycle)
			continue
		}
		if visited[next] {
			continue
		}
		explored += g.dfsCycles(next, path, onPath, visited, cycles, budget-explored)
		if explored >= budget {
			break
		}
	}

	onPath[node] = false
	return explored
}
