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
	"log/slog"

	"github.com/opengraph-dev/compass/pkg/model"
	"github.com/opengraph-dev/compass/pkg/store"
)

// Resolution is one raw dependency's outcome from the resolver, the input
// the symbol graph assembles into edges.
type Resolution struct {
	Dependency model.RawDependency
	SymbolID   int64  // 0 means unresolved
	Strategy   string // empty when unresolved
}

// NameIndex answers "how many symbols share this name", the input to the
// single-candidate fallback admission rule in spec.md §4.6.
type NameIndex interface {
	CandidatesByName(name string) []int64
}

// BuildSymbolEdges turns resolver output into deduplicated SymbolEdges,
// admitting the single-candidate fallback for unresolved `calls` raw
// dependencies and applying the calls-only self-edge rule.
func BuildSymbolEdges(fromSymbolID int64, resolutions []Resolution, names NameIndex, logger *slog.Logger) []model.SymbolEdge {
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[string]bool)
	var edges []model.SymbolEdge

	for _, res := range resolutions {
		toSymbolID := res.SymbolID
		strategy := res.Strategy

		if toSymbolID == 0 && res.Dependency.Kind == model.DependencyCall && names != nil {
			toSymbolID, strategy = admitFallback(res.Dependency.TargetName, names, logger)
		}
		if toSymbolID == 0 {
			continue
		}

		if toSymbolID == fromSymbolID && res.Dependency.Kind != model.DependencyCall {
			continue // self-edges admitted only for calls
		}

		key := dedupeKey(fromSymbolID, toSymbolID, string(res.Dependency.Kind)) + "\x00" + itoa64(int64(res.Dependency.Line))
		if seen[key] {
			continue
		}
		seen[key] = true

		edges = append(edges, model.SymbolEdge{
			FromSymbol:       fromSymbolID,
			ToSymbol:         toSymbolID,
			Kind:             res.Dependency.Kind,
			Line:             res.Dependency.Line,
			ParameterContext: res.Dependency.ParameterContext,
			StrategyTag:      strategy,
		})
	}
	return edges
}

// admitFallback implements the "exactly one name-index candidate" low
// priority admission rule for otherwise-unresolved calls, per spec.md §4.6.
func admitFallback(targetName string, names NameIndex, logger *slog.Logger) (int64, string) {
	candidates := names.CandidatesByName(targetName)
	if len(candidates) != 1 {
		return 0, ""
	}
	logger.Debug("graph.symbol_graph.fallback_admitted", "target", targetName, "symbol_id", candidates[0])
	return candidates[0], "name_index_fallback"
}

// PersistSymbolEdges writes symbol edges via the store's mutation builder.
func PersistSymbolEdges(mb *store.MutationBuilder, edges []model.SymbolEdge) {
	for i := range edges {
		edges[i].ID = store.SymbolEdgeID(edges[i].FromSymbol, edges[i].ToSymbol, string(edges[i].Kind), edges[i].Line)
	}
	mb.PutSymbolEdges(edges)
}
