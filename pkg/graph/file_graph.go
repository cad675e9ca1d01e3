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

// knownModules are non-relative specifiers the file graph never tries to
// resolve to an in-repo file, since they name an external package/namespace
// rather than a local module.
var knownModules = map[string]bool{}

// BuildFileEdges turns one file's imports into FileEdge candidates. path is
// the file's repository-relative path, fileID its store id. fileIDByPath
// gives the graph visibility into every file discovered this pass without
// querying the store per specifier.
func BuildFileEdges(fileID int64, path string, imports []model.Import, fileIDByPath map[string]int64, aliasRoots map[string]string, logger *slog.Logger) []model.FileEdge {
	if logger == nil {
		logger = slog.Default()
	}

	exists := func(candidate string) bool {
		_, ok := fileIDByPath[candidate]
		return ok
	}

	seen := make(map[string]bool)
	var edges []model.FileEdge
	for _, imp := range imports {
		if imp.Specifier == "" || knownModules[imp.Specifier] {
			continue
		}

		targetPath, ok := ResolveRelativeImport(path, imp.Specifier, exists, nil, aliasRoots)
		if !ok {
			continue // unresolved specifier: external library or unknown alias, no edge
		}

		targetID, ok := fileIDByPath[targetPath]
		if !ok {
			continue
		}
		if targetID == fileID {
			continue // file-level self edges are not meaningful; only symbol self-calls are
		}

		key := dedupeKey(fileID, targetID, string(imp.ImportType))
		if seen[key] {
			continue
		}
		seen[key] = true

		edges = append(edges, model.FileEdge{
			FromFile:   fileID,
			ToFile:     targetID,
			ImportKind: imp.ImportType,
			Line:       imp.Line,
		})
	}
	return edges
}

func dedupeKey(from, to int64, kind string) string {
	return itoa64(from) + "\x00" + itoa64(to) + "\x00" + kind
}

func itoa64(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [24]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// PersistFileEdges writes file edges via the store's mutation builder,
// matching pkg/store's transactional write-per-batch discipline.
func PersistFileEdges(mb *store.MutationBuilder, edges []model.FileEdge) {
	for i := range edges {
		edges[i].ID = store.FileEdgeID(edges[i].FromFile, edges[i].ToFile, edges[i].Line)
	}
	mb.PutFileEdges(edges)
}
