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

package store

import (
	"context"
	"fmt"

	"github.com/opengraph-dev/compass/pkg/model"
)

// EnsureRepository upserts the repository row describing the codebase
// being indexed.
func (s *Store) EnsureRepository(ctx context.Context, r model.Repository) error {
	b := NewMutationBuilder().PutRepository(r)
	return s.Execute(ctx, b.Build())
}

// WriteFileBatch persists the files, symbols, imports and exports parsed
// from a batch of source files, plus the raw dependencies extracted from
// them (still unresolved at this point).
func (s *Store) WriteFileBatch(ctx context.Context, files []model.File, symbols []model.Symbol,
	imports []model.Import, exports []model.Export, deps []model.RawDependency) error {
	b := NewMutationBuilder().
		PutFiles(files).
		PutSymbols(symbols).
		PutImports(imports).
		PutExports(exports).
		PutRawDependencies(deps)
	if b.Empty() {
		return nil
	}
	return s.Execute(ctx, b.Build())
}

// WriteResolvedEdges persists the file-to-file and symbol-to-symbol edges
// produced by the resolver, plus any framework entities it discovered.
func (s *Store) WriteResolvedEdges(ctx context.Context, fileEdges []model.FileEdge,
	symbolEdges []model.SymbolEdge, frameworkEntities []model.FrameworkEntity) error {
	b := NewMutationBuilder().
		PutFileEdges(fileEdges).
		PutSymbolEdges(symbolEdges).
		PutFrameworkEntities(frameworkEntities)
	if b.Empty() {
		return nil
	}
	return s.Execute(ctx, b.Build())
}

// CleanupFileData removes every row derived from a single file, in an
// order that never leaves a dangling edge pointing at a deleted entity:
// raw dependencies and framework entities first, then edges that touch
// the file's symbols, then the symbols/imports/exports themselves, then
// the file row. Symbol edges whose target is one of this file's symbols
// but whose source lies in a file outside the removed set are not
// deleted: they are re-queued as unresolved (to_symbol cleared,
// to_qualified_name retained) per spec.md §4.4, so a later re-insert of a
// same-qualified-name symbol can re-bind them instead of losing the edge.
func (s *Store) CleanupFileData(ctx context.Context, fileID int64) error {
	symbols, err := s.SymbolsInFile(ctx, fileID)
	if err != nil {
		return fmt.Errorf("load symbols for file %d: %w", fileID, err)
	}
	symbolIDs := make([]int64, len(symbols))
	qualifiedNameByID := make(map[int64]string, len(symbols))
	for i, sym := range symbols {
		symbolIDs[i] = sym.ID
		qn := sym.QualifiedName
		if qn == "" {
			qn = sym.Name
		}
		qualifiedNameByID[sym.ID] = qn
	}

	rawDepIDs, err := s.idsWhere(ctx, "raw_dependency", "file_id", fileID)
	if err != nil {
		return err
	}
	frameworkIDs, err := s.idsWhere(ctx, "framework_entity", "file_id", fileID)
	if err != nil {
		return err
	}
	fileEdgeIDs, err := s.fileEdgeIDsTouching(ctx, fileID)
	if err != nil {
		return err
	}
	deleteEdgeIDs, requeueEdges, err := s.partitionSymbolEdges(ctx, symbolIDs, qualifiedNameByID)
	if err != nil {
		return err
	}
	importIDs, err := s.idsWhere(ctx, "import", "file_id", fileID)
	if err != nil {
		return err
	}
	exportIDs, err := s.idsWhere(ctx, "export", "file_id", fileID)
	if err != nil {
		return err
	}

	b := NewMutationBuilder().
		RemoveByIDs("raw_dependency", rawDepIDs).
		RemoveByIDs("framework_entity", frameworkIDs).
		RemoveByIDs("symbol_edge", deleteEdgeIDs).
		PutSymbolEdges(requeueEdges).
		RemoveByIDs("file_edge", fileEdgeIDs).
		RemoveByIDs("import", importIDs).
		RemoveByIDs("export", exportIDs).
		RemoveByIDs("symbol", symbolIDs).
		RemoveByIDs("file", []int64{fileID})
	if b.Empty() {
		return nil
	}
	return s.Execute(ctx, b.Build())
}

// partitionSymbolEdges splits the symbol_edge rows touching the given
// (about to be removed) symbol ids into those safe to delete outright
// (the edge's own source symbol is also being removed) and those that
// must be re-queued as unresolved (the source lies outside the removed
// set and is still a live caller).
func (s *Store) partitionSymbolEdges(ctx context.Context, symbolIDs []int64, qualifiedNameByID map[int64]string) (deleteIDs []int64, requeue []model.SymbolEdge, err error) {
	if len(symbolIDs) == 0 {
		return nil, nil, nil
	}
	removed := make(map[int64]bool, len(symbolIDs))
	for _, id := range symbolIDs {
		removed[id] = true
	}

	edges, err := s.symbolEdgeRowsTouching(ctx, symbolIDs)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[int64]bool)
	for _, e := range edges {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true

		if removed[e.FromSymbol] {
			deleteIDs = append(deleteIDs, e.ID)
			continue
		}
		if removed[e.ToSymbol] {
			e.ToQualifiedName = qualifiedNameByID[e.ToSymbol]
			e.ToSymbol = 0
			requeue = append(requeue, e)
		}
	}
	return deleteIDs, requeue, nil
}

// CleanupRepository removes every file belonging to a repository (and
// transitively everything CleanupFileData would remove for each) followed
// by the repository row itself.
func (s *Store) CleanupRepository(ctx context.Context, repositoryID int64) error {
	fileIDs, err := s.idsWhere(ctx, "file", "repository_id", repositoryID)
	if err != nil {
		return err
	}
	for _, fileID := range fileIDs {
		if err := s.CleanupFileData(ctx, fileID); err != nil {
			return err
		}
	}
	b := NewMutationBuilder().RemoveByIDs("repository", []int64{repositoryID})
	return s.Execute(ctx, b.Build())
}

// RebindSymbolEdges replaces a set of unresolved symbol_edge rows (as
// returned by UnresolvedSymbolEdges) with their resolved counterparts.
// Each resolved edge's id is recomputed from its now-known ToSymbol, so
// the stale unresolved row (a different id, since SymbolEdgeID hashes
// ToSymbol) is removed explicitly rather than overwritten in place.
func (s *Store) RebindSymbolEdges(ctx context.Context, stale []model.SymbolEdge, resolved []model.SymbolEdge) error {
	staleIDs := make([]int64, len(stale))
	for i, e := range stale {
		staleIDs[i] = e.ID
	}
	b := NewMutationBuilder().RemoveByIDs("symbol_edge", staleIDs)
	for i := range resolved {
		resolved[i].ID = SymbolEdgeID(resolved[i].FromSymbol, resolved[i].ToSymbol, string(resolved[i].Kind), resolved[i].Line)
	}
	b.PutSymbolEdges(resolved)
	if b.Empty() {
		return nil
	}
	return s.Execute(ctx, b.Build())
}

func (s *Store) idsWhere(ctx context.Context, relation, column string, value int64) ([]int64, error) {
	script := fmt.Sprintf(`?[id] := *%s{id, %s}, %s == $value`, relation, column, column)
	result, err := s.Query(ctx, script, map[string]any{"value": value})
	if err != nil {
		return nil, fmt.Errorf("query %s by %s: %w", relation, column, err)
	}
	return idColumn(result)
}

func (s *Store) fileEdgeIDsTouching(ctx context.Context, fileID int64) ([]int64, error) {
	script := `?[id] := *file_edge{id, from_file, to_file}, (from_file == $id or to_file == $id)`
	result, err := s.Query(ctx, script, map[string]any{"id": fileID})
	if err != nil {
		return nil, fmt.Errorf("query file_edge touching %d: %w", fileID, err)
	}
	return idColumn(result)
}

// symbolEdgeRowsTouching returns every symbol_edge row whose from_symbol or
// to_symbol is one of the given ids, with enough columns to decide whether
// the row should be deleted or re-queued as unresolved.
func (s *Store) symbolEdgeRowsTouching(ctx context.Context, symbolIDs []int64) ([]model.SymbolEdge, error) {
	var out []model.SymbolEdge
	for _, symID := range symbolIDs {
		script := `?[id, from_symbol, to_symbol, kind, line, parameter_context] :=
			*symbol_edge{id, from_symbol, to_symbol, kind, line, parameter_context},
			(from_symbol == $id or to_symbol == $id)`
		result, err := s.Query(ctx, script, map[string]any{"id": symID})
		if err != nil {
			return nil, fmt.Errorf("query symbol_edge touching %d: %w", symID, err)
		}
		for _, row := range result.Rows {
			if len(row) < 6 {
				continue
			}
			id, err := toInt64(row[0])
			if err != nil {
				return nil, err
			}
			from, err := toInt64(row[1])
			if err != nil {
				return nil, err
			}
			to, err := toInt64(row[2])
			if err != nil {
				return nil, err
			}
			kind, _ := row[3].(string)
			line, err := toInt64(row[4])
			if err != nil {
				return nil, err
			}
			paramCtx, _ := row[5].(string)
			out = append(out, model.SymbolEdge{
				ID:               id,
				FromSymbol:       from,
				ToSymbol:         to,
				Kind:             model.DependencyKind(kind),
				Line:             int(line),
				ParameterContext: paramCtx,
			})
		}
	}
	return out, nil
}

func idColumn(result *QueryResult) ([]int64, error) {
	ids := make([]int64, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) == 0 {
			continue
		}
		v, err := toInt64(row[0])
		if err != nil {
			return nil, err
		}
		ids = append(ids, v)
	}
	return ids, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected id type %T", v)
	}
}
