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

// SymbolsByName returns every symbol with the given name, across all files.
// Used by resolver strategies that fall back to a global name search.
func (s *Store) SymbolsByName(ctx context.Context, name string) ([]model.Symbol, error) {
	script := `?[id, file_id, name, symbol_type, start_line, end_line, is_exported, visibility, signature, qualified_name, declared_type] :=
		*symbol{id, file_id, name, symbol_type, start_line, end_line, is_exported, visibility, signature, qualified_name, declared_type},
		name == $name`
	result, err := s.Query(ctx, script, map[string]any{"name": name})
	if err != nil {
		return nil, fmt.Errorf("query symbols by name: %w", err)
	}
	return decodeSymbols(result)
}

// SymbolByQualifiedName returns the symbol matching a fully qualified
// name, e.g. "App\Services\Billing::charge" or "PlayerController.Jump".
func (s *Store) SymbolByQualifiedName(ctx context.Context, qualifiedName string) (*model.Symbol, error) {
	script := `?[id, file_id, name, symbol_type, start_line, end_line, is_exported, visibility, signature, qualified_name, declared_type] :=
		*symbol{id, file_id, name, symbol_type, start_line, end_line, is_exported, visibility, signature, qualified_name, declared_type},
		qualified_name == $qn`
	result, err := s.Query(ctx, script, map[string]any{"qn": qualifiedName})
	if err != nil {
		return nil, fmt.Errorf("query symbol by qualified name: %w", err)
	}
	symbols, err := decodeSymbols(result)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, nil
	}
	return &symbols[0], nil
}

// ExportedSymbolsByName returns every exported symbol with the given name.
// Used by the single-global-export fallback resolver strategy.
func (s *Store) ExportedSymbolsByName(ctx context.Context, name string) ([]model.Symbol, error) {
	all, err := s.SymbolsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	exported := all[:0]
	for _, sym := range all {
		if sym.IsExported {
			exported = append(exported, sym)
		}
	}
	return exported, nil
}

// SymbolsInFile returns every symbol declared in a file, used for
// local-scope resolution before falling back to import-mediated lookup.
func (s *Store) SymbolsInFile(ctx context.Context, fileID int64) ([]model.Symbol, error) {
	script := `?[id, file_id, name, symbol_type, start_line, end_line, is_exported, visibility, signature, qualified_name, declared_type] :=
		*symbol{id, file_id, name, symbol_type, start_line, end_line, is_exported, visibility, signature, qualified_name, declared_type},
		file_id == $file_id`
	result, err := s.Query(ctx, script, map[string]any{"file_id": fileID})
	if err != nil {
		return nil, fmt.Errorf("query symbols in file: %w", err)
	}
	return decodeSymbols(result)
}

// ImportsInFile returns every import declared in a file.
func (s *Store) ImportsInFile(ctx context.Context, fileID int64) ([]model.Import, error) {
	script := `?[id, file_id, specifier, import_type, imported_names, line] :=
		*import{id, file_id, specifier, import_type, imported_names, line},
		file_id == $file_id`
	result, err := s.Query(ctx, script, map[string]any{"file_id": fileID})
	if err != nil {
		return nil, fmt.Errorf("query imports in file: %w", err)
	}
	imports := make([]model.Import, 0, len(result.Rows))
	for _, row := range result.Rows {
		id, _ := toInt64(row[0])
		fileID, _ := toInt64(row[1])
		imports = append(imports, model.Import{
			ID:         id,
			FileID:     fileID,
			Specifier:  toStr(row[2]),
			ImportType: model.ImportType(toStr(row[3])),
			Line:       int(toIntOrZero(row[5])),
		})
	}
	return imports, nil
}

// ExportsInFile returns every export declared in a file, used to rebuild a
// resolver FileContext for a file the current pass did not re-parse.
func (s *Store) ExportsInFile(ctx context.Context, fileID int64) ([]model.Export, error) {
	script := `?[id, file_id, name, kind, line] :=
		*export{id, file_id, name, kind, line},
		file_id == $file_id`
	result, err := s.Query(ctx, script, map[string]any{"file_id": fileID})
	if err != nil {
		return nil, fmt.Errorf("query exports in file: %w", err)
	}
	exports := make([]model.Export, 0, len(result.Rows))
	for _, row := range result.Rows {
		id, _ := toInt64(row[0])
		fid, _ := toInt64(row[1])
		exports = append(exports, model.Export{
			ID:     id,
			FileID: fid,
			Name:   toStr(row[2]),
			Kind:   toStr(row[3]),
			Line:   int(toIntOrZero(row[4])),
		})
	}
	return exports, nil
}

// FileIDForPath returns the id of the file at the given repository-relative
// path, or 0 if no such file is indexed.
func (s *Store) FileIDForPath(ctx context.Context, repositoryID int64, path string) (int64, error) {
	script := `?[id] := *file{id, repository_id, path}, repository_id == $repo_id, path == $path`
	result, err := s.Query(ctx, script, map[string]any{"repo_id": repositoryID, "path": path})
	if err != nil {
		return 0, fmt.Errorf("query file by path: %w", err)
	}
	if len(result.Rows) == 0 {
		return 0, nil
	}
	return toInt64(result.Rows[0][0])
}

// FilesInRepository returns every file belonging to a repository.
func (s *Store) FilesInRepository(ctx context.Context, repositoryID int64) ([]model.File, error) {
	script := `?[id, repository_id, path, language, size, mtime, content_hash, is_test, is_generated] :=
		*file{id, repository_id, path, language, size, mtime, content_hash, is_test, is_generated},
		repository_id == $repo_id`
	result, err := s.Query(ctx, script, map[string]any{"repo_id": repositoryID})
	if err != nil {
		return nil, fmt.Errorf("query files in repository: %w", err)
	}
	files := make([]model.File, 0, len(result.Rows))
	for _, row := range result.Rows {
		id, _ := toInt64(row[0])
		repoID, _ := toInt64(row[1])
		files = append(files, model.File{
			ID:           id,
			RepositoryID: repoID,
			Path:         toStr(row[2]),
			Language:     model.Language(toStr(row[3])),
			Size:         toIntOrZero(row[4]),
			MTime:        toIntOrZero(row[5]),
			ContentHash:  toStr(row[6]),
			IsTest:       toBool(row[7]),
			IsGenerated:  toBool(row[8]),
		})
	}
	return files, nil
}

// RawDependenciesInFile returns every unresolved dependency extracted from
// a file, the input to the Symbol Resolver.
func (s *Store) RawDependenciesInFile(ctx context.Context, fileID int64) ([]model.RawDependency, error) {
	script := `?[id, file_id, from_symbol_name, target_name, kind, line, resolved_class, calling_object, qualified_context, parameter_context, parameter_types, call_instance_id] :=
		*raw_dependency{id, file_id, from_symbol_name, target_name, kind, line, resolved_class, calling_object, qualified_context, parameter_context, parameter_types, call_instance_id},
		file_id == $file_id`
	result, err := s.Query(ctx, script, map[string]any{"file_id": fileID})
	if err != nil {
		return nil, fmt.Errorf("query raw dependencies in file: %w", err)
	}
	deps := make([]model.RawDependency, 0, len(result.Rows))
	for _, row := range result.Rows {
		id, _ := toInt64(row[0])
		fid, _ := toInt64(row[1])
		deps = append(deps, model.RawDependency{
			ID:               id,
			FileID:           fid,
			FromSymbolName:   toStr(row[2]),
			TargetName:       toStr(row[3]),
			Kind:             model.DependencyKind(toStr(row[4])),
			Line:             int(toIntOrZero(row[5])),
			ResolvedClass:    toStr(row[6]),
			CallingObject:    toStr(row[7]),
			QualifiedContext: toStr(row[8]),
			ParameterContext: toStr(row[9]),
			CallInstanceID:   toStr(row[11]),
		})
	}
	return deps, nil
}

// UnresolvedSymbolEdges returns every symbol_edge row left dangling by a
// prior CleanupFileData/CleanupRepository call (to_symbol cleared,
// to_qualified_name retained), the rebinding candidates the Incremental
// Controller's transactional update consults per spec.md §4.7 so that a
// re-declared symbol can re-bind edges a removal once orphaned.
func (s *Store) UnresolvedSymbolEdges(ctx context.Context) ([]model.SymbolEdge, error) {
	script := `?[id, from_symbol, to_symbol, to_qualified_name, kind, line, parameter_context] :=
		*symbol_edge{id, from_symbol, to_symbol, to_qualified_name, kind, line, parameter_context},
		to_symbol == 0,
		to_qualified_name != ''`
	result, err := s.Query(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("query unresolved symbol edges: %w", err)
	}
	edges := make([]model.SymbolEdge, 0, len(result.Rows))
	for _, row := range result.Rows {
		id, _ := toInt64(row[0])
		from, _ := toInt64(row[1])
		to, _ := toInt64(row[2])
		edges = append(edges, model.SymbolEdge{
			ID:               id,
			FromSymbol:       from,
			ToSymbol:         to,
			ToQualifiedName:  toStr(row[3]),
			Kind:             model.DependencyKind(toStr(row[4])),
			Line:             int(toIntOrZero(row[5])),
			ParameterContext: toStr(row[6]),
		})
	}
	return edges, nil
}

func decodeSymbols(result *QueryResult) ([]model.Symbol, error) {
	symbols := make([]model.Symbol, 0, len(result.Rows))
	for _, row := range result.Rows {
		id, err := toInt64(row[0])
		if err != nil {
			return nil, err
		}
		fileID, err := toInt64(row[1])
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, model.Symbol{
			ID:            id,
			FileID:        fileID,
			Name:          toStr(row[2]),
			SymbolType:    model.SymbolType(toStr(row[3])),
			StartLine:     int(toIntOrZero(row[4])),
			EndLine:       int(toIntOrZero(row[5])),
			IsExported:    toBool(row[6]),
			Visibility:    toStr(row[7]),
			Signature:     toStr(row[8]),
			QualifiedName: toStr(row[9]),
			DeclaredType:  toStr(row[10]),
		})
	}
	return symbols, nil
}

func toStr(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func toIntOrZero(v any) int64 {
	n, err := toInt64(v)
	if err != nil {
		return 0
	}
	return n
}

func toBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
