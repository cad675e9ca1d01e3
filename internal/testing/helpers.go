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

package testing

import (
	"context"
	"testing"

	"github.com/opengraph-dev/compass/pkg/store"
)

// SetupTestStore creates an in-memory Compass store for testing.
// The store is automatically closed when the test finishes.
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    s := testing.SetupTestStore(t)
//	    testing.InsertTestFile(t, s, 1, 1, "src/app.ts", "typescript")
//	}
func SetupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(store.Config{
		Engine:  "mem",
		DataDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	if err := s.EnsureSchema(); err != nil {
		t.Fatalf("failed to ensure schema: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// InsertTestRepository seeds a repository row.
func InsertTestRepository(t *testing.T, s *store.Store, id int64, rootPath, language string) {
	t.Helper()

	query := `?[id, name, root_path, primary_language, frameworks, last_indexed_at, vcs_hash] <- [[
		$id, $name, $root_path, $language, "", 0, ""
	]]
	:put repository { id => name, root_path, primary_language, frameworks, last_indexed_at, vcs_hash }`

	_, err := s.DB().Run(query, map[string]any{
		"id":       id,
		"name":     rootPath,
		"root_path": rootPath,
		"language": language,
	})
	if err != nil {
		t.Fatalf("failed to insert test repository: %v", err)
	}
}

// InsertTestFile seeds a file row belonging to repoID.
func InsertTestFile(t *testing.T, s *store.Store, id, repoID int64, path, language string) {
	t.Helper()

	query := `?[id, repository_id, path, language, size, mtime, content_hash, is_test, is_generated] <- [[
		$id, $repository_id, $path, $language, 0, 0, "", false, false
	]]
	:put file { id => repository_id, path, language, size, mtime, content_hash, is_test, is_generated }`

	_, err := s.DB().Run(query, map[string]any{
		"id":            id,
		"repository_id": repoID,
		"path":          path,
		"language":      language,
	})
	if err != nil {
		t.Fatalf("failed to insert test file: %v", err)
	}
}

// InsertTestSymbol seeds a symbol row belonging to fileID.
func InsertTestSymbol(t *testing.T, s *store.Store, id, fileID int64, name, symbolType string, startLine, endLine int, exported bool) {
	t.Helper()

	query := `?[id, file_id, name, symbol_type, start_line, end_line, is_exported, visibility, signature, qualified_name] <- [[
		$id, $file_id, $name, $symbol_type, $start_line, $end_line, $is_exported, "", "", $name
	]]
	:put symbol { id => file_id, name, symbol_type, start_line, end_line, is_exported, visibility, signature, qualified_name }`

	_, err := s.DB().Run(query, map[string]any{
		"id":          id,
		"file_id":     fileID,
		"name":        name,
		"symbol_type": symbolType,
		"start_line":  startLine,
		"end_line":    endLine,
		"is_exported": exported,
	})
	if err != nil {
		t.Fatalf("failed to insert test symbol: %v", err)
	}
}

// InsertTestSymbolEdge seeds a symbol_edge row.
func InsertTestSymbolEdge(t *testing.T, s *store.Store, id, fromSymbol, toSymbol int64, kind string, line int) {
	t.Helper()

	query := `?[id, from_symbol, to_symbol, kind, line, parameter_context] <- [[
		$id, $from_symbol, $to_symbol, $kind, $line, ""
	]]
	:put symbol_edge { id => from_symbol, to_symbol, kind, line, parameter_context }`

	_, err := s.DB().Run(query, map[string]any{
		"id":          id,
		"from_symbol": fromSymbol,
		"to_symbol":   toSymbol,
		"kind":        kind,
		"line":        line,
	})
	if err != nil {
		t.Fatalf("failed to insert test symbol edge: %v", err)
	}
}

// QuerySymbols is a helper to query all symbols from the store.
// Returns rows with [id, name] columns.
func QuerySymbols(t *testing.T, s *store.Store) *store.QueryResult {
	t.Helper()

	ctx := context.Background()
	result, err := s.Query(ctx, "?[id, name] := *symbol { id, name }")
	if err != nil {
		t.Fatalf("failed to query symbols: %v", err)
	}

	return result
}

// QueryFiles is a helper to query all files from the store.
// Returns rows with [id, path] columns.
func QueryFiles(t *testing.T, s *store.Store) *store.QueryResult {
	t.Helper()

	ctx := context.Background()
	result, err := s.Query(ctx, "?[id, path] := *file { id, path }")
	if err != nil {
		t.Fatalf("failed to query files: %v", err)
	}

	return result
}

// QuerySymbolEdges is a helper to query all symbol edges from the store.
// Returns rows with [from_symbol, to_symbol, kind] columns.
func QuerySymbolEdges(t *testing.T, s *store.Store) *store.QueryResult {
	t.Helper()

	ctx := context.Background()
	result, err := s.Query(ctx, "?[from_symbol, to_symbol, kind] := *symbol_edge { from_symbol, to_symbol, kind }")
	if err != nil {
		t.Fatalf("failed to query symbol edges: %v", err)
	}

	return result
}
