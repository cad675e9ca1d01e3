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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengraph-dev/compass/pkg/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Engine: "mem"})
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.EnsureSchema())
}

func TestWriteFileBatchAndQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	repoID := RepositoryID("/repo")
	require.NoError(t, s.EnsureRepository(ctx, model.Repository{
		ID: repoID, Name: "repo", RootPath: "/repo", PrimaryLanguage: "typescript",
	}))

	fileID := FileID(repoID, "src/app.ts")
	file := model.File{ID: fileID, RepositoryID: repoID, Path: "src/app.ts", Language: model.LanguageTypeScript}
	symID := SymbolID(fileID, "boot", string(model.SymbolFunction), 1)
	sym := model.Symbol{ID: symID, FileID: fileID, Name: "boot", SymbolType: model.SymbolFunction, IsExported: true}

	require.NoError(t, s.WriteFileBatch(ctx, []model.File{file}, []model.Symbol{sym}, nil, nil, nil))

	symbols, err := s.SymbolsInFile(ctx, fileID)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "boot", symbols[0].Name)
	assert.True(t, symbols[0].IsExported)

	files, err := s.FilesInRepository(ctx, repoID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "src/app.ts", files[0].Path)
}

func TestCleanupFileDataRemovesDependents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	repoID := RepositoryID("/repo")
	require.NoError(t, s.EnsureRepository(ctx, model.Repository{ID: repoID, Name: "repo", RootPath: "/repo"}))

	fileID := FileID(repoID, "a.php")
	symID := SymbolID(fileID, "handle", string(model.SymbolMethod), 10)
	file := model.File{ID: fileID, RepositoryID: repoID, Path: "a.php", Language: model.LanguagePHP}
	sym := model.Symbol{ID: symID, FileID: fileID, Name: "handle", SymbolType: model.SymbolMethod}
	dep := model.RawDependency{
		ID: RawDependencyID(fileID, "Mailer.send", string(model.DependencyCall), 12, "0"),
		FileID: fileID, TargetName: "Mailer.send", Kind: model.DependencyCall, Line: 12,
	}

	require.NoError(t, s.WriteFileBatch(ctx, []model.File{file}, []model.Symbol{sym}, nil, nil, []model.RawDependency{dep}))
	require.NoError(t, s.CleanupFileData(ctx, fileID))

	symbols, err := s.SymbolsInFile(ctx, fileID)
	require.NoError(t, err)
	assert.Empty(t, symbols)

	deps, err := s.RawDependenciesInFile(ctx, fileID)
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestHashIDIsStable(t *testing.T) {
	a := FileID(1, "src/app.ts")
	b := FileID(1, "src/app.ts")
	c := FileID(1, "src/other.ts")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestExecuteRejectsOversizedScript(t *testing.T) {
	s := openTestStore(t)
	t.Setenv("COMPASS_SOFT_LIMIT_BYTES", "16")

	err := s.Execute(context.Background(), "?[a] <- [[1]] :put test_rel {a}")
	assert.ErrorContains(t, err, "mutation script rejected")
}
