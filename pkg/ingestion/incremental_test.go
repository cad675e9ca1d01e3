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

package ingestion

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengraph-dev/compass/pkg/model"
	"github.com/opengraph-dev/compass/pkg/store"
	"github.com/opengraph-dev/compass/pkg/walker"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Config{Engine: "mem"})
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestIncrementalControllerPlanNoPriorStateIsFullPass covers the "no stored
// files yet" branch of spec.md §4.7: the very first analysis of a
// repository always runs as a full pass.
func TestIncrementalControllerPlanNoPriorStateIsFullPass(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/a.ts", []byte("export const a = 1;"), 0644))

	s := openTestStore(t)
	repoID := store.RepositoryID("/repo")
	c := NewIncrementalController(s, nil)

	cs, err := c.Plan(context.Background(), fs, "/repo", repoID, []walker.FileInfo{
		{Path: "a.ts", FullPath: "/repo/a.ts", Language: model.LanguageTypeScript},
	}, false)
	require.NoError(t, err)

	assert.True(t, cs.FullPass)
	require.Len(t, cs.Changed, 1)
	assert.Equal(t, "a.ts", cs.Changed[0].Info.Path)
	assert.Nil(t, cs.Changed[0].Stored)
	assert.Empty(t, cs.Removed)
	assert.Empty(t, cs.Unchanged)
}

// TestIncrementalControllerPlanSkipsUnchangedHash covers the core
// incremental case: a file whose content hash did not move since the last
// run is left out of Changed and reported in Unchanged, while a modified
// file is re-parsed and a file dropped from disk is reported as Removed.
func TestIncrementalControllerPlanSkipsUnchangedHash(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/stable.ts", []byte("export const a = 1;"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/repo/changed.ts", []byte("export const b = 2;"), 0644))

	s := openTestStore(t)
	ctx := context.Background()
	repoID := store.RepositoryID("/repo")
	require.NoError(t, s.EnsureRepository(ctx, model.Repository{ID: repoID, Name: "repo", RootPath: "/repo"}))

	stableID := store.FileID(repoID, "stable.ts")
	changedID := store.FileID(repoID, "changed.ts")
	removedID := store.FileID(repoID, "removed.ts")
	require.NoError(t, s.WriteFileBatch(ctx, []model.File{
		{ID: stableID, RepositoryID: repoID, Path: "stable.ts", Language: model.LanguageTypeScript, ContentHash: contentHash([]byte("export const a = 1;"))},
		{ID: changedID, RepositoryID: repoID, Path: "changed.ts", Language: model.LanguageTypeScript, ContentHash: contentHash([]byte("export const b = 0;"))},
		{ID: removedID, RepositoryID: repoID, Path: "removed.ts", Language: model.LanguageTypeScript, ContentHash: "stale"},
	}, nil, nil, nil, nil))

	c := NewIncrementalController(s, nil)
	cs, err := c.Plan(ctx, fs, "/repo", repoID, []walker.FileInfo{
		{Path: "stable.ts", FullPath: "/repo/stable.ts", Language: model.LanguageTypeScript},
		{Path: "changed.ts", FullPath: "/repo/changed.ts", Language: model.LanguageTypeScript},
	}, false)
	require.NoError(t, err)

	assert.False(t, cs.FullPass)
	require.Len(t, cs.Changed, 1)
	assert.Equal(t, "changed.ts", cs.Changed[0].Info.Path)
	require.NotNil(t, cs.Changed[0].Stored)
	assert.Equal(t, changedID, cs.Changed[0].Stored.ID)

	require.Len(t, cs.Unchanged, 1)
	assert.Equal(t, "stable.ts", cs.Unchanged[0].Path)

	require.Len(t, cs.Removed, 1)
	assert.Equal(t, "removed.ts", cs.Removed[0].Path)
}

// TestIncrementalControllerPlanBackstopPromotesToFullPass covers the
// DefaultBackstopFraction rule: when more than half the stored files moved
// (changed + removed) in one pass, the controller folds the remaining
// Unchanged files back into Changed and marks the whole pass full.
func TestIncrementalControllerPlanBackstopPromotesToFullPass(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/kept.ts", []byte("export const kept = 1;"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/repo/moved1.ts", []byte("export const m1 = 1;"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/repo/moved2.ts", []byte("export const m2 = 1;"), 0644))

	s := openTestStore(t)
	ctx := context.Background()
	repoID := store.RepositoryID("/repo")
	require.NoError(t, s.EnsureRepository(ctx, model.Repository{ID: repoID, Name: "repo", RootPath: "/repo"}))

	keptID := store.FileID(repoID, "kept.ts")
	moved1ID := store.FileID(repoID, "moved1.ts")
	require.NoError(t, s.WriteFileBatch(ctx, []model.File{
		{ID: keptID, RepositoryID: repoID, Path: "kept.ts", Language: model.LanguageTypeScript, ContentHash: contentHash([]byte("export const kept = 1;"))},
		{ID: moved1ID, RepositoryID: repoID, Path: "moved1.ts", Language: model.LanguageTypeScript, ContentHash: "stale-hash"},
	}, nil, nil, nil, nil))
	// A third stored file ("moved2.ts" wasn't stored, so removed count stays
	// small) -- instead force the backstop via a 1-changed/1-stored-total
	// split isn't enough; use two stored files where one changed, giving a
	// 1/2 = 0.5 ratio which does NOT exceed the strict ">" threshold, then
	// tip it over by also dropping a file from disk.
	require.NoError(t, afero.WriteFile(fs, "/repo/moved2.ts", nil, 0644))
	_ = fs.Remove("/repo/moved2.ts")

	c := NewIncrementalController(s, nil)
	cs, err := c.Plan(ctx, fs, "/repo", repoID, []walker.FileInfo{
		{Path: "kept.ts", FullPath: "/repo/kept.ts", Language: model.LanguageTypeScript},
	}, false)
	require.NoError(t, err)

	// stored=2 (kept, moved1); discovered only kept.ts, so moved1.ts is
	// Removed and kept.ts is Unchanged pre-backstop: moved=1, ratio=1/2=0.5,
	// not > 0.5, so no backstop yet.
	assert.False(t, cs.FullPass)

	// Now re-run with nothing on disk at all: both stored files are Removed,
	// moved=2, stored=2, ratio=1.0 > 0.5, triggering the backstop. The
	// (now-empty) Unchanged set folds into Changed, but Removed survives the
	// promotion so the pipeline's cleanup pass still drops their rows.
	cs2, err := c.Plan(ctx, fs, "/repo", repoID, nil, false)
	require.NoError(t, err)
	assert.True(t, cs2.FullPass)
	assert.Empty(t, cs2.Unchanged)
	assert.Len(t, cs2.Removed, 2)
}

// TestIncrementalControllerPlanForceFullAnalysis covers the
// config.Config.ForceFullAnalysis escape hatch: even with fully matching
// hashes, every discovered file is re-parsed.
func TestIncrementalControllerPlanForceFullAnalysis(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := []byte("export const a = 1;")
	require.NoError(t, afero.WriteFile(fs, "/repo/a.ts", content, 0644))

	s := openTestStore(t)
	ctx := context.Background()
	repoID := store.RepositoryID("/repo")
	require.NoError(t, s.EnsureRepository(ctx, model.Repository{ID: repoID, Name: "repo", RootPath: "/repo"}))
	fileID := store.FileID(repoID, "a.ts")
	require.NoError(t, s.WriteFileBatch(ctx, []model.File{
		{ID: fileID, RepositoryID: repoID, Path: "a.ts", Language: model.LanguageTypeScript, ContentHash: contentHash(content)},
	}, nil, nil, nil, nil))

	c := NewIncrementalController(s, nil)
	cs, err := c.Plan(ctx, fs, "/repo", repoID, []walker.FileInfo{
		{Path: "a.ts", FullPath: "/repo/a.ts", Language: model.LanguageTypeScript},
	}, true)
	require.NoError(t, err)

	assert.True(t, cs.FullPass)
	require.Len(t, cs.Changed, 1)
	require.NotNil(t, cs.Changed[0].Stored)
	assert.Empty(t, cs.Unchanged)
}

func TestContentHashIsStableAndSensitiveToContent(t *testing.T) {
	a := contentHash([]byte("hello"))
	b := contentHash([]byte("hello"))
	c := contentHash([]byte("world"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
