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

	"github.com/opengraph-dev/compass/pkg/config"
)

const pipelineFixtureBar = `export function bar() {
  return 1;
}
`

const pipelineFixtureFoo = `import { bar } from './bar';

export function foo() {
  return bar();
}
`

func newPipelineFixture(t *testing.T) (afero.Fs, func()) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/bar.ts", []byte(pipelineFixtureBar), 0644))
	require.NoError(t, afero.WriteFile(fs, "/repo/foo.ts", []byte(pipelineFixtureFoo), 0644))
	return fs, func() {}
}

// TestPipelineRunFullPass covers a first-ever analysis run: every file is
// parsed, the cross-file import and call dependency both resolve, and the
// resulting edges land in the store.
func TestPipelineRunFullPass(t *testing.T) {
	fs, _ := newPipelineFixture(t)
	s := openTestStore(t)
	p := NewPipeline(fs, s, nil)

	summary, err := p.Run(context.Background(), "/repo", "repo", config.Default())
	require.NoError(t, err)

	assert.True(t, summary.FullPass)
	assert.Equal(t, 2, summary.FilesWalked)
	assert.Equal(t, 2, summary.FilesParsed)
	assert.Equal(t, 0, summary.FilesSkippedUnchanged)
	assert.Equal(t, 0, summary.FilesRemoved)
	assert.Equal(t, 2, summary.SymbolsExtracted, "foo and bar function symbols")
	assert.Equal(t, 1, summary.ImportsExtracted)
	assert.Equal(t, 2, summary.ExportsExtracted)
	assert.GreaterOrEqual(t, len(summary.ParseErrors), 0)
	assert.Equal(t, 1, summary.FileEdgesWritten, "foo.ts's relative import of ./bar resolves to a file edge")
	assert.Equal(t, 1, summary.SymbolEdgesWritten, "foo()'s call to bar() resolves to a symbol edge")
	assert.Equal(t, 0, summary.UnresolvedDependencies)
}

// TestPipelineRunIncrementalSkipsUnchangedFiles covers spec.md §4.7: a
// second run over an untouched repository re-parses nothing and reports
// every file as unchanged.
func TestPipelineRunIncrementalSkipsUnchangedFiles(t *testing.T) {
	fs, _ := newPipelineFixture(t)
	s := openTestStore(t)
	p := NewPipeline(fs, s, nil)
	ctx := context.Background()

	_, err := p.Run(ctx, "/repo", "repo", config.Default())
	require.NoError(t, err)

	summary, err := p.Run(ctx, "/repo", "repo", config.Default())
	require.NoError(t, err)

	assert.False(t, summary.FullPass)
	assert.Equal(t, 0, summary.FilesParsed)
	assert.Equal(t, 2, summary.FilesSkippedUnchanged)
	assert.Equal(t, 0, summary.SymbolsExtracted, "nothing changed, so no new symbol rows are written this pass")
}

// TestPipelineRunIncrementalReparsesModifiedFile covers a single-file edit:
// only the modified file goes through parse/resolve, but its revised
// content (now calling bar() twice) still resolves against the untouched
// sibling file because the pipeline loads unchanged files' stored symbols
// back into the resolver's context set.
func TestPipelineRunIncrementalReparsesModifiedFile(t *testing.T) {
	fs, _ := newPipelineFixture(t)
	s := openTestStore(t)
	p := NewPipeline(fs, s, nil)
	ctx := context.Background()

	_, err := p.Run(ctx, "/repo", "repo", config.Default())
	require.NoError(t, err)

	updated := `import { bar } from './bar';

export function foo() {
  bar();
  return bar();
}
`
	require.NoError(t, afero.WriteFile(fs, "/repo/foo.ts", []byte(updated), 0644))

	summary, err := p.Run(ctx, "/repo", "repo", config.Default())
	require.NoError(t, err)

	assert.False(t, summary.FullPass)
	assert.Equal(t, 1, summary.FilesParsed)
	assert.Equal(t, 1, summary.FilesSkippedUnchanged)
	assert.Equal(t, 1, summary.SymbolsExtracted, "only foo.ts's foo() symbol is re-extracted")
	assert.Equal(t, 2, summary.SymbolEdgesWritten, "each bar() call site is a distinct line, so both resolve to their own foo->bar edge")
}

// TestPipelineRunDetectsRemovedFile covers a file deleted from disk: its
// stored rows are dropped and the summary reports it as removed rather
// than parsed.
func TestPipelineRunDetectsRemovedFile(t *testing.T) {
	fs, _ := newPipelineFixture(t)
	s := openTestStore(t)
	p := NewPipeline(fs, s, nil)
	ctx := context.Background()

	_, err := p.Run(ctx, "/repo", "repo", config.Default())
	require.NoError(t, err)

	require.NoError(t, fs.Remove("/repo/foo.ts"))

	summary, err := p.Run(ctx, "/repo", "repo", config.Default())
	require.NoError(t, err)

	assert.False(t, summary.FullPass)
	assert.Equal(t, 1, summary.FilesRemoved)
	assert.Equal(t, 1, summary.FilesWalked)
	assert.Equal(t, 0, summary.FilesParsed)
}
