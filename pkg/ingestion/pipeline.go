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
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/opengraph-dev/compass/pkg/config"
	"github.com/opengraph-dev/compass/pkg/framework"
	"github.com/opengraph-dev/compass/pkg/graph"
	"github.com/opengraph-dev/compass/pkg/model"
	"github.com/opengraph-dev/compass/pkg/parse"
	"github.com/opengraph-dev/compass/pkg/resolver"
	"github.com/opengraph-dev/compass/pkg/store"
	"github.com/opengraph-dev/compass/pkg/walker"
)

// parallelWorkerThreshold is the file count below which the pipeline skips
// the worker pool and parses sequentially, matching the teacher's
// LocalPipeline.parseFilesParallel/parseFilesSequential split (the pool's
// setup cost is not worth it for a handful of files).
const parallelWorkerThreshold = 10

// ParseErrorSummary is one sampled parse error surfaced in a run Summary.
type ParseErrorSummary struct {
	Path    string
	Message string
}

// maxParseErrorSamples bounds how many individual errors a Summary carries;
// the remainder is still counted, never silently dropped.
const maxParseErrorSamples = 20

// Summary reports what one Pipeline.Run call did, the Compass analog of
// the teacher's IngestionResult (pkg/ingestion/local_pipeline.go) with the
// embedding-specific fields replaced by graph-assembly counts.
type Summary struct {
	RepositoryID int64
	FullPass     bool

	FilesWalked           int
	FilesParsed           int
	FilesSkippedUnchanged int
	FilesRemoved          int

	SymbolsExtracted         int
	ImportsExtracted         int
	ExportsExtracted         int
	RawDependenciesExtracted int

	FileEdgesWritten      int
	SymbolEdgesWritten    int
	UnresolvedDependencies int
	RebindCount           int

	ParseErrors          []ParseErrorSummary
	ParseErrorsOmitted   int
	WalkSkipReasons      map[string]int

	WalkDuration    time.Duration
	ParseDuration   time.Duration
	ResolveDuration time.Duration
	WriteDuration   time.Duration
	TotalDuration   time.Duration
}

// Pipeline orchestrates one analysis run: walk, detect frameworks, parse,
// resolve, assemble the graph, and write everything to the store. Grounded
// on the teacher's LocalPipeline (pkg/ingestion/local_pipeline.go), with
// its embedding generation, cross-package CallResolver and
// RepoLoader/DatalogBuilder machinery replaced end to end by
// walker/framework/parse/resolver/graph, since Compass has no embedding
// domain.
type Pipeline struct {
	fs      afero.Fs
	store   *store.Store
	logger  *slog.Logger
	batcher *Batcher
}

// writeTargetMutations and writeMaxScriptSize bound the mutation scripts
// the write stage hands to Store.Execute in one transaction, matching the
// teacher's own documented Batcher call shape (NewBatcher(1000, 2MiB)).
const (
	writeTargetMutations = 1000
	writeMaxScriptSize   = 2 << 20
)

// NewPipeline returns a Pipeline that reads source through fs and persists
// through s.
func NewPipeline(fs afero.Fs, s *store.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fs:      fs,
		store:   s,
		logger:  logger,
		batcher: NewBatcher(writeTargetMutations, writeMaxScriptSize),
	}
}

// Run executes one full or incremental analysis pass over rootPath.
func (p *Pipeline) Run(ctx context.Context, rootPath, repoName string, cfg config.Config) (*Summary, error) {
	runStart := time.Now()
	rootPath = filepath.ToSlash(filepath.Clean(rootPath))
	repositoryID := store.RepositoryID(rootPath)

	walkStart := time.Now()
	wres, err := walker.New(p.fs, p.logger).Walk(walker.Config{
		RootPath:                    rootPath,
		IncludeVendoredDependencies: cfg.IncludeVendoredDependencies,
		IncludeTestFiles:            cfg.IncludeTestFiles,
		MaxFileSize:                 cfg.MaxFileSize,
		MaxFiles:                    cfg.MaxFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", rootPath, err)
	}
	walkDuration := time.Since(walkStart)
	observeStageDuration("walk", walkDuration)
	recordFilesWalked(len(wres.Files))
	for reason, n := range wres.SkipReasons {
		recordFilesSkipped(reason, n)
	}

	fwSet, err := framework.Detect(p.fs, rootPath)
	if err != nil {
		return nil, fmt.Errorf("detect frameworks: %w", err)
	}

	if err := p.store.EnsureRepository(ctx, model.Repository{
		ID:              repositoryID,
		Name:            repoName,
		RootPath:        rootPath,
		PrimaryLanguage: string(primaryLanguage(wres.Languages)),
		Frameworks:      sortedTags(fwSet.Tags),
		LastIndexedAt:   runStart.Unix(),
	}); err != nil {
		return nil, fmt.Errorf("ensure repository: %w", err)
	}

	controller := NewIncrementalController(p.store, p.logger)
	changeSet, err := controller.Plan(ctx, p.fs, rootPath, repositoryID, wres.Files, cfg.ForceFullAnalysis)
	if err != nil {
		return nil, fmt.Errorf("plan incremental changes: %w", err)
	}

	// Transactional update: drop everything a changed or removed file
	// contributed before the new data for it (if any) is written, per
	// spec.md §4.7.
	for _, f := range changeSet.Removed {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		if err := p.store.CleanupFileData(ctx, f.ID); err != nil {
			return nil, fmt.Errorf("cleanup removed file %s: %w", f.Path, err)
		}
	}
	for _, cf := range changeSet.Changed {
		if cf.Stored == nil {
			continue
		}
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		if err := p.store.CleanupFileData(ctx, cf.Stored.ID); err != nil {
			return nil, fmt.Errorf("cleanup changed file %s: %w", cf.Info.Path, err)
		}
	}

	parseStart := time.Now()
	parseResults, parseErrors, err := p.parseChanged(ctx, changeSet.Changed, cfg)
	if err != nil {
		return nil, err
	}
	parseDuration := time.Since(parseStart)
	observeStageDuration("parse", parseDuration)

	aliasRoots := loadAliasRoots(p.fs, rootPath)
	autoload := resolver.LoadPHPAutoloader(p.fs, rootPath)
	registry := resolver.NewRegistry()

	resolveStart := time.Now()

	newContexts := make([]*resolver.FileContext, 0, len(changeSet.Changed))
	newFiles := make([]model.File, 0, len(changeSet.Changed))
	var newSymbols []model.Symbol
	var newImports []model.Import
	var newExports []model.Export
	var newRawDeps []model.RawDependency
	newQualifiedNames := make(map[string]bool)

	for i, cf := range changeSet.Changed {
		fileID := store.FileID(repositoryID, cf.Info.Path)
		result := parseResults[i]

		file := model.File{
			ID:           fileID,
			RepositoryID: repositoryID,
			Path:         cf.Info.Path,
			Language:     cf.Info.Language,
			Size:         cf.Info.Size,
			MTime:        fileModTime(p.fs, cf.Info.FullPath),
			ContentHash:  cf.Hash,
			IsTest:       walker.IsTestPath(cf.Info.Path),
			IsGenerated:  false,
		}
		newFiles = append(newFiles, file)

		fc := &resolver.FileContext{FileID: fileID, Path: file.Path, Language: file.Language}
		if !result.HasFatalError() {
			symbols := assignSymbolIDs(fileID, result.Symbols)
			imports := assignImportIDs(fileID, result.Imports)
			exports := assignExportIDs(fileID, result.Exports)
			deps := assignRawDependencyIDs(fileID, result.RawDependencies)

			newSymbols = append(newSymbols, symbols...)
			newImports = append(newImports, imports...)
			newExports = append(newExports, exports...)
			newRawDeps = append(newRawDeps, deps...)

			fc.Symbols, fc.Imports, fc.Exports = symbols, imports, exports
			for _, sym := range symbols {
				if sym.QualifiedName != "" {
					newQualifiedNames[sym.QualifiedName] = true
				}
			}
		}
		newContexts = append(newContexts, fc)
	}

	unchangedContexts, err := p.loadUnchangedContexts(ctx, changeSet.Unchanged)
	if err != nil {
		return nil, fmt.Errorf("load unchanged file contexts: %w", err)
	}

	allContexts := append(append([]*resolver.FileContext{}, newContexts...), unchangedContexts...)
	fileIDByPath := make(map[string]int64, len(allContexts))
	for _, fc := range allContexts {
		fileIDByPath[fc.Path] = fc.FileID
	}

	res := resolver.New(p.logger)
	res.Init(allContexts, aliasRoots, autoload, registry)

	var fileEdges []model.FileEdge
	var symbolEdges []model.SymbolEdge
	unresolved := 0

	for _, fc := range newContexts {
		edges := graph.BuildFileEdges(fc.FileID, fc.Path, fc.Imports, fileIDByPath, aliasRoots, p.logger)
		fileEdges = append(fileEdges, edges...)

		resolutions := res.ResolveFileDependencies(fc, depsForFile(fc.FileID, newRawDeps))

		bySource := make(map[int64][]graph.Resolution)
		for _, r := range resolutions {
			// Counted against the resolver's own six-step dispatch
			// (spec.md §4.5); a later name-index fallback admission in
			// BuildSymbolEdges is a separate, lower-confidence rescue and
			// is not subtracted back out of this count.
			if r.SymbolID == 0 {
				unresolved++
			}
			from := res.ResolveFromSymbolID(fc, r.Dependency)
			bySource[from] = append(bySource[from], r)
		}
		for from, rs := range bySource {
			if from == 0 {
				continue
			}
			symbolEdges = append(symbolEdges, graph.BuildSymbolEdges(from, rs, res, p.logger)...)
		}
	}

	rebindCount, err := p.rebindUnresolved(ctx, newQualifiedNames, res)
	if err != nil {
		return nil, fmt.Errorf("rebind unresolved symbol edges: %w", err)
	}

	resolveDuration := time.Since(resolveStart)
	observeStageDuration("resolve", resolveDuration)

	writeStart := time.Now()
	fileBatch := store.NewMutationBuilder().
		PutFiles(newFiles).
		PutSymbols(newSymbols).
		PutImports(newImports).
		PutExports(newExports).
		PutRawDependencies(newRawDeps)
	if err := p.writeBatched(ctx, fileBatch); err != nil {
		return nil, fmt.Errorf("write file batch: %w", err)
	}
	frameworkEntities := collectFrameworkEntities(repositoryID, parseResults)
	edgeBatch := store.NewMutationBuilder().
		PutFileEdges(fileEdges).
		PutSymbolEdges(symbolEdges).
		PutFrameworkEntities(frameworkEntities)
	if err := p.writeBatched(ctx, edgeBatch); err != nil {
		return nil, fmt.Errorf("write resolved edges: %w", err)
	}
	writeDuration := time.Since(writeStart)
	observeStageDuration("write", writeDuration)

	samples, omitted := sampleParseErrors(parseErrors)

	summary := &Summary{
		RepositoryID:             repositoryID,
		FullPass:                 changeSet.FullPass,
		FilesWalked:              len(wres.Files),
		FilesParsed:              len(changeSet.Changed),
		FilesSkippedUnchanged:    len(changeSet.Unchanged),
		FilesRemoved:             len(changeSet.Removed),
		SymbolsExtracted:         len(newSymbols),
		ImportsExtracted:         len(newImports),
		ExportsExtracted:         len(newExports),
		RawDependenciesExtracted: len(newRawDeps),
		FileEdgesWritten:         len(fileEdges),
		SymbolEdgesWritten:       len(symbolEdges),
		UnresolvedDependencies:   unresolved,
		RebindCount:              rebindCount,
		ParseErrors:              samples,
		ParseErrorsOmitted:       omitted,
		WalkSkipReasons:          wres.SkipReasons,
		WalkDuration:             walkDuration,
		ParseDuration:            parseDuration,
		ResolveDuration:          resolveDuration,
		WriteDuration:            writeDuration,
		TotalDuration:            time.Since(runStart),
	}
	recordSymbolsWritten(summary.SymbolsExtracted)
	recordRawDependenciesWritten(summary.RawDependenciesExtracted)
	recordFileEdgesWritten(summary.FileEdgesWritten)
	recordSymbolEdgesWritten(summary.SymbolEdgesWritten)
	recordUnresolvedDependencies(summary.UnresolvedDependencies)

	return summary, nil
}

// parseChanged parses every changed file, in the worker-pool/sequential
// split the teacher's LocalPipeline uses, preserving changeSet.Changed's
// path order in the returned slice regardless of completion order so
// resolution sees a deterministic merge per spec.md §5.
func (p *Pipeline) parseChanged(ctx context.Context, changed []ChangedFile, cfg config.Config) ([]*parse.ParseResult, []ParseErrorSummary, error) {
	registry := parse.NewRegistry(parse.Options{
		ChunkingThreshold: int(cfg.ChunkingThreshold),
		ChunkOverlapLines: cfg.ChunkOverlapLines,
	})

	results := make([]*parse.ParseResult, len(changed))
	var errsMu sync.Mutex
	var errs []ParseErrorSummary

	record := func(idx int, res *parse.ParseResult) {
		results[idx] = res
		for _, e := range res.Errors {
			if e.Severity != parse.SeverityError {
				continue
			}
			errsMu.Lock()
			errs = append(errs, ParseErrorSummary{Path: changed[idx].Info.Path, Message: e.Message})
			errsMu.Unlock()
		}
	}

	parseOne := func(idx int) {
		cf := changed[idx]
		parser, ok := registry.ForLanguage(cf.Info.Language)
		if !ok {
			record(idx, &parse.ParseResult{})
			return
		}
		record(idx, parse.ParseWithTimeout(ctx, parser, cf.Info.Path, cf.Content, parse.DefaultParseTimeout))
	}

	if !cfg.ParallelParsing || len(changed) < parallelWorkerThreshold {
		for i := range changed {
			if err := checkCancel(ctx); err != nil {
				return nil, nil, err
			}
			parseOne(i)
		}
		return results, errs, nil
	}

	workers := cfg.MaxConcurrency
	if workers <= 0 {
		workers = 1
	}

	// Tree-sitter parsers are not goroutine-safe, so each Parse call builds
	// its own sitter.Parser and the one registry is shared by all workers;
	// errgroup.WithContext propagates the first fatal error
	// (and ctx cancellation) across the pool instead of swallowing it in a
	// side channel the way a raw WaitGroup pool would.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range changed {
		idx := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parseOne(idx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return results, errs, nil
}

func (p *Pipeline) loadUnchangedContexts(ctx context.Context, files []model.File) ([]*resolver.FileContext, error) {
	contexts := make([]*resolver.FileContext, 0, len(files))
	for _, f := range files {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		symbols, err := p.store.SymbolsInFile(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		imports, err := p.store.ImportsInFile(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		exports, err := p.store.ExportsInFile(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, &resolver.FileContext{
			FileID: f.ID, Path: f.Path, Language: f.Language,
			Symbols: symbols, Imports: imports, Exports: exports,
		})
	}
	return contexts, nil
}

// rebindUnresolved implements the second half of spec.md §4.7's
// transactional update: files outside the changed set whose dependency on
// a now-reintroduced qualified name was previously left unresolved
// (recorded by CleanupFileData as a to_symbol=0 row) get re-bound without
// needing a full re-parse of their file.
func (p *Pipeline) rebindUnresolved(ctx context.Context, newQualifiedNames map[string]bool, res *resolver.Resolver) (int, error) {
	if len(newQualifiedNames) == 0 {
		return 0, nil
	}
	stale, err := p.store.UnresolvedSymbolEdges(ctx)
	if err != nil {
		return 0, err
	}
	var staleMatched, resolved []model.SymbolEdge
	for _, e := range stale {
		if !newQualifiedNames[e.ToQualifiedName] {
			continue
		}
		target, ok := res.SymbolIDByQualifiedName(e.ToQualifiedName)
		if !ok {
			continue
		}
		staleMatched = append(staleMatched, e)
		bound := e
		bound.ToSymbol = target
		resolved = append(resolved, bound)
	}
	if len(staleMatched) == 0 {
		return 0, nil
	}
	if err := p.store.RebindSymbolEdges(ctx, staleMatched, resolved); err != nil {
		return 0, err
	}
	return len(staleMatched), nil
}

// writeBatched splits a mutation builder's script into batches via
// p.batcher before executing each one, so a full pass over a large
// repository never hands CozoDB a single transaction script scaling with
// the whole repository's symbol count.
func (p *Pipeline) writeBatched(ctx context.Context, b *store.MutationBuilder) error {
	if b.Empty() {
		return nil
	}
	batches, err := p.batcher.Batch(b.Build())
	if err != nil {
		return err
	}
	for _, batch := range batches {
		if err := p.store.Execute(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func checkCancel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func assignSymbolIDs(fileID int64, symbols []model.Symbol) []model.Symbol {
	out := make([]model.Symbol, len(symbols))
	for i, s := range symbols {
		s.FileID = fileID
		s.ID = store.SymbolID(fileID, s.Name, string(s.SymbolType), s.StartLine)
		out[i] = s
	}
	return out
}

func assignImportIDs(fileID int64, imports []model.Import) []model.Import {
	out := make([]model.Import, len(imports))
	for i, imp := range imports {
		imp.FileID = fileID
		imp.ID = store.ImportID(fileID, imp.Specifier, imp.Line)
		out[i] = imp
	}
	return out
}

func assignExportIDs(fileID int64, exports []model.Export) []model.Export {
	out := make([]model.Export, len(exports))
	for i, e := range exports {
		e.FileID = fileID
		e.ID = store.ExportID(fileID, e.Name, e.Line)
		out[i] = e
	}
	return out
}

func assignRawDependencyIDs(fileID int64, deps []model.RawDependency) []model.RawDependency {
	out := make([]model.RawDependency, len(deps))
	for i, d := range deps {
		d.FileID = fileID
		d.ID = store.RawDependencyID(fileID, d.TargetName, string(d.Kind), d.Line, d.CallInstanceID)
		out[i] = d
	}
	return out
}

func depsForFile(fileID int64, deps []model.RawDependency) []model.RawDependency {
	out := make([]model.RawDependency, 0)
	for _, d := range deps {
		if d.FileID == fileID {
			out = append(out, d)
		}
	}
	return out
}

func collectFrameworkEntities(repositoryID int64, results []*parse.ParseResult) []model.FrameworkEntity {
	var out []model.FrameworkEntity
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, e := range r.FrameworkEntities {
			e.RepositoryID = repositoryID
			out = append(out, e)
		}
	}
	return out
}

func sampleParseErrors(errs []ParseErrorSummary) ([]ParseErrorSummary, int) {
	if len(errs) <= maxParseErrorSamples {
		return errs, 0
	}
	return errs[:maxParseErrorSamples], len(errs) - maxParseErrorSamples
}

func primaryLanguage(counts map[model.Language]int) model.Language {
	var best model.Language
	bestCount := -1
	for lang, n := range counts {
		if n > bestCount || (n == bestCount && lang < best) {
			best, bestCount = lang, n
		}
	}
	return best
}

func sortedTags(tags map[string]bool) []string {
	out := make([]string, 0, len(tags))
	for t, on := range tags {
		if on {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func fileModTime(fs afero.Fs, fullPath string) int64 {
	info, err := fs.Stat(fullPath)
	if err != nil {
		return 0
	}
	return info.ModTime().Unix()
}

// defaultAliasRoots covers spec.md §4.6's "project-root aliases like src/
// or @/" when no tsconfig.json is present.
var defaultAliasRoots = map[string]string{"@": "src"}

type tsconfig struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// loadAliasRoots reads tsconfig.json's compilerOptions.paths, generalizing
// `"@/*": ["src/*"]`-style entries into the prefix->dir map
// graph.ResolveRelativeImport expects. Absence or a malformed file falls
// back to defaultAliasRoots, matching pkg/framework's "absence is not
// fatal" convention for optional manifests.
func loadAliasRoots(fs afero.Fs, root string) map[string]string {
	data, err := afero.ReadFile(fs, filepath.Join(root, "tsconfig.json"))
	if err != nil {
		return defaultAliasRoots
	}
	var cfg tsconfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return defaultAliasRoots
	}
	if len(cfg.CompilerOptions.Paths) == 0 {
		return defaultAliasRoots
	}
	baseURL := strings.TrimSuffix(cfg.CompilerOptions.BaseURL, "/")
	roots := make(map[string]string, len(cfg.CompilerOptions.Paths))
	for prefix, targets := range cfg.CompilerOptions.Paths {
		if len(targets) == 0 {
			continue
		}
		prefix = strings.TrimSuffix(prefix, "/*")
		dir := strings.TrimSuffix(targets[0], "/*")
		if baseURL != "" && baseURL != "." {
			dir = filepath.ToSlash(filepath.Join(baseURL, dir))
		}
		roots[prefix] = dir
	}
	if len(roots) == 0 {
		return defaultAliasRoots
	}
	return roots
}
