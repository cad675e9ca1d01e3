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

// Package resolver turns raw, syntax-level dependencies into resolved
// symbol-graph edges. It is grounded on the teacher's CallResolver
// (pkg/ingestion/resolver.go): a read-only index built once per analysis
// pass, consulted by deterministic, priority-ordered strategies.
package resolver

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/opengraph-dev/compass/pkg/graph"
	"github.com/opengraph-dev/compass/pkg/model"
	"github.com/opengraph-dev/compass/pkg/store"
)

// FileContext bundles everything a resolver strategy needs about the file
// a raw dependency was extracted from, per spec.md §4.5 "Initialization".
type FileContext struct {
	FileID   int64
	Path     string
	Language model.Language
	Symbols  []model.Symbol
	Imports  []model.Import
	Exports  []model.Export
}

type exportedSymbol struct {
	symbol model.Symbol
	fileID int64
}

// Resolver holds the read-only, per-pass indexes every strategy consults.
// A Resolver is built once per analysis pass and never mutated concurrently
// while strategies run (spec.md §5 "shared resource discipline").
type Resolver struct {
	logger *slog.Logger

	contextsByFile map[int64]*FileContext
	pathToFileID   map[string]int64

	symbolsByName  map[string][]model.Symbol
	exportedByName map[string][]exportedSymbol
	byQualified    map[string]model.Symbol

	aliasRoots    map[string]string
	autoload      *PHPAutoloader
	registry      *Registry
	namespaceByFile map[int64]string
	fieldTypesByFile map[int64]map[string]string
	interfaceImpl    map[string]string
}

// New constructs an empty Resolver; call Init before resolving anything.
func New(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		logger:         logger,
		contextsByFile: make(map[int64]*FileContext),
		pathToFileID:   make(map[string]int64),
		symbolsByName:    make(map[string][]model.Symbol),
		exportedByName:   make(map[string][]exportedSymbol),
		byQualified:      make(map[string]model.Symbol),
		namespaceByFile:  make(map[int64]string),
		fieldTypesByFile: make(map[int64]map[string]string),
		interfaceImpl:    make(map[string]string),
	}
}

// Init builds the three in-memory maps spec.md §4.5 describes from the
// contexts of every file in the current analysis pass. It is called once
// per pass; the resulting indexes are read-only afterwards.
func (r *Resolver) Init(contexts []*FileContext, aliasRoots map[string]string, autoload *PHPAutoloader, registry *Registry) {
	r.aliasRoots = aliasRoots
	r.autoload = autoload
	r.registry = registry

	interfaceImplementers := make(map[string][]string)
	for _, fc := range contexts {
		if fc.Language != model.LanguageCSharp {
			continue
		}
		for _, sym := range fc.Symbols {
			if sym.SymbolType != model.SymbolClass || sym.DeclaredType == "" {
				continue
			}
			for _, base := range strings.Split(sym.DeclaredType, ",") {
				if base == "" {
					continue
				}
				interfaceImplementers[base] = append(interfaceImplementers[base], sym.Name)
			}
		}
	}
	for iface, classes := range interfaceImplementers {
		if len(classes) == 1 {
			r.interfaceImpl[iface] = classes[0]
		} else {
			r.logger.Debug("resolver.interface_impl.ambiguous", "interface", iface, "implementers", len(classes))
		}
	}

	for _, fc := range contexts {
		r.contextsByFile[fc.FileID] = fc
		r.pathToFileID[fc.Path] = fc.FileID

		ns := fileNamespace(fc.Symbols)
		r.namespaceByFile[fc.FileID] = ns
		r.fieldTypesByFile[fc.FileID] = buildFieldTypeMap(fc.Symbols)

		for _, sym := range fc.Symbols {
			r.symbolsByName[sym.Name] = append(r.symbolsByName[sym.Name], sym)
			if sym.QualifiedName != "" {
				r.byQualified[sym.QualifiedName] = sym
				if ns != "" && sym.SymbolType == model.SymbolMethod {
					r.byQualified[ns+`\`+sym.QualifiedName] = sym
				}
			}
		}
		exportedNames := make(map[string]bool, len(fc.Exports))
		for _, exp := range fc.Exports {
			exportedNames[exp.Name] = true
		}
		for _, sym := range fc.Symbols {
			if sym.IsExported || exportedNames[sym.Name] {
				r.exportedByName[sym.Name] = append(r.exportedByName[sym.Name], exportedSymbol{symbol: sym, fileID: fc.FileID})
			}
		}
	}
}

// fileNamespace infers a PHP file's namespace from the qualified name of
// any class/interface symbol it declares (the parser folds `namespace
// Foo\Bar;` directly into Symbol.QualifiedName).
func fileNamespace(symbols []model.Symbol) string {
	for _, sym := range symbols {
		if sym.SymbolType != model.SymbolClass && sym.SymbolType != model.SymbolInterface {
			continue
		}
		if i := strings.LastIndex(sym.QualifiedName, `\`); i >= 0 {
			return sym.QualifiedName[:i]
		}
	}
	return ""
}

// buildFieldTypeMap collects a C# file's field/property declared types,
// keyed by field name, for the field_call_<f> resolution context
// (SPEC_FULL.md §4.5.2).
func buildFieldTypeMap(symbols []model.Symbol) map[string]string {
	m := make(map[string]string)
	for _, sym := range symbols {
		if sym.SymbolType == model.SymbolField && sym.DeclaredType != "" {
			m[sym.Name] = sym.DeclaredType
		}
	}
	return m
}

// CandidatesByName implements graph.NameIndex, letting BuildSymbolEdges
// reuse the same name index for its single-candidate fallback admission.
func (r *Resolver) CandidatesByName(name string) []int64 {
	syms := r.symbolsByName[name]
	if len(syms) == 0 {
		return nil
	}
	ids := make([]int64, len(syms))
	for i, s := range syms {
		ids[i] = s.ID
	}
	return ids
}

// SymbolIDByQualifiedName looks up a symbol's id by its exact qualified
// name, used by the Incremental Controller to rebind a previously
// unresolved symbol_edge once the symbol it names reappears in this pass.
func (r *Resolver) SymbolIDByQualifiedName(qualifiedName string) (int64, bool) {
	sym, ok := r.byQualified[qualifiedName]
	if !ok {
		return 0, false
	}
	return sym.ID, true
}

// FileIDForPath looks up a file already indexed in this pass.
func (r *Resolver) FileIDForPath(path string) (int64, bool) {
	id, ok := r.pathToFileID[path]
	return id, ok
}

// fileExists adapts the path index to pathresolve's `exists` signature.
func (r *Resolver) fileExists(path string) bool {
	_, ok := r.pathToFileID[path]
	return ok
}

// ResolveFromSymbolID finds the id of the symbol that owns a raw
// dependency within its file: the parser's own guess (FromSymbolID) if it
// supplied one, otherwise the innermost same-file symbol whose line range
// contains the dependency's line, falling back to a same-name match.
func (r *Resolver) ResolveFromSymbolID(fc *FileContext, dep model.RawDependency) int64 {
	if dep.FromSymbolID != 0 {
		return dep.FromSymbolID
	}
	var best *model.Symbol
	for i := range fc.Symbols {
		sym := &fc.Symbols[i]
		if sym.StartLine <= dep.Line && dep.Line <= sym.EndLine {
			if best == nil || sym.StartLine > best.StartLine {
				best = sym
			}
		}
	}
	if best != nil {
		return best.ID
	}
	for i := range fc.Symbols {
		if fc.Symbols[i].Name == dep.FromSymbolName {
			return fc.Symbols[i].ID
		}
	}
	return 0
}

// ResolveFileDependencies resolves every raw dependency extracted from one
// file, in the strategy order spec.md §4.5 specifies.
func (r *Resolver) ResolveFileDependencies(fc *FileContext, deps []model.RawDependency) []graph.Resolution {
	out := make([]graph.Resolution, 0, len(deps))
	for _, dep := range deps {
		out = append(out, r.Resolve(fc, dep))
	}
	return out
}

// Resolve applies the six-step strategy ordering to a single raw
// dependency and reports which strategy, if any, produced a match.
func (r *Resolver) Resolve(fc *FileContext, dep model.RawDependency) graph.Resolution {
	res := graph.Resolution{Dependency: dep}

	// Step 1: language-specific qualified resolution.
	symID, tag, handled, forceUnresolved := r.languageStrategy(fc, dep)
	if handled {
		res.SymbolID, res.Strategy = symID, tag
		return res
	}
	if forceUnresolved {
		return res
	}

	// Step 2: local scope.
	if id := r.localScope(fc, dep.TargetName); id != 0 {
		res.SymbolID, res.Strategy = id, "local_scope"
		return res
	}

	// Step 3: import-mediated.
	if id, ok := r.importMediated(fc, dep.TargetName); ok {
		res.SymbolID, res.Strategy = id, "import_mediated"
		return res
	}

	// Step 4: single-global-export fallback.
	if id, ok := r.singleGlobalExport(dep.TargetName); ok {
		res.SymbolID, res.Strategy = id, "single_global_export"
		return res
	}

	// Step 5: framework/external registry.
	if r.registry != nil {
		if id, ok := r.registry.Lookup(dep.TargetName, string(fc.Language), r.importHint(fc, dep.TargetName)); ok {
			res.SymbolID, res.Strategy = id, "framework_registry"
			return res
		}
	}

	// Step 6: unresolved.
	return res
}

func (r *Resolver) languageStrategy(fc *FileContext, dep model.RawDependency) (symbolID int64, tag string, handled bool, forceUnresolved bool) {
	switch fc.Language {
	case model.LanguagePHP:
		return r.resolvePHP(fc, dep)
	case model.LanguageCSharp:
		return r.resolveCSharp(fc, dep)
	case model.LanguageJavaScript, model.LanguageTypeScript, model.LanguageVue:
		return r.resolveJavaScript(fc, dep)
	default:
		return 0, "", false, false
	}
}

func (r *Resolver) localScope(fc *FileContext, targetName string) int64 {
	name := lastSegment(targetName)
	for _, sym := range fc.Symbols {
		if sym.Name == name {
			return sym.ID
		}
	}
	return 0
}

func (r *Resolver) importMediated(fc *FileContext, targetName string) (int64, bool) {
	name := lastSegment(targetName)
	for _, imp := range fc.Imports {
		if !containsName(imp.ImportedNames, name) {
			continue
		}
		if path, ok := r.resolveImportPath(fc, imp.Specifier); ok {
			if target, ok := r.contextsByFile[r.mustFileID(path)]; ok && target != nil {
				if id := symbolInFileByName(target, name); id != 0 {
					return id, true
				}
			}
			continue
		}
		candidates := r.exportedByName[name]
		switch len(candidates) {
		case 0:
			continue
		case 1:
			return candidates[0].symbol.ID, true
		default:
			r.logger.Debug("resolver.import_mediated.ambiguous", "name", name, "candidates", len(candidates))
			sorted := append([]exportedSymbol(nil), candidates...)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].symbol.ID < sorted[j].symbol.ID })
			return sorted[0].symbol.ID, true
		}
	}
	return 0, false
}

func (r *Resolver) singleGlobalExport(targetName string) (int64, bool) {
	name := lastSegment(targetName)
	candidates := r.exportedByName[name]
	if len(candidates) == 1 {
		return candidates[0].symbol.ID, true
	}
	return 0, false
}

// resolveImportPath resolves a relative/aliased import specifier to a file
// path already indexed in this pass, reusing pkg/graph's path resolution
// so the resolver and the file graph never diverge (spec.md §4.5.3).
func (r *Resolver) resolveImportPath(fc *FileContext, specifier string) (string, bool) {
	if !graph.IsRelativeSpecifier(specifier) && r.aliasRoots[firstSegment(specifier)] == "" {
		return "", false
	}
	return graph.ResolveRelativeImport(fc.Path, specifier, r.fileExists, nil, r.aliasRoots)
}

func (r *Resolver) mustFileID(path string) int64 {
	id, _ := r.pathToFileID[path]
	return id
}

func (r *Resolver) importHint(fc *FileContext, targetName string) string {
	receiver := firstSegment(targetName)
	for _, imp := range fc.Imports {
		if containsName(imp.ImportedNames, receiver) || imp.Alias == receiver {
			return imp.Specifier
		}
	}
	return ""
}

func symbolInFileByName(fc *FileContext, name string) int64 {
	for _, sym := range fc.Symbols {
		if sym.Name == name {
			return sym.ID
		}
	}
	return 0
}

func containsName(names []string, target string) bool {
	for _, n := range names {
		if n == target {
			return true
		}
	}
	return false
}

func lastSegment(target string) string {
	if i := strings.LastIndexAny(target, ".:"); i >= 0 && i+1 < len(target) {
		return strings.TrimLeft(target[i+1:], ":")
	}
	return target
}

func firstSegment(target string) string {
	if i := strings.IndexAny(target, ".:"); i >= 0 {
		return target[:i]
	}
	return target
}

// externalSymbolID derives the synthetic negative id for a framework/
// external symbol, mirroring the teacher's generateExternalStubID but in
// the int64 id space model.Symbol.ID expects (SPEC_FULL.md §4.5,
// "Framework/external registry").
func externalSymbolID(framework, name string) int64 {
	return store.ExternalSymbolID(framework + "::" + name)
}
