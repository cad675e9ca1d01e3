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
	"fmt"
	"strings"

	"github.com/opengraph-dev/compass/pkg/model"
)

// MutationBuilder accumulates CozoScript `:put`/`:rm` statements for a
// batch of entities and renders them as a single script that Store.Execute
// can run in one transaction.
type MutationBuilder struct {
	statements []string
}

// NewMutationBuilder returns an empty builder.
func NewMutationBuilder() *MutationBuilder {
	return &MutationBuilder{}
}

// Build joins the accumulated statements into one script. Empty builders
// produce an empty string; callers should skip executing it.
func (b *MutationBuilder) Build() string {
	return strings.Join(b.statements, "\n\n")
}

// Empty reports whether any statements have been added.
func (b *MutationBuilder) Empty() bool {
	return len(b.statements) == 0
}

// PutRepository upserts a repository row.
func (b *MutationBuilder) PutRepository(r model.Repository) *MutationBuilder {
	b.statements = append(b.statements, fmt.Sprintf(
		`{ ?[id, name, root_path, primary_language, frameworks, last_indexed_at, vcs_hash] <- `+
			`[[%d, %s, %s, %s, %s, %d, %s]] :put repository { id => name, root_path, primary_language, frameworks, last_indexed_at, vcs_hash } }`,
		r.ID, quoteString(r.Name), quoteString(r.RootPath), quoteString(r.PrimaryLanguage),
		quoteString(strings.Join(r.Frameworks, ",")), r.LastIndexedAt, quoteString(r.VCSHash),
	))
	return b
}

// PutFiles upserts a batch of file rows.
func (b *MutationBuilder) PutFiles(files []model.File) *MutationBuilder {
	if len(files) == 0 {
		return b
	}
	rows := make([]string, len(files))
	for i, f := range files {
		rows[i] = fmt.Sprintf("[%d, %d, %s, %s, %d, %d, %s, %s, %s]",
			f.ID, f.RepositoryID, quoteString(f.Path), quoteString(string(f.Language)),
			f.Size, f.MTime, quoteString(f.ContentHash), boolLit(f.IsTest), boolLit(f.IsGenerated))
	}
	b.statements = append(b.statements, fmt.Sprintf(
		`{ ?[id, repository_id, path, language, size, mtime, content_hash, is_test, is_generated] <- `+
			`[%s] :put file { id => repository_id, path, language, size, mtime, content_hash, is_test, is_generated } }`,
		strings.Join(rows, ", ")))
	return b
}

// PutSymbols upserts a batch of symbol rows.
func (b *MutationBuilder) PutSymbols(symbols []model.Symbol) *MutationBuilder {
	if len(symbols) == 0 {
		return b
	}
	rows := make([]string, len(symbols))
	for i, s := range symbols {
		rows[i] = fmt.Sprintf("[%d, %d, %s, %s, %d, %d, %s, %s, %s, %s, %s]",
			s.ID, s.FileID, quoteString(s.Name), quoteString(string(s.SymbolType)),
			s.StartLine, s.EndLine, boolLit(s.IsExported), quoteString(s.Visibility),
			quoteString(s.Signature), quoteString(s.QualifiedName), quoteString(s.DeclaredType))
	}
	b.statements = append(b.statements, fmt.Sprintf(
		`{ ?[id, file_id, name, symbol_type, start_line, end_line, is_exported, visibility, signature, qualified_name, declared_type] <- `+
			`[%s] :put symbol { id => file_id, name, symbol_type, start_line, end_line, is_exported, visibility, signature, qualified_name, declared_type } }`,
		strings.Join(rows, ", ")))
	return b
}

// PutImports upserts a batch of import rows.
func (b *MutationBuilder) PutImports(imports []model.Import) *MutationBuilder {
	if len(imports) == 0 {
		return b
	}
	rows := make([]string, len(imports))
	for i, imp := range imports {
		rows[i] = fmt.Sprintf("[%d, %d, %s, %s, %s, %d]",
			imp.ID, imp.FileID, quoteString(imp.Specifier), quoteString(string(imp.ImportType)),
			quoteString(strings.Join(imp.ImportedNames, ",")), imp.Line)
	}
	b.statements = append(b.statements, fmt.Sprintf(
		`{ ?[id, file_id, specifier, import_type, imported_names, line] <- `+
			`[%s] :put import { id => file_id, specifier, import_type, imported_names, line } }`,
		strings.Join(rows, ", ")))
	return b
}

// PutExports upserts a batch of export rows.
func (b *MutationBuilder) PutExports(exports []model.Export) *MutationBuilder {
	if len(exports) == 0 {
		return b
	}
	rows := make([]string, len(exports))
	for i, e := range exports {
		rows[i] = fmt.Sprintf("[%d, %d, %s, %d, %s]",
			e.ID, e.FileID, quoteString(e.Name), e.Line, quoteString(e.Kind))
	}
	b.statements = append(b.statements, fmt.Sprintf(
		`{ ?[id, file_id, name, line, kind] <- `+
			`[%s] :put export { id => file_id, name, line, kind } }`,
		strings.Join(rows, ", ")))
	return b
}

// PutRawDependencies upserts a batch of raw (unresolved) dependency rows.
func (b *MutationBuilder) PutRawDependencies(deps []model.RawDependency) *MutationBuilder {
	if len(deps) == 0 {
		return b
	}
	rows := make([]string, len(deps))
	for i, d := range deps {
		rows[i] = fmt.Sprintf("[%d, %d, %s, %s, %s, %d, %s, %s, %s, %s, %s, %s]",
			d.ID, d.FileID, quoteString(d.FromSymbolName), quoteString(d.TargetName), quoteString(string(d.Kind)),
			d.Line, quoteString(d.ResolvedClass), quoteString(d.CallingObject), quoteString(d.QualifiedContext),
			quoteString(d.ParameterContext), quoteString(strings.Join(d.ParameterTypes, ",")), quoteString(d.CallInstanceID))
	}
	b.statements = append(b.statements, fmt.Sprintf(
		`{ ?[id, file_id, from_symbol_name, target_name, kind, line, resolved_class, calling_object, qualified_context, parameter_context, parameter_types, call_instance_id] <- `+
			`[%s] :put raw_dependency { id => file_id, from_symbol_name, target_name, kind, line, resolved_class, calling_object, qualified_context, parameter_context, parameter_types, call_instance_id } }`,
		strings.Join(rows, ", ")))
	return b
}

// PutFileEdges upserts a batch of resolved file-to-file edges.
func (b *MutationBuilder) PutFileEdges(edges []model.FileEdge) *MutationBuilder {
	if len(edges) == 0 {
		return b
	}
	rows := make([]string, len(edges))
	for i, e := range edges {
		rows[i] = fmt.Sprintf("[%d, %d, %d, %s, %d]",
			e.ID, e.FromFile, e.ToFile, quoteString(string(e.ImportKind)), e.Line)
	}
	b.statements = append(b.statements, fmt.Sprintf(
		`{ ?[id, from_file, to_file, import_kind, line] <- `+
			`[%s] :put file_edge { id => from_file, to_file, import_kind, line } }`,
		strings.Join(rows, ", ")))
	return b
}

// PutSymbolEdges upserts a batch of resolved symbol-to-symbol edges.
func (b *MutationBuilder) PutSymbolEdges(edges []model.SymbolEdge) *MutationBuilder {
	if len(edges) == 0 {
		return b
	}
	rows := make([]string, len(edges))
	for i, e := range edges {
		rows[i] = fmt.Sprintf("[%d, %d, %d, %s, %s, %d, %s]",
			e.ID, e.FromSymbol, e.ToSymbol, quoteString(e.ToQualifiedName), quoteString(string(e.Kind)), e.Line, quoteString(e.ParameterContext))
	}
	b.statements = append(b.statements, fmt.Sprintf(
		`{ ?[id, from_symbol, to_symbol, to_qualified_name, kind, line, parameter_context] <- `+
			`[%s] :put symbol_edge { id => from_symbol, to_symbol, to_qualified_name, kind, line, parameter_context } }`,
		strings.Join(rows, ", ")))
	return b
}

// PutFrameworkEntities upserts a batch of framework-specific entities.
func (b *MutationBuilder) PutFrameworkEntities(entities []model.FrameworkEntity) *MutationBuilder {
	if len(entities) == 0 {
		return b
	}
	rows := make([]string, len(entities))
	for i, e := range entities {
		rows[i] = fmt.Sprintf("[%d, %d, %s, %d, %d, %s]",
			e.ID, e.RepositoryID, quoteString(string(e.Kind)), e.FileID, e.SymbolID, quoteString(encodeMetadata(e.Metadata)))
	}
	b.statements = append(b.statements, fmt.Sprintf(
		`{ ?[id, repository_id, kind, file_id, symbol_id, metadata] <- `+
			`[%s] :put framework_entity { id => repository_id, kind, file_id, symbol_id, metadata } }`,
		strings.Join(rows, ", ")))
	return b
}

// RemoveByIDs appends an `:rm` statement deleting rows of the named
// relation by primary key.
func (b *MutationBuilder) RemoveByIDs(relation string, ids []int64) *MutationBuilder {
	if len(ids) == 0 {
		return b
	}
	rows := make([]string, len(ids))
	for i, id := range ids {
		rows[i] = fmt.Sprintf("[%d]", id)
	}
	b.statements = append(b.statements, fmt.Sprintf(
		`{ ?[id] <- [%s] :rm %s { id } }`, strings.Join(rows, ", "), relation))
	return b
}

// quoteString escapes a Go string for embedding in a CozoScript literal,
// mirroring Cozo's single-quoted string syntax. Null bytes are stripped;
// Cozo strings cannot contain them.
func quoteString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return "'" + s + "'"
}

func boolLit(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func encodeMetadata(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ";")
}
