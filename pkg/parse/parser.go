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

// Package parse converts a file's raw bytes into symbols, raw dependencies,
// imports and exports, without consulting the store. Each language parser
// is stateless: the same (path, content) pair always yields the same
// ParseResult.
package parse

import (
	"context"
	"time"

	"github.com/opengraph-dev/compass/pkg/model"
)

// Severity classifies a ParseError. Only SeverityError suppresses
// persistence of the symbols a file produced.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseError is a syntax, timeout or encoding problem encountered while
// parsing a single file. Errors never abort the whole pass; they are
// attached to that file's ParseResult and surfaced in the run summary.
type ParseError struct {
	Line     int
	Column   int
	Message  string
	Severity Severity
}

// ParseResult is everything a Parser extracts from one file. FileID fields
// on the contained entities are left zero; the pipeline fills them in once
// the file's id is known from the store.
type ParseResult struct {
	Symbols           []model.Symbol
	RawDependencies   []model.RawDependency
	Imports           []model.Import
	Exports           []model.Export
	FrameworkEntities []model.FrameworkEntity
	Errors            []ParseError
}

// HasFatalError reports whether any error in the result has SeverityError,
// which per spec.md §4.2 suppresses persistence of the file's symbols.
func (r *ParseResult) HasFatalError() bool {
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Merge appends another result's entities and errors onto r. Used by the
// chunked parsing path to stitch chunk results back together.
func (r *ParseResult) Merge(other *ParseResult) {
	if other == nil {
		return
	}
	r.Symbols = append(r.Symbols, other.Symbols...)
	r.RawDependencies = append(r.RawDependencies, other.RawDependencies...)
	r.Imports = append(r.Imports, other.Imports...)
	r.Exports = append(r.Exports, other.Exports...)
	r.FrameworkEntities = append(r.FrameworkEntities, other.FrameworkEntities...)
	r.Errors = append(r.Errors, other.Errors...)
}

// Parser is implemented by every per-language syntactic parser. A Parser
// must be safe to call repeatedly and must not retain state between calls;
// per spec.md §4.2, "Parsers are stateless and do not consult the store."
type Parser interface {
	Parse(ctx context.Context, path string, content []byte) (*ParseResult, error)
	Language() model.Language
}

// Options configures chunking and per-file timeouts, sourced from
// pkg/config.Config.
type Options struct {
	// ChunkingThreshold is the byte size above which a file is split into
	// overlapping chunks before parsing. Zero disables chunking.
	ChunkingThreshold int

	// ChunkOverlapLines is the number of lines of overlap carried between
	// adjacent chunks, wide enough that a single declaration is never
	// split across a chunk boundary.
	ChunkOverlapLines int

	// ParseTimeout bounds a single Parser.Parse call. Zero means the
	// default of 30s from spec.md §5 "Timeouts".
	ParseTimeout time.Duration
}

// DefaultParseTimeout is spec.md §5's per-file parsing timeout.
const DefaultParseTimeout = 30 * time.Second

func (o Options) timeout() time.Duration {
	if o.ParseTimeout <= 0 {
		return DefaultParseTimeout
	}
	return o.ParseTimeout
}

// Registry dispatches a file's language tag to the Parser that understands
// it. The .vue-splitting parser is constructed with the JS and TS parsers
// so it can delegate embedded script content to them; Godot's data-file
// parser delegates to no other parser.
type Registry struct {
	parsers map[model.Language]Parser
}

// NewRegistry builds the full set of language parsers described in
// spec.md §4.2, wiring each with opts.
func NewRegistry(opts Options) *Registry {
	r := &Registry{parsers: make(map[model.Language]Parser)}
	js := NewJavaScriptParser(opts)
	ts := NewTypeScriptParser(opts)
	r.parsers[model.LanguageJavaScript] = js
	r.parsers[model.LanguageTypeScript] = ts
	r.parsers[model.LanguageVue] = NewVueParser(js, ts, opts)
	r.parsers[model.LanguagePHP] = NewPHPParser(opts)
	r.parsers[model.LanguageCSharp] = NewCSharpParser(opts)
	r.parsers[model.LanguageGodot] = NewGodotParser()
	return r
}

// ForLanguage returns the Parser registered for lang, or false if the
// language has no parser (the walker should never hand such a file over).
func (r *Registry) ForLanguage(lang model.Language) (Parser, bool) {
	p, ok := r.parsers[lang]
	return p, ok
}

// ParseWithTimeout runs p.Parse under a deadline, appending a parse-timeout
// error to the result instead of propagating ctx.DeadlineExceeded, per
// spec.md §5 "Exceeding it records a parser error and continues."
func ParseWithTimeout(ctx context.Context, p Parser, path string, content []byte, timeout time.Duration) *ParseResult {
	if timeout <= 0 {
		timeout = DefaultParseTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type out struct {
		res *ParseResult
		err error
	}
	ch := make(chan out, 1)
	go func() {
		res, err := p.Parse(ctx, path, content)
		ch <- out{res, err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			return &ParseResult{Errors: []ParseError{{Message: o.err.Error(), Severity: SeverityError}}}
		}
		if o.res == nil {
			return &ParseResult{}
		}
		return o.res
	case <-ctx.Done():
		return &ParseResult{Errors: []ParseError{{Message: "parse timeout", Severity: SeverityError}}}
	}
}
