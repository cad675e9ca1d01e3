// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package model defines the entities that flow through the Compass analysis
// pipeline: repositories, files, symbols, imports/exports, raw (unresolved)
// dependencies, and the file/symbol graph edges assembled from them.
package model

// Language identifies a source language a parser understands.
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageVue        Language = "vue"
	LanguagePHP        Language = "php"
	LanguageCSharp     Language = "csharp"
	LanguageGodot      Language = "godot"
)

// Repository is the root unit of analysis: one checked-out codebase.
type Repository struct {
	ID              int64
	Name            string
	RootPath        string
	PrimaryLanguage string
	Frameworks      []string
	LastIndexedAt   int64
	VCSHash         string
}

// File is one source file discovered under a Repository.
type File struct {
	ID           int64
	RepositoryID int64
	Path         string // relative to RootPath
	Language     Language
	Size         int64
	MTime        int64
	ContentHash  string
	IsTest       bool
	IsGenerated  bool
}

// SymbolType enumerates the kinds of declarations the parsers extract.
type SymbolType string

const (
	SymbolFunction  SymbolType = "function"
	SymbolMethod    SymbolType = "method"
	SymbolClass     SymbolType = "class"
	SymbolInterface SymbolType = "interface"
	SymbolComponent SymbolType = "component"
	SymbolVariable  SymbolType = "variable"
	SymbolField     SymbolType = "field"
)

// Symbol is a named declaration within a File.
type Symbol struct {
	ID             int64
	FileID         int64
	Name           string
	SymbolType     SymbolType
	StartLine      int
	EndLine        int
	IsExported     bool
	Visibility     string // "public", "private", "protected", ""
	Signature      string
	QualifiedName  string // e.g. "Namespace\Class::method", "Class.Method"
	DeclaredType   string // for SymbolField: the field's declared type text; for a C# class/interface: its comma-joined bases
}

// ImportType enumerates the shapes import declarations can take.
type ImportType string

const (
	ImportNamed       ImportType = "named"
	ImportDefault     ImportType = "default"
	ImportNamespace   ImportType = "namespace"
	ImportSideEffect  ImportType = "side_effect"
	ImportUse         ImportType = "use" // PHP `use` statement
)

// Import records one import/use declaration in a File.
type Import struct {
	ID            int64
	FileID        int64
	Specifier     string // module specifier / namespace path
	ImportType    ImportType
	ImportedNames []string
	Alias         string
	Line          int
}

// Export records one export declaration in a File.
type Export struct {
	ID     int64
	FileID int64
	Name   string
	Kind   string // "named", "default"
	Line   int
}

// DependencyKind enumerates the kinds of raw (unresolved) dependencies a
// parser can emit. The resolver turns these into SymbolEdges or drops them.
type DependencyKind string

const (
	DependencyCall      DependencyKind = "calls"
	DependencyExtends   DependencyKind = "extends"
	DependencyImplements DependencyKind = "implements"
	DependencyInstantiates DependencyKind = "instantiates"
)

// RawDependency is an unresolved reference extracted directly from syntax,
// before the Symbol Resolver attempts to turn it into a SymbolEdge.
type RawDependency struct {
	ID               int64
	FileID           int64
	FromSymbolName   string // name of the symbol owning this reference
	FromSymbolID     int64  // resolved at parse time when unambiguous within the file
	TargetName       string // e.g. "Foo", "pkg.Foo", "$x->bar", "Obj.Method"
	Kind             DependencyKind
	Line             int
	ResolvedClass    string // PHP: statically known class of $this/$x, if any
	CallingObject    string // PHP/C#: receiver expression text ("$x", "_field", "this")
	QualifiedContext string // e.g. "field_call_<fieldName>"
	ParameterContext string // free-form context passed through to the graph layer
	ParameterTypes   []string
	CallInstanceID   string // disambiguates repeated identical calls in one file
}

// FileEdge is a resolved file-to-file dependency, derived from Imports.
type FileEdge struct {
	ID         int64
	FromFile   int64
	ToFile     int64
	ImportKind ImportType
	Line       int
}

// SymbolEdge is a resolved symbol-to-symbol dependency. ToSymbol is 0 for
// an edge re-queued as unresolved by CleanupFileData/CleanupRepository: the
// symbol it pointed to was removed but ToQualifiedName is kept so the edge
// can re-bind on the next pass that re-declares a matching symbol.
type SymbolEdge struct {
	ID               int64
	FromSymbol       int64
	ToSymbol         int64
	ToQualifiedName  string
	Kind             DependencyKind
	Line             int
	ParameterContext string
	StrategyTag      string // which resolver strategy produced this edge
}

// FrameworkEntityKind enumerates framework-specific entities recorded
// outside the generic Symbol model (Godot scene graph, autoloads, ...).
type FrameworkEntityKind string

const (
	FrameworkEntityScene    FrameworkEntityKind = "scene"
	FrameworkEntityNode     FrameworkEntityKind = "node"
	FrameworkEntityScript   FrameworkEntityKind = "script"
	FrameworkEntityAutoload FrameworkEntityKind = "autoload"
)

// FrameworkEntity is a framework-specific node that does not fit the
// Symbol model (e.g. a Godot scene node, an autoloaded singleton).
type FrameworkEntity struct {
	ID           int64
	RepositoryID int64
	Kind         FrameworkEntityKind
	FileID       int64
	SymbolID     int64
	Metadata     map[string]string
}
