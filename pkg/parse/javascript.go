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

package parse

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/opengraph-dev/compass/pkg/model"
)

// JSParser handles JavaScript and TypeScript (including TSX), grounded on
// the teacher's walkTSFunctions/extractJSFunction tree-walking style
// (pkg/ingestion/parser_typescript.go), generalized to emit Compass's
// import/export/raw-dependency shapes instead of Go-only call edges.
type JSParser struct {
	opts       Options
	typescript bool
}

// NewJavaScriptParser returns a parser for plain JS/JSX/MJS/CJS files.
func NewJavaScriptParser(opts Options) *JSParser {
	return &JSParser{opts: opts}
}

// NewTypeScriptParser returns a parser for .ts/.tsx files. It shares all
// walking logic with JSParser; the only difference is which tree-sitter
// grammar is selected per file extension.
func NewTypeScriptParser(opts Options) *JSParser {
	return &JSParser{opts: opts, typescript: true}
}

// Language implements Parser.
func (p *JSParser) Language() model.Language {
	if p.typescript {
		return model.LanguageTypeScript
	}
	return model.LanguageJavaScript
}

func (p *JSParser) grammarFor(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx":
		return tsx.GetLanguage()
	case ".ts":
		return typescript.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// Parse implements Parser.
func (p *JSParser) Parse(ctx context.Context, path string, content []byte) (*ParseResult, error) {
	return p.parseWithOffset(ctx, path, content, 0)
}

// parseWithOffset is Parse generalized with a line offset, used by the Vue
// parser to re-invoke the JS/TS walker on a <script> block's content while
// preserving the symbols' true line numbers within the .vue file.
func (p *JSParser) parseWithOffset(ctx context.Context, path string, content []byte, lineOffset int) (*ParseResult, error) {
	lang := p.grammarFor(path)
	chunks := splitChunks(content, p.opts.ChunkingThreshold, p.opts.ChunkOverlapLines)

	result := &ParseResult{}
	for _, c := range chunks {
		cr, err := p.parseChunk(ctx, lang, path, c, lineOffset)
		if err != nil {
			return nil, err
		}
		result.Merge(cr)
	}
	result.Symbols = dedupeSymbols(result.Symbols)
	return result, nil
}

func (p *JSParser) parseChunk(ctx context.Context, lang *sitter.Language, path string, c chunk, lineOffset int) (*ParseResult, error) {
	sp := sitter.NewParser()
	sp.SetLanguage(lang)

	tree, err := sp.ParseCtx(ctx, nil, c.content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	w := &jsWalker{
		src:         c.content,
		path:        path,
		baseLine:    c.startLine - 1 + lineOffset,
		overlapLine: c.overlapLine - 1 + lineOffset,
		result:      &ParseResult{},
		scopeStack:  []string{},
	}
	if root.HasError() {
		w.result.Errors = append(w.result.Errors, ParseError{
			Severity: SeverityWarning,
			Message:  "syntax error in file",
		})
	}
	w.walk(root)
	return w.result, nil
}

// jsWalker accumulates ParseResult entries while descending the tree-sitter
// AST for one chunk. baseLine translates a node's 0-based row within the
// chunk into a 1-based line number in the whole file.
type jsWalker struct {
	src         []byte
	path        string
	baseLine    int
	overlapLine int
	result      *ParseResult
	scopeStack  []string // enclosing function/method/component names
	callCounter int
}

func (w *jsWalker) line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1 + w.baseLine
}

func (w *jsWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

func (w *jsWalker) currentScope() string {
	if len(w.scopeStack) == 0 {
		return ""
	}
	return w.scopeStack[len(w.scopeStack)-1]
}

func (w *jsWalker) walk(n *sitter.Node) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "import_statement":
		w.extractImport(n)
	case "export_statement":
		w.extractExport(n)
	case "function_declaration", "generator_function_declaration":
		w.extractFunction(n)
		return
	case "class_declaration", "abstract_class_declaration":
		w.extractClass(n)
		return
	case "interface_declaration":
		w.extractInterface(n)
	case "lexical_declaration", "variable_declaration":
		w.extractVariableDeclarators(n)
		return
	case "call_expression", "new_expression":
		w.extractCall(n)
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i))
	}
}

func (w *jsWalker) extractImport(n *sitter.Node) {
	sourceNode := n.ChildByFieldName("source")
	specifier := strings.Trim(w.text(sourceNode), `'"`)
	if specifier == "" {
		return
	}
	line := w.line(n)

	var names []string
	importType := model.ImportSideEffect
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "import_clause":
			for j := 0; j < int(child.ChildCount()); j++ {
				cc := child.Child(j)
				switch cc.Type() {
				case "identifier":
					names = append(names, w.text(cc))
					importType = model.ImportDefault
				case "named_imports":
					importType = model.ImportNamed
					for k := 0; k < int(cc.ChildCount()); k++ {
						spec := cc.Child(k)
						if spec.Type() != "import_specifier" {
							continue
						}
						nameNode := spec.ChildByFieldName("name")
						if nameNode != nil {
							names = append(names, w.text(nameNode))
						}
					}
				case "namespace_import":
					importType = model.ImportNamespace
					names = append(names, strings.TrimPrefix(w.text(cc), "* as "))
				}
			}
		}
	}

	w.result.Imports = append(w.result.Imports, model.Import{
		Specifier:     specifier,
		ImportType:    importType,
		ImportedNames: names,
		Line:          line,
	})
}

func (w *jsWalker) extractExport(n *sitter.Node) {
	line := w.line(n)
	text := w.text(n)
	kind := "named"
	if strings.Contains(text, "export default") {
		kind = "default"
	}

	declaration := n.ChildByFieldName("declaration")
	if declaration != nil {
		switch declaration.Type() {
		case "function_declaration", "generator_function_declaration", "class_declaration":
			nameNode := declaration.ChildByFieldName("name")
			if nameNode != nil {
				w.result.Exports = append(w.result.Exports, model.Export{Name: w.text(nameNode), Line: line, Kind: kind})
				w.markExported(w.text(nameNode))
			}
		case "lexical_declaration", "variable_declaration":
			for i := 0; i < int(declaration.ChildCount()); i++ {
				d := declaration.Child(i)
				if d.Type() != "variable_declarator" {
					continue
				}
				nameNode := d.ChildByFieldName("name")
				if nameNode != nil {
					w.result.Exports = append(w.result.Exports, model.Export{Name: w.text(nameNode), Line: line, Kind: kind})
					w.markExported(w.text(nameNode))
				}
			}
		}
		return
	}

	// export { a, b as c }
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() != "export_clause" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			spec := child.Child(j)
			if spec.Type() != "export_specifier" {
				continue
			}
			nameNode := spec.ChildByFieldName("name")
			if nameNode != nil {
				w.result.Exports = append(w.result.Exports, model.Export{Name: w.text(nameNode), Line: line, Kind: kind})
				w.markExported(w.text(nameNode))
			}
		}
	}
}

// markExported flips IsExported on the most recently collected symbol with
// this name, whatever its scope. Exports frequently follow the declaration
// in source order, so this is a linear backward scan rather than an index.
func (w *jsWalker) markExported(name string) {
	for i := len(w.result.Symbols) - 1; i >= 0; i-- {
		if w.result.Symbols[i].Name == name {
			w.result.Symbols[i].IsExported = true
			return
		}
	}
}

func (w *jsWalker) extractFunction(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	sym := model.Symbol{
		Name:       name,
		SymbolType: model.SymbolFunction,
		StartLine:  w.line(n),
		EndLine:    int(n.EndPoint().Row) + 1 + w.baseLine,
		Signature:  w.signaturePreview(n),
	}
	w.result.Symbols = append(w.result.Symbols, sym)

	w.scopeStack = append(w.scopeStack, name)
	if body := n.ChildByFieldName("body"); body != nil {
		w.walk(body)
	}
	w.scopeStack = w.scopeStack[:len(w.scopeStack)-1]
}

func (w *jsWalker) extractClass(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	w.result.Symbols = append(w.result.Symbols, model.Symbol{
		Name:       name,
		SymbolType: model.SymbolClass,
		StartLine:  w.line(n),
		EndLine:    int(n.EndPoint().Row) + 1 + w.baseLine,
		Signature:  w.signaturePreview(n),
	})

	if heritage := n.ChildByFieldName("superclass"); heritage != nil {
		w.result.RawDependencies = append(w.result.RawDependencies, model.RawDependency{
			FromSymbolName: name,
			TargetName:     w.text(heritage),
			Kind:           model.DependencyExtends,
			Line:           w.line(heritage),
		})
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		member := body.Child(i)
		if member.Type() != "method_definition" {
			w.walk(member)
			continue
		}
		mNameNode := member.ChildByFieldName("name")
		if mNameNode == nil {
			continue
		}
		mName := w.text(mNameNode)
		qualified := name + "." + mName
		w.result.Symbols = append(w.result.Symbols, model.Symbol{
			Name:          mName,
			SymbolType:    model.SymbolMethod,
			StartLine:     w.line(member),
			EndLine:       int(member.EndPoint().Row) + 1 + w.baseLine,
			Signature:     w.signaturePreview(member),
			QualifiedName: qualified,
		})
		w.scopeStack = append(w.scopeStack, mName)
		if mBody := member.ChildByFieldName("body"); mBody != nil {
			w.walk(mBody)
		}
		w.scopeStack = w.scopeStack[:len(w.scopeStack)-1]
	}
}

// extractInterface records a TypeScript interface as a symbol and its
// `extends` clause as a raw dependency, mirroring the teacher's
// extractTSInterface (pkg/ingestion/parser_typescript.go).
func (w *jsWalker) extractInterface(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	w.result.Symbols = append(w.result.Symbols, model.Symbol{
		Name:       name,
		SymbolType: model.SymbolInterface,
		StartLine:  w.line(n),
		EndLine:    int(n.EndPoint().Row) + 1 + w.baseLine,
		Signature:  w.signaturePreview(n),
	})

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() != "extends_type_clause" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			ref := child.Child(j)
			if ref.Type() == "type_identifier" || ref.Type() == "generic_type" {
				w.result.RawDependencies = append(w.result.RawDependencies, model.RawDependency{
					FromSymbolName: name,
					TargetName:     w.text(ref),
					Kind:           model.DependencyExtends,
					Line:           w.line(ref),
				})
			}
		}
	}
}

var storeFactoryPattern = regexp.MustCompile(`^use[A-Z]\w*Store$`)

func (w *jsWalker) extractVariableDeclarators(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		d := n.Child(i)
		if d.Type() != "variable_declarator" {
			continue
		}
		nameNode := d.ChildByFieldName("name")
		valueNode := d.ChildByFieldName("value")
		if nameNode == nil || valueNode == nil {
			continue
		}
		name := w.text(nameNode)

		switch valueNode.Type() {
		case "arrow_function", "function_expression":
			sym := model.Symbol{
				Name:       name,
				SymbolType: model.SymbolFunction,
				StartLine:  w.line(d),
				EndLine:    int(valueNode.EndPoint().Row) + 1 + w.baseLine,
				Signature:  w.signaturePreview(valueNode),
			}
			w.result.Symbols = append(w.result.Symbols, sym)
			w.scopeStack = append(w.scopeStack, name)
			if body := valueNode.ChildByFieldName("body"); body != nil {
				w.walk(body)
			}
			w.scopeStack = w.scopeStack[:len(w.scopeStack)-1]
		case "object":
			// Object literal: methods defined as shorthand properties are
			// candidate targets for the JS resolver's "local object" and
			// store-factory strategies (spec.md §4.5.3).
			w.result.Symbols = append(w.result.Symbols, model.Symbol{
				Name:       name,
				SymbolType: model.SymbolVariable,
				StartLine:  w.line(d),
				EndLine:    int(valueNode.EndPoint().Row) + 1 + w.baseLine,
			})
			w.extractObjectMethods(valueNode, name)
		case "call_expression":
			// useXxxStore() factory calls are recorded as regular imports
			// per spec.md §4.2, never as a call dependency: the resolver's
			// store-factory strategy keys off the import alone.
			calleeNode := valueNode.ChildByFieldName("function")
			if calleeNode != nil && storeFactoryPattern.MatchString(w.text(calleeNode)) {
				continue
			}
			w.walk(valueNode)
		default:
			w.walk(valueNode)
		}
	}
}

func (w *jsWalker) extractObjectMethods(obj *sitter.Node, ownerName string) {
	for i := 0; i < int(obj.ChildCount()); i++ {
		prop := obj.Child(i)
		switch prop.Type() {
		case "method_definition", "pair":
			nameNode := prop.ChildByFieldName("key")
			if nameNode == nil {
				nameNode = prop.ChildByFieldName("name")
			}
			valueNode := prop.ChildByFieldName("value")
			if nameNode == nil {
				continue
			}
			isFn := prop.Type() == "method_definition"
			if valueNode != nil {
				vt := valueNode.Type()
				isFn = isFn || vt == "arrow_function" || vt == "function_expression"
			}
			if !isFn {
				if valueNode != nil {
					w.walk(valueNode)
				}
				continue
			}
			mName := w.text(nameNode)
			w.result.Symbols = append(w.result.Symbols, model.Symbol{
				Name:          mName,
				SymbolType:    model.SymbolMethod,
				StartLine:     w.line(prop),
				EndLine:       int(prop.EndPoint().Row) + 1 + w.baseLine,
				QualifiedName: ownerName + "." + mName,
			})
			body := prop.ChildByFieldName("body")
			if body == nil && valueNode != nil {
				body = valueNode.ChildByFieldName("body")
			}
			w.scopeStack = append(w.scopeStack, mName)
			if body != nil {
				w.walk(body)
			}
			w.scopeStack = w.scopeStack[:len(w.scopeStack)-1]
		}
	}
}

func (w *jsWalker) extractCall(n *sitter.Node) {
	line := w.line(n)
	w.callCounter++
	instanceID := fmt.Sprintf("%s:%d:%d", w.path, line, w.callCounter)

	if n.Type() == "new_expression" {
		if ctor := n.ChildByFieldName("constructor"); ctor != nil {
			w.result.RawDependencies = append(w.result.RawDependencies, model.RawDependency{
				FromSymbolName: w.currentScope(),
				TargetName:     w.text(ctor),
				Kind:           model.DependencyInstantiates,
				Line:           line,
				CallInstanceID: instanceID,
			})
		}
		return
	}

	callee := n.ChildByFieldName("function")
	if callee == nil {
		return
	}

	switch callee.Type() {
	case "identifier":
		name := w.text(callee)
		if storeFactoryPattern.MatchString(name) {
			return
		}
		w.result.RawDependencies = append(w.result.RawDependencies, model.RawDependency{
			FromSymbolName: w.currentScope(),
			TargetName:     name,
			Kind:           model.DependencyCall,
			Line:           line,
			CallInstanceID: instanceID,
		})
	case "member_expression":
		objectNode := callee.ChildByFieldName("object")
		propertyNode := callee.ChildByFieldName("property")
		if objectNode == nil || propertyNode == nil {
			return
		}
		target := w.text(objectNode) + "." + w.text(propertyNode)
		w.result.RawDependencies = append(w.result.RawDependencies, model.RawDependency{
			FromSymbolName: w.currentScope(),
			TargetName:     target,
			Kind:           model.DependencyCall,
			Line:           line,
			CallingObject:  w.text(objectNode),
			CallInstanceID: instanceID,
		})
	}
}

func (w *jsWalker) signaturePreview(n *sitter.Node) string {
	text := w.text(n)
	if idx := strings.IndexByte(text, '{'); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
